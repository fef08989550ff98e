package wiretap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"wiretap/internal/logging"
)

// DefaultHostname is the host a Handler connects to when none is given.
const DefaultHostname = "localhost"

// Handler owns one session against a Wiretap host.
type Handler struct {
	hostname  string
	binding   Binding
	server    Server
	logger    *slog.Logger
	sessionID string

	closeOnce sync.Once
	closeErr  error
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger routes handler logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(h *Handler) {
		if id = strings.TrimSpace(id); id != "" {
			h.sessionID = id
		}
	}
}

// Project is the result of CreateProject.
type Project struct {
	Name string
	Node Node
	// Created is false when the project already existed and nothing was
	// written.
	Created bool
}

// NewHandler initializes the client stack and connects to hostname. Callers
// must Close the returned Handler.
func NewHandler(ctx context.Context, binding Binding, hostname string, opts ...Option) (*Handler, error) {
	if binding == nil {
		return nil, fmt.Errorf("%w: no client binding", ErrConnection)
	}
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		hostname = DefaultHostname
	}

	h := &Handler{
		hostname:  hostname,
		binding:   binding,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(h)
	}
	base := h.logger
	if base == nil {
		base = logging.NewNop()
	}
	h.logger = logging.NewComponentLogger(base, "wiretap").With(
		logging.String(logging.FieldHost, hostname),
		logging.String(logging.FieldSessionID, h.sessionID),
	)

	if err := binding.Init(ctx); err != nil {
		h.logger.Error("unable to initialize wiretap client API", logging.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	server, err := binding.Connect(ctx, hostname)
	if err != nil {
		if uninitErr := binding.Uninit(); uninitErr != nil {
			h.logger.Warn("client API uninit failed after connect error", logging.Error(uninitErr))
		}
		h.logger.Error("unable to connect to wiretap server", logging.Error(err))
		return nil, fmt.Errorf("%w: connect %s: %w", ErrConnection, hostname, err)
	}
	h.server = server
	h.logger.Debug("wiretap session opened")
	return h, nil
}

// Hostname returns the host the session is bound to.
func (h *Handler) Hostname() string { return h.hostname }

// SessionID returns the identifier attached to this session's logs.
func (h *Handler) SessionID() string { return h.sessionID }

// Close drops the server handle and uninitializes the client stack. Only the
// first call has an effect.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() {
		h.server = nil
		h.closeErr = h.binding.Uninit()
		if h.closeErr != nil {
			h.logger.Warn("client API uninit failed", logging.Error(h.closeErr))
			return
		}
		h.logger.Debug("wiretap session closed")
	})
	return h.closeErr
}

// CreateProject creates a project on the first volume of the host, writes its
// settings as XML metadata, and gives it a workspace with a desktop. An
// existing project is returned untouched with Created set to false.
func (h *Handler) CreateProject(ctx context.Context, name string, settings ProjectSettings) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if h.server == nil {
		return nil, errors.New("wiretap session is closed")
	}
	logger := h.logger.With(logging.String(logging.FieldProject, name))

	exists, err := h.childNodeExists(ctx, ProjectsPath, name, TypeProject)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Info("project already exists; nothing to create")
		return &Project{Name: name, Node: h.server.Node(projectPath(name))}, nil
	}

	entries := settings.Entries()
	metadata, err := EncodeProjectMetadata(entries)
	if err != nil {
		return nil, err
	}
	logger.Info("project does not exist; creating it", settingsAttr(entries))

	volumes, err := h.Volumes(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("volumes found", logging.Any("volumes", volumes))
	if len(volumes) == 0 {
		return nil, fmt.Errorf("cannot create project %q: %w on host %s", name, ErrNoVolume, h.hostname)
	}

	volume, err := h.requireNode(ctx, volumePath(volumes[0]), ErrNotFound)
	if err != nil {
		return nil, err
	}
	if _, err := h.createNode(ctx, volume, TypeNode, name); err != nil {
		return nil, err
	}

	project := h.server.Node(projectPath(name))
	if err := project.SetMetadata(ctx, MetadataStreamXML, metadata); err != nil {
		return nil, remoteError(ErrMetadata, "set metadata for", project.Path(), err)
	}

	workspace, err := h.createNode(ctx, project, TypeWorkspace, "")
	if err != nil {
		return nil, err
	}
	if _, err := h.createNode(ctx, workspace, TypeDesktop, ""); err != nil {
		return nil, err
	}

	logger.Info("project created",
		logging.String(logging.FieldNodePath, project.Path()),
		logging.String("volume", volumes[0]))
	return &Project{Name: name, Node: project, Created: true}, nil
}

// CreateUser creates a user and its fixed set of tool-category nodes. The
// first failed creation aborts the operation; nodes created before it are
// left in place.
func (h *Handler) CreateUser(ctx context.Context, name string) (Node, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if h.server == nil {
		return nil, errors.New("wiretap session is closed")
	}
	logger := h.logger.With(logging.String(logging.FieldUser, name))

	exists, err := h.childNodeExists(ctx, UsersPath, name, TypeUser)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &RemoteError{Kind: ErrNodeCreation, Op: "create user", Path: userPath(name), Message: "user already exists"}
	}

	users := h.server.Node(UsersPath)
	user, err := h.createNode(ctx, users, TypeUser, name)
	if err != nil {
		return nil, err
	}
	for idx, category := range userCategoryNodes {
		if _, err := h.createNode(ctx, user, TypeNode, category); err != nil {
			logger.Error("user creation aborted",
				logging.Int("created_categories", idx),
				logging.Int("total_categories", len(userCategoryNodes)),
				logging.Error(err))
			return nil, err
		}
	}
	logger.Info("user created",
		logging.String(logging.FieldNodePath, user.Path()),
		logging.Int("categories", len(userCategoryNodes)))
	return user, nil
}

// DeleteUser destroys a user node and everything below it.
func (h *Handler) DeleteUser(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	user, err := h.User(ctx, name)
	if err != nil {
		return err
	}
	if user == nil {
		return &RemoteError{Kind: ErrNotFound, Op: "delete user", Path: userPath(name), Message: "no such user"}
	}
	if err := user.Destroy(ctx); err != nil {
		return remoteError(ErrNodeCreation, "delete user", user.Path(), err)
	}
	h.logger.Info("user deleted", logging.String(logging.FieldUser, name))
	return nil
}

// Projects returns the names of every project on the host.
func (h *Handler) Projects(ctx context.Context) ([]string, error) {
	return h.childNames(ctx, ProjectsPath)
}

// Users returns the names of every user on the host.
func (h *Handler) Users(ctx context.Context) ([]string, error) {
	return h.childNames(ctx, UsersPath)
}

// Volumes returns the names of every volume on the host, in registration
// order.
func (h *Handler) Volumes(ctx context.Context) ([]string, error) {
	return h.childNames(ctx, VolumesPath)
}

// Project resolves a project handle, or nil when it does not exist.
func (h *Handler) Project(ctx context.Context, name string) (Node, error) {
	return h.nodeFromPath(ctx, projectPath(name))
}

// User resolves a user handle, or nil when it does not exist.
func (h *Handler) User(ctx context.Context, name string) (Node, error) {
	return h.nodeFromPath(ctx, userPath(name))
}

// ProjectMetadata returns the project's XML settings, indented for display.
func (h *Handler) ProjectMetadata(ctx context.Context, name string) (string, error) {
	project, err := h.Project(ctx, name)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", &RemoteError{Kind: ErrNotFound, Op: "read metadata for", Path: projectPath(name), Message: "no such project"}
	}
	raw, err := project.Metadata(ctx, MetadataStreamXML)
	if err != nil {
		return "", remoteError(ErrMetadata, "read metadata for", project.Path(), err)
	}
	return PrettyMetadata(raw)
}

func settingsAttr(entries []Setting) logging.Attr {
	attrs := make([]logging.Attr, 0, len(entries))
	for _, entry := range entries {
		attrs = append(attrs, logging.String(entry.Key, entry.Value))
	}
	return logging.Group("settings", attrs...)
}
