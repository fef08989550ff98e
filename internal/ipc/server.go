package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"slices"
	"strings"
	"sync"

	"wiretap/internal/logging"
	"wiretap/internal/nodestore"
	"wiretap/internal/wiretap"
)

const unixPrefix = "unix:"

// Backend is the node tree the gateway serves.
type Backend interface {
	wiretap.PathBackend
	Stats(ctx context.Context) (nodestore.Stats, error)
}

// Server exposes a node tree via JSON-RPC over TCP or a Unix domain socket.
type Server struct {
	network   string
	address   string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server
	svc       *service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer listens on address, either host:port or unix:<path>, and
// registers the node tree service. Clients must announce one of versions.
func NewServer(ctx context.Context, address string, backend Backend, versions []string, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("ipc server requires a backend")
	}
	if len(versions) == 0 {
		return nil, errors.New("ipc server requires at least one supported version")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	network, addr := splitAddress(address)
	if network == "unix" {
		if err := os.RemoveAll(addr); err != nil {
			return nil, fmt.Errorf("remove existing socket: %w", err)
		}
	}

	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	svc := &service{
		backend:  backend,
		versions: append([]string(nil), versions...),
		logger:   logging.NewComponentLogger(logger, "ipc"),
		ctx:      serverCtx,
		sessions: make(map[string]string),
	}
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		network:   network,
		address:   addr,
		logger:    svc.logger,
		listener:  listener,
		rpcServer: rpcServer,
		svc:       svc,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the address clients dial, resolving ephemeral TCP ports.
func (s *Server) Addr() string {
	if s.network == "unix" {
		return unixPrefix + s.address
	}
	return s.listener.Addr().String()
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Info("gateway listening", logging.String("address", s.Addr()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				codec := &sessionCodec{ServerCodec: jsonrpc.NewServerCodec(c)}
				s.rpcServer.ServeCodec(codec)
				s.svc.dropSessions(codec.sessionIDs)
			}(conn)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = s.listener.Close()
	}()
}

func (s *Server) track(conn net.Conn, open bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if open {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// Close stops the server, drops open client connections, and removes the
// socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if s.network != "unix" {
		return
	}
	if err := os.RemoveAll(s.address); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.address),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"))
	}
}

func splitAddress(address string) (network, addr string) {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, unixPrefix) {
		return "unix", strings.TrimPrefix(address, unixPrefix)
	}
	return "tcp", address
}

// sessionCodec remembers the session ids announced on one connection so they
// can be released when it closes. net/rpc reads a header and its body from a
// single goroutine, so no locking is needed.
type sessionCodec struct {
	rpc.ServerCodec
	method     string
	sessionIDs []string
}

func (c *sessionCodec) ReadRequestHeader(r *rpc.Request) error {
	err := c.ServerCodec.ReadRequestHeader(r)
	c.method = r.ServiceMethod
	return err
}

func (c *sessionCodec) ReadRequestBody(body any) error {
	err := c.ServerCodec.ReadRequestBody(body)
	if err != nil || c.method != ServiceName+".Hello" {
		return err
	}
	if req, ok := body.(*HelloRequest); ok && req.SessionID != "" {
		c.sessionIDs = append(c.sessionIDs, req.SessionID)
	}
	return nil
}

type service struct {
	backend  Backend
	versions []string
	logger   *slog.Logger
	ctx      context.Context

	mu       sync.Mutex
	sessions map[string]string
}

func (s *service) sessionLogger(id string) *slog.Logger {
	return logging.WithContext(logging.WithSessionID(s.ctx, id), s.logger)
}

func (s *service) session(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return errors.New("session not initialized; call Hello first")
	}
	return nil
}

func (s *service) Hello(req HelloRequest, resp *HelloResponse) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return errors.New("session id is required")
	}
	if !slices.Contains(s.versions, req.Version) {
		s.logger.Warn("client version rejected",
			logging.String("version", req.Version),
			logging.String(logging.FieldSessionID, req.SessionID),
			logging.String(logging.FieldEventType, "ipc_version_rejected"))
		return fmt.Errorf("wiretap client version %q is not supported (supported: %s)",
			req.Version, strings.Join(s.versions, ", "))
	}

	s.mu.Lock()
	s.sessions[req.SessionID] = req.Hostname
	s.mu.Unlock()

	s.sessionLogger(req.SessionID).Debug("session opened",
		logging.String(logging.FieldHost, req.Hostname),
		logging.String("version", req.Version))
	resp.SupportedVersions = append([]string(nil), s.versions...)
	if stats, err := s.backend.Stats(s.ctx); err == nil {
		resp.Database = stats.Path
	}
	return nil
}

// dropSessions forgets sessions whose connection went away without Goodbye.
func (s *service) dropSessions(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	dropped := 0
	for _, id := range ids {
		if _, ok := s.sessions[id]; ok {
			delete(s.sessions, id)
			dropped++
		}
	}
	s.mu.Unlock()
	if dropped > 0 {
		s.logger.Debug("dropped sessions of closed connection", logging.Int("sessions", dropped))
	}
}

func (s *service) Goodbye(req SessionRequest, _ *Empty) error {
	s.mu.Lock()
	delete(s.sessions, req.SessionID)
	s.mu.Unlock()
	s.sessionLogger(req.SessionID).Debug("session closed")
	return nil
}

func (s *service) Lookup(req PathRequest, resp *NodeResponse) error {
	if err := s.session(req.SessionID); err != nil {
		return err
	}
	node, err := s.backend.Lookup(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Node = node
	return nil
}

func (s *service) Children(req PathRequest, resp *ChildrenResponse) error {
	if err := s.session(req.SessionID); err != nil {
		return err
	}
	children, err := s.backend.Children(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Children = children
	return nil
}

func (s *service) CreateChild(req CreateChildRequest, resp *NodeResponse) error {
	if err := s.session(req.SessionID); err != nil {
		return err
	}
	node, err := s.backend.CreateChild(s.ctx, req.ParentPath, req.Name, req.Type)
	if err != nil {
		s.sessionLogger(req.SessionID).Debug("create rejected",
			logging.String(logging.FieldNodePath, wiretap.JoinPath(req.ParentPath, req.Name)),
			logging.String(logging.FieldNodeType, req.Type.String()),
			logging.Error(err))
		return err
	}
	resp.Node = node
	return nil
}

func (s *service) SetMetadata(req MetadataRequest, _ *Empty) error {
	if err := s.session(req.SessionID); err != nil {
		return err
	}
	return s.backend.SetMetadata(s.ctx, req.Path, req.Stream, req.Data)
}

func (s *service) Metadata(req MetadataRequest, resp *MetadataResponse) error {
	if err := s.session(req.SessionID); err != nil {
		return err
	}
	data, err := s.backend.Metadata(s.ctx, req.Path, req.Stream)
	if err != nil {
		return err
	}
	resp.Data = data
	return nil
}

func (s *service) Destroy(req PathRequest, _ *Empty) error {
	if err := s.session(req.SessionID); err != nil {
		return err
	}
	if err := s.backend.Destroy(s.ctx, req.Path); err != nil {
		return err
	}
	s.sessionLogger(req.SessionID).Info("node destroyed", logging.String(logging.FieldNodePath, req.Path))
	return nil
}

func (s *service) Stats(req SessionRequest, resp *StatsResponse) error {
	if err := s.session(req.SessionID); err != nil {
		return err
	}
	stats, err := s.backend.Stats(s.ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	sessions := len(s.sessions)
	s.mu.Unlock()

	resp.Database = stats.Path
	resp.Total = stats.Total
	resp.ByType = stats.ByType
	resp.Sessions = sessions
	return nil
}
