package wiretap

import (
	"context"
	"errors"
	"fmt"

	"wiretap/internal/logging"
)

// Library is a library to create under a library list, with its folders in
// creation order.
type Library struct {
	Name    string
	Folders []string
}

type namedNode struct {
	name string
	node Node
}

// createNode issues a single create-child call. An empty name defaults to the
// title-cased type.
func (h *Handler) createNode(ctx context.Context, parent Node, nodeType NodeType, name string) (Node, error) {
	if name == "" {
		name = nodeType.DefaultName()
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	node, err := parent.CreateChild(ctx, name, nodeType)
	if err != nil {
		return nil, remoteError(ErrNodeCreation, "create node", JoinPath(parent.Path(), name), err)
	}
	h.logger.Debug("node created",
		logging.String(logging.FieldNodePath, node.Path()),
		logging.String(logging.FieldNodeType, nodeType.String()))
	return node, nil
}

// findNode searches depth-first below parent for the first node matching both
// name and type. Each child is checked and then descended into before its next
// sibling, so a deep match under an early sibling wins over a shallow match
// under a later one. A nil node and nil error mean no match.
func (h *Handler) findNode(ctx context.Context, parent Node, name string, nodeType NodeType) (Node, error) {
	parentName, err := parent.DisplayName(ctx)
	if err != nil {
		return nil, remoteError(ErrTransport, "get node name", parent.Path(), err)
	}

	count, err := parent.NumChildren(ctx)
	if err != nil {
		return nil, remoteError(ErrTransport, fmt.Sprintf("get children number for node %s", parentName), parent.Path(), err)
	}

	for idx := 0; idx < count; idx++ {
		child, err := parent.Child(ctx, idx)
		if err != nil {
			return nil, remoteError(ErrTransport, "get child", parent.Path(), err)
		}
		childName, err := child.DisplayName(ctx)
		if err != nil {
			return nil, remoteError(ErrTransport, "get node name", child.Path(), err)
		}
		childType, err := child.TypeString(ctx)
		if err != nil {
			return nil, remoteError(ErrTransport, "get node type", child.Path(), err)
		}
		if childName == name && childType == nodeType.String() {
			return child, nil
		}

		found, err := h.findNode(ctx, child, name, nodeType)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, nil
}

// childNodeExists reports whether a direct child of parentPath has exactly the
// given name and type. Deeper descendants are never considered.
func (h *Handler) childNodeExists(ctx context.Context, parentPath, name string, nodeType NodeType) (bool, error) {
	parent := h.server.Node(parentPath)

	count, err := parent.NumChildren(ctx)
	if err != nil {
		return false, transportError(parentPath, err)
	}

	for idx := 0; idx < count; idx++ {
		child, err := parent.Child(ctx, idx)
		if err != nil {
			return false, remoteError(ErrTransport, "get child", parentPath, err)
		}
		childName, err := child.DisplayName(ctx)
		if err != nil {
			return false, remoteError(ErrTransport, "get child", child.Path(), err)
		}
		childType, err := child.TypeString(ctx)
		if err != nil {
			return false, remoteError(ErrTransport, "obtain child type", child.Path(), err)
		}
		if childName == name && childType == nodeType.String() {
			return true, nil
		}
	}
	return false, nil
}

// children lists the direct children of parent in index order.
func (h *Handler) children(ctx context.Context, parent Node) ([]namedNode, error) {
	count, err := parent.NumChildren(ctx)
	if err != nil {
		return nil, remoteError(ErrNodeCreation, "obtain number of children for", parent.Path(), err)
	}

	out := make([]namedNode, 0, count)
	for idx := 0; idx < count; idx++ {
		child, err := parent.Child(ctx, idx)
		if err != nil {
			return nil, remoteError(ErrNodeCreation, "get child of", parent.Path(), err)
		}
		name, err := child.DisplayName(ctx)
		if err != nil {
			return nil, remoteError(ErrNodeCreation, "get child name", child.Path(), err)
		}
		out = append(out, namedNode{name: name, node: child})
	}
	return out, nil
}

func (h *Handler) childNames(ctx context.Context, parentPath string) ([]string, error) {
	parent, err := h.requireNode(ctx, parentPath, ErrNodeCreation)
	if err != nil {
		return nil, err
	}
	children, err := h.children(ctx, parent)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(children))
	for _, child := range children {
		names = append(names, child.name)
	}
	return names, nil
}

// requireNode resolves a handle for path and fails with kind, carrying the
// service's message, when the node does not answer.
func (h *Handler) requireNode(ctx context.Context, path string, kind error) (Node, error) {
	if h.server == nil {
		return nil, errors.New("wiretap session is closed")
	}
	node := h.server.Node(path)
	if _, err := node.DisplayName(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, remoteError(kind, "resolve", path, err)
	}
	return node, nil
}

// nodeFromPath resolves a handle for path. A node that does not report a
// display name is treated as absent: the result is nil with no error.
func (h *Handler) nodeFromPath(ctx context.Context, path string) (Node, error) {
	if h.server == nil {
		return nil, errors.New("wiretap session is closed")
	}
	node := h.server.Node(path)
	if _, err := node.DisplayName(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		h.logger.Debug("node lookup returned no display name",
			logging.String(logging.FieldNodePath, path),
			logging.Error(err))
		return nil, nil
	}
	return node, nil
}

// CreateProjectLibraries creates libraries and their folders under the
// library list named listName found below parent. The list itself must
// already exist; a missing list fails with ErrNotFound and nothing is created.
func (h *Handler) CreateProjectLibraries(ctx context.Context, parent Node, listName string, libraries []Library) error {
	if parent == nil {
		return fmt.Errorf("create libraries in %q: %w: no parent node", listName, ErrNotFound)
	}
	if len(libraries) == 0 {
		return nil
	}

	listNode, err := h.findNode(ctx, parent, listName, TypeLibraryList)
	if err != nil {
		return err
	}
	if listNode == nil {
		return &RemoteError{
			Kind:    ErrNotFound,
			Op:      "find library list",
			Path:    JoinPath(parent.Path(), listName),
			Message: fmt.Sprintf("no %s named %q below %s", TypeLibraryList, listName, parent.Path()),
		}
	}

	for _, lib := range libraries {
		libNode, err := h.createNode(ctx, listNode, TypeLibrary, lib.Name)
		if err != nil {
			return err
		}
		for _, folder := range lib.Folders {
			if _, err := h.createNode(ctx, libNode, TypeFolder, folder); err != nil {
				return err
			}
		}
		h.logger.Info("library created",
			logging.String(logging.FieldNodePath, libNode.Path()),
			logging.Int("folders", len(lib.Folders)))
	}
	return nil
}
