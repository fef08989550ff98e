package wiretap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// NodeInfo describes a node as reported by a path-addressed backend.
type NodeInfo struct {
	Path string   `json:"path"`
	Name string   `json:"name"`
	Type NodeType `json:"type"`
}

// PathBackend is a node tree addressed by slash paths. The node store and the
// gateway client both implement it.
type PathBackend interface {
	Lookup(ctx context.Context, path string) (NodeInfo, error)
	Children(ctx context.Context, path string) ([]NodeInfo, error)
	CreateChild(ctx context.Context, parentPath, name string, nodeType NodeType) (NodeInfo, error)
	SetMetadata(ctx context.Context, path, stream, data string) error
	Metadata(ctx context.Context, path, stream string) (string, error)
	Destroy(ctx context.Context, path string) error
}

// DialFunc opens a backend for a hostname.
type DialFunc func(ctx context.Context, hostname string) (PathBackend, error)

// PathBinding adapts a PathBackend to the node-handle Binding. Backends that
// implement io.Closer are closed on Uninit.
type PathBinding struct {
	dial DialFunc

	mu          sync.Mutex
	initialized bool
	backends    []PathBackend
}

// NewPathBinding constructs a binding that opens backends through dial.
func NewPathBinding(dial DialFunc) *PathBinding {
	return &PathBinding{dial: dial}
}

// StaticBackend returns a DialFunc that ignores the hostname and always
// yields backend.
func StaticBackend(backend PathBackend) DialFunc {
	return func(context.Context, string) (PathBackend, error) {
		if backend == nil {
			return nil, errors.New("backend unavailable")
		}
		return backend, nil
	}
}

func (b *PathBinding) Init(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dial == nil {
		return errors.New("no backend configured")
	}
	b.initialized = true
	return nil
}

func (b *PathBinding) Connect(ctx context.Context, hostname string) (Server, error) {
	b.mu.Lock()
	initialized := b.initialized
	b.mu.Unlock()
	if !initialized {
		return nil, errors.New("client API not initialized")
	}

	backend, err := b.dial(ctx, hostname)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.backends = append(b.backends, backend)
	b.mu.Unlock()
	return &pathServer{hostname: hostname, backend: backend}, nil
}

func (b *PathBinding) Uninit() error {
	b.mu.Lock()
	backends := b.backends
	b.backends = nil
	b.initialized = false
	b.mu.Unlock()

	var errs []error
	for _, backend := range backends {
		if closer, ok := backend.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close backend: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

type pathServer struct {
	hostname string
	backend  PathBackend
}

func (s *pathServer) Hostname() string { return s.hostname }

func (s *pathServer) Node(path string) Node {
	return &pathNode{backend: s.backend, path: path}
}

// pathNode snapshots the child list on NumChildren so index-based Child calls
// see a stable ordering.
type pathNode struct {
	backend  PathBackend
	path     string
	children []NodeInfo
	loaded   bool
}

func (n *pathNode) Path() string { return n.path }

func (n *pathNode) DisplayName(ctx context.Context) (string, error) {
	info, err := n.backend.Lookup(ctx, n.path)
	if err != nil {
		return "", err
	}
	return info.Name, nil
}

func (n *pathNode) TypeString(ctx context.Context) (string, error) {
	info, err := n.backend.Lookup(ctx, n.path)
	if err != nil {
		return "", err
	}
	return info.Type.String(), nil
}

func (n *pathNode) NumChildren(ctx context.Context) (int, error) {
	children, err := n.backend.Children(ctx, n.path)
	if err != nil {
		return 0, err
	}
	n.children = children
	n.loaded = true
	return len(children), nil
}

func (n *pathNode) Child(ctx context.Context, index int) (Node, error) {
	if !n.loaded {
		if _, err := n.NumChildren(ctx); err != nil {
			return nil, err
		}
	}
	if index < 0 || index >= len(n.children) {
		return nil, fmt.Errorf("child index %d out of range (%d children)", index, len(n.children))
	}
	return &pathNode{backend: n.backend, path: n.children[index].Path}, nil
}

func (n *pathNode) CreateChild(ctx context.Context, name string, nodeType NodeType) (Node, error) {
	info, err := n.backend.CreateChild(ctx, n.path, name, nodeType)
	if err != nil {
		return nil, err
	}
	n.loaded = false
	return &pathNode{backend: n.backend, path: info.Path}, nil
}

func (n *pathNode) SetMetadata(ctx context.Context, stream, data string) error {
	return n.backend.SetMetadata(ctx, n.path, stream, data)
}

func (n *pathNode) Metadata(ctx context.Context, stream string) (string, error) {
	return n.backend.Metadata(ctx, n.path, stream)
}

func (n *pathNode) Destroy(ctx context.Context) error {
	return n.backend.Destroy(ctx, n.path)
}
