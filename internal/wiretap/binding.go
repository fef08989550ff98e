package wiretap

import "context"

// Binding is the client stack a Handler runs on. Init and Uninit bracket
// every session and must be paired exactly once.
type Binding interface {
	Init(ctx context.Context) error
	Connect(ctx context.Context, hostname string) (Server, error)
	Uninit() error
}

// Server resolves node handles on one host. Node never fails: a handle to a
// missing path reports errors from its methods instead.
type Server interface {
	Hostname() string
	Node(path string) Node
}

// Node is a transient handle to a node in the service tree. Handles become
// invalid once their session is closed. Errors carry the message the service
// reported for the call.
type Node interface {
	Path() string
	DisplayName(ctx context.Context) (string, error)
	TypeString(ctx context.Context) (string, error)
	NumChildren(ctx context.Context) (int, error)
	Child(ctx context.Context, index int) (Node, error)
	CreateChild(ctx context.Context, name string, nodeType NodeType) (Node, error)
	SetMetadata(ctx context.Context, stream, data string) error
	Metadata(ctx context.Context, stream string) (string, error)
	Destroy(ctx context.Context) error
}
