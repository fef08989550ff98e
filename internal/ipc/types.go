package ipc

import "wiretap/internal/wiretap"

// ServiceName is the RPC service the gateway registers.
const ServiceName = "NodeTree"

// HelloRequest opens a session. Every other call must carry the session ID.
type HelloRequest struct {
	SessionID string `json:"session_id"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
}

// HelloResponse describes the gateway a session is bound to.
type HelloResponse struct {
	SupportedVersions []string `json:"supported_versions"`
	Database          string   `json:"database"`
}

// PathRequest addresses a single node.
type PathRequest struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
}

// NodeResponse carries one node.
type NodeResponse struct {
	Node wiretap.NodeInfo `json:"node"`
}

// ChildrenResponse carries the children of a node in index order.
type ChildrenResponse struct {
	Children []wiretap.NodeInfo `json:"children"`
}

// CreateChildRequest creates a node below ParentPath.
type CreateChildRequest struct {
	SessionID  string           `json:"session_id"`
	ParentPath string           `json:"parent_path"`
	Name       string           `json:"name"`
	Type       wiretap.NodeType `json:"type"`
}

// MetadataRequest reads or, with Data, writes a metadata stream.
type MetadataRequest struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
	Stream    string `json:"stream"`
	Data      string `json:"data,omitempty"`
}

// MetadataResponse carries a metadata stream.
type MetadataResponse struct {
	Data string `json:"data"`
}

// SessionRequest identifies a session for calls without further arguments.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// StatsResponse summarizes the node store.
type StatsResponse struct {
	Database string         `json:"database"`
	Total    int            `json:"total"`
	ByType   map[string]int `json:"by_type"`
	Sessions int            `json:"sessions"`
}

// Empty is the response of calls without a result.
type Empty struct{}
