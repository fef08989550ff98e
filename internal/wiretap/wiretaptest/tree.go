// Package wiretaptest provides an in-memory node tree and client binding for
// exercising wiretap.Handler without a running service.
package wiretaptest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"wiretap/internal/wiretap"
)

// DefaultLibraryList is the library list a workspace receives unless the tree
// is configured otherwise.
const DefaultLibraryList = "Libraries"

type node struct {
	id       int
	path     string
	name     string
	nodeType wiretap.NodeType
	parent   string
	volume   string
	metadata map[string]string
}

// Tree is an in-memory node tree that follows the service's namespace rules:
// a NODE created under a VOLUME becomes a PROJECT below /projects, and a new
// WORKSPACE receives its library lists. Tree is safe for concurrent use.
type Tree struct {
	mu           sync.Mutex
	nextID       int
	nodes        map[string]*node
	libraryLists []string

	failCreateAfter int
	failCreateErr   error
	creates         int
	failChildren    map[string]error
	failLookup      map[string]error
	failSetMetadata error
	failDestroy     error
}

// NewTree returns a tree holding only the root namespaces.
func NewTree() *Tree {
	t := &Tree{
		nodes:           make(map[string]*node),
		libraryLists:    []string{DefaultLibraryList},
		failCreateAfter: -1,
		failChildren:    make(map[string]error),
		failLookup:      make(map[string]error),
	}
	t.insert("/", "", "", wiretap.TypeNode, "")
	for _, root := range []string{wiretap.ProjectsPath, wiretap.UsersPath, wiretap.VolumesPath} {
		t.insert(root, "/", strings.TrimPrefix(root, "/"), wiretap.TypeNode, "")
	}
	return t
}

// SetLibraryLists replaces the library lists created under new workspaces.
func (t *Tree) SetLibraryLists(names ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.libraryLists = append([]string(nil), names...)
}

// AddVolume registers a volume. Adding an existing volume is a no-op.
func (t *Tree) AddVolume(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := wiretap.JoinPath(wiretap.VolumesPath, name)
	if _, ok := t.nodes[p]; ok {
		return
	}
	t.insert(p, wiretap.VolumesPath, name, wiretap.TypeVolume, "")
}

// AddNode inserts a node directly, bypassing namespace rules and failure
// injection. It returns the new node's path.
func (t *Tree) AddNode(parentPath, name string, nodeType wiretap.NodeType) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[parentPath]; !ok {
		return "", fmt.Errorf("parent %s does not exist", parentPath)
	}
	p := wiretap.JoinPath(parentPath, name)
	if _, ok := t.nodes[p]; ok {
		return "", fmt.Errorf("node %s already exists", p)
	}
	t.insert(p, parentPath, name, nodeType, "")
	return p, nil
}

// FailCreateAfter makes every create after the first n successful ones fail
// with err. A negative n disables the failure.
func (t *Tree) FailCreateAfter(n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failCreateAfter = n
	t.failCreateErr = err
	t.creates = 0
}

// FailChildren makes child enumeration of path fail with err.
func (t *Tree) FailChildren(path string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failChildren[path] = err
}

// FailLookup makes name and type queries for path fail with err.
func (t *Tree) FailLookup(path string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failLookup[path] = err
}

// FailSetMetadata makes every metadata write fail with err.
func (t *Tree) FailSetMetadata(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failSetMetadata = err
}

// FailDestroy makes every destroy fail with err.
func (t *Tree) FailDestroy(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failDestroy = err
}

// Creates reports how many creates succeeded since the last FailCreateAfter.
func (t *Tree) Creates() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.creates
}

// Exists reports whether a node of the given type exists at path.
func (t *Tree) Exists(path string, nodeType wiretap.NodeType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[path]
	return ok && n.nodeType == nodeType
}

// ChildNames returns the display names of the children of path, bypassing
// failure injection.
func (t *Tree) ChildNames(path string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	children := t.childrenLocked(path)
	names := make([]string, 0, len(children))
	for _, child := range children {
		names = append(names, child.name)
	}
	return names
}

// CountType counts the nodes of nodeType at or below path.
func (t *Tree) CountType(path string, nodeType wiretap.NodeType) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for p, n := range t.nodes {
		if n.nodeType == nodeType && isWithin(p, path) {
			count++
		}
	}
	return count
}

// StoredMetadata returns the raw metadata stream stored for path.
func (t *Tree) StoredMetadata(path, stream string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[path]
	if !ok {
		return "", false
	}
	data, ok := n.metadata[stream]
	return data, ok
}

func (t *Tree) Lookup(_ context.Context, path string) (wiretap.NodeInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failLookup[path]; err != nil {
		return wiretap.NodeInfo{}, err
	}
	n, ok := t.nodes[path]
	if !ok {
		return wiretap.NodeInfo{}, fmt.Errorf("node %s does not exist", path)
	}
	return info(n), nil
}

func (t *Tree) Children(_ context.Context, path string) ([]wiretap.NodeInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failChildren[path]; err != nil {
		return nil, err
	}
	if _, ok := t.nodes[path]; !ok {
		return nil, fmt.Errorf("node %s does not exist", path)
	}
	children := t.childrenLocked(path)
	out := make([]wiretap.NodeInfo, 0, len(children))
	for _, child := range children {
		out = append(out, info(child))
	}
	return out, nil
}

func (t *Tree) CreateChild(_ context.Context, parentPath, name string, nodeType wiretap.NodeType) (wiretap.NodeInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failCreateAfter >= 0 && t.creates >= t.failCreateAfter {
		err := t.failCreateErr
		if err == nil {
			err = errors.New("create refused")
		}
		return wiretap.NodeInfo{}, err
	}
	parent, ok := t.nodes[parentPath]
	if !ok {
		return wiretap.NodeInfo{}, fmt.Errorf("parent %s does not exist", parentPath)
	}
	if err := wiretap.ValidateName(name); err != nil {
		return wiretap.NodeInfo{}, err
	}

	targetParent, targetType, volume := parentPath, nodeType, ""
	if parent.nodeType == wiretap.TypeVolume && nodeType == wiretap.TypeNode {
		targetParent, targetType, volume = wiretap.ProjectsPath, wiretap.TypeProject, parent.name
	}
	p := wiretap.JoinPath(targetParent, name)
	if _, exists := t.nodes[p]; exists {
		return wiretap.NodeInfo{}, fmt.Errorf("node %s already exists", p)
	}

	created := t.insert(p, targetParent, name, targetType, volume)
	if targetType == wiretap.TypeWorkspace {
		for _, list := range t.libraryLists {
			t.insert(wiretap.JoinPath(p, list), p, list, wiretap.TypeLibraryList, "")
		}
	}
	t.creates++
	return info(created), nil
}

func (t *Tree) SetMetadata(_ context.Context, path, stream, data string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failSetMetadata != nil {
		return t.failSetMetadata
	}
	n, ok := t.nodes[path]
	if !ok {
		return fmt.Errorf("node %s does not exist", path)
	}
	n.metadata[stream] = data
	return nil
}

func (t *Tree) Metadata(_ context.Context, path, stream string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[path]
	if !ok {
		return "", fmt.Errorf("node %s does not exist", path)
	}
	data, ok := n.metadata[stream]
	if !ok {
		return "", fmt.Errorf("node %s has no %s metadata", path, stream)
	}
	return data, nil
}

func (t *Tree) Destroy(_ context.Context, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failDestroy != nil {
		return t.failDestroy
	}
	if _, ok := t.nodes[path]; !ok {
		return fmt.Errorf("node %s does not exist", path)
	}
	switch path {
	case "/", wiretap.ProjectsPath, wiretap.UsersPath, wiretap.VolumesPath:
		return fmt.Errorf("node %s cannot be destroyed", path)
	}
	for p := range t.nodes {
		if isWithin(p, path) {
			delete(t.nodes, p)
		}
	}
	return nil
}

func (t *Tree) insert(path, parent, name string, nodeType wiretap.NodeType, volume string) *node {
	t.nextID++
	n := &node{
		id:       t.nextID,
		path:     path,
		name:     name,
		nodeType: nodeType,
		parent:   parent,
		volume:   volume,
		metadata: make(map[string]string),
	}
	t.nodes[path] = n
	return n
}

// childrenLocked lists children in creation order. Volumes list the projects
// created on them.
func (t *Tree) childrenLocked(path string) []*node {
	parent, ok := t.nodes[path]
	if !ok {
		return nil
	}
	var out []*node
	for _, n := range t.nodes {
		if parent.nodeType == wiretap.TypeVolume {
			if n.nodeType == wiretap.TypeProject && n.volume == parent.name {
				out = append(out, n)
			}
			continue
		}
		if n.parent == path && n.path != path {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func info(n *node) wiretap.NodeInfo {
	return wiretap.NodeInfo{Path: n.path, Name: n.name, Type: n.nodeType}
}

func isWithin(path, root string) bool {
	if root == "/" {
		return true
	}
	return path == root || strings.HasPrefix(path, root+"/")
}
