package wiretap

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NodeType is the type tag the service reports for every node.
type NodeType string

const (
	TypeNode        NodeType = "NODE"
	TypeProject     NodeType = "PROJECT"
	TypeUser        NodeType = "USER"
	TypeWorkspace   NodeType = "WORKSPACE"
	TypeDesktop     NodeType = "DESKTOP"
	TypeVolume      NodeType = "VOLUME"
	TypeFolder      NodeType = "FOLDER"
	TypeLibrary     NodeType = "LIBRARY"
	TypeLibraryList NodeType = "LIBRARY_LIST"
)

// Root paths of the service namespace.
const (
	ProjectsPath = "/projects"
	UsersPath    = "/users"
	VolumesPath  = "/volumes"
)

// MetadataStreamXML is the metadata stream project settings are stored in.
const MetadataStreamXML = "XML"

var nodeTypes = []NodeType{
	TypeNode,
	TypeProject,
	TypeUser,
	TypeWorkspace,
	TypeDesktop,
	TypeVolume,
	TypeFolder,
	TypeLibrary,
	TypeLibraryList,
}

// NodeTypes returns every known node type.
func NodeTypes() []NodeType {
	out := make([]NodeType, len(nodeTypes))
	copy(out, nodeTypes)
	return out
}

// ParseNodeType maps a type string reported by the service to a NodeType.
func ParseNodeType(value string) (NodeType, error) {
	normalized := NodeType(strings.ToUpper(strings.TrimSpace(value)))
	for _, t := range nodeTypes {
		if t == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown node type %q", value)
}

func (t NodeType) String() string { return string(t) }

// DefaultName is the display name used when a node is created without one.
// Every underscore-separated word is title-cased: LIBRARY_LIST becomes
// Library_List.
func (t NodeType) DefaultName() string {
	words := strings.Split(strings.ToLower(string(t)), "_")
	caser := cases.Title(language.Und)
	for i, word := range words {
		words[i] = caser.String(word)
	}
	return strings.Join(words, "_")
}

// ValidateName rejects display names the node namespace cannot address.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if trimmed != name {
		return fmt.Errorf("%w: %q has leading or trailing whitespace", ErrInvalidName, name)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// JoinPath appends a display name to a node path.
func JoinPath(parent, name string) string {
	return path.Join(parent, name)
}

func projectPath(name string) string { return JoinPath(ProjectsPath, name) }

func userPath(name string) string { return JoinPath(UsersPath, name) }

func volumePath(name string) string { return JoinPath(VolumesPath, name) }
