package wiretap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const projectElement = "Project"

// Setting is one key/value pair of a metadata document.
type Setting struct {
	Key   string
	Value string
}

// ProjectSettings are the values written to a project's XML metadata when it
// is created. Empty SetupDir is omitted; every other named field is always
// written, even when empty.
type ProjectSettings struct {
	FrameWidth     string
	FrameHeight    string
	FrameDepth     string
	AspectRatio    string
	FrameRate      string
	FieldDominance string
	Description    string
	SetupDir       string
	Extra          map[string]string
}

// Entries returns the settings in document order. Extra keys follow the named
// fields, sorted.
func (s ProjectSettings) Entries() []Setting {
	entries := []Setting{
		{Key: "FrameWidth", Value: s.FrameWidth},
		{Key: "FrameHeight", Value: s.FrameHeight},
		{Key: "FrameDepth", Value: s.FrameDepth},
		{Key: "AspectRatio", Value: s.AspectRatio},
		{Key: "FrameRate", Value: s.FrameRate},
		{Key: "FieldDominance", Value: s.FieldDominance},
		{Key: "Description", Value: s.Description},
	}
	if s.SetupDir != "" {
		entries = append(entries, Setting{Key: "SetupDir", Value: s.SetupDir})
	}
	if len(s.Extra) > 0 {
		keys := make([]string, 0, len(s.Extra))
		for key := range s.Extra {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			entries = append(entries, Setting{Key: key, Value: s.Extra[key]})
		}
	}
	return entries
}

// EncodeProjectMetadata serializes settings as a <Project> document with one
// element per key.
func EncodeProjectMetadata(entries []Setting) (string, error) {
	seen := make(map[string]struct{}, len(entries))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	root := xml.StartElement{Name: xml.Name{Local: projectElement}}
	if err := enc.EncodeToken(root); err != nil {
		return "", fmt.Errorf("%w: encode project: %w", ErrMetadata, err)
	}
	for _, entry := range entries {
		if !validElementName(entry.Key) {
			return "", fmt.Errorf("%w: invalid setting name %q", ErrMetadata, entry.Key)
		}
		if _, dup := seen[entry.Key]; dup {
			return "", fmt.Errorf("%w: duplicate setting %q", ErrMetadata, entry.Key)
		}
		seen[entry.Key] = struct{}{}
		if err := validCharData(entry.Value); err != nil {
			return "", fmt.Errorf("%w: setting %s: %w", ErrMetadata, entry.Key, err)
		}

		start := xml.StartElement{Name: xml.Name{Local: entry.Key}}
		if err := enc.EncodeToken(start); err != nil {
			return "", fmt.Errorf("%w: encode %s: %w", ErrMetadata, entry.Key, err)
		}
		if entry.Value != "" {
			if err := enc.EncodeToken(xml.CharData(entry.Value)); err != nil {
				return "", fmt.Errorf("%w: encode %s: %w", ErrMetadata, entry.Key, err)
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return "", fmt.Errorf("%w: encode %s: %w", ErrMetadata, entry.Key, err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return "", fmt.Errorf("%w: encode project: %w", ErrMetadata, err)
	}
	if err := enc.Flush(); err != nil {
		return "", fmt.Errorf("%w: flush: %w", ErrMetadata, err)
	}
	return buf.String(), nil
}

type metadataDocument struct {
	XMLName xml.Name
	Fields  []metadataField `xml:",any"`
}

type metadataField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// DecodeProjectMetadata parses a metadata document back into its entries, in
// document order.
func DecodeProjectMetadata(data string) ([]Setting, error) {
	doc, err := parseMetadata(data)
	if err != nil {
		return nil, err
	}
	entries := make([]Setting, 0, len(doc.Fields))
	for _, field := range doc.Fields {
		entries = append(entries, Setting{Key: field.XMLName.Local, Value: field.Value})
	}
	return entries, nil
}

// PrettyMetadata re-indents a metadata document for display.
func PrettyMetadata(data string) (string, error) {
	doc, err := parseMetadata(data)
	if err != nil {
		return "", err
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: indent: %w", ErrMetadata, err)
	}
	return xml.Header + string(out) + "\n", nil
}

func parseMetadata(data string) (*metadataDocument, error) {
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrMetadata)
	}
	var doc metadataDocument
	if err := xml.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrMetadata, err)
	}
	if doc.XMLName.Local == "" {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, errors.New("missing root element"))
	}
	return &doc, nil
}

func validElementName(name string) bool {
	if name == "" || strings.HasPrefix(strings.ToLower(name), "xml") {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

// validCharData rejects values the XML encoder would rewrite to U+FFFD.
func validCharData(value string) error {
	if !utf8.ValidString(value) {
		return errors.New("value is not valid UTF-8")
	}
	for _, r := range value {
		if !isXMLChar(r) {
			return fmt.Errorf("value contains character %U not allowed in XML", r)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
