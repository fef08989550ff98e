package libraries

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"wiretap/internal/logging"
	"wiretap/internal/wiretap"
)

// ErrMalformed marks a document that does not have the expected shape.
var ErrMalformed = errors.New("malformed libraries file")

// List is the set of libraries to create under one library list.
type List struct {
	Name      string
	Libraries []wiretap.Library
}

// Count returns the number of libraries across lists.
func Count(lists []List) int {
	total := 0
	for _, list := range lists {
		total += len(list.Libraries)
	}
	return total
}

// Parse decodes a libraries document. An empty document yields no lists.
func Parse(data []byte) ([]List, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var doc yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	lists := make([]List, 0, len(doc))
	for _, item := range doc {
		name, err := scalar(item.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: library list name: %w", ErrMalformed, err)
		}
		libs, err := parseLibraries(name, item.Value)
		if err != nil {
			return nil, err
		}
		lists = append(lists, List{Name: name, Libraries: libs})
	}
	return lists, nil
}

func parseLibraries(listName string, value any) ([]wiretap.Library, error) {
	if value == nil {
		return nil, nil
	}
	entries, ok := value.(yaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf("%w: %s must map library names to folders", ErrMalformed, listName)
	}
	libs := make([]wiretap.Library, 0, len(entries))
	for _, entry := range entries {
		name, err := scalar(entry.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: library name in %s: %w", ErrMalformed, listName, err)
		}
		folders, err := parseFolders(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: folders of %s/%s: %w", ErrMalformed, listName, name, err)
		}
		libs = append(libs, wiretap.Library{Name: name, Folders: folders})
	}
	return libs, nil
}

func parseFolders(value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, errors.New("expected a list")
	}
	folders := make([]string, 0, len(items))
	for _, item := range items {
		folder, err := scalar(item)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

func scalar(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", errors.New("empty name")
	case string:
		if strings.TrimSpace(v) == "" {
			return "", errors.New("empty name")
		}
		return v, nil
	case yaml.MapSlice, []any, map[string]any:
		return "", fmt.Errorf("expected a name, got %T", value)
	default:
		return fmt.Sprint(v), nil
	}
}

// Load reads and parses the libraries file at path. A file that cannot be
// read is an error; a malformed one is logged and ignored.
func Load(path string, logger *slog.Logger) ([]List, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read libraries file: %w", err)
	}
	lists, err := Parse(data)
	if err != nil {
		logger.Warn("ignoring malformed libraries file",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "libraries_malformed"))
		return nil, nil
	}
	logger.Debug("libraries file loaded",
		logging.String("path", path),
		logging.Int("lists", len(lists)),
		logging.Int("libraries", Count(lists)))
	return lists, nil
}
