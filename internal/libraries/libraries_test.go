package libraries_test

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"wiretap/internal/libraries"
	"wiretap/internal/testsupport"
)

func TestParsePreservesOrder(t *testing.T) {
	doc := `
Libraries:
  Zeta: [Conform, Offline, "2024"]
  Alpha:
Shared:
  Stock: []
`
	lists, err := libraries.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(lists) != 2 || lists[0].Name != "Libraries" || lists[1].Name != "Shared" {
		t.Fatalf("unexpected lists %+v", lists)
	}
	libs := lists[0].Libraries
	if len(libs) != 2 || libs[0].Name != "Zeta" || libs[1].Name != "Alpha" {
		t.Fatalf("expected document order, got %+v", libs)
	}
	if got := strings.Join(libs[0].Folders, ","); got != "Conform,Offline,2024" {
		t.Fatalf("unexpected folders %q", got)
	}
	if len(libs[1].Folders) != 0 {
		t.Fatalf("expected null folders to be empty, got %v", libs[1].Folders)
	}
	if libraries.Count(lists) != 3 {
		t.Fatalf("expected 3 libraries, got %d", libraries.Count(lists))
	}
}

func TestParseNumericNames(t *testing.T) {
	lists, err := libraries.Parse([]byte("Libraries:\n  2024: [1, 2]\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	lib := lists[0].Libraries[0]
	if lib.Name != "2024" || strings.Join(lib.Folders, ",") != "1,2" {
		t.Fatalf("unexpected library %+v", lib)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not a mapping":      "- a\n- b\n",
		"list not a mapping": "Libraries: [a, b]\n",
		"folders not a list": "Libraries:\n  Editorial: Conform\n",
		"nested folder map":  "Libraries:\n  Editorial:\n    - {a: b}\n",
		"syntax":             "Libraries: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := libraries.Parse([]byte(doc)); !errors.Is(err, libraries.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	lists, err := libraries.Parse([]byte("  \n"))
	if err != nil || len(lists) != 0 {
		t.Fatalf("expected no lists, got %v, %v", lists, err)
	}
}

func TestLoadIgnoresMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libraries.yaml")
	testsupport.WriteFile(t, path, "Libraries: [oops\n")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	lists, err := libraries.Load(path, logger)
	if err != nil {
		t.Fatalf("expected malformed file to be ignored, got %v", err)
	}
	if len(lists) != 0 {
		t.Fatalf("expected no lists, got %+v", lists)
	}
	if !strings.Contains(buf.String(), "ignoring malformed libraries file") {
		t.Fatalf("expected warning, got %q", buf.String())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := libraries.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libraries.yaml")
	testsupport.WriteFile(t, path, "Libraries:\n  Editorial: [Conform]\n")

	lists, err := libraries.Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(lists) != 1 || len(lists[0].Libraries) != 1 || lists[0].Libraries[0].Folders[0] != "Conform" {
		t.Fatalf("unexpected lists %+v", lists)
	}
}
