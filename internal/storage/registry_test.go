package storage

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return registry
}

func TestSaveKeepsOriginalSuffix(t *testing.T) {
	registry := newTestRegistry(t)

	entry, err := registry.Save("report.pdf", strings.NewReader("not really a pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(entry.Name, "-report.pdf") {
		t.Errorf("storage name should end with the original name, got %s", entry.Name)
	}
	if entry.Size != int64(len("not really a pdf")) {
		t.Errorf("unexpected size %d", entry.Size)
	}
	if _, err := os.Stat(filepath.Join(registry.Dir(), entry.Name)); err != nil {
		t.Errorf("saved file missing on disk: %v", err)
	}
}

func TestSaveSanitizesName(t *testing.T) {
	registry := newTestRegistry(t)

	entry, err := registry.Save("../../etc/passwd", strings.NewReader("nope"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(entry.Name, "..") || strings.Contains(entry.Name, "/") {
		t.Errorf("sanitized name still contains path parts: %s", entry.Name)
	}
	if !strings.HasSuffix(entry.Name, "-passwd") {
		t.Errorf("expected base name to survive sanitization, got %s", entry.Name)
	}
}

func TestSaveCollidingNames(t *testing.T) {
	registry := newTestRegistry(t)

	first, err := registry.Save("same.txt", strings.NewReader("one"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := registry.Save("same.txt", strings.NewReader("two"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Name == second.Name {
		t.Errorf("two uploads of the same name must get distinct storage names, both got %s", first.Name)
	}

	files, err := registry.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 stored files, got %d", len(files))
	}
}

func TestListNewestFirst(t *testing.T) {
	registry := newTestRegistry(t)

	older, err := registry.Save("older.txt", strings.NewReader("a"))
	if err != nil {
		t.Fatal(err)
	}
	// push the second file's mtime clearly past the first
	newer, err := registry.Save("newer.txt", strings.NewReader("b"))
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(registry.Dir(), older.Name), past, past); err != nil {
		t.Fatal(err)
	}

	files, err := registry.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != newer.Name {
		t.Errorf("expected newest first, got %s", files[0].Name)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	registry := newTestRegistry(t)

	for _, name := range []string{"", "..", "../outside.txt", "a/b.txt", "/etc/passwd"} {
		if _, err := registry.Open(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q) = %v, want ErrInvalidName", name, err)
		}
		if err := registry.Delete(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Delete(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestOpenAndDelete(t *testing.T) {
	registry := newTestRegistry(t)

	entry, err := registry.Save("data.txt", strings.NewReader("payload"))
	if err != nil {
		t.Fatal(err)
	}

	f, err := registry.Open(entry.Name)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("unexpected content %q", data)
	}

	if err := registry.Delete(entry.Name); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Open(entry.Name); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open after delete = %v, want ErrNotFound", err)
	}
	if err := registry.Delete(entry.Name); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestWriteArchive(t *testing.T) {
	registry := newTestRegistry(t)

	if _, err := registry.Save("one.txt", strings.NewReader("first")); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Save("two.txt", strings.NewReader("second")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	packed, err := registry.WriteArchive(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if packed != 2 {
		t.Errorf("expected 2 packed files, got %d", packed)
	}

	archive, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("output is not a readable zip: %v", err)
	}
	if len(archive.File) != 2 {
		t.Errorf("expected 2 archive entries, got %d", len(archive.File))
	}
}

func TestWriteArchiveEmpty(t *testing.T) {
	registry := newTestRegistry(t)

	var buf bytes.Buffer
	if _, err := registry.WriteArchive(&buf); !errors.Is(err, ErrEmpty) {
		t.Errorf("WriteArchive on empty registry = %v, want ErrEmpty", err)
	}
}

func TestStatReportsMediaType(t *testing.T) {
	registry := newTestRegistry(t)

	entry, err := registry.Save("hello.txt", strings.NewReader("plain text content"))
	if err != nil {
		t.Fatal(err)
	}
	stat, err := registry.Stat(entry.Name)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stat.MediaType, "text/plain") {
		t.Errorf("expected text/plain media type, got %s", stat.MediaType)
	}
}
