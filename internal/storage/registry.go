// Package storage treats a single directory of uploaded files as the ground
// truth for the hub's file listings. Nothing is tracked in memory: every
// listing is computed from the filesystem on demand.
package storage

import (
	"archive/zip"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNotFound reports a storage name absent from the registry directory.
	ErrNotFound = errors.New("file not found")
	// ErrEmpty reports an archive request against an empty registry.
	ErrEmpty = errors.New("no files in registry")
	// ErrInvalidName reports a name that would escape the registry directory.
	ErrInvalidName = errors.New("invalid file name")
)

const fallbackMediaType = "application/octet-stream"

// FileEntry is the derived metadata for one stored file. Name is the on-disk
// storage name, not the name the uploader sent.
type FileEntry struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
	MediaType  string    `json:"type"`
}

// Registry wraps the upload directory. It applies no locking: concurrent
// uploads and deletes may interleave, which matches the hub's contract.
type Registry struct {
	dir string
}

// NewRegistry ensures the upload directory exists and returns a registry
// rooted there.
func NewRegistry(dir string) (*Registry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Registry{dir: abs}, nil
}

// Dir returns the absolute upload directory path.
func (r *Registry) Dir() string {
	return r.dir
}

// Save streams an upload to disk under a collision-resistant storage name
// built from the upload time, a random suffix, and the sanitized original
// filename. The original name is not retained anywhere else.
func (r *Registry) Save(originalName string, src io.Reader) (FileEntry, error) {
	storageName := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), randomSuffix(), sanitizeFilename(originalName))
	dest, err := os.Create(filepath.Join(r.dir, storageName))
	if err != nil {
		return FileEntry{}, fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(dest, src)
	closeErr := dest.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest.Name())
		return FileEntry{}, fmt.Errorf("write file: %w", err)
	}
	return FileEntry{
		Name:       storageName,
		Size:       written,
		ModifiedAt: time.Now(),
		MediaType:  r.detectMediaType(storageName),
	}, nil
}

// List returns every stored file, newest first.
func (r *Registry) List() ([]FileEntry, error) {
	dirEntries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}
	files := make([]FileEntry, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileEntry{
			Name:       entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			MediaType:  r.detectMediaType(entry.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModifiedAt.After(files[j].ModifiedAt)
	})
	return files, nil
}

// Stat returns the entry for one stored file.
func (r *Registry) Stat(name string) (FileEntry, error) {
	path, err := r.resolve(name)
	if err != nil {
		return FileEntry{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileEntry{}, ErrNotFound
		}
		return FileEntry{}, err
	}
	return FileEntry{
		Name:       name,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		MediaType:  r.detectMediaType(name),
	}, nil
}

// Open opens a stored file for reading.
func (r *Registry) Open(name string) (*os.File, error) {
	path, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete unlinks a stored file.
func (r *Registry) Delete(name string) error {
	path, err := r.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Count returns how many files are currently stored.
func (r *Registry) Count() (int, error) {
	files, err := r.List()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// WriteArchive streams a zip of every stored file to w and returns how many
// files it packed. Files deleted mid-archive are skipped rather than failing
// the whole download.
func (r *Registry) WriteArchive(w io.Writer) (int, error) {
	files, err := r.List()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, ErrEmpty
	}
	archive := zip.NewWriter(w)
	packed := 0
	for _, entry := range files {
		src, err := r.Open(entry.Name)
		if err != nil {
			continue
		}
		dest, err := archive.Create(entry.Name)
		if err != nil {
			_ = src.Close()
			return packed, fmt.Errorf("archive entry %s: %w", entry.Name, err)
		}
		_, copyErr := io.Copy(dest, src)
		_ = src.Close()
		if copyErr != nil {
			return packed, fmt.Errorf("archive entry %s: %w", entry.Name, copyErr)
		}
		packed++
	}
	if err := archive.Close(); err != nil {
		return packed, fmt.Errorf("finalize archive: %w", err)
	}
	return packed, nil
}

// resolve maps a storage name to an absolute path inside the registry
// directory, rejecting anything that would escape it.
func (r *Registry) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", ErrInvalidName
	}
	path := filepath.Join(r.dir, name)
	if !strings.HasPrefix(path, r.dir+string(os.PathSeparator)) {
		return "", ErrInvalidName
	}
	return path, nil
}

// detectMediaType sniffs the file contents and falls back to the extension,
// then to octet-stream.
func (r *Registry) detectMediaType(name string) string {
	if mtype, err := mimetype.DetectFile(filepath.Join(r.dir, name)); err == nil {
		return mtype.String()
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return fallbackMediaType
}

func sanitizeFilename(name string) string {
	clean := filepath.Base(filepath.Clean(name))
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	clean = strings.ReplaceAll(clean, "\x00", "")
	clean = strings.TrimSpace(clean)
	if clean == "" || clean == "." || clean == ".." {
		return "unnamed"
	}
	return clean
}

func randomSuffix() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
