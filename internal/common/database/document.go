// internal/common/database/document.go
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Document is a single persisted JSON document that is always read and
// rewritten as a whole. Load returns nil data when the document does not exist yet.
type Document interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// EnsureDocument writes initial when the document does not exist yet.
func EnsureDocument(ctx context.Context, doc Document, initial []byte) error {
	data, err := doc.Load(ctx)
	if err != nil {
		return err
	}
	if data != nil {
		return nil
	}
	return doc.Save(ctx, initial)
}

// FileDocument stores the document in one file on local disk.
type FileDocument struct {
	path string
}

func NewFileDocument(path string) *FileDocument {
	return &FileDocument{path: path}
}

func (d *FileDocument) Name() string {
	return d.path
}

func (d *FileDocument) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	return data, nil
}

// Save replaces the file through a temp file + rename so readers never see a torn write.
func (d *FileDocument) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", d.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", d.path, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", d.path, err)
	}
	return nil
}

// MemoryDocument keeps the document in process memory. Used by tests and the memory backend.
type MemoryDocument struct {
	name string
	mu   sync.RWMutex
	data []byte
}

func NewMemoryDocument(name string, initial []byte) *MemoryDocument {
	d := &MemoryDocument{name: name}
	if initial != nil {
		d.data = append([]byte(nil), initial...)
	}
	return d
}

func (d *MemoryDocument) Name() string {
	return d.name
}

func (d *MemoryDocument) Load(ctx context.Context) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.data == nil {
		return nil, nil
	}
	return append([]byte(nil), d.data...), nil
}

func (d *MemoryDocument) Save(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = append([]byte(nil), data...)
	return nil
}
