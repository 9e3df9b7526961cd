// internal/common/database/backend.go
package database

import (
	"context"
	"fmt"
	"path/filepath"

	"taskflow-leads/internal/common/config"
)

// Documents bundles the two persisted collections of the service.
type Documents struct {
	Leads     Document
	Installed Document

	closer func() error
}

// Close releases backend connections, if any.
func (d *Documents) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

// Open builds the documents for the configured backend and makes sure both
// exist as empty JSON arrays.
func Open(ctx context.Context, cfg config.StorageConfig) (*Documents, error) {
	var docs *Documents

	switch cfg.Backend {
	case config.BackendFile, "":
		docs = &Documents{
			Leads:     NewFileDocument(filepath.Join(cfg.DataDir, cfg.LeadsFile)),
			Installed: NewFileDocument(filepath.Join(cfg.DataDir, cfg.InstalledFile)),
		}
	case config.BackendMemory:
		docs = &Documents{
			Leads:     NewMemoryDocument(cfg.LeadsFile, nil),
			Installed: NewMemoryDocument(cfg.InstalledFile, nil),
		}
	case config.BackendRedis:
		client, err := NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, err
		}
		docs = &Documents{
			Leads:     client.Document(cfg.LeadsFile),
			Installed: client.Document(cfg.InstalledFile),
			closer:    client.Close,
		}
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}

	for _, doc := range []Document{docs.Leads, docs.Installed} {
		if err := EnsureDocument(ctx, doc, []byte("[]")); err != nil {
			docs.Close()
			return nil, fmt.Errorf("initialize %s: %w", doc.Name(), err)
		}
	}
	return docs, nil
}
