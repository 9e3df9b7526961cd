// Package snapshotcatalog reads the read-only demo snapshot fixtures.
package snapshotcatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/common/metrics"
	"taskflow-leads/internal/common/validation"
	"taskflow-leads/internal/models"
)

const (
	Component = "snapshot-catalog"

	fixtureExt = ".json"
)

// ListResult is a lenient listing: fixtures that could not be used are left
// out of Snapshots and reported through Skipped and SkippedFiles.
type ListResult struct {
	Snapshots    []models.Snapshot
	Skipped      int
	SkippedFiles []string
}

// Catalog serves one <id>.json fixture per snapshot from a directory. It never writes.
type Catalog struct {
	fsys   fs.FS
	logger logger.Logger
}

func NewCatalog(fsys fs.FS, log logger.Logger) *Catalog {
	return &Catalog{fsys: fsys, logger: logger.ForComponent(log, Component)}
}

// List returns every parseable fixture ordered by file name. A missing
// fixture directory is an empty catalog.
func (c *Catalog) List(ctx context.Context) (ListResult, error) {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ListResult{Snapshots: []models.Snapshot{}}, nil
		}
		return ListResult{}, apperrors.NewStorageError("list snapshot fixtures", err)
	}

	result := ListResult{Snapshots: []models.Snapshot{}}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != fixtureExt {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return ListResult{}, err
		}
		snap, err := c.read(name)
		if err != nil {
			result.Skipped++
			result.SkippedFiles = append(result.SkippedFiles, name)
			metrics.CatalogFixturesSkipped.Inc()
			c.logger.Warn("skipping snapshot fixture", map[string]interface{}{
				"fixture": name,
				"error":   err,
			})
			continue
		}
		result.Snapshots = append(result.Snapshots, snap)
	}
	return result, nil
}

// Get returns the snapshot stored as <id>.json.
func (c *Catalog) Get(ctx context.Context, id string) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}
	if !validID(id) {
		return models.Snapshot{}, apperrors.NewSnapshotNotFoundError(id)
	}

	snap, err := c.read(id + fixtureExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Snapshot{}, apperrors.NewSnapshotNotFoundError(id)
		}
		return models.Snapshot{}, err
	}
	return snap, nil
}

func (c *Catalog) read(name string) (models.Snapshot, error) {
	data, err := fs.ReadFile(c.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Snapshot{}, err
		}
		return models.Snapshot{}, apperrors.NewStorageError("read fixture "+name, err)
	}

	result, err := validation.ValidateSnapshotJSON(data)
	if err != nil {
		return models.Snapshot{}, apperrors.NewFixtureInvalidError(name, err)
	}
	if !result.Valid {
		return models.Snapshot{}, apperrors.NewFixtureInvalidError(name,
			fmt.Errorf("%s", strings.Join(result.GetErrorMessages(), "; ")))
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, apperrors.NewFixtureInvalidError(name, err)
	}
	if snap.ID == "" {
		snap.ID = strings.TrimSuffix(name, fixtureExt)
	}
	return snap, nil
}

// validID accepts plain file names only, so an id can never leave the fixture directory.
func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return false
	}
	return fs.ValidPath(id + fixtureExt)
}
