// internal/snapshots/snapshot-installer/installer.go
package snapshotinstaller

import (
	"context"
	"errors"
	"fmt"

	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/common/metrics"
	"taskflow-leads/internal/models"
	"taskflow-leads/internal/realtime/notifier"
)

const Component = "snapshot-installer"

// Install results for metrics.
const (
	resultInstalled = "installed"
	resultNotFound  = "not_found"
	resultFailed    = "failed"
)

type SnapshotGetter interface {
	Get(ctx context.Context, id string) (models.Snapshot, error)
}

type InstallRecorder interface {
	RecordInstall(ctx context.Context, snapshotID string, snapshot models.Snapshot) (models.InstalledSnapshotRecord, error)
}

type LeadAppender interface {
	AppendTrusted(ctx context.Context, partials []models.LeadFields, onAppend func(models.Lead)) ([]models.Lead, error)
}

// Installer applies a catalog snapshot: it records the install, then adds the
// snapshot's sample leads and broadcasts each one.
type Installer struct {
	catalog   SnapshotGetter
	ledger    InstallRecorder
	leads     LeadAppender
	publisher notifier.Publisher
	logger    logger.Logger
}

func NewInstaller(catalog SnapshotGetter, ledger InstallRecorder, leads LeadAppender, publisher notifier.Publisher, log logger.Logger) *Installer {
	if publisher == nil {
		publisher = notifier.Discard{}
	}
	return &Installer{
		catalog:   catalog,
		ledger:    ledger,
		leads:     leads,
		publisher: publisher,
		logger:    logger.ForComponent(log, Component),
	}
}

// Install applies the snapshot named id. A missing snapshot fails before any
// side effect. Later failures abort without rolling back what was already
// written: the ledger record stays, and events already published stay published.
func (i *Installer) Install(ctx context.Context, id string) (models.InstallSummary, error) {
	snapshot, err := i.catalog.Get(ctx, id)
	if err != nil {
		i.observe(id, err)
		return models.InstallSummary{}, err
	}

	if _, err := i.ledger.RecordInstall(ctx, id, snapshot); err != nil {
		i.observe(id, err)
		return models.InstallSummary{}, fmt.Errorf("record install of %s: %w", id, err)
	}

	added, err := i.leads.AppendTrusted(ctx, snapshot.SampleLeads, func(lead models.Lead) {
		i.publisher.Publish(models.EventNewLead, lead)
	})
	if err != nil {
		i.observe(id, err)
		return models.InstallSummary{}, fmt.Errorf("append sample leads of %s: %w", id, err)
	}

	metrics.LeadsCreated.WithLabelValues(metrics.SourceSnapshot).Add(float64(len(added)))
	i.observe(id, nil)

	i.logger.Info("snapshot installed", map[string]interface{}{
		"snapshotId": id,
		"leadsAdded": len(added),
	})

	return models.InstallSummary{
		SnapshotID: id,
		Installed:  true,
		Message:    fmt.Sprintf("Snapshot %s installed", id),
		LeadsAdded: len(added),
	}, nil
}

func (i *Installer) observe(id string, err error) {
	switch {
	case err == nil:
		metrics.SnapshotInstalls.WithLabelValues(resultInstalled).Inc()
	case errors.Is(err, apperrors.ErrNotFound):
		metrics.SnapshotInstalls.WithLabelValues(resultNotFound).Inc()
		i.logger.Warn("snapshot not found", map[string]interface{}{"snapshotId": id})
	default:
		metrics.SnapshotInstalls.WithLabelValues(resultFailed).Inc()
		i.logger.Error("snapshot install failed", map[string]interface{}{
			"snapshotId": id,
			"error":      err,
		})
	}
}
