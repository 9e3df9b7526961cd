// internal/snapshots/installation-ledger/ledger.go
package installationledger

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"taskflow-leads/internal/common/database"
	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/models"
)

const Component = "installation-ledger"

// Ledger is the append-only record of snapshot installations. Installing the
// same snapshot twice appends two records.
type Ledger struct {
	doc    database.Document
	logger logger.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func NewLedger(doc database.Document, log logger.Logger) *Ledger {
	return &Ledger{
		doc:    doc,
		logger: logger.ForComponent(log, Component),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordInstall appends the snapshot's data stamped with the install time. The
// record's id is always snapshotID, whatever id the fixture itself carries.
func (l *Ledger) RecordInstall(ctx context.Context, snapshotID string, snapshot models.Snapshot) (models.InstalledSnapshotRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return models.InstalledSnapshotRecord{}, err
	}

	snapshot.ID = snapshotID
	record := models.InstalledSnapshotRecord{Snapshot: snapshot, InstalledAt: l.now()}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return models.InstalledSnapshotRecord{}, apperrors.NewStorageError("encode installed snapshots", err)
	}
	if err := l.doc.Save(ctx, data); err != nil {
		return models.InstalledSnapshotRecord{}, apperrors.NewStorageError("write installed snapshots", err)
	}

	l.logger.Info("snapshot install recorded", map[string]interface{}{
		"snapshotId": snapshotID,
		"records":    len(records),
	})
	return record, nil
}

// List returns every record in insertion order.
func (l *Ledger) List(ctx context.Context) ([]models.InstalledSnapshotRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *Ledger) load(ctx context.Context) ([]models.InstalledSnapshotRecord, error) {
	data, err := l.doc.Load(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("read installed snapshots", err)
	}
	records := []models.InstalledSnapshotRecord{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewStorageError("decode installed snapshots", err)
	}
	return records, nil
}
