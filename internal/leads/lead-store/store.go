// internal/leads/lead-store/store.go
package leadstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"taskflow-leads/internal/common/database"
	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/common/validation"
	"taskflow-leads/internal/models"

	"github.com/google/uuid"
)

const Component = "lead-store"

// Store is the append-only lead collection backed by one JSON array document.
// Every write reads the whole document, appends, and rewrites it; mu
// serializes those cycles so concurrent adds are never lost in-process.
type Store struct {
	doc    database.Document
	logger logger.Logger
	now    func() time.Time
	newID  func() string
	mu     sync.Mutex
}

type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides lead id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func NewStore(doc database.Document, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		doc:    doc,
		logger: logger.ForComponent(log, Component),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates the candidate, stores it with a fresh id and timestamp and
// returns the stored record. The document is rewritten before Add returns.
func (s *Store) Add(ctx context.Context, candidate models.LeadFields) (models.Lead, error) {
	result, err := validation.ValidateLead(candidate)
	if err != nil {
		return models.Lead{}, fmt.Errorf("validate lead: %w", err)
	}
	if !result.Valid {
		return models.Lead{}, apperrors.NewValidationError(
			fmt.Sprintf("invalid fields: %v", result.Fields()), result.Fields()...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	leads, err := s.load(ctx)
	if err != nil {
		return models.Lead{}, err
	}

	lead := s.newLead(candidate)
	leads = append(leads, lead)

	if err := s.save(ctx, leads); err != nil {
		return models.Lead{}, err
	}

	s.logger.Info("lead saved", map[string]interface{}{
		"leadId":  lead.ID.String(),
		"service": lead.Service,
		"total":   len(leads),
	})
	return lead, nil
}

// AppendTrusted appends partial leads without validating them, calling
// onAppend for each synthesized lead in order, then persists the collection
// once. If the final write fails the callbacks have already run.
func (s *Store) AppendTrusted(ctx context.Context, partials []models.LeadFields, onAppend func(models.Lead)) ([]models.Lead, error) {
	if len(partials) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	leads, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	added := make([]models.Lead, 0, len(partials))
	for _, partial := range partials {
		lead := s.newLead(partial)
		leads = append(leads, lead)
		added = append(added, lead)
		if onAppend != nil {
			onAppend(lead)
		}
	}

	if err := s.save(ctx, leads); err != nil {
		return nil, err
	}

	s.logger.Info("trusted leads appended", map[string]interface{}{
		"added": len(added),
		"total": len(leads),
	})
	return added, nil
}

// List returns every stored lead, most recent first.
func (s *Store) List(ctx context.Context) ([]models.Lead, error) {
	s.mu.Lock()
	leads, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(leads)-1; i < j; i, j = i+1, j-1 {
		leads[i], leads[j] = leads[j], leads[i]
	}
	return leads, nil
}

func (s *Store) newLead(fields models.LeadFields) models.Lead {
	return models.Lead{
		ID:         models.LeadID(s.newID()),
		LeadFields: fields,
		CreatedAt:  s.now(),
	}
}

func (s *Store) load(ctx context.Context) ([]models.Lead, error) {
	data, err := s.doc.Load(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("read leads", err)
	}
	leads := []models.Lead{}
	if len(bytes.TrimSpace(data)) == 0 {
		return leads, nil
	}
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, apperrors.NewStorageError("decode leads", err)
	}
	return leads, nil
}

func (s *Store) save(ctx context.Context, leads []models.Lead) error {
	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("encode leads", err)
	}
	if err := s.doc.Save(ctx, data); err != nil {
		return apperrors.NewStorageError("write leads", err)
	}
	return nil
}
