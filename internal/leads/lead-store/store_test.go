// internal/leads/lead-store/store_test.go
package leadstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"taskflow-leads/internal/common/database"
	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type failingDocument struct {
	database.Document
	loadErr error
	saveErr error
	saves   int
}

func (d *failingDocument) Load(ctx context.Context) ([]byte, error) {
	if d.loadErr != nil {
		return nil, d.loadErr
	}
	return d.Document.Load(ctx)
}

func (d *failingDocument) Save(ctx context.Context, data []byte) error {
	d.saves++
	if d.saveErr != nil {
		return d.saveErr
	}
	return d.Document.Save(ctx, data)
}

func sequentialClock() func() time.Time {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	var n int
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func newTestStore(t *testing.T, doc database.Document) *Store {
	return NewStore(doc, logger.NewTestLogger(t), WithClock(sequentialClock()))
}

func storedLeads(t *testing.T, doc database.Document) []models.Lead {
	t.Helper()
	data, err := doc.Load(context.Background())
	require.NoError(t, err)
	var leads []models.Lead
	require.NoError(t, json.Unmarshal(data, &leads))
	return leads
}

// ==========================
// Core Functionality Tests
// ==========================

func TestStore_Add_Success(t *testing.T) {
	doc := database.NewMemoryDocument("leads", []byte("[]"))
	store := newTestStore(t, doc)

	lead, err := store.Add(context.Background(), models.LeadFields{
		Name: "Ana", Phone: "555-0101", Service: "haircut", Preferred: "morning", Notes: "first visit",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "Ana", lead.Name)
	assert.Equal(t, "haircut", lead.Service)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 1, 0, time.UTC), lead.CreatedAt)

	stored := storedLeads(t, doc)
	require.Len(t, stored, 1)
	assert.Equal(t, lead.ID, stored[0].ID)
}

func TestStore_Add_UniqueIDs(t *testing.T) {
	store := newTestStore(t, database.NewMemoryDocument("leads", nil))
	ctx := context.Background()

	seen := make(map[models.LeadID]bool)
	for i := 0; i < 50; i++ {
		lead, err := store.Add(ctx, models.LeadFields{Name: fmt.Sprintf("lead-%d", i), Phone: "555"})
		require.NoError(t, err)
		assert.False(t, seen[lead.ID], "duplicate id %s", lead.ID)
		seen[lead.ID] = true
	}

	leads, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, 50)
}

func TestStore_Add_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.LeadFields
		fields    []string
	}{
		{"empty name", models.LeadFields{Name: "", Phone: "555"}, []string{"name"}},
		{"missing name", models.LeadFields{Phone: "555"}, []string{"name"}},
		{"missing phone", models.LeadFields{Name: "Ana"}, []string{"phone"}},
		{"missing both", models.LeadFields{Notes: "call me"}, []string{"name", "phone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &failingDocument{Document: database.NewMemoryDocument("leads", []byte("[]"))}
			store := newTestStore(t, doc)

			_, err := store.Add(context.Background(), tt.candidate)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation))
			assert.Equal(t, tt.fields, apperrors.Normalize(err).Metadata["fields"])
			assert.Zero(t, doc.saves, "rejected leads must not touch storage")
		})
	}
}

func TestStore_List_MostRecentFirst(t *testing.T) {
	store := newTestStore(t, database.NewMemoryDocument("leads", nil))
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := store.Add(ctx, models.LeadFields{Name: name, Phone: "1"})
		require.NoError(t, err)
	}

	leads, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{leads[0].Name, leads[1].Name, leads[2].Name})

	// List must not reorder the persisted document.
	stored := storedLeads(t, store.doc)
	assert.Equal(t, "A", stored[0].Name)
}

func TestStore_List_EmptyDocument(t *testing.T) {
	for _, initial := range [][]byte{nil, []byte(""), []byte("  \n"), []byte("[]")} {
		store := newTestStore(t, database.NewMemoryDocument("leads", initial))
		leads, err := store.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, leads)
	}
}

func TestStore_List_ReadsLegacyDocument(t *testing.T) {
	doc := database.NewMemoryDocument("leads", []byte(`[
  {"id": 1700000000000, "name": "Legacy", "phone": "9", "createdAt": "2023-11-14T22:13:20.000Z"}
]`))
	store := newTestStore(t, doc)

	_, err := store.Add(context.Background(), models.LeadFields{Name: "Fresh", Phone: "1"})
	require.NoError(t, err)

	leads, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Fresh", leads[0].Name)
	assert.Equal(t, models.LeadID("1700000000000"), leads[1].ID)
}

func TestStore_AppendTrusted(t *testing.T) {
	doc := &failingDocument{Document: database.NewMemoryDocument("leads", []byte("[]"))}
	store := newTestStore(t, doc)

	var published []models.Lead
	added, err := store.AppendTrusted(context.Background(), []models.LeadFields{
		{Name: "Sam", Phone: "111"},
		{Name: "Ana", Phone: "222"},
		{Notes: "no name or phone, trusted anyway"},
	}, func(l models.Lead) {
		published = append(published, l)
	})
	require.NoError(t, err)

	require.Len(t, added, 3)
	assert.Equal(t, added, published)
	assert.Equal(t, "Sam", added[0].Name)
	assert.Equal(t, "Ana", added[1].Name)
	assert.NotEqual(t, added[0].ID, added[1].ID)
	assert.Equal(t, 1, doc.saves, "batch must be persisted with a single write")

	stored := storedLeads(t, doc)
	require.Len(t, stored, 3)
	assert.Equal(t, "Sam", stored[0].Name)
}

func TestStore_AppendTrusted_Empty(t *testing.T) {
	doc := &failingDocument{Document: database.NewMemoryDocument("leads", []byte("[]"))}
	store := newTestStore(t, doc)

	added, err := store.AppendTrusted(context.Background(), nil, func(models.Lead) {
		t.Fatal("callback must not run")
	})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Zero(t, doc.saves)
}

// ==========================
// Error Handling Tests
// ==========================

func TestStore_StorageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("load", func(t *testing.T) {
		doc := &failingDocument{Document: database.NewMemoryDocument("leads", nil), loadErr: errors.New("io")}
		store := newTestStore(t, doc)

		_, err := store.Add(ctx, models.LeadFields{Name: "Ana", Phone: "1"})
		assert.True(t, errors.Is(err, apperrors.ErrStorage))
		_, err = store.List(ctx)
		assert.True(t, errors.Is(err, apperrors.ErrStorage))
	})

	t.Run("save", func(t *testing.T) {
		doc := &failingDocument{Document: database.NewMemoryDocument("leads", nil), saveErr: errors.New("disk full")}
		store := newTestStore(t, doc)

		_, err := store.Add(ctx, models.LeadFields{Name: "Ana", Phone: "1"})
		assert.True(t, errors.Is(err, apperrors.ErrStorage))

		var calls int
		_, err = store.AppendTrusted(ctx, []models.LeadFields{{Name: "Sam"}}, func(models.Lead) { calls++ })
		assert.True(t, errors.Is(err, apperrors.ErrStorage))
		assert.Equal(t, 1, calls)
	})

	t.Run("corrupt document", func(t *testing.T) {
		store := newTestStore(t, database.NewMemoryDocument("leads", []byte("{not json")))
		_, err := store.List(ctx)
		assert.True(t, errors.Is(err, apperrors.ErrStorage))
	})
}

// ==========================
// Concurrency Tests
// ==========================

func TestStore_ConcurrentAdds_AllRetained(t *testing.T) {
	doc := database.NewFileDocument(filepath.Join(t.TempDir(), "leads.json"))
	store := NewStore(doc, logger.NewNoOpLogger())
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Add(ctx, models.LeadFields{Name: fmt.Sprintf("w%d", i), Phone: "555"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	leads, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, writers)
}
