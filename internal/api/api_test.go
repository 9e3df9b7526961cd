package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"taskflow-leads/internal/common/database"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/common/observability"
	leadintake "taskflow-leads/internal/leads/lead-intake"
	leadstore "taskflow-leads/internal/leads/lead-store"
	"taskflow-leads/internal/models"
	"taskflow-leads/internal/realtime/notifier"
	installationledger "taskflow-leads/internal/snapshots/installation-ledger"
	snapshotcatalog "taskflow-leads/internal/snapshots/snapshot-catalog"
	snapshotinstaller "taskflow-leads/internal/snapshots/snapshot-installer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	hub     *notifier.Hub
	store   *leadstore.Store
	ledger  *installationledger.Ledger
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) *testServer {
	t.Helper()
	log := logger.NewNoOpLogger()

	fixtures := fstest.MapFS{
		"plumber.json": {Data: []byte(`{"id":"plumber","name":"Plumbing demo","sampleLeads":[{"name":"Sam","phone":"111"},{"name":"Ana","phone":"222"}]}`)},
		"salon.json":   {Data: []byte(`{"id":"salon","name":"Salon demo"}`)},
		"broken.json":  {Data: []byte(`{`)},
	}

	hub := notifier.NewHub(16, log)
	store := leadstore.NewStore(database.NewMemoryDocument("leads", []byte("[]")), log)
	ledger := installationledger.NewLedger(database.NewMemoryDocument("installed", []byte("[]")), log)
	catalog := snapshotcatalog.NewCatalog(fixtures, log)

	deps := Dependencies{
		Intake:        leadintake.NewService(store, hub, log),
		Leads:         store,
		Catalog:       catalog,
		Installer:     snapshotinstaller.NewInstaller(catalog, ledger, store, hub, log),
		Installed:     ledger,
		Realtime:      notifier.WebSocketHandler(hub, log),
		Observability: observability.NewNoop(),
		Logger:        log,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testServer{handler: NewHandler(deps), hub: hub, store: store, ledger: ledger}
}

func (s *testServer) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestCreateLead(t *testing.T) {
	s := newTestServer(t, nil)
	sub := s.hub.Subscribe()
	defer sub.Close()

	rec := s.do(t, http.MethodPost, "/api/leads", `{"name":"Ana","phone":"555-0101","service":"cleaning"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		OK      bool            `json:"ok"`
		Lead    models.Lead     `json:"lead"`
		PayLink json.RawMessage `json:"payLink"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.Lead.ID)
	assert.Equal(t, "Ana", resp.Lead.Name)
	assert.Equal(t, "null", string(resp.PayLink))
	assert.False(t, resp.Lead.CreatedAt.IsZero())

	select {
	case ev := <-sub.Events():
		assert.Equal(t, models.EventNewLead, ev.Name)
		assert.Equal(t, resp.Lead.ID, ev.Data.(models.Lead).ID)
	case <-time.After(time.Second):
		t.Fatal("no new_lead event")
	}
}

func TestCreateLead_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing phone", `{"name":"Ana"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"empty name", `{"name":"","phone":"555"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"empty body", ``, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"malformed", `{"name":`, http.StatusBadRequest, "MALFORMED_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			rec := s.do(t, http.MethodPost, "/api/leads", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)

			leads, err := s.store.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, leads)
		})
	}

	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/leads", `{"phone":"555"}`)
	assert.Contains(t, rec.Body.String(), "Name and phone are required")
}

func TestListLeads_MostRecentFirst(t *testing.T) {
	s := newTestServer(t, nil)
	for _, name := range []string{"A", "B", "C"} {
		rec := s.do(t, http.MethodPost, "/api/leads", `{"name":"`+name+`","phone":"1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/leads-list", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var leads []models.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Len(t, leads, 3)
	assert.Equal(t, "C", leads[0].Name)
	assert.Equal(t, "B", leads[1].Name)
	assert.Equal(t, "A", leads[2].Name)
}

func TestListSnapshots_ReportsSkipped(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/api/snapshots", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Snapshots []models.Snapshot `json:"snapshots"`
		Skipped   int               `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Snapshots, 2)
	assert.Equal(t, "plumber", resp.Snapshots[0].ID)
	assert.Equal(t, 1, resp.Skipped)
}

func TestInstallSnapshot(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/snapshots/plumber/install", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary models.InstallSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "plumber", summary.SnapshotID)
	assert.True(t, summary.Installed)
	assert.Equal(t, 2, summary.LeadsAdded)

	rec = s.do(t, http.MethodGet, "/api/snapshots/installed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "plumber", records[0]["id"])
	assert.NotEmpty(t, records[0]["installedAt"])
}

func TestInstallSnapshot_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/snapshots/missing-id/install", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SNAPSHOT_NOT_FOUND")

	records, err := s.ledger.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

type failingLister struct{}

func (failingLister) List(context.Context) ([]models.Lead, error) {
	return nil, errors.New("open /srv/data/leads.json: permission denied")
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) { d.Leads = failingLister{} })

	rec := s.do(t, http.MethodGet, "/api/leads-list", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "permission denied")
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestAdminPassword(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) { d.AdminPassword = "s3cret" })

	for _, target := range []string{"/api/leads-list", "/api/snapshots", "/api/snapshots/installed"} {
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, target, "").Code, target)
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, target, "", adminPasswordHeader, "wrong").Code, target)
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, target, "", adminPasswordHeader, "s3cret").Code, target)
	}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/snapshots/plumber/install", "").Code)

	// lead capture and ping stay public
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/ping", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/leads", `{"name":"A","phone":"1"}`).Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodOptions, "/api/leads", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), adminPasswordHeader)
}

func TestStaticFilesWithSPAFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	s := newTestServer(t, func(d *Dependencies) { d.StaticDir = dir })

	rec := s.do(t, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/dashboard/leads", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<html>app</html>")

	rec = s.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<html>app</html>")

	rec = s.do(t, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateLead_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil)
	big := `{"name":"A","phone":"1","notes":"` + string(bytes.Repeat([]byte("x"), maxBodyBytes)) + `"}`
	rec := s.do(t, http.MethodPost, "/api/leads", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
