package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/models"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 64 << 10

type createLeadResponse struct {
	OK      bool        `json:"ok"`
	Lead    models.Lead `json:"lead"`
	PayLink *string     `json:"payLink"`
}

type snapshotListResponse struct {
	Snapshots []models.Snapshot `json:"snapshots"`
	Skipped   int               `json:"skipped"`
}

func (h *handlers) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) createLead(w http.ResponseWriter, r *http.Request) {
	var candidate models.LeadFields
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// An empty body is an empty submission and fails validation below.
	if err := json.NewDecoder(body).Decode(&candidate); err != nil && !errors.Is(err, io.EOF) {
		h.errs.HandleHTTPError(w, r, apperrors.NewMalformedRequestError(err))
		return
	}

	lead, err := h.deps.Intake.Create(r.Context(), candidate)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}

	// Payment links stay disabled until a provider is configured.
	writeJSON(w, http.StatusOK, createLeadResponse{OK: true, Lead: lead, PayLink: nil})
}

func (h *handlers) listLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.deps.Leads.List(r.Context())
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *handlers) listSnapshots(w http.ResponseWriter, r *http.Request) {
	result, err := h.deps.Catalog.List(r.Context())
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	snapshots := result.Snapshots
	if snapshots == nil {
		snapshots = []models.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshotListResponse{Snapshots: snapshots, Skipped: result.Skipped})
}

func (h *handlers) installSnapshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	summary, err := h.deps.Installer.Install(r.Context(), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) listInstalled(w http.ResponseWriter, r *http.Request) {
	records, err := h.deps.Installed.List(r.Context())
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
