// Package api is the HTTP boundary of the lead service.
package api

import (
	"context"
	"net/http"

	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/common/observability"
	"taskflow-leads/internal/models"
	snapshotcatalog "taskflow-leads/internal/snapshots/snapshot-catalog"

	"github.com/gorilla/mux"
)

type LeadCreator interface {
	Create(ctx context.Context, candidate models.LeadFields) (models.Lead, error)
}

type LeadLister interface {
	List(ctx context.Context) ([]models.Lead, error)
}

type SnapshotLister interface {
	List(ctx context.Context) (snapshotcatalog.ListResult, error)
}

type SnapshotInstaller interface {
	Install(ctx context.Context, id string) (models.InstallSummary, error)
}

type InstallLister interface {
	List(ctx context.Context) ([]models.InstalledSnapshotRecord, error)
}

// Dependencies wires the boundary to the core components. Realtime and
// StaticDir are optional.
type Dependencies struct {
	Intake        LeadCreator
	Leads         LeadLister
	Catalog       SnapshotLister
	Installer     SnapshotInstaller
	Installed     InstallLister
	Realtime      http.Handler
	StaticDir     string
	AdminPassword string
	Observability *observability.Observability
	Logger        logger.Logger
}

type handlers struct {
	deps   Dependencies
	errs   *apperrors.ErrorHandler
	logger logger.Logger
}

// NewHandler builds the routed, CORS-enabled HTTP handler.
func NewHandler(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	log := logger.ForComponent(deps.Logger, "api")
	h := &handlers{
		deps:   deps,
		errs:   apperrors.NewErrorHandler(log),
		logger: log,
	}

	r := mux.NewRouter()
	r.Use(instrument(deps.Observability))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ping", h.ping).Methods(http.MethodGet).Name("ping")
	api.HandleFunc("/leads", h.createLead).Methods(http.MethodPost).Name("createLead")

	admin := api.NewRoute().Subrouter()
	admin.Use(requireAdmin(deps.AdminPassword, h.errs))
	admin.HandleFunc("/leads-list", h.listLeads).Methods(http.MethodGet).Name("listLeads")
	admin.HandleFunc("/snapshots", h.listSnapshots).Methods(http.MethodGet).Name("listSnapshots")
	admin.HandleFunc("/snapshots/installed", h.listInstalled).Methods(http.MethodGet).Name("listInstalledSnapshots")
	admin.HandleFunc("/snapshots/{id}/install", h.installSnapshot).Methods(http.MethodPost).Name("installSnapshot")

	if deps.Realtime != nil {
		r.Handle("/ws", deps.Realtime).Name("realtime")
	}
	if deps.StaticDir != "" {
		r.PathPrefix("/").Handler(spaHandler(deps.StaticDir)).Methods(http.MethodGet, http.MethodHead).Name("static")
	}

	return withCORS(r)
}
