package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskflow-leads/internal/common/config"
	"taskflow-leads/internal/common/database"
	apihttp "taskflow-leads/internal/common/http"
	"taskflow-leads/internal/common/logger"
	leadstore "taskflow-leads/internal/leads/lead-store"
	"taskflow-leads/internal/models"
	"taskflow-leads/internal/realtime/notifier"
	installationledger "taskflow-leads/internal/snapshots/installation-ledger"
	snapshotcatalog "taskflow-leads/internal/snapshots/snapshot-catalog"
	snapshotinstaller "taskflow-leads/internal/snapshots/snapshot-installer"
)

// operations is what the commands need, served either straight from storage
// or by a running server.
type operations interface {
	ListLeads(ctx context.Context) ([]models.Lead, error)
	ListSnapshots(ctx context.Context) (snapshotcatalog.ListResult, error)
	InstallSnapshot(ctx context.Context, id string) (models.InstallSummary, error)
	ListInstalled(ctx context.Context) ([]models.InstalledSnapshotRecord, error)
}

type app struct {
	ops    operations
	closer func() error
	asJSON bool
}

type rootFlags struct {
	cfgFile       string
	logLevel      string
	server        string
	adminPassword string
	timeout       time.Duration
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	a := &app{}

	root := &cobra.Command{
		Use:   "leadctl",
		Short: "Operate the TaskFlow lead store and demo snapshots",
		Long: `leadctl lists captured leads and lists, installs and audits demo
snapshots.

By default it works directly on the storage named by the server's
configuration (config.yaml, .env and environment variables). With --server
it goes through a running lead server instead, so connected dashboards
receive the new_lead events of an install.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.server != "" {
				return a.openRemote(flags)
			}
			return a.openLocal(cmd.Context(), flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer == nil {
				return nil
			}
			return a.closer()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level for diagnostics on stderr")
	pf.StringVar(&flags.server, "server", "", "base URL of a running lead server, e.g. http://localhost:3000")
	pf.StringVar(&flags.adminPassword, "admin-password", os.Getenv("ADMIN_PASSWORD"), "admin password for --server")
	pf.DurationVar(&flags.timeout, "timeout", 10*time.Second, "request timeout for --server")
	pf.BoolVar(&a.asJSON, "json", false, "print JSON instead of a table")

	root.AddCommand(newLeadsCmd(a), newSnapshotsCmd(a))
	return root
}

func (a *app) openLocal(ctx context.Context, flags rootFlags) error {
	var (
		cfg *config.Config
		err error
	)
	if flags.cfgFile != "" {
		cfg, err = config.LoadFromFile(flags.cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewStructured(flags.logLevel, "console", "stderr")

	docs, err := database.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	leads := leadstore.NewStore(docs.Leads, log)
	ledger := installationledger.NewLedger(docs.Installed, log)
	catalog := snapshotcatalog.NewCatalog(os.DirFS(cfg.Snapshots.Dir), log)

	a.ops = &localOperations{
		leads:   leads,
		ledger:  ledger,
		catalog: catalog,
		// nobody observes an offline install
		installer: snapshotinstaller.NewInstaller(catalog, ledger, leads, notifier.Discard{}, log),
	}
	a.closer = docs.Close
	return nil
}

func (a *app) openRemote(flags rootFlags) error {
	client := apihttp.NewClient(flags.server, flags.timeout, apihttp.WithAdminPassword(flags.adminPassword))
	a.ops = &remoteOperations{client: client}
	return nil
}

func (a *app) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type localOperations struct {
	leads     *leadstore.Store
	ledger    *installationledger.Ledger
	catalog   *snapshotcatalog.Catalog
	installer *snapshotinstaller.Installer
}

func (o *localOperations) ListLeads(ctx context.Context) ([]models.Lead, error) {
	return o.leads.List(ctx)
}

func (o *localOperations) ListSnapshots(ctx context.Context) (snapshotcatalog.ListResult, error) {
	return o.catalog.List(ctx)
}

func (o *localOperations) InstallSnapshot(ctx context.Context, id string) (models.InstallSummary, error) {
	return o.installer.Install(ctx, id)
}

func (o *localOperations) ListInstalled(ctx context.Context) ([]models.InstalledSnapshotRecord, error) {
	return o.ledger.List(ctx)
}

type remoteOperations struct {
	client *apihttp.Client
}

func (o *remoteOperations) ListLeads(ctx context.Context) ([]models.Lead, error) {
	return o.client.ListLeads(ctx)
}

// ListSnapshots reports the server's skip count; file names are not exposed remotely.
func (o *remoteOperations) ListSnapshots(ctx context.Context) (snapshotcatalog.ListResult, error) {
	list, err := o.client.ListSnapshots(ctx)
	if err != nil {
		return snapshotcatalog.ListResult{}, err
	}
	return snapshotcatalog.ListResult{Snapshots: list.Snapshots, Skipped: list.Skipped}, nil
}

func (o *remoteOperations) InstallSnapshot(ctx context.Context, id string) (models.InstallSummary, error) {
	return o.client.InstallSnapshot(ctx, id)
}

func (o *remoteOperations) ListInstalled(ctx context.Context) ([]models.InstalledSnapshotRecord, error) {
	return o.client.ListInstalled(ctx)
}
