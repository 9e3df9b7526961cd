// cmd/lead-server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskflow-leads/internal/api"
	"taskflow-leads/internal/common/aws"
	"taskflow-leads/internal/common/config"
	"taskflow-leads/internal/common/database"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/common/messaging"
	"taskflow-leads/internal/common/observability"
	leadintake "taskflow-leads/internal/leads/lead-intake"
	leadstore "taskflow-leads/internal/leads/lead-store"
	"taskflow-leads/internal/realtime/notifier"
	installationledger "taskflow-leads/internal/snapshots/installation-ledger"
	snapshotcatalog "taskflow-leads/internal/snapshots/snapshot-catalog"
	snapshotinstaller "taskflow-leads/internal/snapshots/snapshot-installer"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": cfg.App.Name})

	zapLog.Info("Starting lead server...", zap.String("environment", cfg.App.Environment))

	obs := observability.NewNoop()
	if cfg.Metrics.Enabled {
		if obs, err = observability.New(cfg.App.Name); err != nil {
			zapLog.Warn("OpenTelemetry metrics unavailable", zap.Error(err))
		}
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage with retry ---
	var docs *database.Documents
	err = retryWithBackoff(func() error {
		openCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		var err error
		docs, err = database.Open(openCtx, cfg.Storage)
		return err
	}, 5, time.Second, zapLog, "Storage initialization")
	if err != nil {
		zapLog.Fatal("storage init failed", zap.Error(err))
	}
	defer docs.Close()
	zapLog.Info("Storage ready", zap.String("backend", cfg.Storage.Backend))

	// --- Core components ---
	hub := notifier.NewHub(cfg.Realtime.ObserverBuffer, log)
	leads := leadstore.NewStore(docs.Leads, log)
	ledger := installationledger.NewLedger(docs.Installed, log)
	catalog := snapshotcatalog.NewCatalog(os.DirFS(cfg.Snapshots.Dir), log)
	installer := snapshotinstaller.NewInstaller(catalog, ledger, leads, hub, log)

	var intakeOpts []leadintake.Option
	if cfg.Integrations.AWS.SNS.Enabled {
		sms, err := aws.NewSMSSender(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.SenderID)
		if err != nil {
			zapLog.Fatal("failed to create SMS sender", zap.Error(err))
		}
		intakeOpts = append(intakeOpts, leadintake.WithSMSAcknowledgement(sms, cfg.App.BusinessName))
		zapLog.Info("SMS acknowledgement enabled", zap.String("region", cfg.Integrations.AWS.Region))
	}
	if cfg.Integrations.AWS.SES.Enabled {
		mail, err := aws.NewEmailSender(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SES.From)
		if err != nil {
			zapLog.Fatal("failed to create email sender", zap.Error(err))
		}
		intakeOpts = append(intakeOpts, leadintake.WithOwnerNotification(mail, cfg.Integrations.AWS.SES.OwnerEmail))
		zapLog.Info("Owner email notification enabled", zap.String("to", cfg.Integrations.AWS.SES.OwnerEmail))
	}
	intake := leadintake.NewService(leads, hub, log, intakeOpts...)

	// --- Event relay ---
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	var relayDone <-chan struct{}
	if cfg.Integrations.Kafka.Enabled {
		producer, err := messaging.NewKafkaProducer(cfg.Integrations.Kafka, log)
		if err != nil {
			zapLog.Fatal("failed to create kafka producer", zap.Error(err))
		}
		defer producer.Close()
		relayDone = notifier.NewRelay(hub, producer, log).Start(relayCtx)
	}

	deps := api.Dependencies{
		Intake:        intake,
		Leads:         leads,
		Catalog:       catalog,
		Installer:     installer,
		Installed:     ledger,
		StaticDir:     cfg.Server.StaticDir,
		AdminPassword: cfg.Admin.Password,
		Observability: obs,
		Logger:        log,
	}
	if cfg.Realtime.Enabled {
		deps.Realtime = notifier.WebSocketHandler(hub, log)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if _, err := docs.Leads.Load(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", api.NewHandler(deps))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("TaskFlow lead server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	intake.Wait()

	// Hijacked websocket connections outlive srv.Shutdown; closing the hub
	// ends every observer, and the relay once it has drained its buffer.
	hub.Close()
	if relayDone != nil {
		select {
		case <-relayDone:
		case <-shutdownCtx.Done():
			zapLog.Warn("Event relay did not drain before shutdown deadline")
			stopRelay()
			<-relayDone
		}
	}

	zapLog.Info("Lead server stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
