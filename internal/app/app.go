// Package app assembles the application: configuration, storage, the alert
// lifecycle engine, notification delivery, KPI ingestion, the intelligence
// service and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vantagehq/vantage/internal/config"
	"github.com/vantagehq/vantage/internal/engine"
	"github.com/vantagehq/vantage/internal/intelligence"
	"github.com/vantagehq/vantage/internal/kpi"
	"github.com/vantagehq/vantage/internal/notify"
	"github.com/vantagehq/vantage/internal/server"
	"github.com/vantagehq/vantage/internal/sqlite"
	"github.com/vantagehq/vantage/pkg/logger"
)

// App holds all application components and their configuration.
type App struct {
	Config       *config.Config
	SQLite       *sqlite.DB
	Engine       *engine.Engine
	KPIStore     *kpi.Store
	KPIPoller    *kpi.Poller
	Intelligence *intelligence.Client
	Logger       *slog.Logger
	server       *server.Server
	BuildInfo    string
	Version      string
}

// Options contains configuration needed when creating a new App instance.
type Options struct {
	ConfigPath string
	BuildInfo  string
	Version    string
}

// New loads configuration and creates an App instance. Components are wired
// in Initialize.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger.New(cfg.Logging.Level),
		BuildInfo: opts.BuildInfo,
		Version:   opts.Version,
	}, nil
}

// Initialize sets up storage, the lifecycle engine, delivery, KPI ingestion,
// the intelligence client and the HTTP server.
func (a *App) Initialize(ctx context.Context) error {
	var err error

	a.SQLite, err = sqlite.New(sqlite.Options{
		Config: a.Config.SQLite,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite: %w", err)
	}

	// Database settings override config.toml for runtime-tunable keys.
	a.Config = config.LoadRuntimeConfig(ctx, a.Config, a.SQLite)

	recipients, err := a.loadRecipients(ctx)
	if err != nil {
		return err
	}

	a.Engine = engine.New(engine.Options{
		Logger:     a.Logger,
		Dispatcher: a.buildDispatcher(),
		Recipients: recipients,
		Recorder:   a.SQLite,
	})

	// Rehydrate the alert collection so lifecycle state survives restarts.
	persisted, err := a.SQLite.ListAlerts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted alerts: %w", err)
	}
	a.Engine.Restore(persisted)
	if len(persisted) > 0 {
		a.Logger.Info("restored alerts from storage", "count", len(persisted))
	}

	a.KPIStore = kpi.NewStore()
	a.KPIPoller = kpi.NewPoller(kpi.PollerOptions{
		Config:    a.Config.KPI,
		Store:     a.KPIStore,
		Revenue:   kpi.NewStripeClient(a.Config.KPI.StripeBaseURL, a.Config.KPI.StripeAPIKey, a.Config.KPI.RequestTimeout),
		Customers: kpi.NewHubSpotClient(a.Config.KPI.HubSpotBaseURL, a.Config.KPI.HubSpotToken, a.Config.KPI.RequestTimeout),
		Logger:    a.Logger,
	})

	a.Intelligence = intelligence.New(a.Config.AI, a.Logger)

	a.server = server.New(server.ServerOptions{
		Config:       a.Config,
		Engine:       a.Engine,
		KPIStore:     a.KPIStore,
		Intelligence: a.Intelligence,
		SQLite:       a.SQLite,
		Logger:       a.Logger,
		BuildInfo:    a.BuildInfo,
		Version:      a.Version,
	})

	a.KPIPoller.Start(ctx)
	return nil
}

// loadRecipients merges the configured distribution list with persisted
// addresses. Config addresses are written through so both sources converge.
func (a *App) loadRecipients(ctx context.Context) (*engine.RecipientRegistry, error) {
	registry := engine.NewRecipientRegistry()

	stored, err := a.SQLite.ListRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	for _, address := range stored {
		if err := registry.Add(address); err != nil {
			a.Logger.Warn("skipping invalid persisted recipient", "address", address, "error", err)
		}
	}

	for _, address := range a.Config.Alerts.Recipients {
		if err := registry.Add(address); err != nil {
			a.Logger.Warn("skipping invalid configured recipient", "address", address, "error", err)
			continue
		}
		if err := a.SQLite.AddRecipient(ctx, address); err != nil {
			a.Logger.Warn("failed to persist configured recipient", "address", address, "error", err)
		}
	}
	return registry, nil
}

// buildDispatcher assembles the delivery chain: Resend when an API key is
// configured, SMTP otherwise, plus any configured webhooks.
func (a *App) buildDispatcher() engine.Dispatcher {
	var senders []engine.Dispatcher

	alerts := a.Config.Alerts
	switch {
	case alerts.ResendAPIKey != "":
		senders = append(senders, notify.NewResendSender(notify.ResendSenderOptions{
			APIKey:     alerts.ResendAPIKey,
			BaseURL:    alerts.ResendBaseURL,
			From:       alerts.EmailFrom,
			ConsoleURL: a.Config.Server.ConsoleURL,
			Timeout:    alerts.RequestTimeout,
			Logger:     a.Logger,
		}))
	case alerts.SMTPHost != "":
		senders = append(senders, notify.NewEmailSender(notify.EmailSenderOptions{
			Host:          alerts.SMTPHost,
			Port:          alerts.SMTPPort,
			Username:      alerts.SMTPUsername,
			Password:      alerts.SMTPPassword,
			From:          alerts.EmailFrom,
			ReplyTo:       alerts.SMTPReplyTo,
			Security:      alerts.SMTPSecurity,
			Timeout:       alerts.RequestTimeout,
			SkipTLSVerify: alerts.TLSInsecureSkipVerify,
			Logger:        a.Logger,
		}))
	default:
		a.Logger.Warn("no email delivery configured; alert dispatch will fail until a sender is set up")
	}

	if len(alerts.WebhookURLs) > 0 {
		senders = append(senders, notify.NewWebhookSender(notify.WebhookSenderOptions{
			URLs:          alerts.WebhookURLs,
			Timeout:       alerts.RequestTimeout,
			SkipTLSVerify: alerts.TLSInsecureSkipVerify,
			Logger:        a.Logger,
		}))
	}

	return notify.NewMultiSender(senders...)
}

// Start begins serving HTTP requests. Blocks until shutdown.
func (a *App) Start() error {
	if a.server == nil {
		return fmt.Errorf("server not initialized")
	}
	a.Logger.Info("starting server", "version", a.Version)
	return a.server.Start()
}

// Shutdown gracefully stops all application components with timeouts.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	serverCtx, serverCancel := context.WithTimeout(ctx, 5*time.Second)
	defer serverCancel()

	if a.KPIPoller != nil {
		a.Logger.Info("stopping kpi poller")
		a.KPIPoller.Stop()
	}

	if a.server != nil {
		serverDone := make(chan error, 1)
		go func() {
			serverDone <- a.server.Shutdown(serverCtx)
		}()
		select {
		case err := <-serverDone:
			if err != nil {
				a.Logger.Error("error shutting down server", "error", err)
			}
		case <-serverCtx.Done():
			a.Logger.Warn("timeout shutting down HTTP server, continuing")
		}
	}

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Logger.Error("error closing sqlite", "error", err)
		}
	}

	a.Logger.Info("application shutdown complete")
	return nil
}
