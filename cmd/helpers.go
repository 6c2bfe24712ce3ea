package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/config"
	"github.com/giho-tech/helpdesk/internal/conversation"
	"github.com/giho-tech/helpdesk/internal/db"
	"github.com/giho-tech/helpdesk/internal/gateway"
	"github.com/giho-tech/helpdesk/internal/knowledge"
	"github.com/giho-tech/helpdesk/internal/llm"
	"github.com/giho-tech/helpdesk/internal/metrics"
	"github.com/giho-tech/helpdesk/internal/notifications"
	"github.com/giho-tech/helpdesk/internal/settings"
	"github.com/giho-tech/helpdesk/internal/storage"
	"github.com/giho-tech/helpdesk/internal/tickets"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `helpdesk init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(filepath.Join(cfg.DataDir, "helpdesk.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

// openStorage returns the attachment store and, for the local backend,
// the handler that serves its files.
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Store, http.Handler, error) {
	switch cfg.Backend {
	case config.StorageS3:
		s3, err := storage.NewS3(ctx, storage.S3Options{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Prefix:   cfg.Prefix,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating s3 storage: %w", err)
		}
		return s3, nil, nil
	default:
		local, err := storage.NewLocal(cfg.LocalDir)
		if err != nil {
			return nil, nil, err
		}
		return local, local.Handler(), nil
	}
}

// newProvider builds one rate-limited provider. A missing API key leaves
// the slot empty instead of failing startup.
func newProvider(spec config.ProviderSpec, rpm int, logger *slog.Logger) llm.Provider {
	if spec.Type == "" {
		return nil
	}
	p, err := llm.NewProvider(spec)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		logger.Warn("ai provider disabled", "provider", spec.Type, "error", err)
		return nil
	}
	if err != nil {
		logger.Warn("ai provider unavailable", "provider", spec.Type, "error", err)
		return nil
	}
	return llm.NewRateLimitedProvider(p, rpm)
}

// app holds the services every command shares.
type app struct {
	cfg           *config.Config
	logger        *slog.Logger
	db            *db.DB
	metrics       *metrics.Metrics
	files         storage.Store
	filesHandler  http.Handler
	knowledge     *knowledge.Store
	settings      *settings.Store
	notifications *notifications.Store
	dispatcher    *notifications.Dispatcher
	warranty      *warranty.Client
	tickets       *tickets.Service
	retention     *tickets.Retention
	gateway       *gateway.Gateway
	validator     *attachment.Validator
	engine        *conversation.Engine
}

// newApp wires the domain services. m may be nil when nothing scrapes
// metrics, as in the CLI commands.
func newApp(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*app, error) {
	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	files, filesHandler, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		database.Close()
		return nil, err
	}

	a := &app{
		cfg:           cfg,
		logger:        logger,
		db:            database,
		metrics:       m,
		files:         files,
		filesHandler:  filesHandler,
		knowledge:     knowledge.NewStore(database),
		settings:      settings.NewStore(database),
		notifications: notifications.NewStore(database),
	}

	a.dispatcher = notifications.NewDispatcher(a.notifications, a.settings, notifications.NewTelegramSender(),
		cfg.Server.PublicBaseURL, logger.With("component", "notifications"))
	a.warranty = warranty.NewClient(cfg.Warranty.RegistryURL, cfg.Warranty.APIKey, cfg.Warranty.Timeout,
		logger.With("component", "warranty"))

	ticketStore := tickets.NewStore(database)
	a.tickets = tickets.NewService(ticketStore, a.warranty, a.dispatcher, logger.With("component", "tickets"))
	a.tickets.SetFiles(files)
	a.retention = tickets.NewRetention(ticketStore, files, cfg.Retention.MaxAge, logger.With("component", "retention"))

	gwCfg := gateway.Config{
		PrimaryTimeout:  cfg.AI.PrimaryTimeout,
		FallbackTimeout: cfg.AI.FallbackTimeout,
		MaxTokens:       cfg.AI.MaxTokens,
		Temperature:     cfg.AI.Temperature,
		Enabled: func(ctx context.Context) bool {
			return cfg.AI.Enabled && a.settings.AIEnabled(ctx)
		},
		Logger: logger.With("component", "gateway"),
	}
	if cfg.AI.Enabled {
		gwCfg.Primary = newProvider(cfg.AI.Primary, cfg.AI.RequestsPerMinute, logger)
		gwCfg.Fallback = newProvider(cfg.AI.Fallback, cfg.AI.RequestsPerMinute, logger)
	}

	a.validator = attachment.NewValidator(attachment.Limits{
		AllowedTypes:    cfg.Attachments.AllowedTypes,
		MaxImageBytes:   cfg.Attachments.MaxImageBytes,
		MaxVideoBytes:   cfg.Attachments.MaxVideoBytes,
		MaxVideoSeconds: cfg.Attachments.MaxVideoSeconds,
	}, nil)

	deps := conversation.Deps{
		Knowledge: a.knowledge,
		Validator: a.validator,
		Tickets:   a.tickets,
		Uploads:   files,
		Logger:    logger.With("component", "conversation"),
	}
	if m != nil {
		gwCfg.Recorder = m
		a.tickets.SetRecorder(m)
		a.dispatcher.SetRecorder(m)
		deps.Recorder = m
	}
	a.gateway = gateway.New(gwCfg)
	deps.AI = a.gateway

	a.engine = conversation.NewEngine(deps, conversation.Options{
		ResultLimit:   cfg.Knowledge.ResultLimit,
		LookupTimeout: cfg.Knowledge.Timeout,
		Hotline:       cfg.Hotline,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
