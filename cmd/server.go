package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/giho-tech/helpdesk/internal/audit"
	"github.com/giho-tech/helpdesk/internal/auth"
	"github.com/giho-tech/helpdesk/internal/config"
	"github.com/giho-tech/helpdesk/internal/conversation"
	"github.com/giho-tech/helpdesk/internal/metrics"
	"github.com/giho-tech/helpdesk/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the support chat API and admin back office",
	Long:  `Starts the HTTP server with the customer chat (REST and websocket), ticket intake, admin API and Prometheus metrics, plus the background ticket retention sweeper.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}
		logger := slog.Default()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, metrics.NewDefault(), logger)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, prune, err := openSessions(ctx, cfg.Sessions)
		if err != nil {
			return err
		}

		var authenticator *auth.Authenticator
		if len(cfg.Admin.Accounts) > 0 {
			accounts := make([]auth.Account, 0, len(cfg.Admin.Accounts))
			for _, acct := range cfg.Admin.Accounts {
				accounts = append(accounts, auth.Account{Email: acct.Email, PasswordHash: acct.PasswordHash})
			}
			authenticator, err = auth.New(accounts, cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)
			if err != nil {
				return fmt.Errorf("configuring admin auth: %w", err)
			}
		} else {
			logger.Warn("no admin accounts configured, admin API is locked")
		}

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			SecureCookies:  strings.HasPrefix(cfg.Server.PublicBaseURL, "https://"),
		}, server.Deps{
			Conversation:  conversation.NewService(a.engine, sessions, logger.With("component", "sessions")),
			Validator:     a.validator,
			Tickets:       a.tickets,
			Retention:     a.retention,
			Knowledge:     a.knowledge,
			Settings:      a.settings,
			Notifications: a.notifications,
			Dispatcher:    a.dispatcher,
			Auth:          authenticator,
			Audit:         audit.NewStore(a.db),
			Files:         a.filesHandler,
			Metrics:       a.metrics,
			Logger:        logger,
		})

		if err := a.gateway.Check(ctx); err != nil {
			logger.Warn("ai gateway not configured, unmatched issues go straight to a technician", "error", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			return a.retention.Run(gctx, cfg.Retention.Interval)
		})
		if prune != nil {
			g.Go(func() error {
				prune(gctx)
				return nil
			})
		}

		logger.Info("helpdesk starting", "version", Version, "port", cfg.Server.Port,
			"data_dir", cfg.DataDir, "sessions", cfg.Sessions.Backend, "storage", cfg.Storage.Backend)

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// openSessions returns the configured session store. For the memory
// backend it also returns a loop that prunes idle sessions.
func openSessions(ctx context.Context, cfg config.SessionConfig) (conversation.SessionStore, func(context.Context), error) {
	if cfg.Backend == config.SessionRedis {
		store, err := conversation.NewRedisStore(ctx, cfg.RedisAddr, cfg.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		go func() {
			<-ctx.Done()
			store.Close()
		}()
		return store, nil, nil
	}

	store := conversation.NewMemoryStore(cfg.TTL)
	prune := func(ctx context.Context) {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := store.Prune(); n > 0 {
					slog.Debug("pruned idle sessions", "count", n)
				}
			}
		}
	}
	return store, prune, nil
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
