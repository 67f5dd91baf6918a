package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/opsdesk/internal/database"
	"github.com/dukerupert/opsdesk/internal/metrics"
	"github.com/dukerupert/opsdesk/internal/server"
)

const (
	sessionSweepInterval = time.Hour
	rateLimitSweep       = 5 * time.Minute
	shutdownTimeout      = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	var (
		secureCookies bool
		origins       []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and websocket feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := e.logger

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := database.Open(e.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			opts := server.Options{SecureCookies: secureCookies, OriginPatterns: origins}
			if e.cfg.Metrics.Enabled {
				h, err := metrics.InitMeterProvider(ctx, "opsdesk")
				if err != nil {
					return fmt.Errorf("init metrics: %w", err)
				}
				if err := metrics.Init(); err != nil {
					return fmt.Errorf("init instruments: %w", err)
				}
				opts.MetricsHandler = h
			}

			srv := server.New(db, e.cfg, opts, logger)
			httpServer := &http.Server{
				Addr:         ":" + e.cfg.Port,
				Handler:      srv.Router(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("opsdesk listening", "addr", httpServer.Addr, "timezone", e.cfg.Timezone)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				srv.RateLimiter().RunCleanup(gctx, rateLimitSweep)
				return nil
			})
			g.Go(func() error {
				ticker := time.NewTicker(sessionSweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-ticker.C:
						n, err := srv.SessionStore().DeleteExpired()
						if err != nil {
							logger.Error("sweep sessions", "error", err)
							continue
						}
						if n > 0 {
							logger.Info("expired sessions removed", "count", n)
						}
					}
				}
			})
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&secureCookies, "secure-cookies", false, "Mark the session cookie Secure (enable behind TLS)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "Extra origin patterns allowed to open /ws")
	return cmd
}
