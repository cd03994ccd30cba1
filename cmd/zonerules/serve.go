package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/zonerules"
	"github.com/aretw0/zonerules/internal/presentation/tui"
	httpAdapter "github.com/aretw0/zonerules/pkg/adapters/http"
	"github.com/aretw0/zonerules/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query API",
		Long: `Serves offset, resolve, validity and transition queries as JSON over HTTP,
with Prometheus metrics on /metrics. Rules are reloaded when a watchable
source reports a change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := observability.NewMetrics(reg)

			s, err := openService(cmd, func(logger *slog.Logger) []zonerules.Option {
				return []zonerules.Option{
					zonerules.WithHooks(observability.Combine(metrics.Hooks(), observability.Logging(logger))),
				}
			})
			if err != nil {
				return err
			}
			defer s.close()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = s.cfg.HTTPAddress
			}

			router := chi.NewRouter()
			router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			router.Mount("/", httpAdapter.NewHandler(s.service, zonerules.Version, s.logger))

			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.service.Watch(ctx); err != nil {
				s.logger.Warn("rules will not reload on change", "err", err)
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				if styled(os.Stderr) {
					tui.PrintBanner(os.Stderr, zonerules.Version)
				}
				s.logger.Info("zonerules server listening", "address", srv.Addr)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)

			case <-ctx.Done():
				s.logger.Info("shutdown signal received")

				// Give outstanding requests a deadline for completion.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					s.logger.Error("graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
					if err := srv.Close(); err != nil {
						return fmt.Errorf("could not stop server: %w", err)
					}
				}
				s.logger.Info("zonerules server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().String("addr", "", "Address to listen on (defaults to http_address from the config, then :8080)")
	return cmd
}
