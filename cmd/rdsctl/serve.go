package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"tagsistant/rds/internal/logging"
	"tagsistant/rds/internal/metrics"
	"tagsistant/rds/internal/sweeper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the expiry sweeper and a /metrics endpoint until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := loadRuntime()
		if err != nil {
			return err
		}
		defer db.Close()

		logging.Init(logging.Config{Level: "INFO", Format: "json"})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sw := sweeper.New(db, cfg.SweepInterval, cfg.SweepGracePeriod)
		go func() {
			if err := sw.Run(ctx); err != nil {
				logging.Get().Error("sweeper stopped", "error", err)
			}
		}()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			<-ctx.Done()
			srv.Shutdown(context.Background())
		}()

		logging.Get().Info("serving", "addr", cfg.MetricsAddr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving metrics: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
