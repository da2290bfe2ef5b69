package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/ledger/pkg/config"
	"github.com/cuemby/ledger/pkg/health"
	"github.com/cuemby/ledger/pkg/metrics"
	"github.com/cuemby/ledger/pkg/providers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run /metrics, /health, /ready, /live for every enabled provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")

		doc, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		registry := providers.NewRegistry(doc)

		metrics.SetVersion(Version)
		allHealthy := true
		for _, p := range doc.Enabled() {
			store, err := registry.Store(p.Name)
			if err != nil {
				return fmt.Errorf("construct provider %q: %w", p.Name, err)
			}
			checker := health.NewStoreChecker(p.Name, store)
			result := checker.Check(context.Background())
			metrics.RegisterComponent(p.Name, result.Healthy, result.Message)
			if !result.Healthy {
				allHealthy = false
			}
		}
		// /ready gates on these two component names only.
		metrics.RegisterComponent("coordinator", true, "in-process")
		metrics.RegisterComponent("kv_backend", allHealthy, "every enabled provider's store check")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())

		srv := &http.Server{Addr: addr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
		fmt.Printf("ledgerctl serving on http://%s (/metrics, /health, /ready, /live)\n", addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nshutting down...")
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:9090", "Address to serve /metrics and /health endpoints on")
}
