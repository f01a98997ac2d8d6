package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/voxflow/voxflow"
	"github.com/voxflow/voxflow/internal/adapters/fastagi"
	"github.com/voxflow/voxflow/internal/adapters/file"
	redisadapter "github.com/voxflow/voxflow/internal/adapters/redis"
	"github.com/voxflow/voxflow/internal/adapters/smtp"
	"github.com/voxflow/voxflow/internal/config"
	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FastAGI server",
	Long:  `Starts the voxflow engine: a FastAGI listener for call events plus an HTTP endpoint for health and metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "FastAGI listen address (overrides config)")
}

func runServe(cmd *cobra.Command) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("flows"); dir != "" {
		cfg.FlowsDir = dir
	}
	if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
		cfg.Listen = addr
	}

	logger := logging.New(cfg.SlogLevel())
	stats := metrics.New()

	source := file.New(cfg.FlowsDir, logger)

	opts := []voxflow.Option{
		voxflow.WithLogger(logger),
		voxflow.WithMetrics(stats),
		voxflow.WithFlowSource(source),
		voxflow.WithMaxSteps(cfg.MaxSteps),
		voxflow.WithHTTPTimeout(cfg.HTTPTimeout),
	}

	if cfg.Redis.Enabled {
		store := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer store.Close()
		opts = append(opts, voxflow.WithChannelStore(store))
		logger.Info("using redis channel store", "addr", cfg.Redis.Addr)
	}

	// Email servers come from the flow-utilities bundle next to the flows.
	if utils, err := source.Utilities(context.Background()); err != nil {
		logger.Warn("flow utilities unavailable", "err", err)
	} else if servers := utils.EmailServers(); len(servers) > 0 {
		opts = append(opts, voxflow.WithEmailSender(smtp.New(servers, cfg.Email.From, logger)))
	}

	engine, err := voxflow.New(cfg.FlowsDir, opts...)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}

	agi := fastagi.NewServer(engine,
		fastagi.WithLogger(logger),
		fastagi.WithDefaultFlow(cfg.DefaultFlow),
	)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	router.Handle("/metrics", promhttp.HandlerFor(stats.Registry, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:    cfg.HTTPListen,
		Handler: router,
	}

	serverErrors := make(chan error, 2)
	go func() {
		serverErrors <- agi.ListenAndServe(cfg.Listen)
	}()
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPListen)
		serverErrors <- httpSrv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := agi.Shutdown(ctx); err != nil {
			logger.Warn("fastagi shutdown incomplete", "err", err)
		}
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warn("http shutdown incomplete", "err", err)
			_ = httpSrv.Close()
		}
		logger.Info("stopped")
		return nil
	}
}
