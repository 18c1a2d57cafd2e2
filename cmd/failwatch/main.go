package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supportstack/failwatch/internal/api"
	"github.com/supportstack/failwatch/internal/cache"
	"github.com/supportstack/failwatch/internal/config"
	"github.com/supportstack/failwatch/internal/metrics"
	"github.com/supportstack/failwatch/internal/report"
	"github.com/supportstack/failwatch/internal/reportstore"
	"github.com/supportstack/failwatch/internal/scheduler"
	"github.com/supportstack/failwatch/internal/store"
	"github.com/supportstack/failwatch/internal/summarizer"
	"github.com/supportstack/failwatch/internal/utils"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting failwatch", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", utils.ErrAttr(err))
		os.Exit(1)
	}

	loc, err := utils.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		logger.Error("invalid report timezone", slog.String("timezone", cfg.Report.Timezone), utils.ErrAttr(err))
		os.Exit(1)
	}

	eventStore := store.New(cfg.Store.Capacity)

	var sum summarizer.Summarizer
	if cfg.Summarizer.Enabled {
		provider, err := summarizer.NewOpenAIProvider(summarizer.OpenAIConfig{
			BaseURL:     cfg.Summarizer.BaseURL,
			APIKey:      cfg.Summarizer.APIKey,
			Model:       cfg.Summarizer.Model,
			MaxTokens:   cfg.Summarizer.MaxTokens,
			Temperature: cfg.Summarizer.Temperature,
			Timeout:     cfg.Summarizer.Timeout,
		})
		if err != nil {
			logger.Error("failed to configure summarizer", utils.ErrAttr(err))
			os.Exit(1)
		}
		sum = provider
		logger.Info("summarizer enabled", slog.String("provider", provider.Name()))
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey unavailable, report persistence disabled", utils.ErrAttr(err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	var reports reportstore.Store
	if _, ok := cacheProvider.(cache.NoopProvider); !ok {
		reports = reportstore.NewCacheStore(cacheProvider, cfg.Cache.ReportTTL)
	}

	builder := report.NewBuilder(logger, eventStore, sum, nil, loc, report.Options{
		PeakHoursTop:          cfg.Report.PeakHoursTop,
		MinPatternOccurrences: cfg.Report.MinPatternOccurrences,
		SummarizerTimeout:     cfg.Summarizer.Timeout,
	})

	handlers := api.NewHandlers(logger, builder, reports)
	server, err := api.NewServer(cfg.Server, handlers, logger)
	if err != nil {
		logger.Error("failed to create HTTP server", utils.ErrAttr(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(logger, builder, reports, nil, cfg.Report.Interval, cfg.Report.DefaultWindowHours)
	go sched.Run(ctx)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", utils.ErrAttr(err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("http server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", utils.ErrAttr(serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", utils.ErrAttr(err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("failwatch stopped")
}
