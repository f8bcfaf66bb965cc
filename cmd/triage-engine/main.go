package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelsoc/triage-engine/internal/api"
	"github.com/sentinelsoc/triage-engine/internal/cache"
	"github.com/sentinelsoc/triage-engine/internal/config"
	"github.com/sentinelsoc/triage-engine/internal/engine"
	"github.com/sentinelsoc/triage-engine/internal/generator"
	"github.com/sentinelsoc/triage-engine/internal/metrics"
	"github.com/sentinelsoc/triage-engine/internal/repo"
	"github.com/sentinelsoc/triage-engine/internal/services"
	"github.com/sentinelsoc/triage-engine/internal/store"
	"github.com/sentinelsoc/triage-engine/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)

	if err := metrics.Register(); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, closeCache := buildEvidenceSource(cfg, logger)
	defer closeCache()

	snapshotter := repo.NewSnapshotter(source, logger, nil,
		cfg.Pipeline.InfraLookback,
		time.Duration(cfg.Pipeline.IncidentWindowDays)*24*time.Hour)

	planner, err := engine.NewPlanner()
	if err != nil {
		logger.Error("response template table invalid", slog.Any("error", err))
		os.Exit(1)
	}

	coordinator := engine.NewCoordinator(snapshotter, planner, engine.CoordinatorConfig{
		EvaluatorTimeout:  cfg.Pipeline.EvaluatorTimeout,
		LowConfidenceMark: cfg.Pipeline.LowConfidenceMark,
	}, logger)

	st := buildStore(cfg, logger)
	defer st.Close()

	var gen *generator.Generator
	if cfg.Generator.Enabled {
		gen = generator.New(cfg.Generator.Seed, nil)
	}

	svc := services.NewTriageService(coordinator, st, gen, logger)

	if cfg.Generator.Enabled {
		go runGeneratorLoop(ctx, svc, cfg.Generator.Interval, logger)
	}

	metricsServer := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics server listening", slog.String("addr", cfg.Server.MetricsAddress))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	server := api.NewServer(cfg.Server.Address, svc, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", slog.Any("error", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown incomplete", slog.Any("error", err))
	}
	logger.Info("triage engine stopped")
}

// buildEvidenceSource picks the HTTP client when a base URL is configured
// and the seeded in-memory dataset otherwise.
func buildEvidenceSource(cfg *config.Config, logger *slog.Logger) (repo.EvidenceSource, func()) {
	if cfg.Evidence.BaseURL == "" {
		logger.Info("using in-memory evidence dataset", slog.Int64("seed", cfg.Evidence.Seed))
		return repo.NewMemoryEvidence(cfg.Evidence.Seed, time.Now().UTC()), func() {}
	}

	var provider cache.Provider = cache.NoopProvider{}
	closeCache := func() {}
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Warn("evidence cache unavailable, continuing without", slog.Any("error", err))
		} else {
			provider = redisCache
			closeCache = func() { _ = redisCache.Close() }
		}
	}

	client := repo.NewClient(repo.ClientConfig{
		BaseURL:       cfg.Evidence.BaseURL,
		IncidentsPath: cfg.Evidence.IncidentsPath,
		PolicyPath:    cfg.Evidence.PolicyPath,
		InfraPath:     cfg.Evidence.InfraPath,
		IntelPath:     cfg.Evidence.IntelPath,
		Timeout:       cfg.Evidence.Timeout,
		IncidentsTTL:  cfg.Cache.IncidentsTTL,
		PolicyTTL:     cfg.Cache.PolicyTTL,
	}, provider, logger)
	logger.Info("using remote evidence service", slog.String("base_url", cfg.Evidence.BaseURL))
	return client, closeCache
}

// buildStore picks Redis when configured, falling back to memory.
func buildStore(cfg *config.Config, logger *slog.Logger) store.Store {
	if cfg.Store.RedisAddr == "" {
		logger.Info("using in-memory analysis store", slog.Int("max", cfg.Store.MaxAnalyses))
		return store.NewMemoryStore(cfg.Store.MaxAnalyses)
	}
	redisStore, err := store.NewRedisStore(store.RedisStoreConfig{
		Addr:        cfg.Store.RedisAddr,
		Password:    cfg.Store.RedisPassword,
		DB:          cfg.Store.RedisDB,
		Channel:     cfg.Store.Channel,
		MaxAnalyses: cfg.Store.MaxAnalyses,
		DialTimeout: cfg.Store.DialTimeout,
	}, logger)
	if err != nil {
		logger.Warn("redis store unavailable, falling back to memory", slog.Any("error", err))
		return store.NewMemoryStore(cfg.Store.MaxAnalyses)
	}
	logger.Info("using redis analysis store", slog.String("addr", cfg.Store.RedisAddr))
	return redisStore
}

// runGeneratorLoop feeds synthetic signals through the pipeline for demos.
func runGeneratorLoop(ctx context.Context, svc *services.TriageService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("signal generator running", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Generate(ctx, ""); err != nil {
				logger.Warn("generated signal failed analysis", slog.Any("error", err))
			}
		}
	}
}
