// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"shorts-studio/internal/config"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/infra/adapters/media"
	"shorts-studio/internal/infra/adapters/storage"
	"shorts-studio/internal/infra/adapters/trends"
	"shorts-studio/internal/infra/api"
	apiv1 "shorts-studio/internal/infra/api/apiv1"
	pg "shorts-studio/internal/infra/db/postgres"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
	red "shorts-studio/internal/infra/redis"
	"shorts-studio/internal/infra/sched"
	"shorts-studio/internal/infra/worker"
	"shorts-studio/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("shorts-studio stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	assetRepo := pg.NewAssetRepoCacheDecorator(pg.NewAssetRepo(pool), redisClient, cfg.Redis.TTL, logger)
	taskRepo := pg.NewRenderTaskRepo(pool, tm)
	videoRepo := pg.NewVideoRepo(pool)
	progressRepo := red.NewProgressRepo(redisClient)

	// ---- Adapters ----
	gens, err := buildGenerators(ctx, cfg.AI, logger)
	if err != nil {
		return err
	}
	store, err := storage.NewLocalStorage(cfg.Storage.BaseDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	engine, err := media.NewFFmpegEngine(cfg.Render.FFmpegPath, cfg.Render.FFprobePath, cfg.Render.FontFile, logger)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	var trendSource adapter.TrendSource
	if rt, err := trends.NewRedditTrends("shorts-studio/"+version, ""); err != nil {
		logger.Warn().Err(err).Msg("reddit trends disabled")
	} else {
		trendSource = rt
	}

	// ---- Use cases ----
	orch := usecase.NewAssetOrchestrator(
		gens.images, gens.voices, store, assetRepo, progressRepo, red.NewLocker(redisClient),
		usecase.OrchestratorConfig{
			Policy: usecase.RetryPolicy{
				MaxAttempts: cfg.Generation.MaxAttempts,
				BaseDelay:   cfg.Generation.BaseDelay,
				MaxJitter:   cfg.Generation.MaxJitter,
			},
			Throttle:     cfg.Generation.Throttle,
			CallTimeout:  cfg.AI.CallTimeout,
			LockTTL:      cfg.Generation.LockTTL,
			DefaultTheme: cfg.Generation.DefaultTheme,
			DefaultVoice: cfg.Generation.DefaultVoice,
		},
		usecase.SystemClock(), logger,
	)
	assembler := usecase.NewVideoAssembler(store, engine, usecase.AssemblerConfig{
		WorkDir:       cfg.Render.WorkDir,
		FetchTimeout:  cfg.Render.FetchTimeout,
		MaxFetchBytes: cfg.Render.MaxFetchMB << 20,
	}, logger)
	pipeline := usecase.NewPipelineUseCase(
		usecase.NewScriptParser(cfg.Generation.MinNarration),
		orch, assembler, store, assetRepo, taskRepo, videoRepo, progressRepo, logger,
	)
	scripts := usecase.NewScriptUseCase(gens.text, trendSource, cfg.AI.TextModel, cfg.AI.MaxPromptTokens, cfg.Trends.DefaultSubreddit, logger)
	publisher := usecase.NewPublishUseCase(videoRepo, assetRepo, store, scripts, cfg.Render.WorkDir, logger, buildPublishers(cfg.Publish, logger)...)

	deps := apiv1.Deps{
		Pipeline: pipeline,
		Scripts:  scripts,
		Publish:  publisher,
		Limiter:  red.NewRateLimiter(redisClient),
		Generate: apiv1.Limit{
			Limit:  cfg.Generation.GenerateLimit,
			Window: cfg.Generation.GenerateWindow,
			Key:    red.GenerateKey,
		},
		RenderDefaults: renderDefaults(cfg.Render),
	}
	if cfg.Voices.CatalogPath != "" {
		catalog, err := usecase.LoadVoiceCatalog(cfg.Voices.CatalogPath)
		if err != nil {
			return fmt.Errorf("voice catalog: %w", err)
		}
		deps.Voices = catalog
	}

	// ---- HTTP ----
	auth, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	router := chi.NewRouter()
	router.Use(api.TraceID(), api.RequestLog(logger), api.Recover(logger), api.Timeout(cfg.HTTP.RequestTimeout))
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("OK"))
	})
	router.Handle("/metrics", promhttp.Handler())
	if prefix := mediaPrefix(cfg.Storage.PublicBaseURL); prefix != "" {
		router.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Storage.BaseDir))))
	}
	apiv1.RegisterAPIV1(router, apiv1.NewServer(deps, logger), auth.Auth())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ---- Background work ----
	workers := worker.NewPool(cfg.Render.Workers, logger)
	processor := worker.NewRenderTaskProcessor(taskRepo, pipeline, logger)
	reaper := sched.NewStaleTaskWorker(0, cfg.Render.StaleAfter, taskRepo, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		workers.Start(gctx)
		processor.Start(gctx, workers)
		workers.Stop()
		return nil
	})
	g.Go(func() error {
		if err := reaper.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		pg.ReportPoolStats(gctx, pool, 15*time.Second)
		return nil
	})

	err = g.Wait()
	logger.Info().Msg("shutdown complete")
	return err
}

func renderDefaults(r config.RenderConfig) model.RenderOptions {
	opts := model.DefaultRenderOptions()
	opts.Width, opts.Height = r.Width, r.Height
	return opts
}

// mediaPrefix is the path under which stored files are served when the
// public base URL points back at this service.
func mediaPrefix(publicBase string) string {
	if publicBase == "" {
		return ""
	}
	u, err := url.Parse(publicBase)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/") + "/"
}
