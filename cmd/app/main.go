// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"video-analyzer/internal/config"
	"video-analyzer/internal/domain/ports/adapter"
	aiAdapters "video-analyzer/internal/infra/adapters/ai"
	"video-analyzer/internal/infra/adapters/download"
	"video-analyzer/internal/infra/adapters/media"
	"video-analyzer/internal/infra/adapters/ocr"
	"video-analyzer/internal/infra/adapters/storage"
	"video-analyzer/internal/infra/adapters/tikhub"
	"video-analyzer/internal/infra/api"
	"video-analyzer/internal/infra/api/apiv1"
	pg "video-analyzer/internal/infra/db/postgres"
	"video-analyzer/internal/infra/i18n"
	"video-analyzer/internal/infra/logging"
	"video-analyzer/internal/infra/metrics"
	red "video-analyzer/internal/infra/redis"
	"video-analyzer/internal/infra/sched"
	"video-analyzer/internal/infra/worker"
	"video-analyzer/internal/pipeline"
	"video-analyzer/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("service stopped with error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Postgres ----
	if cfg.Database.AutoMigrate {
		if err := pg.Migrate(cfg.Database.URL, logger); err != nil {
			return err
		}
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
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
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	jobRepo := pg.NewJobRepoCacheDecorator(pg.NewPostgresJobRepo(pool, tm), redisClient, cfg.Redis.TTL, logger)

	// ---- Adapters ----
	metadata := tikhub.NewClient(cfg.TikHub, logger)
	if !metadata.Configured() {
		logger.Warn().Msg("TIKHUB_API_TOKEN not set; job submission will be rejected")
	} else {
		logger.Info().Str("token", logging.Redact(cfg.TikHub.Token, cfg.Runtime.Dev)).Str("base_url", cfg.TikHub.BaseURL).Msg("metadata provider configured")
	}
	objects, assetsDir, err := buildStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	gen, stt, err := buildAI(ctx, cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	var tokens adapter.TokenCounter
	if tk, err := aiAdapters.NewTokenizer("cl100k_base"); err != nil {
		logger.Warn().Err(err).Msg("tokenizer unavailable, summary prompts will not be trimmed")
	} else {
		tokens = tk
	}
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.AI.PromptLanguage)
	if err != nil {
		return fmt.Errorf("prompts: %w", err)
	}
	tools := media.NewToolkit(media.Config{FfmpegBinPath: cfg.Media.FfmpegPath, FfprobeBinPath: cfg.Media.FfprobePath}, logger)
	recognizer := ocr.NewTesseract(ocr.Config{Binary: cfg.OCR.TesseractPath, Languages: cfg.OCR.Languages, PSM: cfg.OCR.PSM}, logger)

	// ---- Pipeline ----
	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Jobs:        jobRepo,
		Metadata:    metadata,
		Acquirer:    pipeline.NewAcquirer(download.NewHTTPDownloader(cfg.Media.MaxDownloadBytes, logger), cfg.Media.DownloadAttempts, cfg.Media.DownloadBackoff, cfg.Media.DownloadTimeout, logger),
		Audio:       pipeline.NewAudioExtractor(tools, cfg.Media.AudioTimeout),
		Transcriber: pipeline.NewTranscriber(objects, stt, cfg.AI.LanguageHint, cfg.AI.Timeout),
		Frames:      pipeline.NewFrameSampler(tools, cfg.Media.FrameCount, cfg.Media.FrameTimeout, logger),
		OCR:         pipeline.NewTextExtractor(recognizer, cfg.OCR.Timeout, logger),
		Describer:   pipeline.NewSceneDescriber(gen, objects, tr, cfg.AI.VisionModel, cfg.AI.Timeout, logger),
		Summarizer:  pipeline.NewSummarizer(gen, tr, tokens, cfg.AI.SummaryBudget, cfg.AI.SummaryModel, cfg.AI.Timeout, logger),

		ScratchRoot:     cfg.Media.ScratchDir,
		MetadataTimeout: cfg.TikHub.Timeout,
	}, logger)

	// ---- Workers ----
	workerPool := worker.NewPool(cfg.Worker.Concurrency, cfg.Worker.QueueSize, logger)
	processor := worker.NewJobProcessor(workerPool, orchestrator, locker, cfg.Worker.LockTTL, logger)
	reconciler := sched.NewReconciler(jobRepo, processor, locker, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.StaleAfter, logger)

	// ---- Use cases + HTTP ----
	jobUC := usecase.NewJobUseCase(jobRepo, processor, metadata, logger)
	checks := map[string]api.HealthCheck{
		"database": pool.Ping,
		"redis":    redisClient.Ping,
	}
	handler := api.NewRouter(apiv1.NewServer(jobUC, logger), assetsDir, cfg.HTTP.RequestTimeout, checks, logger)
	server := api.NewServer(cfg.HTTP, handler, logger)

	workerPool.Start(ctx)
	defer workerPool.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		reconciler.Start(gctx)
		return nil
	})
	g.Go(func() error {
		pg.ReportPoolStats(gctx, pool, 15*time.Second, logger)
		return nil
	})

	logger.Info().Int("workers", cfg.Worker.Concurrency).Str("ai_provider", cfg.AI.Provider).Msg("video analyzer started")
	return g.Wait()
}

func buildStorage(ctx context.Context, cfg config.StorageConfig, logger *zerolog.Logger) (adapter.ObjectStorage, string, error) {
	switch strings.ToLower(cfg.Backend) {
	case "gcs":
		s, err := storage.NewGCSStorage(ctx, cfg.Bucket, cfg.CredentialsFile, cfg.PublicBaseURL, logger)
		return s, "", err
	case "local":
		s, err := storage.NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, "", err
		}
		return s, s.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// buildAI returns the structured generator and the speech engine, both
// behind the shared concurrency limit.
func buildAI(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) (adapter.StructuredGenerator, adapter.SpeechToText, error) {
	var gen adapter.StructuredGenerator
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.VisionModel, cfg.Timeout, logger)
		if err != nil {
			return nil, nil, err
		}
		gen = oa
	case "gemini":
		gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.VisionModel, 0, logger)
		if err != nil {
			return nil, nil, err
		}
		gen = gm
	case "multi":
		byProvider := map[string]adapter.StructuredGenerator{}
		if cfg.OpenAIKey != "" {
			oa, err := aiAdapters.NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, "", cfg.Timeout, logger)
			if err != nil {
				return nil, nil, err
			}
			byProvider["openai"] = oa
		}
		if cfg.GeminiKey != "" {
			gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, "", 0, logger)
			if err != nil {
				return nil, nil, err
			}
			byProvider["gemini"] = gm
		}
		if len(byProvider) == 0 {
			return nil, nil, fmt.Errorf("ai.provider=multi needs at least one of openai_key, gemini_key")
		}
		def := "openai"
		if _, ok := byProvider[def]; !ok {
			def = "gemini"
		}
		gen = aiAdapters.NewMultiAIAdapter(def, byProvider, nil)
	case "noop":
		gen = aiAdapters.NewNoopAIAdapter(logger)
	default:
		return nil, nil, fmt.Errorf("unknown ai.provider %q", cfg.Provider)
	}

	var stt adapter.SpeechToText
	if cfg.OpenAIKey != "" {
		w, err := aiAdapters.NewWhisperAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.SpeechModel, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		stt = w
	} else {
		logger.Warn().Msg("no openai_key, transcription disabled")
		stt = aiAdapters.NewNoopAIAdapter(logger)
	}

	return aiAdapters.NewLimitedAI(gen, cfg.ConcurrentLimit), aiAdapters.NewLimitedSpeech(stt, cfg.ConcurrentLimit), nil
}
