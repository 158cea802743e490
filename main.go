package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	controller "github.com/Itish41/ContraCam/controller"
	"github.com/Itish41/ContraCam/initializers"
	service "github.com/Itish41/ContraCam/service"
)

var cfg *initializers.Config

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Fatalf("[CRITICAL] Failed to load env: %s", err)
	}
	cfg = initializers.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[CRITICAL] Invalid configuration: %s", err)
	}
	if err := initializers.ConnectDB(cfg.DB); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(cfg.DB.Driver); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
}

func newKVStore(logger *slog.Logger) service.KVStore {
	if cfg.Store.Backend == "file" {
		kv, err := service.NewFileKV(cfg.Store.DataDir)
		if err != nil {
			log.Fatalf("Failed to open data directory: %s", err)
		}
		logger.Info("store.file", "dir", cfg.Store.DataDir)
		return kv
	}
	return service.NewGormKV(initializers.DB)
}

func newExtractor(logger *slog.Logger) service.TextExtractor {
	if cfg.OCR.Provider == "tesseract" {
		return service.NewTesseractExtractor(cfg.OCR.Tesseract, cfg.OCR.Timeout, nil, logger)
	}
	return service.NewOCRSpaceExtractor(cfg.OCR.APIKey, cfg.OCR.Endpoint, cfg.OCR.Timeout, logger)
}

func newSummarizer(logger *slog.Logger) service.Summarizer {
	limiter := service.NewRateLimiter(cfg.Summary.CallsPerMinute, time.Minute)
	if cfg.Summary.Provider == "groq" {
		return service.NewGroqSummarizer(cfg.Summary.GroqKey, cfg.Summary.GroqURL, cfg.Summary.GroqModel, cfg.Summary.Timeout, limiter, logger)
	}
	return service.NewHuggingFaceSummarizer(cfg.Summary.HuggingFaceKey, cfg.Summary.HuggingFaceURL, cfg.Summary.HuggingFaceModel, cfg.Summary.Timeout, limiter, logger)
}

// newImageStore returns the preview store and, for local storage, the
// directory to serve.
func newImageStore() (service.ImageStore, string) {
	if cfg.S3.UseS3() {
		store, err := service.NewS3ImageStore(service.S3Options{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			PublicURL: cfg.S3.PublicURL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 preview store: %s", err)
		}
		return store, ""
	}
	store, err := service.NewLocalImageStore(cfg.S3.LocalDir, "/previews")
	if err != nil {
		log.Fatalf("Failed to initialize preview directory: %s", err)
	}
	return store, cfg.S3.LocalDir
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv := newKVStore(logger)
	session := service.NewSession(kv, logger)
	if err := session.Init(ctx); err != nil {
		log.Fatalf("Failed to restore session: %s", err)
	}

	rules := service.NewRuleService(initializers.DB, logger)
	if defaults, err := service.LoadRulesFile(cfg.Rules.DefaultsFile); err != nil {
		logger.Warn("rules.defaults_unavailable", "file", cfg.Rules.DefaultsFile, "error", err)
	} else if _, err := rules.SeedDefaults(ctx, defaults); err != nil {
		log.Fatalf("Failed to seed alert rules: %s", err)
	}

	index, err := service.NewElasticIndex(cfg.Search.ElasticsearchURL, cfg.Search.Index, logger)
	if err != nil {
		logger.Warn("search.disabled", "error", err)
		index, _ = service.NewElasticIndex("", cfg.Search.Index, logger)
	}

	images, previewDir := newImageStore()
	store := service.NewBlobDocumentStore(kv, logger)

	pipeline := service.NewIntakePipeline(service.IntakeDeps{
		Extractor:  newExtractor(logger),
		Summarizer: newSummarizer(logger),
		Rules:      rules,
		Store:      store,
		Images:     images,
		Index:      index,
		Logger:     logger,
	}, service.IntakeOptions{
		OCRTimeout:     cfg.OCR.Timeout,
		OCRConcurrency: cfg.OCR.Concurrency,
		SummaryTimeout: cfg.Summary.Timeout,
	})

	docService := service.NewDocumentService(pipeline, store, index, logger)

	router := controller.NewRouter(controller.Routes{
		Documents:  controller.NewDocumentController(docService, logger),
		Rules:      controller.NewRuleController(rules),
		Session:    controller.NewSessionController(session),
		Auth:       session,
		PreviewDir: previewDir,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %s", err)
		}
	}()
	logger.Info("server.started", "addr", cfg.Server.Addr)

	<-ctx.Done()
	logger.Info("server.stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_failed", "error", err)
	}
	if err := session.Teardown(shutdownCtx); err != nil {
		logger.Error("session.teardown_failed", "error", err)
	}
}
