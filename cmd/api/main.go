package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/config"
	"github.com/zhouzirui/z-saga/backend/internal/handler"
	"github.com/zhouzirui/z-saga/backend/internal/logger"
	"github.com/zhouzirui/z-saga/backend/internal/model/story"
	"github.com/zhouzirui/z-saga/backend/internal/service/ai"
	"github.com/zhouzirui/z-saga/backend/internal/service/prompt"
	storyService "github.com/zhouzirui/z-saga/backend/internal/service/story"
	"github.com/zhouzirui/z-saga/backend/internal/storage/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	lg, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	catalog, err := buildCatalog(cfg.Stories)
	if err != nil {
		return err
	}
	lg.Info("story catalog loaded",
		zap.String("dir", cfg.Stories.Dir),
		zap.Strings("stories", catalog.Names()))

	store, err := session.Open(ctx, cfg.Store, lg.Named("store"))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	generator, err := ai.NewGenerator(ctx, cfg.AI, lg.Named("generator"))
	if err != nil {
		return err
	}

	svc := storyService.NewService(catalog, store, generator, lg.Named("progression"),
		storyService.WithPromptBuilder(prompt.NewBuilder(promptOptions(cfg.Stories))))

	router := handler.NewRouter(handler.Dependencies{
		Stories:             svc,
		GeneratorConfigured: ai.Configured(generator),
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		Logger:              lg.Named("http"),
	})

	return startServer(ctx, cfg.Server, router, lg)
}

// buildCatalog prefers the YAML manifest and falls back to the bundled stories.
func buildCatalog(cfg config.StoriesConfig) (*story.FileCatalog, error) {
	sources := story.Seed()
	if cfg.Manifest != "" {
		loaded, err := story.LoadManifest(cfg.Manifest)
		if err != nil {
			return nil, err
		}
		sources = loaded
	}
	return story.NewFileCatalog(cfg.Dir, sources), nil
}

func promptOptions(cfg config.StoriesConfig) prompt.Options {
	return prompt.Options{
		StartExcerpt:    cfg.StartExcerpt,
		ContinueExcerpt: cfg.ContinueExcerpt,
		HistoryWindow:   cfg.HistoryWindow,
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, lg *zap.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	lg.Info("Z Saga backend listening", zap.String("addr", addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
