// Package internal wires configuration, logging and the notex components
// into the run, watch, serve and mcp entry points.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notex/internal/api"
	"github.com/starford/notex/internal/index"
	"github.com/starford/notex/internal/llm"
	"github.com/starford/notex/internal/mcpserver"
	"github.com/starford/notex/internal/noteservice"
	"github.com/starford/notex/internal/pipeline"
	"github.com/starford/notex/internal/progress"
	"github.com/starford/notex/internal/sse"
	"github.com/starford/notex/internal/storage"
	"github.com/starford/notex/internal/watch"
)

// Version is stamped at build time.
var Version = "dev"

func (a *application) init() (*slog.Logger, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := newLogger(a.config.App, a.stderr)
	slog.SetDefault(logger)
	if a.progress == nil {
		a.progress = progress.NewFactory(a.stderr, logger)
	}
	return logger, nil
}

func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func (a *application) modelGateway(logger *slog.Logger) (llm.Gateway, error) {
	if a.gateway != nil {
		return a.gateway, nil
	}
	c := a.config.LLM
	client, err := llm.NewClient(llm.Config{
		BaseURL:        c.URL,
		APIKey:         c.APIKey,
		Model:          c.Model,
		MaxRetries:     c.Retries,
		TimeoutSeconds: c.TimeoutSeconds,
	}, llm.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	logger.Debug("llm: client ready", slog.String("url", c.URL), slog.String("model", client.Model()))
	return client, nil
}

// openIndex opens the catalog for output when indexing is enabled. The
// returned close func is never nil.
func (a *application) openIndex(output string) (*index.DB, func(), error) {
	if !a.config.Index.Enabled {
		return nil, func() {}, nil
	}
	db, err := index.Open(a.config.Index.Resolve(output))
	if err != nil {
		return nil, func() {}, fmt.Errorf("init index: %w", err)
	}
	return db, func() { db.Close() }, nil
}

// Run processes the notes under input once.
func Run(ctx context.Context, input string, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.init()
	if err != nil {
		return err
	}
	gw, err := app.modelGateway(logger)
	if err != nil {
		return err
	}

	var db *index.DB
	if !app.config.Pipeline.DryRun {
		var closeDB func()
		db, closeDB, err = app.openIndex(app.config.Pipeline.Output)
		if err != nil {
			return err
		}
		defer closeDB()
	}

	_, err = app.runOnce(ctx, gw, db, input, logger)
	return err
}

func (a *application) runOnce(ctx context.Context, gw llm.Gateway, db *index.DB, input string, logger *slog.Logger) (*pipeline.Summary, error) {
	cfg := a.config.Pipeline
	logger = logger.With(slog.String("run_id", uuid.NewString()))
	logger.Info("Configuration loaded",
		slog.String("input", input),
		slog.String("output", cfg.Output),
		slog.String("model", a.config.LLM.Model),
		slog.Int("parallel", cfg.Parallel),
		slog.Bool("dry_run", cfg.DryRun))

	popts := []pipeline.Option{
		pipeline.WithStdout(a.stdout),
		pipeline.WithLogger(logger),
		pipeline.WithProgress(a.progress),
	}
	if db != nil {
		popts = append(popts, pipeline.WithIndexer(index.Syncer{DB: db, Logger: logger}))
	}

	start := time.Now()
	sum, err := pipeline.New(gw, pipeline.Settings{
		Input:      input,
		Output:     cfg.Output,
		Format:     cfg.OutputFormat(),
		Parallel:   cfg.Parallel,
		Exclude:    cfg.Exclude,
		DryRun:     cfg.DryRun,
		Reorganize: cfg.Reorganize,
		CrossRef:   cfg.CrossRef,
	}, popts...).Run(ctx)
	if err != nil {
		logger.Error("pipeline failed", slog.String("error", err.Error()))
		return nil, err
	}

	if !sum.DryRun && sum.Notes > 0 {
		fmt.Fprintln(a.stdout)
		for _, p := range sum.Written {
			fmt.Fprintf(a.stdout, "  %s\n", p)
		}
		fmt.Fprintf(a.stdout, "\nWrote %d files\n", len(sum.Written))
	}
	logger.Info("pipeline finished",
		slog.Int("notes", sum.Notes),
		slog.Int("segments", sum.Segments),
		slog.Int("written", len(sum.Written)),
		slog.Int("categorize_failed", sum.CategorizeFailed),
		slog.Int("enhance_failed", sum.EnhanceFailed),
		slog.Duration("elapsed", time.Since(start)))
	return sum, nil
}

// Watch runs the pipeline once and again after every change under input,
// until ctx is cancelled or SIGINT/SIGTERM arrives.
func Watch(ctx context.Context, input string, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.init()
	if err != nil {
		return err
	}
	gw, err := app.modelGateway(logger)
	if err != nil {
		return err
	}
	var db *index.DB
	if !app.config.Pipeline.DryRun {
		var closeDB func()
		db, closeDB, err = app.openIndex(app.config.Pipeline.Output)
		if err != nil {
			return err
		}
		defer closeDB()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch.Run(ctx, watch.Options{
		Root:     input,
		SkipDirs: []string{app.config.Pipeline.Output},
		Logger:   logger,
		Initial:  true,
	}, func(ctx context.Context) error {
		_, err := app.runOnce(ctx, gw, db, input, logger)
		return err
	})
}

// openCatalog prepares storage and a synced catalog for an existing output tree.
func (a *application) openCatalog(output string, logger *slog.Logger) (storage.Provider, *index.DB, error) {
	store, err := storage.NewFS(output)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(a.config.Index.Resolve(output))
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return store, db, nil
}

// Serve exposes the output tree over the read-only HTTP API and keeps the
// catalog in step with the files on disk.
func Serve(ctx context.Context, output string, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.init()
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.HTTP.Address()),
		slog.String("output", output),
		slog.String("index_path", cfg.Index.Resolve(output)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := app.openCatalog(output, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := noteservice.NewService(store, db)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	apiRouter.Get("/events", broker.ServeHTTP)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	api.Health(r, db.Ping)
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, db, store, output, logger, func(kind, path string) {
			logger.Debug("catalog updated", slog.String("op", kind), slog.String("path", path))
			broker.FileChanged(kind, path)
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		// Open event streams would otherwise hold Shutdown until the timeout.
		broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP exposes the output tree to MCP clients over stdio.
func ServeMCP(_ context.Context, output string, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.init()
	if err != nil {
		return err
	}
	store, db, err := app.openCatalog(output, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("MCP server starting", slog.String("output", output))
	return mcpserver.New(noteservice.NewService(store, db), Version).ServeStdio()
}
