package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/bloom/internal/api"
	"github.com/abhisek/bloom/internal/config"
	"github.com/abhisek/bloom/internal/llm"
	"github.com/abhisek/bloom/internal/session"
	"github.com/abhisek/bloom/internal/store"
	"github.com/abhisek/bloom/internal/syllabus"
	"github.com/abhisek/bloom/internal/telemetry"
	"github.com/abhisek/bloom/internal/tutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tutoring HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides PORT)")
	serveCmd.Flags().String("syllabus", "", "Syllabus file (JSON or YAML) to load before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if p, _ := cmd.Flags().GetString("db"); p == "" && cfg.DBPath != "" {
		if err := cmd.Flags().Set("db", cfg.DBPath); err != nil {
			return err
		}
	}
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	if path, _ := cmd.Flags().GetString("syllabus"); path != "" {
		if err := loadSyllabusFile(ctx, st, path, logger); err != nil {
			return err
		}
	}

	llmCfg := llm.ConfigFromEnv()
	if err := llmCfg.Validate(); err != nil {
		return fmt.Errorf("LLM provider not configured: %w", err)
	}
	gen, err := llm.NewCompletionServiceFromConfig(ctx, llmCfg, st.EventRepo(), logger)
	if err != nil {
		return err
	}
	logger.Info("LLM provider ready", "provider", llmCfg.Provider, "model", gen.ModelID())

	stats := telemetry.NewCacheStats()
	recorders := []telemetry.Recorder{stats}
	var (
		tracer  trace.Tracer
		metrics http.Handler
	)
	if cfg.MetricsEnabled {
		prov, err := telemetry.Setup()
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := prov.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
		recorders = append(recorders, telemetry.NewMetricsRecorder(prov.MeterProvider))
		tracer = telemetry.Tracer(prov.TracerProvider)
		metrics = prov.Handler
	}

	engine := tutor.NewEngine(tutor.Deps{
		Generator: gen,
		Cache:     st.ExpositionRepo(),
		Recorder:  telemetry.Multi(recorders...),
		Tracer:    tracer,
		Logger:    logger,
	})
	svc := session.NewService(st, tutor.NewAgent(engine, st.CheckpointRepo()), session.Config{
		CompletionThreshold: cfg.CompletionThreshold,
		TurnTimeout:         cfg.TurnTimeout,
	}, logger)

	handler := api.NewHandler(api.Options{
		Store:       st,
		Sessions:    svc,
		CacheStats:  stats,
		Metrics:     metrics,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	addr := cfg.Addr()
	if a, _ := cmd.Flags().GetString("addr"); a != "" {
		addr = a
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.TurnTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	stop()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func loadSyllabusFile(ctx context.Context, st *store.Store, path string, logger *slog.Logger) error {
	doc, err := syllabus.LoadFile(path)
	if err != nil {
		return err
	}
	if err := st.SyllabusRepo().Load(ctx, doc.StoreTopics()); err != nil {
		return err
	}
	topics, subtopics := doc.Counts()
	logger.Info("syllabus loaded", "path", path, "title", doc.Title, "topics", topics, "subtopics", subtopics)
	return nil
}
