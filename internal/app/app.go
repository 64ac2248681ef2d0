package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"workpilot/internal/config"
	"workpilot/internal/httpx"
	slackbot "workpilot/internal/integrations/slack"
	"workpilot/internal/integrations/llm"
	"workpilot/internal/nudge"
	"workpilot/internal/report"
	"workpilot/internal/storage/sqlite"
	"workpilot/internal/web"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API and the reminder scheduler until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config) error {
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Listen=%s LLMProvider=%s LLMModel=%s LLMRetry=%d MaxInputChars=%d SimilarityThreshold=%.2f Timezone=%s Slack=%t NudgeSchedule=%q ExternalHTTPTimeout=%s",
		cfg.ListenAddr,
		cfg.LLMProvider,
		cfg.LLMModel,
		cfg.LLMRetry,
		cfg.MaxInputChars,
		cfg.SimilarityThreshold,
		cfg.Timezone,
		cfg.SlackConfigured(),
		cfg.NudgeSchedule,
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	gen := report.NewGenerator(db, llm.New(cfg), cfg)
	srv := web.NewServer(db, gen, cfg)

	var notifier nudge.Notifier
	if cfg.SlackConfigured() {
		notifier = slackbot.New(cfg)
	}
	sched, err := nudge.New(cfg, db, notifier)
	if err != nil {
		return err
	}
	if sched != nil {
		go sched.Run(ctx)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting WorkPilot API on %s", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Println("Shutting down WorkPilot API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
