package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamwatch/streamwatch/internal/api"
	"github.com/streamwatch/streamwatch/internal/config"
	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/logging"
	"github.com/streamwatch/streamwatch/internal/server"
	"github.com/streamwatch/streamwatch/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting streamwatch")

	sess, err := session.New(cfg.Monitor, logger)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	loadCredentialsFromEnv(sess.Credentials)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	api.SetupRoutes(mux, sess, cfg.Analysis, logger)

	srv := server.New(cfg.Server, logger, mux)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	// The tick loop is the only thing driving collections. Due-ness is
	// derived from wall-clock time inside the scheduler, so a delayed tick
	// runs each overdue job once, never several times.
	ticker := time.NewTicker(cfg.Monitor.TickInterval)
	defer ticker.Stop()

	logger.Info("tick loop started", "interval", cfg.Monitor.TickInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error("http shutdown failed", "error", err)
			}
			return

		case now := <-ticker.C:
			outcomes := sess.Tick(ctx, now)
			for _, o := range outcomes {
				if !o.Success {
					logger.Warn("job failed",
						"job_id", o.JobID, "platform", o.Platform, "entity", o.EntityName, "detail", o.Detail)
				}
			}
		}
	}
}

// loadCredentialsFromEnv seeds the session credential context from the
// environment. Credentials stay editable at runtime through the API; this
// only covers initial setup.
func loadCredentialsFromEnv(creds *credentials.Context) {
	if id, secret := os.Getenv("TWITCH_CLIENT_ID"), os.Getenv("TWITCH_CLIENT_SECRET"); id != "" && secret != "" {
		creds.Set(credentials.Twitch{ClientID: id, ClientSecret: secret})
	}
	if token := os.Getenv("TWITTER_BEARER_TOKEN"); token != "" {
		creds.Set(credentials.Twitter{BearerToken: token})
	}
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		creds.Set(credentials.YouTube{APIKey: key})
	}
	if id, secret := os.Getenv("REDDIT_CLIENT_ID"), os.Getenv("REDDIT_CLIENT_SECRET"); id != "" && secret != "" {
		creds.Set(credentials.Reddit{
			ClientID:     id,
			ClientSecret: secret,
			UserAgent:    os.Getenv("REDDIT_USER_AGENT"),
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		creds.SetOpenAIKey(key)
	}
}
