package main

import (
	"annictgram/internal/annict"
	"annictgram/internal/bot"
	"annictgram/internal/config"
	"annictgram/internal/database"
	"annictgram/internal/scheduler"
	"annictgram/internal/summarizer"
	"annictgram/internal/syncer"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxBackups = 5
	logFileMaxAgeDays = 28
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	logOutput, closeLog := initLogOutput(cfg)
	defer closeLog()

	log = slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	client := annict.NewClient(cfg.AnnictEndpoint, cfg.AnnictToken, cfg.AnnictTimeout, log)
	engine := syncer.NewEngine(client, db, cfg.BackwardPageSize, log)

	botInst, err := bot.New(
		cfg.Token,
		db,
		engine,
		initSummarizer(ctx, cfg.OpenAIAPIKey, log),
		cfg.AllowedUsers,
		log,
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers))

	sched := scheduler.New(ctx, cfg.PollInterval.Duration(), db, engine, botInst, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"interval", cfg.PollInterval.Duration().String())

		return
	}
	defer sched.Stop()

	go func() {
		botInst.Start(ctx)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())

	botInst.Stop()
	log.InfoContext(ctx, "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

// initLogOutput tees logs into a rotated file when LOG_FILE is set.
func initLogOutput(cfg config.Config) (io.Writer, func()) {
	if cfg.LogFile == "" {
		return os.Stdout, func() {}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}

	return io.MultiWriter(os.Stdout, file), func() { _ = file.Close() }
}

// initSummarizer returns nil when no API key is configured, so that long
// reviews are truncated instead.
func initSummarizer(ctx context.Context, apiKey string, log *slog.Logger) summarizer.Summarizer {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		log.WarnContext(ctx, "OPENAI_API_KEY is missing so fallback will be used",
			"envVar", "OPENAI_API_KEY")

		return nil
	}

	s, err := summarizer.NewOpenAISummarizer(apiKey)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create OpenAI summarizer so fallback will be used",
			"error", err,
			"envVar", "OPENAI_API_KEY")

		return nil
	}

	log.InfoContext(ctx, "OpenAI summarizer is initialized",
		"provider", "openai",
		"cacheEntries", summarizer.DefaultCacheEntries,
		"cacheTTL", summarizer.DefaultCacheTTL.String())

	return summarizer.NewCached(s, summarizer.DefaultCacheEntries, summarizer.DefaultCacheTTL)
}
