// Command tubescribe runs the transcription API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillsenselab/tubescribe/internal/accounts"
	"github.com/skillsenselab/tubescribe/internal/api"
	"github.com/skillsenselab/tubescribe/internal/auth"
	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/mail"
	"github.com/skillsenselab/tubescribe/internal/media"
	"github.com/skillsenselab/tubescribe/internal/pdf"
	"github.com/skillsenselab/tubescribe/internal/pipeline"
	"github.com/skillsenselab/tubescribe/internal/process"
	"github.com/skillsenselab/tubescribe/internal/ratelimit"
	"github.com/skillsenselab/tubescribe/internal/refine"
	"github.com/skillsenselab/tubescribe/internal/server"
	"github.com/skillsenselab/tubescribe/internal/server/middleware"
	"github.com/skillsenselab/tubescribe/internal/store"
	"github.com/skillsenselab/tubescribe/internal/transcribe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "path to YAML config file")
	envFile := flag.String("env", ".env", "path to env file")
	flag.Parse()

	cfg, err := config.Load(
		config.WithConfigFile(*configFile),
		config.WithEnvFile(*envFile),
	)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(&cfg.Logging, "tubescribe")
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	mailer, err := mail.New(cfg.SMTP, log)
	if err != nil {
		return fmt.Errorf("init mail: %w", err)
	}

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenService(cfg.Auth)
	limits := ratelimit.NewMemory()
	acc := accounts.New(st, hasher, tokens, mailer, limits, cfg.RateLimit, log)

	if err := acc.EnsureAdmin(ctx, cfg.Auth); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	downloader := media.NewDownloader(cfg.YouTube, process.Run, log)
	chunker := media.NewChunker(cfg.YouTube, process.Run, log)
	speech := transcribe.New(cfg.OpenAI, log)
	refiner := refine.New(cfg.OpenAI, log)
	pipe := pipeline.New(st, downloader, chunker, speech, refiner, log)

	srv := server.New(cfg.Server, log)
	engine := srv.Engine()
	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.CORS(cfg.Server.CORS),
		middleware.RequestLogger(log),
	)

	authn := middleware.NewAuthenticator(tokens, st, cfg.Auth.LegacyPassword, cfg.Auth.AdminEmail, log)
	handlers := api.New(acc, pipe, st, pdf.New(), log)
	handlers.Register(engine, authn)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	// Drop expired rate-limit entries while the server runs.
	go pruneLimits(ctx, limits, cfg.RateLimit)

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func pruneLimits(ctx context.Context, limits *ratelimit.Memory, cfg config.RateLimitConfig) {
	window := cfg.LoginWindow
	if cfg.RequestWindow > window {
		window = cfg.RequestWindow
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limits.Prune(window)
		}
	}
}
