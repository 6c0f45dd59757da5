package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"xiaojin-bot/internal/ai"
	"xiaojin-bot/internal/config"
	"xiaojin-bot/internal/forex"
	"xiaojin-bot/internal/linebot"
	"xiaojin-bot/internal/llm"
	"xiaojin-bot/internal/member"
	"xiaojin-bot/internal/quiz"
	"xiaojin-bot/internal/router"
	"xiaojin-bot/internal/scheduler"
	"xiaojin-bot/internal/session"
	"xiaojin-bot/internal/storage"
	"xiaojin-bot/internal/ui"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Warn().Err(err).Msg(".env file not found")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	labels, err := config.LoadLabels(cfg.LabelsFilePath)
	if err != nil {
		log.Warn().Err(err).Msg("label overrides not loaded, using defaults")
	}

	memberRepo, err := member.NewFileRepository(cfg.MembersFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init member repository")
	}
	members, err := member.NewService(memberRepo, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load member records")
	}

	var recorder storage.Recorder
	if cfg.DialogueLogPath != "" {
		rec, err := storage.NewFileRecorder(cfg.DialogueLogPath)
		if err != nil {
			log.Warn().Err(err).Msg("dialogue recorder disabled")
		} else {
			recorder = rec
		}
	}

	llmClient, err := llm.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create llm client")
	}

	bank, err := quiz.NewBankFromFile(cfg.QuizFilePath, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load question bank")
	}

	render := ui.NewRenderer(labels, cfg.BaseStaticURL, cfg.QuizTemplatePath, log.Logger)
	rates := forex.NewProvider(cfg, labels, log.Logger)

	sessions := session.NewMemoryStore()
	forexFlow := forex.NewFlow(rates, render, log.Logger)
	quizFlow := quiz.NewFlow(bank, render, nil, log.Logger)
	aiFlow := ai.NewFlow(llmClient, render, log.Logger)
	dialogue := router.New(sessions, members, forexFlow, quizFlow, aiFlow, render, log.Logger)

	bot, err := linebot.New(cfg, dialogue, sessions, members, render, recorder, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init line bot")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           bot.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	sched := scheduler.New(rates.Refresh, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("webhook server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sched.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("bot stopped")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if strings.EqualFold(cfg.LogProfile, "dev") || strings.EqualFold(cfg.LogProfile, "debug") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
