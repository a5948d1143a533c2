package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/discord"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/grpc"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/storage"
	"github.com/cp25sy5-modjot/expense-extractor/internal/app"
	"github.com/cp25sy5-modjot/expense-extractor/internal/config"
	"github.com/cp25sy5-modjot/expense-extractor/internal/logger"
	"github.com/cp25sy5-modjot/expense-extractor/internal/pkg/grpcserver"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.New().Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.New().Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.NewWithWriter(os.Stdout).Level(logger.ParseLevel(cfg.LogLevel))
	log = logger.WithFields(log, map[string]any{"service": "expense-extractor"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Application service (use cases)
	pipeline, err := app.Build(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer pipeline.Close()

	// gRPC server (interface adapter)
	s := grpcserver.New(cfg.GRPCAddr, log)
	grpc.RegisterExtractorServer(s.Server, grpc.NewHandler(pipeline))

	// Chat bot
	if cfg.Discord.Token != "" {
		db, err := storage.NewDatabase(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		defer db.Close()

		bot, err := discord.NewBot(cfg.Discord.Token, cfg.Discord.ChannelID, pipeline, db, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create discord bot")
		}
		if err := bot.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start discord bot")
		}
		defer bot.Stop()
	}

	// Start
	go func() {
		log.Info().
			Str("addr", cfg.GRPCAddr).
			Str("ocr", cfg.OCR.Provider).
			Str("completion", cfg.Completion.Provider).
			Msg("expense extractor gRPC listening")
		if err := s.Start(); err != nil {
			log.Error().Err(err).Msg("gRPC serve error")
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down")
	s.Stop()
}
