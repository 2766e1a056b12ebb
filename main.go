package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"enstats/adapters/api"
	"enstats/internal"
	"enstats/internal/config"
	"enstats/internal/container"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Close()

	if err := appContainer.Init(ctx); err != nil {
		logger.Error("failed to initialize: %v", err)
		os.Exit(1)
	}

	server := api.NewServer(appContainer.Service, appConfig.Data.DefaultFrequency, logger.With("component", "api"))
	if err := server.ListenAndServe(ctx, ":"+appConfig.Server.Port); err != nil {
		logger.Error("server failed: %v", err)
		os.Exit(1)
	}
}
