package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nathech23/High-Five/internal/reminder"
	"github.com/Nathech23/High-Five/pkg/config"
	"github.com/Nathech23/High-Five/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize Reminder Service engine (no HTTP API in the worker)
	service, err := reminder.New(cfg, logger, "reminder-worker")
	if err != nil {
		logger.Fatalf("Failed to initialize reminder worker: %v", err)
	}
	defer service.Close()

	ctx, cancel := context.WithCancel(context.Background())

	// Run the dispatch loop in a goroutine
	done := make(chan error, 1)
	go func() {
		done <- service.RunWorker(ctx)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down reminder worker...")
	cancel()
	if err := <-done; err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Reminder worker stopped")
}
