package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
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

	// Initialize Reminder Service
	service, err := reminder.New(cfg, logger, "reminder-service")
	if err != nil {
		logger.Fatalf("Failed to initialize Reminder Service: %v", err)
	}
	defer service.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}

	// Start service in a goroutine
	go func() {
		logger.Infof("Starting Reminder Service on port %s", port)
		if err := service.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start Reminder Service: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Reminder Service...")
	if err := service.Stop(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Reminder Service stopped")
}
