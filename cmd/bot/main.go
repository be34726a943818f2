package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/config"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/container"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Setup structured logging
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Admin server with the health and pool stats endpoints
	adminServer := &http.Server{
		Addr:         cfg.AdminAddress(),
		Handler:      c.AdminHandler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("address", cfg.AdminAddress()).Info("Starting admin server")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start admin server")
		}
	}()

	api := c.API()
	logrus.WithField("username", api.Self.UserName).Info("Bot authorized")

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := api.GetUpdatesChan(updateConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The dispatcher itself is tracked by the wait group, so handler
	// goroutines are always registered before Wait can observe a zero
	// counter: the dispatcher's own entry holds shutdown open until the
	// update channel is drained.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range updates {
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				c.Bot().HandleUpdate(ctx, u)
			}(update)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")

	// Stop the update stream, then let in-flight extractions run to
	// completion before tearing anything down.
	api.StopReceivingUpdates()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Fatal("Admin server forced to shutdown")
	}

	logrus.Info("Bot exited")
}
