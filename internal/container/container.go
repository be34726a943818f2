package container

import (
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/archive"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/bot"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/config"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/extractor"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/failover"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/ledger"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/logger"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/mail"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/pdf"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/pipeline"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/pool"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/storage"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/transport"
)

// Telegram caps file downloads for bots at 20 MB.
const maxAttachmentSize = 20 << 20

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	api          *tgbotapi.BotAPI
	registry     *pool.Registry
	botService   *bot.Service
	adminHandler http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	// Build dependency graph
	registry := pool.NewRegistry(cfg.ModelPool)
	factory := extractor.NewFactory(cfg.GoogleAPIKey)
	engine := failover.NewEngine(registry, factory, cfg.RetryFactor, cfg.FailoverBackoff)
	extractionPipeline := pipeline.New(engine, cfg.PageCap, cfg.PageDelay)

	resultLedger := ledger.New()
	fetcher := storage.NewHTTPAttachmentFetcher(maxAttachmentSize)
	deliverer := mail.New(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Address:  cfg.EmailAddress,
		Password: cfg.EmailPassword,
	})

	var archiver archive.Archiver = archive.NopArchiver{}
	if cfg.ArchiveEnabled() {
		archiver, err = archive.NewAzureArchiver(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainerName)
		if err != nil {
			return nil, fmt.Errorf("failed to create archiver: %w", err)
		}
		logger.WithField("container", cfg.AzureContainerName).Info("Extraction archiving enabled")
	}

	openDoc := func(data []byte) (bot.DocumentSource, error) {
		return pdf.Open(data)
	}

	botService := bot.NewService(cfg, api, fetcher, extractionPipeline,
		resultLedger, deliverer, archiver, openDoc)

	return &Container{
		config:       cfg,
		api:          api,
		registry:     registry,
		botService:   botService,
		adminHandler: transport.NewHandler(registry),
	}, nil
}

// Bot returns the Telegram update handler
func (c *Container) Bot() *bot.Service {
	return c.botService
}

// API returns the Telegram client
func (c *Container) API() *tgbotapi.BotAPI {
	return c.api
}

// AdminHandler returns the admin HTTP handler
func (c *Container) AdminHandler() http.Handler {
	return c.adminHandler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
