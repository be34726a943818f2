package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/archive"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/config"
	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/ledger"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/logger"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/pipeline"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/progress"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/storage"
)

const (
	welcomeText = "Welcome to the Persian OCR Bot! Send me images or PDFs containing Persian text, " +
		"and I'll extract the text for you.\n" +
		"After each extraction, you'll see a button to send the result to your email."
	helpText = "Send me an image or PDF containing Persian text and I'll extract it.\n" +
		"Commands:\n" +
		"/start - Start the bot\n" +
		"/help - Get help information\n\n" +
		"After each extraction, you'll see a button to send the result to your email."
	unauthorizedText = "Sorry, you are not authorized to use this bot."
	emailSubject     = "Extracted Persian Text"
	sendEmailPrefix  = "send_email:"
	continuedMarker  = "(continued...)"
)

// TelegramAPI is the slice of the Telegram client consumed by the
// handlers. *tgbotapi.BotAPI satisfies it.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Extractor is the extraction pipeline contract consumed by the handlers.
// *pipeline.Pipeline satisfies it.
type Extractor interface {
	ExtractImage(ctx context.Context, image []byte) (string, error)
	ExtractDocument(ctx context.Context, src pipeline.PageSource, obs progress.Observer) []pipeline.PageResult
	CurrentModel() string
}

// Deliverer is the delivery boundary: one synchronous email transmission,
// no retry. *mail.Sender satisfies it.
type Deliverer interface {
	Send(to, subject, body string) error
}

// DocumentSource is an opened document that can be rasterized and must be
// closed.
type DocumentSource interface {
	pipeline.PageSource
	Close() error
}

// DocumentOpener opens a PDF payload for page rendering.
type DocumentOpener func(data []byte) (DocumentSource, error)

// Service handles Telegram updates for the OCR bot: commands, photo and
// document extraction, and the send-to-email callback.
type Service struct {
	cfg       *config.Config
	api       TelegramAPI
	fetcher   storage.AttachmentFetcher
	extractor Extractor
	ledger    *ledger.Ledger
	deliverer Deliverer
	archiver  archive.Archiver
	openDoc   DocumentOpener
}

// NewService wires the conversation handlers.
func NewService(
	cfg *config.Config,
	api TelegramAPI,
	fetcher storage.AttachmentFetcher,
	extractor Extractor,
	resultLedger *ledger.Ledger,
	deliverer Deliverer,
	archiver archive.Archiver,
	openDoc DocumentOpener,
) *Service {
	return &Service{
		cfg:       cfg,
		api:       api,
		fetcher:   fetcher,
		extractor: extractor,
		ledger:    resultLedger,
		deliverer: deliverer,
		archiver:  archiver,
		openDoc:   openDoc,
	}
}

// HandleUpdate dispatches one inbound update. Failures never propagate:
// they are converted to user-visible messages, and a panicking handler is
// recovered so other conversations keep working.
func (s *Service) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Update handler panicked")
			if chatID := updateChatID(update); chatID != 0 {
				s.reply(chatID, "❌ Something went wrong while processing your request.")
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		s.handleCallback(update.CallbackQuery)
	case update.Message == nil || update.Message.From == nil:
		// Ignore edits, channel posts and other update kinds
	case update.Message.IsCommand():
		s.handleCommand(update.Message)
	case len(update.Message.Photo) > 0:
		s.handlePhoto(ctx, update.Message)
	case update.Message.Document != nil:
		s.handleDocument(ctx, update.Message)
	}
}

func (s *Service) handleCommand(msg *tgbotapi.Message) {
	if err := s.authorize(msg.From.ID); err != nil {
		s.reply(msg.Chat.ID, apperrors.UserMessage(err))
		return
	}

	switch msg.Command() {
	case "start":
		s.reply(msg.Chat.ID, welcomeText)
	case "help":
		s.reply(msg.Chat.ID, helpText)
	}
}

// authorize checks the fixed allow-list. It runs before any processing:
// an unauthorized user triggers no download, no model call and no ledger
// entry.
func (s *Service) authorize(userID int64) error {
	for _, id := range s.cfg.AuthorizedUsers {
		if id == userID {
			return nil
		}
	}
	return apperrors.NewUnauthorizedError(unauthorizedText)
}

// reply sends a plain text message, logging rather than propagating
// transport errors.
func (s *Service) reply(chatID int64, text string) *tgbotapi.Message {
	sent, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": chatID,
		}).Error("Failed to send message")
		return nil
	}
	return &sent
}

// sendChunked sends the text in segments with a continuation marker
// between them, returning the last text message sent.
func (s *Service) sendChunked(chatID int64, text string) *tgbotapi.Message {
	chunks := chunkText(text, s.cfg.ChunkSize)
	var last *tgbotapi.Message
	for i, chunk := range chunks {
		if msg := s.reply(chatID, chunk); msg != nil {
			last = msg
		}
		if i < len(chunks)-1 {
			s.reply(chatID, continuedMarker)
		}
	}
	return last
}

// offerEmailButton attaches the send-to-email action bound to the handle.
func (s *Service) offerEmailButton(chatID int64, handle string) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Send to Email", sendEmailPrefix+handle),
		),
	)
	msg := tgbotapi.NewMessage(chatID, "Would you like to send this text to your email?")
	msg.ReplyMarkup = keyboard
	if _, err := s.api.Send(msg); err != nil {
		logger.WithError(err).Error("Failed to send email button")
	}
}

func (s *Service) deleteMessage(chatID int64, messageID int) {
	if _, err := s.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logger.WithError(err).Error("Failed to delete progress message")
	}
}

func (s *Service) archiveResult(ctx context.Context, chatID int64, handle, text string) {
	if err := s.archiver.ArchiveExtraction(ctx, chatID, handle, text); err != nil {
		// Best effort only
		logger.WithError(err).WithField("handle", handle).Warn("Failed to archive extraction")
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func isPDF(fileName string) bool {
	return strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}
