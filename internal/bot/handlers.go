package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/ledger"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/logger"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/pipeline"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/progress"
)

// handlePhoto runs the single-image flow: download the largest rendition,
// extract, deliver the text in chunks and offer the email action.
func (s *Service) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	if err := s.authorize(msg.From.ID); err != nil {
		s.reply(msg.Chat.ID, apperrors.UserMessage(err))
		return
	}

	processing := s.reply(msg.Chat.ID, fmt.Sprintf("Processing your image with %s...", s.extractor.CurrentModel()))

	// Telegram orders photo sizes ascending, the last one is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	data, err := s.downloadFile(ctx, photo.FileID)
	if err != nil {
		logger.WithError(err).Error("Failed to download photo")
		s.reply(msg.Chat.ID, "❌ Failed to download the image. Please try again.")
		s.clearProcessing(msg.Chat.ID, processing)
		return
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	defer cancel()

	text, err := s.extractor.ExtractImage(extractCtx, data)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": msg.Chat.ID,
			"model":   s.extractor.CurrentModel(),
		}).Error("Image extraction failed")
		s.reply(msg.Chat.ID, "❌ "+apperrors.UserMessage(err))
		s.clearProcessing(msg.Chat.ID, processing)
		return
	}

	s.clearProcessing(msg.Chat.ID, processing)

	text = strings.TrimSpace(text)
	if text == "" {
		s.reply(msg.Chat.ID, "No Persian text detected in the image.")
		return
	}

	s.reply(msg.Chat.ID, "✅ Extracted Persian Text:")
	result := s.sendChunked(msg.Chat.ID, text)
	if result == nil {
		return
	}

	handle := ledger.ImageHandle(result.MessageID)
	s.ledger.Store(msg.Chat.ID, handle, text)
	s.archiveResult(ctx, msg.Chat.ID, handle, text)
	s.offerEmailButton(msg.Chat.ID, handle)
}

// handleDocument runs the PDF flow: render pages, extract each one with
// live progress notifications, then deliver the assembled report.
func (s *Service) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	if err := s.authorize(msg.From.ID); err != nil {
		s.reply(msg.Chat.ID, apperrors.UserMessage(err))
		return
	}

	if !isPDF(msg.Document.FileName) {
		s.reply(msg.Chat.ID, "Please send a PDF document.")
		return
	}

	processing := s.reply(msg.Chat.ID, fmt.Sprintf("Processing your PDF with %s...", s.extractor.CurrentModel()))

	data, err := s.downloadFile(ctx, msg.Document.FileID)
	if err != nil {
		logger.WithError(err).Error("Failed to download document")
		s.reply(msg.Chat.ID, "❌ Failed to download the PDF. Please try again.")
		s.clearProcessing(msg.Chat.ID, processing)
		return
	}

	doc, err := s.openDoc(data)
	if err != nil {
		logger.WithError(err).Error("Failed to open PDF")
		s.reply(msg.Chat.ID, "❌ Could not read the PDF. It may be corrupted.")
		s.clearProcessing(msg.Chat.ID, processing)
		return
	}
	defer doc.Close()

	pages := doc.PageCount()
	if pages > s.cfg.PageCap {
		s.reply(msg.Chat.ID, fmt.Sprintf("Found %d pages. Processing the first %d...", pages, s.cfg.PageCap))
	} else {
		s.reply(msg.Chat.ID, fmt.Sprintf("Found %d pages. Processing...", pages))
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	defer cancel()

	observer := progress.Multi(
		progress.LogObserver{},
		s.chatNotifier(msg.Chat.ID),
	)
	results := s.extractor.ExtractDocument(extractCtx, doc, observer)

	s.clearProcessing(msg.Chat.ID, processing)

	if !pipeline.HasText(results) {
		s.reply(msg.Chat.ID, "No Persian text detected in the PDF.")
		return
	}

	report := pipeline.RenderDocumentText(results)
	s.reply(msg.Chat.ID, "✅ Extracted Persian Text:")
	result := s.sendChunked(msg.Chat.ID, report)
	if result == nil {
		return
	}

	handle := ledger.DocumentHandle(result.MessageID)
	s.ledger.Store(msg.Chat.ID, handle, report)
	s.archiveResult(ctx, msg.Chat.ID, handle, report)
	s.offerEmailButton(msg.Chat.ID, handle)
}

// handleCallback serves the send-to-email button. A missing handle means
// the ledger restarted since the result was posted.
func (s *Service) handleCallback(query *tgbotapi.CallbackQuery) {
	if _, err := s.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		logger.WithError(err).Error("Failed to answer callback query")
	}

	if s.authorize(query.From.ID) != nil {
		return
	}
	if query.Message == nil || !strings.HasPrefix(query.Data, sendEmailPrefix) {
		return
	}
	chatID := query.Message.Chat.ID
	handle := strings.TrimPrefix(query.Data, sendEmailPrefix)

	text, err := s.ledger.Retrieve(chatID, handle)
	if err != nil {
		s.reply(chatID, "❌ Could not find the extracted text. Please try extracting again.")
		return
	}

	if err := s.deliverer.Send(s.cfg.UserEmail, emailSubject, text); err != nil {
		logger.WithError(err).WithField("handle", handle).Error("Email delivery failed")
		// The button stays attached so the user can retry.
		s.reply(chatID, "❌ Failed to send email. Please try again later.")
		return
	}

	s.removeButton(chatID, query.Message.MessageID)
	s.reply(chatID, fmt.Sprintf("✅ Text sent to %s", s.cfg.UserEmail))
}

// chatNotifier posts per-page progress into the conversation.
func (s *Service) chatNotifier(chatID int64) progress.Observer {
	return progress.ObserverFunc(func(ev progress.Event) {
		switch ev.Type {
		case progress.PageStarted:
			s.reply(chatID, fmt.Sprintf("Processing page %d/%d...", ev.Page, ev.TotalPages))
		case progress.PageCompleted:
			if ev.TextFound {
				s.reply(chatID, fmt.Sprintf("Page %d text extracted", ev.Page))
			} else {
				s.reply(chatID, fmt.Sprintf("No text found on page %d", ev.Page))
			}
		case progress.PageFailed:
			s.reply(chatID, fmt.Sprintf("❌ Error processing page %d", ev.Page))
		}
	})
}

func (s *Service) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := s.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to resolve file URL", err)
	}
	return s.fetcher.FetchAttachment(ctx, url)
}

func (s *Service) clearProcessing(chatID int64, processing *tgbotapi.Message) {
	if processing != nil {
		s.deleteMessage(chatID, processing.MessageID)
	}
}

// removeButton strips the inline keyboard from the prompt message after a
// successful delivery.
func (s *Service) removeButton(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := s.api.Request(edit); err != nil {
		logger.WithError(err).Error("Failed to remove email button")
	}
}
