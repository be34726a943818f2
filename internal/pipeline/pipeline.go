package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/progress"
)

// PersianPrompt is the fixed instruction sent with every extraction.
const PersianPrompt = "Extract and transcribe any Persian text in this image. Return ONLY the Persian text, no explanations."

// Engine is the failover retry engine consumed by the pipeline.
type Engine interface {
	Extract(ctx context.Context, image []byte, prompt string) (string, error)
	CurrentModel() string
}

// PageSource is an opened document whose pages can be rasterized, as
// implemented by the pdf package.
type PageSource interface {
	PageCount() int
	RenderPage(page int) ([]byte, error)
}

// PageResult is the outcome of extracting one document page. Exactly one
// of Text and Err is meaningful; a failed page carries its error so later
// pages can still be attempted.
type PageResult struct {
	Page int // 1-based
	Text string
	Err  error
}

// Pipeline turns input units (an image, or PDF pages rendered to images)
// into extracted text via the failover engine.
type Pipeline struct {
	engine    Engine
	pageCap   int
	pageDelay time.Duration
	sleep     func(time.Duration)
}

// New creates an extraction pipeline. pageCap bounds worst-case latency
// and cost per document; pages beyond it are silently skipped.
func New(engine Engine, pageCap int, pageDelay time.Duration) *Pipeline {
	if pageCap < 1 {
		pageCap = 1
	}
	return &Pipeline{
		engine:    engine,
		pageCap:   pageCap,
		pageDelay: pageDelay,
		sleep:     time.Sleep,
	}
}

// CurrentModel exposes the identity serving the next attempt, for progress
// messages.
func (p *Pipeline) CurrentModel() string {
	return p.engine.CurrentModel()
}

// ExtractImage extracts text from a single encoded image. The result is
// returned verbatim, including the empty string.
func (p *Pipeline) ExtractImage(ctx context.Context, image []byte) (string, error) {
	return p.engine.Extract(ctx, image, PersianPrompt)
}

// ExtractDocument extracts text from the first min(pages, pageCap) pages
// of the document, in page order. A page that fails terminally records the
// error in its result; subsequent pages are still attempted. A fixed delay
// separates pages when more than one is processed, to avoid immediately
// re-triggering a rate limit.
func (p *Pipeline) ExtractDocument(ctx context.Context, src PageSource, obs progress.Observer) []PageResult {
	if obs == nil {
		obs = progress.Nop
	}

	pages := src.PageCount()
	if pages > p.pageCap {
		pages = p.pageCap
	}

	obs.OnEvent(progress.Event{
		Type:       progress.ExtractionStarted,
		Model:      p.engine.CurrentModel(),
		TotalPages: pages,
	})

	results := make([]PageResult, 0, pages)
	for i := 0; i < pages; i++ {
		if i > 0 {
			p.sleep(p.pageDelay)
		}

		obs.OnEvent(progress.Event{
			Type:       progress.PageStarted,
			Model:      p.engine.CurrentModel(),
			Page:       i + 1,
			TotalPages: pages,
		})

		result := PageResult{Page: i + 1}
		image, err := src.RenderPage(i)
		if err == nil {
			var text string
			text, err = p.engine.Extract(ctx, image, PersianPrompt)
			result.Text = strings.TrimSpace(text)
		}
		if err != nil {
			result.Err = err
			obs.OnEvent(progress.Event{
				Type:       progress.PageFailed,
				Model:      p.engine.CurrentModel(),
				Page:       i + 1,
				TotalPages: pages,
				Err:        err,
			})
		} else {
			obs.OnEvent(progress.Event{
				Type:       progress.PageCompleted,
				Model:      p.engine.CurrentModel(),
				Page:       i + 1,
				TotalPages: pages,
				TextFound:  result.Text != "",
			})
		}

		results = append(results, result)
	}
	return results
}

// RenderDocumentText assembles the ordered page results into the single
// text blob that populates the result ledger, with a banner per page.
func RenderDocumentText(results []PageResult) string {
	var out strings.Builder
	for _, r := range results {
		switch {
		case r.Err != nil:
			out.WriteString(fmt.Sprintf("\n--- Page %d: Error processing - %s ---\n",
				r.Page, apperrors.UserMessage(r.Err)))
		case r.Text == "":
			out.WriteString(fmt.Sprintf("\n--- Page %d: No text detected ---\n", r.Page))
		default:
			out.WriteString(fmt.Sprintf("\n--- Page %d ---\n%s\n", r.Page, r.Text))
		}
	}
	return out.String()
}

// HasText reports whether any page produced non-empty text.
func HasText(results []PageResult) bool {
	for _, r := range results {
		if r.Err == nil && r.Text != "" {
			return true
		}
	}
	return false
}
