package pdf

import (
	"fmt"
	"os"

	"github.com/gen2brain/go-fitz"

	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
)

// Render DPI. 144 doubles the default 72 for better OCR on small print.
const renderDPI = 144.0

// Document is an opened PDF whose pages can be rasterized for extraction.
// Close must be called on every path; it also removes the backing temp file.
type Document struct {
	doc      *fitz.Document
	tempPath string
}

// Open writes the PDF bytes to a temporary file and opens it with MuPDF.
// The temp file is removed by Close, or immediately when opening fails.
func Open(data []byte) (*Document, error) {
	tmp, err := os.CreateTemp("", "ocr-*.pdf")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create temp file for PDF", err)
	}
	path := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(path)
		return nil, apperrors.NewInternalError("failed to write temp PDF", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return nil, apperrors.NewInternalError("failed to close temp PDF", err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		os.Remove(path)
		return nil, apperrors.NewValidationError("failed to open PDF document", err)
	}

	return &Document{doc: doc, tempPath: path}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.doc.NumPage()
}

// RenderPage rasterizes the zero-based page to PNG bytes.
func (d *Document) RenderPage(page int) ([]byte, error) {
	if page < 0 || page >= d.doc.NumPage() {
		return nil, apperrors.NewInternalError(
			fmt.Sprintf("page %d out of range", page), nil)
	}
	img, err := d.doc.ImagePNG(page, renderDPI)
	if err != nil {
		return nil, apperrors.NewInternalError(
			fmt.Sprintf("failed to render page %d", page), err)
	}
	return img, nil
}

// Close releases the MuPDF document and removes the temp file. Safe to call
// once on every code path.
func (d *Document) Close() error {
	err := d.doc.Close()
	if rmErr := os.Remove(d.tempPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}
