package pdfrenderer

import (
	"fmt"
	"image"
)

// Renderer defines the interface for PDF to image conversion
type Renderer interface {
	// RenderPages converts the first maxPages pages of a PDF file to
	// images at the given DPI. A maxPages of 0 or less renders every
	// page. Returns one image per rendered page, in page order.
	RenderPages(filename string, maxPages int, dpi int) ([]image.Image, error)

	// PageCount reports the total number of pages in the PDF,
	// regardless of any render limit.
	PageCount(filename string) (int, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates a renderer for the named backend. "pdfium" uses
// go-pdfium with WebAssembly (pure Go, no CGo); "fitz" uses go-fitz
// (requires CGo and MuPDF).
func NewRenderer(backend string) (Renderer, error) {
	switch backend {
	case "fitz":
		return NewFitzRenderer()
	case "pdfium", "":
		return NewPDFiumRenderer()
	default:
		return nil, fmt.Errorf("unknown PDF render backend %q", backend)
	}
}
