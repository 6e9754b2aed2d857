package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/CybercentreCanada/assemblyline-service-document-preview/engine/indicator"
)

// extraction is what the cascade yields for one artifact: the
// authoritative text, indicator detections from OCR'd embedded images,
// and per-page OCR text keyed by page file path.
type extraction struct {
	Text            string
	ImageDetections []indicator.Detections
	PageOCR         map[string]string
}

// extractArtifact runs the text/OCR cascade over one artifact and its
// rendered pages. Native PDF text wins when present; otherwise OCR
// runs over the first-N-pages window (all pages under deep scan).
// Extraction yielding nothing is never fatal.
func (sh *ServerHandler) extractArtifact(sub *Submission, art Artifact, rendered []pageFile) extraction {
	result := extraction{PageOCR: make(map[string]string)}

	if art.Kind == ArtifactPDF {
		nativeText, err := pdfNativeText(art.Path, sub.Params.MaxPagesRendered)
		if err != nil {
			Logger.Warn("native pdf text extraction failed", "path", filepath.Base(art.Path), "error", err)
		}
		if strings.TrimSpace(nativeText) != "" {
			result.Text = nativeText
			// Text hidden inside embedded pictures still needs to be
			// caught, so OCR the embedded images too.
			result.ImageDetections = sh.scanEmbeddedImages(sub, art.Path)
			return result
		}
	}

	window := sh.ocrWindow(sub, len(rendered))
	var texts []string
	for i, page := range rendered {
		if i >= window {
			break
		}
		text, err := sh.ocrImage(page.Path)
		if err != nil {
			Logger.Warn("ocr failed for page", "path", filepath.Base(page.Path), "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		texts = append(texts, text)
		result.PageOCR[page.Path] = text
		result.ImageDetections = append(result.ImageDetections, indicator.Scan(text))
	}
	result.Text = strings.Join(texts, "\n\n")
	return result
}

// ocrWindow returns how many leading pages get OCR'd. Deep scan lifts
// the window to every page; a zero window disables OCR entirely.
func (sh *ServerHandler) ocrWindow(sub *Submission, pageCount int) int {
	if sub.Params.DeepScan {
		return pageCount
	}
	window := sub.Params.RunOCROnFirstNPages
	if window > pageCount {
		window = pageCount
	}
	return window
}

// ocrImage dispatches to the configured OCR client.
func (sh *ServerHandler) ocrImage(imagePath string) (string, error) {
	if sh.OCR == nil {
		return "", fmt.Errorf("no OCR client configured")
	}
	return sh.OCR.ImageToText(imagePath)
}

// scanEmbeddedImages pulls raster images embedded in the PDF's page
// range, OCRs each and returns the per-image indicator detections.
func (sh *ServerHandler) scanEmbeddedImages(sub *Submission, pdfPath string) []indicator.Detections {
	outDir := filepath.Join(sub.Scratch, "embedded")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		Logger.Warn("creating embedded image directory failed", "error", err)
		return nil
	}

	pages := []string{fmt.Sprintf("1-%d", sub.Params.MaxPagesRendered)}
	if err := api.ExtractImagesFile(pdfPath, outDir, pages, model.NewDefaultConfiguration()); err != nil {
		Logger.Warn("embedded image extraction failed", "path", filepath.Base(pdfPath), "error", err)
		return nil
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		Logger.Warn("listing embedded images failed", "error", err)
		return nil
	}

	var detections []indicator.Detections
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		text, err := sh.ocrImage(filepath.Join(outDir, entry.Name()))
		if err != nil {
			Logger.Warn("ocr failed for embedded image", "name", entry.Name(), "error", err)
			continue
		}
		if d := indicator.Scan(text); len(d) > 0 {
			detections = append(detections, d)
		}
	}
	return detections
}

// pdfNativeText extracts the text layer from pages 1..maxPages. The
// parser panics on malformed files, so the whole call is guarded.
func pdfNativeText(pdfPath string, maxPages int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	if maxPages > 0 && totalPages > maxPages {
		totalPages = maxPages
	}

	var b strings.Builder
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			Logger.Warn("text extraction failed for page", "page", pageIndex, "error", err)
			continue
		}
		if b.Len() > 0 && pageText != "" {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}
