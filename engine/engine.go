package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/CybercentreCanada/assemblyline-service-document-preview/config"
	"github.com/CybercentreCanada/assemblyline-service-document-preview/database"
	"github.com/CybercentreCanada/assemblyline-service-document-preview/engine/indicator"
	"github.com/CybercentreCanada/assemblyline-service-document-preview/engine/pdfrenderer"
)

// Logger is injected from main at startup.
var Logger *slog.Logger

// HTMLRenderer is the browser surface the engine drives. It is owned
// by the process, initialized once at startup and reused across
// invocations; every call must leave the browser in a clean
// single-window state.
type HTMLRenderer interface {
	PrintToPDF(ctx context.Context, htmlData []byte, maxPages int) ([]byte, error)
	Screenshot(ctx context.Context, htmlData []byte) ([]byte, error)
}

// ServerHandler carries everything one preview invocation needs. A
// single handler serves one submission at a time: the browser and the
// external converters are stateful and not safe for concurrent use.
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Renderer     pdfrenderer.Renderer
	Browser      HTMLRenderer
	OCR          OCRClient
}

// Execute runs the full preview pipeline for one submission: dispatch,
// render, rasterize, extract, aggregate, assemble. It never panics
// out: any terminal error yields an empty-but-valid result, and only
// a RetryableError asks the caller to re-run the invocation.
func (sh *ServerHandler) Execute(sub *Submission) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("panic recovered during preview", "sha256", sub.SHA256, "panic", r)
			outcome = Outcome{Status: StatusFailed, Result: NewResult()}
		}
	}()

	artifacts, err := sh.dispatch(sub)
	if err != nil {
		if IsRetryable(err) {
			Logger.Warn("transient failure, requesting retry", "sha256", sub.SHA256, "error", err)
			return Outcome{Status: StatusRetry, Result: NewResult()}
		}
		Logger.Error("render dispatch failed", "sha256", sub.SHA256, "fileType", sub.FileType, "error", err)
		return Outcome{Status: StatusFailed, Result: NewResult()}
	}
	if len(artifacts) == 0 {
		// Unsupported or unconvertible input: a valid result with no
		// preview section.
		return Outcome{Status: StatusSuccess, Result: NewResult()}
	}

	var (
		allPages        []pageFile
		textParts       []string
		imageDetections []indicator.Detections
		pageOCR         = make(map[string]string)
		hadPDF          bool
		docPages        int
	)

	for _, art := range artifacts {
		var rendered []pageFile
		switch art.Kind {
		case ArtifactPDF:
			hadPDF = true
			rendered, err = sh.rasterizePDF(sub, art)
		case ArtifactImage:
			rendered, err = sh.adoptImage(sub, art)
		}
		if err != nil {
			Logger.Error("page rendering failed", "sha256", sub.SHA256, "variant", art.Variant, "error", err)
			return Outcome{Status: StatusFailed, Result: NewResult()}
		}
		if art.Kind == ArtifactPDF {
			// The gallery may be capped by max_pages_rendered; the
			// true document length is still worth reporting.
			if total, cerr := sh.Renderer.PageCount(art.Path); cerr == nil && total > docPages {
				docPages = total
			}
		}
		allPages = append(allPages, rendered...)

		ext := sh.extractArtifact(sub, art, rendered)
		if ext.Text != "" {
			textParts = append(textParts, ext.Text)
		}
		imageDetections = append(imageDetections, ext.ImageDetections...)
		for path, text := range ext.PageOCR {
			pageOCR[path] = text
		}
	}

	pages, err := assembleGallery(allPages, pageOCR)
	if err != nil {
		Logger.Error("gallery assembly failed", "sha256", sub.SHA256, "error", err)
		return Outcome{Status: StatusFailed, Result: NewResult()}
	}

	text := strings.Join(textParts, "\n\n")
	detections, passwords := aggregateDetections(text, imageDetections)
	phishing := suspectedPhishing(hadPDF, len(pages), text)

	if docPages < len(pages) {
		docPages = len(pages)
	}

	result := NewResult()
	result.Gallery = buildGallerySection(pages)
	result.PageCount = docPages
	result.Detections = buildDetectionSections(detections)
	result.NetworkIndicators = buildNetworkSection(text)
	result.Heuristics = buildHeuristics(detections, phishing)
	result.PasswordCandidates = passwords

	sh.attachOCRArtifacts(sub, result, pages, text)
	sh.persistPasswords(sub, passwords)

	return Outcome{Status: StatusSuccess, Result: result}
}

// attachOCRArtifacts writes the aggregated OCR dump and the per-page
// OCR text files into the scratch directory and attaches them to the
// result per the save_ocr_output mode.
func (sh *ServerHandler) attachOCRArtifacts(sub *Submission, result *Result, pages []Page, text string) {
	mode := sub.Params.SaveOCROutput
	if mode == "" || mode == "no" {
		return
	}

	var refs []FileRef
	if strings.TrimSpace(text) != "" {
		dumpPath := filepath.Join(sub.Scratch, "ocr_output.txt")
		if err := os.WriteFile(dumpPath, []byte(text), 0o644); err != nil {
			Logger.Warn("writing ocr dump failed", "error", err)
		} else {
			refs = append(refs, FileRef{
				Name:        "ocr_output.txt",
				Description: "Aggregated extracted text",
				Path:        dumpPath,
			})
		}
	}
	for _, p := range pages {
		if p.OCRText == "" {
			continue
		}
		name := strings.TrimSuffix(p.Name(), filepath.Ext(p.Name())) + "_ocr.txt"
		ocrPath := filepath.Join(sub.Scratch, name)
		if err := os.WriteFile(ocrPath, []byte(p.OCRText), 0o644); err != nil {
			Logger.Warn("writing page ocr file failed", "page", p.Name(), "error", err)
			continue
		}
		refs = append(refs, FileRef{
			Name:        name,
			Description: fmt.Sprintf("OCR text for page %d", p.Index+1),
			Path:        ocrPath,
		})
	}

	switch mode {
	case "as_extracted":
		result.Extracted = append(result.Extracted, refs...)
	case "as_supplementary":
		result.Supplementary = append(result.Supplementary, refs...)
	default:
		Logger.Warn("unknown save_ocr_output mode, dropping ocr artifacts", "mode", mode)
	}
}

// persistPasswords merges the candidate list into cross-stage
// submission state so later pipeline stages can attempt decryption.
// The stored set only ever grows.
func (sh *ServerHandler) persistPasswords(sub *Submission, passwords []string) {
	if len(passwords) == 0 || sh.DB == nil {
		return
	}
	if err := sh.DB.MergePasswordCandidates(sub.SHA256, passwords); err != nil {
		Logger.Error("persisting password candidates failed", "sha256", sub.SHA256, "error", err)
	}
}
