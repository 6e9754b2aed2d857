package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// SubmissionParams is the per-invocation configuration bag supplied by
// the caller alongside the file.
type SubmissionParams struct {
	MaxPagesRendered    int    `json:"max_pages_rendered"`
	RunOCROnFirstNPages int    `json:"run_ocr_on_first_n_pages"` // 0 disables OCR
	SaveOCROutput       string `json:"save_ocr_output"`          // "no", "as_extracted", "as_supplementary"
	LoadEmailImages     bool   `json:"load_email_images"`
	AnalyzeRender       bool   `json:"analyze_render"`
	DeepScan            bool   `json:"deep_scan"`
}

// Submission is the immutable input for one preview invocation: the
// file on disk, its declared type tag, a private scratch directory and
// the parameter bag. It is built once by the route handler and never
// mutated by the pipeline.
type Submission struct {
	FilePath string
	SHA256   string
	FileType string
	Scratch  string
	Params   SubmissionParams
}

// ArtifactKind distinguishes what an adapter produced.
type ArtifactKind int

const (
	// ArtifactPDF is a single-file PDF intermediate to be rasterized.
	ArtifactPDF ArtifactKind = iota
	// ArtifactImage is an already-rasterized image, no PDF exists.
	ArtifactImage
)

// Artifact is one adapter output living in the scratch directory.
type Artifact struct {
	Kind    ArtifactKind
	Path    string
	Variant string
}

// Page is one rendered page image. Index is 0-based and contiguous in
// reading order after gallery assembly; Hash is the sha256 of the file
// contents and drives deduplication.
type Page struct {
	Index   int
	Variant string
	Path    string
	Hash    string
	OCRText string
}

// Name returns the gallery filename for the page, encoding its index
// and, when present, its variant label.
func (p Page) Name() string {
	ext := strings.TrimPrefix(filepath.Ext(p.Path), ".")
	if p.Variant != "" {
		return fmt.Sprintf("page_%03d_%s.%s", p.Index, p.Variant, ext)
	}
	return fmt.Sprintf("page_%03d.%s", p.Index, ext)
}

// Description returns the human-readable gallery description.
func (p Page) Description() string {
	if p.Variant != "" {
		return fmt.Sprintf("Rendered page %d (%s)", p.Index+1, p.Variant)
	}
	return fmt.Sprintf("Rendered page %d", p.Index+1)
}

// Status classifies how an invocation ended.
type Status int

const (
	// StatusSuccess means a valid result was produced, possibly empty.
	StatusSuccess Status = iota
	// StatusRetry asks the caller to re-run the whole invocation.
	StatusRetry
	// StatusFailed means the invocation hit a terminal error; the
	// result carries no preview section rather than a partial one.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRetry:
		return "retry"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is what Execute hands back to the route handler.
type Outcome struct {
	Status Status
	Result *Result
}

// RetryableError marks a failure as transiently recoverable: the
// caller should retry the whole invocation rather than report it.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: transient failure", e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err (or anything it wraps) is a
// RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
