package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/CybercentreCanada/assemblyline-service-document-preview/database"
)

// SetupRoutes registers the service surface on the echo instance.
func (sh *ServerHandler) SetupRoutes() {
	sh.Echo.POST("/api/preview", sh.PreviewDocument)
	sh.Echo.GET("/api/submission/:sha256/passwords", sh.GetSubmissionPasswords)
	sh.Echo.GET("/health", sh.HealthCheck)
}

// previewResponse is the wire shape of a preview invocation.
type previewResponse struct {
	Status string  `json:"status"`
	SHA256 string  `json:"sha256"`
	Result *Result `json:"result"`
}

// PreviewDocument accepts a multipart upload plus the parameter bag,
// runs the preview pipeline and returns the structured result. A
// transient failure returns 503 with Retry-After so the caller re-runs
// the whole invocation.
func (sh *ServerHandler) PreviewDocument(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing file upload"})
	}
	fileType := c.FormValue("file_type")
	if fileType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing file_type"})
	}

	params := SubmissionParams{
		MaxPagesRendered:    formInt(c, "max_pages_rendered", sh.ServerConfig.DefaultMaxPages),
		RunOCROnFirstNPages: formInt(c, "run_ocr_on_first_n_pages", sh.ServerConfig.DefaultOCRPages),
		SaveOCROutput:       formString(c, "save_ocr_output", "no"),
		LoadEmailImages:     formBool(c, "load_email_images"),
		AnalyzeRender:       formBool(c, "analyze_render"),
		DeepScan:            formBool(c, "deep_scan"),
	}

	scratch := filepath.Join(sh.ServerConfig.ScratchPath, uuid.New().String())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		Logger.Error("creating scratch directory failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "scratch allocation failed"})
	}

	inputPath := filepath.Join(scratch, "input"+filepath.Ext(fileHeader.Filename))
	sha, err := saveUpload(fileHeader, inputPath)
	if err != nil {
		Logger.Error("saving upload failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "upload storage failed"})
	}

	sub := &Submission{
		FilePath: inputPath,
		SHA256:   sha,
		FileType: fileType,
		Scratch:  scratch,
		Params:   params,
	}

	outcome := sh.Execute(sub)
	if outcome.Status == StatusRetry {
		c.Response().Header().Set("Retry-After", "30")
		return c.JSON(http.StatusServiceUnavailable, previewResponse{
			Status: outcome.Status.String(),
			SHA256: sha,
			Result: outcome.Result,
		})
	}

	sh.recordSubmission(sub, outcome)

	return c.JSON(http.StatusOK, previewResponse{
		Status: outcome.Status.String(),
		SHA256: sha,
		Result: outcome.Result,
	})
}

// GetSubmissionPasswords returns the persisted password candidates for
// a submission hash, sorted and deduplicated.
func (sh *ServerHandler) GetSubmissionPasswords(c echo.Context) error {
	sha := c.Param("sha256")
	if len(sha) != 64 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid sha256"})
	}
	passwords, err := sh.DB.FetchPasswordCandidates(sha)
	if err != nil {
		Logger.Error("fetching password candidates failed", "sha256", sha, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
	}
	if passwords == nil {
		passwords = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sha256": sha, "passwords": passwords})
}

// HealthCheck reports which external tools and collaborators are
// available.
func (sh *ServerHandler) HealthCheck(c echo.Context) error {
	tools := map[string]bool{
		"tesseract":     sh.ServerConfig.TesseractPath != "",
		"unoconv":       sh.ServerConfig.UnoconvPath != "",
		"ebook-convert": sh.ServerConfig.EbookConvertPath != "",
		"browser":       sh.Browser != nil,
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"tools":  tools,
	})
}

// recordSubmission stores the submission row after a completed
// invocation.
func (sh *ServerHandler) recordSubmission(sub *Submission, outcome Outcome) {
	if sh.DB == nil {
		return
	}
	pageCount := 0
	if outcome.Result != nil {
		pageCount = outcome.Result.PageCount
		if pageCount == 0 && outcome.Result.Gallery != nil {
			pageCount = len(outcome.Result.Gallery.Images)
		}
	}
	now := time.Now()
	ulidValue, err := database.CalculateUUID(now)
	if err != nil {
		Logger.Error("generating submission ulid failed", "error", err)
		return
	}
	record := database.Submission{
		ULID:       ulidValue,
		SHA256:     sub.SHA256,
		FileType:   sub.FileType,
		PageCount:  pageCount,
		SubmitTime: now,
	}
	if err := sh.DB.SaveSubmission(&record); err != nil {
		Logger.Error("saving submission record failed", "sha256", sub.SHA256, "error", err)
	}
}

// saveUpload streams the multipart upload to disk, hashing it on the
// way through.
func saveUpload(fileHeader *multipart.FileHeader, destPath string) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating input file: %w", err)
	}
	defer dst.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(dst, hasher), src); err != nil {
		return "", fmt.Errorf("writing input file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func formString(c echo.Context, name, fallback string) string {
	if v := c.FormValue(name); v != "" {
		return v
	}
	return fallback
}

func formInt(c echo.Context, name string, fallback int) int {
	v := c.FormValue(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		Logger.Warn("invalid integer parameter, using default", "param", name, "value", v)
		return fallback
	}
	return parsed
}

func formBool(c echo.Context, name string) bool {
	parsed, err := strconv.ParseBool(c.FormValue(name))
	if err != nil {
		return false
	}
	return parsed
}
