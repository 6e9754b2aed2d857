package engine

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/CybercentreCanada/assemblyline-service-document-preview/database"
)

func newTestServer(t *testing.T) (*ServerHandler, *echo.Echo) {
	t.Helper()
	sh := newTestHandler(t)
	database.Logger = Logger
	repo, err := database.NewSQLiteMemoryRepository()
	if err != nil {
		t.Fatalf("setting up test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	sh.DB = repo
	sh.Echo = echo.New()
	sh.SetupRoutes()
	return sh, sh.Echo
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestPreviewDocumentUnsupportedType(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database-backed test in short mode")
	}
	_, e := newTestServer(t)

	body, contentType := multipartUpload(t,
		map[string]string{"file_type": "executable/windows"},
		"sample.exe", []byte("MZ..."))
	req := httptest.NewRequest(http.MethodPost, "/api/preview", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp previewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "success" {
		t.Errorf("response status = %s, want success", resp.Status)
	}
	if resp.Result == nil || resp.Result.Gallery != nil {
		t.Errorf("expected empty result without preview section, got %+v", resp.Result)
	}
	if len(resp.SHA256) != 64 {
		t.Errorf("sha256 = %q, want 64 hex chars", resp.SHA256)
	}
}

func TestPreviewDocumentMissingFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database-backed test in short mode")
	}
	_, e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/preview", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetSubmissionPasswords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database-backed test in short mode")
	}
	sh, e := newTestServer(t)

	sha := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	if err := sh.DB.MergePasswordCandidates(sha, []string{"INFECTED", "ABC123"}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/submission/"+sha+"/passwords", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		SHA256    string   `json:"sha256"`
		Passwords []string `json:"passwords"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Passwords) != 2 || resp.Passwords[0] != "ABC123" {
		t.Errorf("passwords = %v, want sorted [ABC123 INFECTED]", resp.Passwords)
	}
}

func TestGetSubmissionPasswordsInvalidSHA(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database-backed test in short mode")
	}
	_, e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/submission/nothex/passwords", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	sh := newTestHandler(t)
	sh.Echo = echo.New()
	sh.SetupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	sh.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Status string          `json:"status"`
		Tools  map[string]bool `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("health status = %s", resp.Status)
	}
	if resp.Tools["browser"] {
		t.Error("browser reported available with none configured")
	}
}
