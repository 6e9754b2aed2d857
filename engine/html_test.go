package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/CybercentreCanada/assemblyline-service-document-preview/engine/browser"
)

// stubBrowser scripts the browser surface for adapter tests.
type stubBrowser struct {
	pdfData    []byte
	pdfErr     error
	shotData   []byte
	shotErr    error
	printCalls int
	shotCalls  int
}

func (b *stubBrowser) PrintToPDF(ctx context.Context, htmlData []byte, maxPages int) ([]byte, error) {
	b.printCalls++
	return b.pdfData, b.pdfErr
}

func (b *stubBrowser) Screenshot(ctx context.Context, htmlData []byte) ([]byte, error) {
	b.shotCalls++
	return b.shotData, b.shotErr
}

func TestSniffHTML(t *testing.T) {
	cases := []struct {
		data string
		want bool
	}{
		{"<html><body>hi</body></html>", true},
		{"  \n<HTML>", true},
		{"<!DOCTYPE html><html>", true},
		{"<!doctype HTML>", true},
		{"Date: Mon\nFrom: a@b.example\n\nplain body", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := sniffHTML([]byte(tc.data)); got != tc.want {
			t.Errorf("sniffHTML(%q) = %v, want %v", tc.data, got, tc.want)
		}
	}
}

func TestStripElements(t *testing.T) {
	input := []byte(`<html><head><style>body{color:red}</style></head>` +
		`<body><script>alert(1)</script><p>visible</p></body></html>`)

	scriptless, err := stripElements(input, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(scriptless), "alert(1)") {
		t.Error("scriptless variant still contains script content")
	}
	if !strings.Contains(string(scriptless), "color:red") {
		t.Error("scriptless variant must keep style content")
	}
	if !strings.Contains(string(scriptless), "visible") {
		t.Error("scriptless variant lost body text")
	}

	styleless, err := stripElements(input, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(styleless), "alert(1)") || strings.Contains(string(styleless), "color:red") {
		t.Error("styleless variant must drop both script and style")
	}
}

func TestRedirectPattern(t *testing.T) {
	redirecting := []string{
		`<script>location.replace("http://evil.example")</script>`,
		`<script>window.location = "http://evil.example"</script>`,
		`<script>location.href = "x"</script>`,
		`<meta http-equiv="refresh" content="0;url=http://evil.example">`,
		`<META HTTP-EQUIV=REFRESH CONTENT="1">`,
	}
	for _, s := range redirecting {
		if !redirectPattern.MatchString(s) {
			t.Errorf("redirect not detected in %q", s)
		}
	}
	if redirectPattern.MatchString(`<p>our location is downtown</p>`) {
		t.Error("false positive on harmless text")
	}
}

func TestRenderHTMLRefusesRedirect(t *testing.T) {
	sh := newTestHandler(t)
	browser := &stubBrowser{pdfData: []byte("%PDF")}
	sh.Browser = browser
	sub := newTestSubmission(t, "code/html", SubmissionParams{MaxPagesRendered: 5})

	art, err := sh.renderHTML(sub, []byte(`<script>location.href="x"</script>`), "")
	if err != nil {
		t.Fatal(err)
	}
	if art != nil {
		t.Errorf("redirecting content must be skipped, got %+v", art)
	}
	if browser.printCalls != 0 {
		t.Error("browser must not be driven for refused content")
	}
}

func TestRenderHTMLPrintsToPDF(t *testing.T) {
	sh := newTestHandler(t)
	sh.Browser = &stubBrowser{pdfData: []byte("%PDF-1.4 fake")}
	sub := newTestSubmission(t, "code/html", SubmissionParams{MaxPagesRendered: 5})

	art, err := sh.renderHTML(sub, []byte("<html><body>hi</body></html>"), "original")
	if err != nil {
		t.Fatal(err)
	}
	if art == nil || art.Kind != ArtifactPDF || art.Variant != "original" {
		t.Fatalf("artifact = %+v, want original pdf", art)
	}
	data, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "%PDF-1.4 fake" {
		t.Errorf("pdf content = %q", data)
	}
}

func TestRenderHTMLFallsBackToScreenshot(t *testing.T) {
	sh := newTestHandler(t)
	browser := &stubBrowser{pdfErr: errors.New("print blew up"), shotData: []byte("png bytes")}
	sh.Browser = browser
	sub := newTestSubmission(t, "code/html", SubmissionParams{MaxPagesRendered: 5})

	art, err := sh.renderHTML(sub, []byte("<html></html>"), "")
	if err != nil {
		t.Fatal(err)
	}
	if art == nil || art.Kind != ArtifactImage {
		t.Fatalf("artifact = %+v, want screenshot image", art)
	}
	if browser.shotCalls != 1 {
		t.Errorf("screenshot called %d times, want 1", browser.shotCalls)
	}
}

func TestRenderHTMLBrowserGoneIsRetryable(t *testing.T) {
	sh := newTestHandler(t)
	sh.Browser = &stubBrowser{
		pdfErr:  fmt.Errorf("run: %w", browser.ErrBrowserGone),
		shotErr: fmt.Errorf("run: %w", browser.ErrBrowserGone),
	}
	sub := newTestSubmission(t, "code/html", SubmissionParams{MaxPagesRendered: 5})
	if err := os.WriteFile(sub.FilePath, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := sh.renderHTML(sub, []byte("<html></html>"), "")
	if !IsRetryable(err) {
		t.Fatalf("err = %v, want retryable", err)
	}

	outcome := sh.Execute(sub)
	if outcome.Status != StatusRetry {
		t.Errorf("status = %v, want retry", outcome.Status)
	}
}

func TestHTMLArtifactsVariants(t *testing.T) {
	sh := newTestHandler(t)
	browser := &stubBrowser{pdfData: []byte("%PDF")}
	sh.Browser = browser

	sub := newTestSubmission(t, "code/html", SubmissionParams{MaxPagesRendered: 5})
	artifacts, err := sh.htmlArtifacts(sub, []byte("<html><body>plain</body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 1 || artifacts[0].Variant != "" {
		t.Fatalf("plain render artifacts = %+v, want one unlabeled", artifacts)
	}

	sub = newTestSubmission(t, "code/html", SubmissionParams{MaxPagesRendered: 5, AnalyzeRender: true})
	artifacts, err = sh.htmlArtifacts(sub, []byte("<html><body>rich</body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("variant pipeline produced %d artifacts, want 3", len(artifacts))
	}
	wantVariants := []string{variantOriginal, variantScriptless, variantStyleless}
	for i, art := range artifacts {
		if art.Variant != wantVariants[i] {
			t.Errorf("artifact %d variant = %s, want %s", i, art.Variant, wantVariants[i])
		}
	}
}
