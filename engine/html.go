package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/net/html"

	"github.com/CybercentreCanada/assemblyline-service-document-preview/engine/browser"
)

// redirectPattern matches client-side redirect code. Content carrying
// it is refused outright: following the redirect would fetch attacker
// content, and printing a page mid-navigation hangs the browser.
var redirectPattern = regexp.MustCompile(
	`(?i)(location\.(?:replace|assign)\s*\(|location\.href\s*=|window\.location\s*=|http-equiv\s*=\s*["']?refresh)`)

// sniffHTML reports whether a byte stream starts like an HTML
// document, checked against a short prefix.
func sniffHTML(data []byte) bool {
	prefix := bytes.ToLower(bytes.TrimSpace(data))
	if len(prefix) > 256 {
		prefix = prefix[:256]
	}
	return bytes.HasPrefix(prefix, []byte("<html")) || bytes.HasPrefix(prefix, []byte("<!doctype html"))
}

// htmlArtifacts renders HTML through the browser. The plain render is
// always attempted; when render analysis is requested, stripped
// variants are rendered too, each under its own label, so script- or
// style-cloaked content shows up in the gallery.
func (sh *ServerHandler) htmlArtifacts(sub *Submission, data []byte) ([]Artifact, error) {
	type variantInput struct {
		label string
		data  []byte
	}

	variants := []variantInput{{label: "", data: data}}
	if sub.Params.AnalyzeRender {
		variants[0].label = variantOriginal
		if scriptless, err := stripElements(data, true, false); err == nil {
			variants = append(variants, variantInput{variantScriptless, scriptless})
		} else {
			Logger.Warn("building scriptless variant failed", "error", err)
		}
		if styleless, err := stripElements(data, true, true); err == nil {
			variants = append(variants, variantInput{variantStyleless, styleless})
		} else {
			Logger.Warn("building styleless variant failed", "error", err)
		}
	}

	var artifacts []Artifact
	for _, v := range variants {
		art, err := sh.renderHTML(sub, v.data, v.label)
		if err != nil {
			return nil, err
		}
		if art != nil {
			artifacts = append(artifacts, *art)
		}
	}
	return artifacts, nil
}

// renderHTML drives one browser render of an HTML byte stream. Content
// carrying redirect code is skipped. A failed print falls back to a
// viewport screenshot; a timeout abandons the render and processing
// continues without it.
func (sh *ServerHandler) renderHTML(sub *Submission, data []byte, variant string) (*Artifact, error) {
	if sh.Browser == nil {
		Logger.Warn("browser not available, skipping html render")
		return nil, nil
	}
	if redirectPattern.Match(data) {
		Logger.Info("refusing to render html with client-side redirect", "variant", variant)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sh.ServerConfig.RenderTimeout)
	defer cancel()

	suffix := ""
	if variant != "" {
		suffix = "_" + variant
	}

	pdfData, err := sh.Browser.PrintToPDF(ctx, data, sub.Params.MaxPagesRendered)
	if err == nil {
		pdfPath := filepath.Join(sub.Scratch, fmt.Sprintf("html_render%s.pdf", suffix))
		if err := os.WriteFile(pdfPath, pdfData, 0o644); err != nil {
			return nil, fmt.Errorf("writing rendered pdf: %w", err)
		}
		return &Artifact{Kind: ArtifactPDF, Path: pdfPath, Variant: variant}, nil
	}
	if ctx.Err() != nil {
		Logger.Warn("html render timed out, continuing without it", "variant", variant)
		return nil, nil
	}
	if errors.Is(err, browser.ErrBrowserGone) {
		return nil, &RetryableError{Op: "html render", Err: err}
	}
	Logger.Warn("print to pdf failed, falling back to screenshot", "variant", variant, "error", err)

	shotCtx, shotCancel := context.WithTimeout(context.Background(), sh.ServerConfig.RenderTimeout)
	defer shotCancel()
	shot, err := sh.Browser.Screenshot(shotCtx, data)
	if err != nil {
		if errors.Is(err, browser.ErrBrowserGone) {
			return nil, &RetryableError{Op: "html render", Err: err}
		}
		Logger.Warn("screenshot fallback failed", "variant", variant, "error", err)
		return nil, nil
	}
	imgPath := filepath.Join(sub.Scratch, fmt.Sprintf("html_render%s.png", suffix))
	if err := os.WriteFile(imgPath, shot, 0o644); err != nil {
		return nil, fmt.Errorf("writing screenshot: %w", err)
	}
	return &Artifact{Kind: ArtifactImage, Path: imgPath, Variant: variant}, nil
}

// stripElements re-serializes an HTML document with script (and
// optionally style) elements removed.
func stripElements(data []byte, dropScript, dropStyle bool) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var prune func(n *html.Node)
	prune = func(n *html.Node) {
		for child := n.FirstChild; child != nil; {
			next := child.NextSibling
			if child.Type == html.ElementNode &&
				((dropScript && child.Data == "script") || (dropStyle && child.Data == "style")) {
				n.RemoveChild(child)
			} else {
				prune(child)
			}
			child = next
		}
	}
	prune(doc)

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, fmt.Errorf("serializing html: %w", err)
	}
	return out.Bytes(), nil
}
