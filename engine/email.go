package engine

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jhillyerd/enmime"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// emailToImage composes an EML message into one tall preview image:
// a header block, then the rendered body, then (when requested) every
// attached image stacked below. Returns "" if nothing could be drawn.
func (sh *ServerHandler) emailToImage(sub *Submission, emlData []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(emlData))
	if err != nil {
		return "", fmt.Errorf("parsing eml: %w", err)
	}

	bodyHTML := composeEmailHTML(env)

	ctx, cancel := context.WithTimeout(context.Background(), sh.ServerConfig.RenderTimeout)
	defer cancel()

	var sections []image.Image
	if sh.Browser != nil {
		shot, err := sh.Browser.Screenshot(ctx, []byte(bodyHTML))
		if err != nil {
			Logger.Warn("email body render failed", "error", err)
		} else if img, _, err := image.Decode(bytes.NewReader(shot)); err == nil {
			sections = append(sections, img)
		}
	}

	if sub.Params.LoadEmailImages {
		for _, part := range append(env.Inlines, env.Attachments...) {
			if !strings.HasPrefix(part.ContentType, "image/") {
				continue
			}
			img, _, err := image.Decode(bytes.NewReader(part.Content))
			if err != nil {
				Logger.Warn("skipping undecodable attached image", "contentType", part.ContentType, "error", err)
				continue
			}
			sections = append(sections, img)
		}
	}

	if len(sections) == 0 {
		return "", nil
	}

	composed := stackVertically(sections)
	outPath := filepath.Join(sub.Scratch, "email_render.png")
	if err := imaging.Save(composed, outPath); err != nil {
		return "", fmt.Errorf("saving composed email image: %w", err)
	}
	return outPath, nil
}

// composeEmailHTML builds the HTML document the browser renders: an
// escaped header table followed by the message body.
func composeEmailHTML(env *enmime.Envelope) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for _, name := range []string{"Date", "From", "To", "Cc", "Subject", "Message-Id"} {
		value := env.GetHeader(name)
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "<tr><td><b>%s:</b></td><td>%s</td></tr>",
			html.EscapeString(name), html.EscapeString(value))
	}
	b.WriteString("</table><hr>")

	if env.HTML != "" {
		b.WriteString(env.HTML)
	} else {
		b.WriteString(strings.ReplaceAll(html.EscapeString(env.Text), "\n", "<br>"))
	}
	b.WriteString("</body></html>")
	return b.String()
}

// stackVertically pastes images top to bottom on a white canvas whose
// width is the widest section.
func stackVertically(sections []image.Image) image.Image {
	width, height := 0, 0
	for _, img := range sections {
		if w := img.Bounds().Dx(); w > width {
			width = w
		}
		height += img.Bounds().Dy()
	}

	canvas := imaging.New(width, height, color.White)
	y := 0
	for _, img := range sections {
		canvas = imaging.Paste(canvas, img, image.Pt(0, y))
		y += img.Bounds().Dy()
	}
	return canvas
}
