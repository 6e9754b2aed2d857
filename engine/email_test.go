package engine

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/jhillyerd/enmime"
)

func TestComposeEmailHTMLEscapesHeaders(t *testing.T) {
	eml := "Subject: <script>alert(1)</script>\n" +
		"From: sender@evil.example\n" +
		"\n" +
		"line one\nline two\n"
	env, err := enmime.ReadEnvelope(bytes.NewReader([]byte(eml)))
	if err != nil {
		t.Fatal(err)
	}

	rendered := composeEmailHTML(env)
	if strings.Contains(rendered, "<script>alert(1)</script>") {
		t.Error("subject header reached the browser unescaped")
	}
	if !strings.Contains(rendered, "&lt;script&gt;") {
		t.Error("expected escaped subject in header table")
	}
	if !strings.Contains(rendered, "line one<br>line two") {
		t.Error("plain text body must be rendered with <br> line breaks")
	}
}

func TestComposeEmailHTMLPrefersHTMLBody(t *testing.T) {
	eml := "Subject: x\n" +
		"MIME-Version: 1.0\n" +
		"Content-Type: text/html; charset=utf-8\n" +
		"\n" +
		"<p>rich body</p>\n"
	env, err := enmime.ReadEnvelope(bytes.NewReader([]byte(eml)))
	if err != nil {
		t.Fatal(err)
	}
	if rendered := composeEmailHTML(env); !strings.Contains(rendered, "<p>rich body</p>") {
		t.Error("html body must pass through untouched")
	}
}

func TestStackVertically(t *testing.T) {
	a := imaging.New(100, 40, color.White)
	b := imaging.New(60, 30, color.Black)

	composed := stackVertically([]image.Image{a, b})
	bounds := composed.Bounds()
	if bounds.Dx() != 100 {
		t.Errorf("composed width = %d, want widest section 100", bounds.Dx())
	}
	if bounds.Dy() != 70 {
		t.Errorf("composed height = %d, want summed 70", bounds.Dy())
	}
}
