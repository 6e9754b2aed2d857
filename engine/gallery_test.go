package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func writePageFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAssembleGalleryNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	// Written out of order on purpose; natural sort must fix it,
	// including 2 before 10.
	files := []pageFile{
		{Path: writePageFile(t, dir, "render_0010.jpeg", []byte("page ten"))},
		{Path: writePageFile(t, dir, "render_0002.jpeg", []byte("page two"))},
		{Path: writePageFile(t, dir, "render_0001.jpeg", []byte("page one"))},
	}

	pages, err := assembleGallery(files, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	wantOrder := []string{"render_0001.jpeg", "render_0002.jpeg", "render_0010.jpeg"}
	for i, p := range pages {
		if filepath.Base(p.Path) != wantOrder[i] {
			t.Errorf("position %d = %s, want %s", i, filepath.Base(p.Path), wantOrder[i])
		}
		if p.Index != i {
			t.Errorf("page %s index = %d, want %d", filepath.Base(p.Path), p.Index, i)
		}
	}
}

func TestAssembleGalleryDeduplicatesByContent(t *testing.T) {
	dir := t.TempDir()
	same := []byte("identical bytes")
	files := []pageFile{
		{Path: writePageFile(t, dir, "render_original_0000.jpeg", same), Variant: "original"},
		{Path: writePageFile(t, dir, "render_scriptless_0000.jpeg", same), Variant: "scriptless"},
		{Path: writePageFile(t, dir, "render_styleless_0000.jpeg", []byte("different")), Variant: "styleless"},
	}

	pages, err := assembleGallery(files, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2 after dedup", len(pages))
	}
	if pages[0].Variant != "original" {
		t.Errorf("first emitted variant = %s, want original (first in natural order wins)", pages[0].Variant)
	}
	if pages[1].Index != 1 {
		t.Errorf("indices must stay contiguous after dedup, got %d", pages[1].Index)
	}

	seen := map[string]bool{}
	for _, p := range pages {
		if seen[p.Hash] {
			t.Errorf("gallery contains duplicate hash %s", p.Hash)
		}
		seen[p.Hash] = true
	}
}

func TestAssembleGalleryAttachesOCRText(t *testing.T) {
	dir := t.TempDir()
	path := writePageFile(t, dir, "render_0000.jpeg", []byte("content"))
	pages, err := assembleGallery(
		[]pageFile{{Path: path}},
		map[string]string{path: "extracted words"},
	)
	if err != nil {
		t.Fatal(err)
	}
	if pages[0].OCRText != "extracted words" {
		t.Errorf("OCRText = %q", pages[0].OCRText)
	}
}

func TestPageName(t *testing.T) {
	cases := []struct {
		page Page
		want string
	}{
		{Page{Index: 0, Path: "/x/render_0000.jpeg"}, "page_000.jpeg"},
		{Page{Index: 12, Path: "/x/render_0012.jpeg"}, "page_012.jpeg"},
		{Page{Index: 3, Variant: "scriptless", Path: "/x/render_scriptless_0003.png"}, "page_003_scriptless.png"},
	}
	for _, tc := range cases {
		if got := tc.page.Name(); got != tc.want {
			t.Errorf("Name() = %q, want %q", got, tc.want)
		}
	}
}

func TestBuildGallerySection(t *testing.T) {
	if section := buildGallerySection(nil); section != nil {
		t.Error("empty page list must produce no gallery section")
	}
	section := buildGallerySection([]Page{{Index: 0, Path: "/x/render_0000.jpeg"}})
	if section == nil || !section.Representative {
		t.Fatalf("section = %+v, want representative gallery", section)
	}
}
