package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
)

// assembleGallery orders the rendered page files, drops byte-identical
// duplicates and assigns contiguous 0-based indices. Multi-variant
// HTML renders legitimately produce identical pages; only the first
// copy is emitted.
func assembleGallery(files []pageFile, pageOCR map[string]string) ([]Page, error) {
	sorted := make([]pageFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return natural.Less(filepath.Base(sorted[i].Path), filepath.Base(sorted[j].Path))
	})

	seen := make(map[string]bool)
	var pages []Page
	for _, f := range sorted {
		hash, err := hashFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("hashing page %s: %w", filepath.Base(f.Path), err)
		}
		if seen[hash] {
			continue
		}
		seen[hash] = true
		pages = append(pages, Page{
			Index:   len(pages),
			Variant: f.Variant,
			Path:    f.Path,
			Hash:    hash,
			OCRText: pageOCR[f.Path],
		})
	}
	return pages, nil
}

// buildGallerySection turns the page list into the representative
// image-gallery section.
func buildGallerySection(pages []Page) *GallerySection {
	if len(pages) == 0 {
		return nil
	}
	section := &GallerySection{Representative: true}
	for _, p := range pages {
		section.Images = append(section.Images, FileRef{
			Name:        p.Name(),
			Description: p.Description(),
			Path:        p.Path,
		})
	}
	return section
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
