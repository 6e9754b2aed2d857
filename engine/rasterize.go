package engine

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// maxRasterHeight is the tallest image the gallery accepts. Composed
// email renders can exceed it, in which case they are sliced into
// horizontal bands that tile the original exactly.
const maxRasterHeight = 16383

// pageFile is one rendered page image on disk, before gallery
// assembly assigns final indices.
type pageFile struct {
	Path    string
	Variant string
}

// renderName builds a scratch filename encoding variant and page
// number so that a natural sort on the name reproduces reading order
// across variants.
func renderName(variant string, pageNum int, ext string) string {
	if variant != "" {
		return fmt.Sprintf("render_%s_%04d.%s", variant, pageNum, ext)
	}
	return fmt.Sprintf("render_%04d.%s", pageNum, ext)
}

// rasterizePDF renders pages 1..max_pages_rendered of a PDF artifact
// to numbered JPEG files in the scratch directory.
func (sh *ServerHandler) rasterizePDF(sub *Submission, art Artifact) ([]pageFile, error) {
	images, err := sh.Renderer.RenderPages(art.Path, sub.Params.MaxPagesRendered, sh.ServerConfig.RenderDPI)
	if err != nil {
		return nil, fmt.Errorf("rasterizing %s: %w", filepath.Base(art.Path), err)
	}

	var pages []pageFile
	for i, img := range images {
		outPath := filepath.Join(sub.Scratch, renderName(art.Variant, i, "jpeg"))
		if err := imaging.Save(img, outPath); err != nil {
			return nil, fmt.Errorf("saving page %d: %w", i, err)
		}
		pages = append(pages, pageFile{Path: outPath, Variant: art.Variant})
	}
	return pages, nil
}

// adoptImage takes an image artifact into the page sequence. Images
// taller than maxRasterHeight are sliced into bands and the oversized
// original removed.
func (sh *ServerHandler) adoptImage(sub *Submission, art Artifact) ([]pageFile, error) {
	img, err := imaging.Open(art.Path)
	if err != nil {
		return nil, fmt.Errorf("opening image artifact: %w", err)
	}

	bands := sliceOversized(img, maxRasterHeight)
	if len(bands) == 1 {
		outPath := filepath.Join(sub.Scratch, renderName(art.Variant, 0, "png"))
		if err := imaging.Save(bands[0], outPath); err != nil {
			return nil, fmt.Errorf("saving image page: %w", err)
		}
		return []pageFile{{Path: outPath, Variant: art.Variant}}, nil
	}

	var pages []pageFile
	for i, band := range bands {
		outPath := filepath.Join(sub.Scratch, renderName(art.Variant, i, "png"))
		if err := imaging.Save(band, outPath); err != nil {
			return nil, fmt.Errorf("saving image band %d: %w", i, err)
		}
		pages = append(pages, pageFile{Path: outPath, Variant: art.Variant})
	}
	// The submitted file lives in scratch too (the upload handler puts
	// it there), so the guard is against the file itself, not the dir.
	if art.Path != sub.FilePath {
		if err := os.Remove(art.Path); err != nil && !os.IsNotExist(err) {
			Logger.Warn("removing oversized source image failed", "path", art.Path, "error", err)
		}
	}
	return pages, nil
}

// sliceOversized splits an image into maxHeight-tall horizontal bands.
// The bands tile the original height exactly: every band keeps the
// full width, and the last band holds the remainder. Images within
// the limit come back unchanged as a single band.
func sliceOversized(img image.Image, maxHeight int) []image.Image {
	bounds := img.Bounds()
	if bounds.Dy() <= maxHeight {
		return []image.Image{img}
	}

	var bands []image.Image
	for y := 0; y < bounds.Dy(); y += maxHeight {
		h := maxHeight
		if y+h > bounds.Dy() {
			h = bounds.Dy() - y
		}
		rect := image.Rect(bounds.Min.X, bounds.Min.Y+y, bounds.Max.X, bounds.Min.Y+y+h)
		bands = append(bands, imaging.Crop(img, rect))
	}
	return bands
}
