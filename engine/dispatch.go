package engine

import (
	"fmt"
	"os"
	"strings"
)

// Orientation hints passed to the office converter.
const (
	orientationPortrait  = "portrait"
	orientationLandscape = "landscape"
)

// HTML variant labels. A plain render carries no label; the richer
// variant pipeline adds stripped renders under their own labels.
const (
	variantOriginal   = "original"
	variantScriptless = "scriptless"
	variantStyleless  = "styleless"
)

// officeOrientation returns the paper orientation for an office type
// tag. Spreadsheets and presentations are wider than tall.
func officeOrientation(fileType string) string {
	switch {
	case strings.Contains(fileType, "excel"), strings.Contains(fileType, "powerpoint"):
		return orientationLandscape
	default:
		return orientationPortrait
	}
}

// dispatch resolves the type tag into zero or more intermediate
// artifacts by invoking the matching adapter. An unmatched tag is not
// an error: it yields no artifacts and the caller surfaces no preview.
func (sh *ServerHandler) dispatch(sub *Submission) ([]Artifact, error) {
	switch {
	case strings.HasPrefix(sub.FileType, "document/office/email"):
		emlData, err := sh.msgToEML(sub.FilePath)
		if err != nil {
			return nil, fmt.Errorf("converting msg to eml: %w", err)
		}
		return sh.dispatchEmail(sub, emlData)

	case strings.HasPrefix(sub.FileType, "document/office"), sub.FileType == "document/odt":
		return sh.dispatchOffice(sub, sub.FilePath)

	case sub.FileType == "text/csv":
		xlsxPath, err := sh.csvToSpreadsheet(sub)
		if err != nil {
			return nil, fmt.Errorf("transcoding csv: %w", err)
		}
		return sh.dispatchOffice(sub, xlsxPath)

	case sub.FileType == "document/pdf":
		// Identity: the input file already is the intermediate.
		return []Artifact{{Kind: ArtifactPDF, Path: sub.FilePath}}, nil

	case sub.FileType == "document/epub", sub.FileType == "document/mobi":
		pdfPath, err := sh.ebookConversion(sub)
		if err != nil {
			return nil, fmt.Errorf("converting ebook: %w", err)
		}
		if pdfPath == "" {
			return nil, nil
		}
		return []Artifact{{Kind: ArtifactPDF, Path: pdfPath}}, nil

	case sub.FileType == "document/email":
		emlData, err := os.ReadFile(sub.FilePath)
		if err != nil {
			return nil, fmt.Errorf("reading eml: %w", err)
		}
		return sh.dispatchEmail(sub, emlData)

	case sub.FileType == "code/html":
		data, err := os.ReadFile(sub.FilePath)
		if err != nil {
			return nil, fmt.Errorf("reading html: %w", err)
		}
		return sh.htmlArtifacts(sub, data)

	case strings.HasPrefix(sub.FileType, "image/"):
		// Already rasterized, adopt as-is.
		return []Artifact{{Kind: ArtifactImage, Path: sub.FilePath}}, nil
	}

	Logger.Info("unsupported file type, no preview", "fileType", sub.FileType)
	return nil, nil
}

// dispatchOffice runs the office converter over inputPath and wraps
// the resulting PDF, if any, as a single artifact.
func (sh *ServerHandler) dispatchOffice(sub *Submission, inputPath string) ([]Artifact, error) {
	pdfPath, err := sh.officeConversion(sub, inputPath, officeOrientation(sub.FileType))
	if err != nil {
		return nil, fmt.Errorf("converting office document: %w", err)
	}
	if pdfPath == "" {
		// Converter exited without producing a PDF; no preview.
		return nil, nil
	}
	return []Artifact{{Kind: ArtifactPDF, Path: pdfPath}}, nil
}

// dispatchEmail routes an EML byte stream: bodies that sniff as HTML
// go through the browser, everything else is composed directly into a
// single image.
func (sh *ServerHandler) dispatchEmail(sub *Submission, emlData []byte) ([]Artifact, error) {
	if sniffHTML(emlData) {
		return sh.htmlArtifacts(sub, emlData)
	}
	imagePath, err := sh.emailToImage(sub, emlData)
	if err != nil {
		return nil, fmt.Errorf("composing email image: %w", err)
	}
	if imagePath == "" {
		return nil, nil
	}
	return []Artifact{{Kind: ArtifactImage, Path: imagePath}}, nil
}
