package engine

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// OCRClient extracts text from a page image. The engine ships two
// implementations: a local tesseract binary and the OCR sidecar
// service.
type OCRClient interface {
	ImageToText(imagePath string) (string, error)
}

// ExecOCR runs the tesseract binary directly.
type ExecOCR struct {
	TesseractPath string
	DPI           int
}

// ImageToText OCRs one image file. Tesseract writes its output next
// to the image as <base>_ocr.txt.
func (o ExecOCR) ImageToText(imagePath string) (string, error) {
	if o.TesseractPath == "" {
		return "", fmt.Errorf("tesseract not configured")
	}

	outBase := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + "_ocr"
	args := []string{imagePath, outBase, "--dpi", strconv.Itoa(o.DPI)}
	cmd := exec.Command(o.TesseractPath, args...)

	var stdBuffer bytes.Buffer
	cmd.Stdout = &stdBuffer
	cmd.Stderr = &stdBuffer
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, stdBuffer.String())
	}

	textBytes, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("reading tesseract output: %w", err)
	}
	return string(textBytes), nil
}
