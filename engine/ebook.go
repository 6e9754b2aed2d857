package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ebookConversion turns an epub/mobi file into a PDF via the external
// ebook converter. Returns "" when the converter produced nothing.
func (sh *ServerHandler) ebookConversion(sub *Submission) (string, error) {
	if sh.ServerConfig.EbookConvertPath == "" {
		Logger.Warn("ebook converter not available, skipping conversion")
		return "", nil
	}

	outPath := filepath.Join(sub.Scratch, "ebook.pdf")

	ctx, cancel := context.WithTimeout(context.Background(), sh.ServerConfig.RenderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, sh.ServerConfig.EbookConvertPath, sub.FilePath, outPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		Logger.Warn("ebook converter failed", "error", err, "output", string(output))
	}

	if _, err := os.Stat(outPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("checking ebook output: %w", err)
	}
	return outPath, nil
}
