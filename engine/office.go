package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// officeConversion drives the headless office converter to turn an
// office document into a PDF in the scratch directory. Returns the
// PDF path, or "" when the converter ran but produced nothing (the
// document gets no preview, processing continues).
func (sh *ServerHandler) officeConversion(sub *Submission, inputPath, orientation string) (string, error) {
	if sh.ServerConfig.UnoconvPath == "" {
		Logger.Warn("office converter not available, skipping conversion")
		return "", nil
	}

	outDir := filepath.Join(sub.Scratch, "converted")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating conversion directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sh.ServerConfig.RenderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, sh.ServerConfig.UnoconvPath,
		"-f", "pdf",
		"-e", fmt.Sprintf("PageRange=1-%d", sub.Params.MaxPagesRendered),
		"-e", "PaperOrientation="+orientation,
		"-o", outDir+string(os.PathSeparator),
		inputPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		Logger.Warn("office converter failed", "error", err, "output", string(output))
	}

	pdfs, err := filepath.Glob(filepath.Join(outDir, "*.pdf"))
	if err != nil {
		return "", fmt.Errorf("listing conversion output: %w", err)
	}
	if len(pdfs) == 0 {
		return "", nil
	}
	return pdfs[0], nil
}

// csvToSpreadsheet transcodes a CSV file into an XLSX intermediate so
// the office converter can render it like any other spreadsheet.
func (sh *ServerHandler) csvToSpreadsheet(sub *Submission) (string, error) {
	f, err := os.Open(sub.FilePath)
	if err != nil {
		return "", fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parsing csv: %w", err)
	}

	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := book.SetSheetRow(sheet, cell, &values); err != nil {
			return "", fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	xlsxPath := filepath.Join(sub.Scratch, strings.TrimSuffix(filepath.Base(sub.FilePath), filepath.Ext(sub.FilePath))+".xlsx")
	if err := book.SaveAs(xlsxPath); err != nil {
		return "", fmt.Errorf("saving spreadsheet: %w", err)
	}
	return xlsxPath, nil
}
