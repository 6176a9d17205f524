// Package exporter writes run results as spreadsheets.
package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/use-agent/dodf/models"
)

// sheetName is the single worksheet of every artifact.
const sheetName = "Notas de Empenho"

// FileName returns the artifact name for a run date.
func FileName(date time.Time) string {
	return date.Format("20060102") + "_extrato_notas_empenho_dodf.xlsx"
}

// XLSX writes one workbook per run into Dir.
type XLSX struct {
	Dir string
}

// Export writes a header row and one row per record, in record order, and
// returns the file path. Absent fields are left as empty cells. An existing
// artifact for the same date is replaced.
func (x XLSX) Export(date time.Time, records []*models.Record) (string, error) {
	dir := x.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewScrapeError(models.ErrCodeExport, "failed to create output directory", err)
	}
	path := filepath.Join(dir, FileName(date))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("exporter: close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return "", models.NewScrapeError(models.ErrCodeExport, "failed to name worksheet", err)
	}

	if err := writeRow(f, 1, toCells(models.Headers())); err != nil {
		return "", err
	}
	for i, rec := range records {
		if err := writeRow(f, i+2, toCells(rec.Values())); err != nil {
			return "", err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		slog.Debug("exporter: freeze header failed", "error", err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", models.NewScrapeError(models.ErrCodeExport, "failed to save workbook", err)
	}

	slog.Info("spreadsheet written", "path", path, "records", len(records))
	return path, nil
}

func writeRow(f *excelize.File, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeExport, "invalid cell", err)
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return models.NewScrapeError(models.ErrCodeExport,
			fmt.Sprintf("failed to write row %d", row), err)
	}
	return nil
}

// toCells stores every value as a string; captured fields are never
// reinterpreted as numbers or dates.
func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
