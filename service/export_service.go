package services

import (
	"bytes"
	"fmt"
	"strings"

	model "github.com/Itish41/ContraCam/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Contracts"

var exportHeaders = []string{
	"Position",
	"ID",
	"Title",
	"Created",
	"Alerts",
	"Triggers",
	"Summary",
	"Key Points",
}

// ExportHistoryXLSX renders the history as a single-sheet workbook.
func ExportHistoryXLSX(docs []model.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, d := range docs {
		row := i + 2
		created := ""
		if !d.CreatedAt.IsZero() {
			created = d.CreatedAt.UTC().Format("2006-01-02 15:04:05")
		}
		values := []interface{}{
			i,
			d.ID,
			d.DisplayTitle(),
			created,
			d.Alerts,
			strings.Join(d.Triggers, ", "),
			d.Summary,
			strings.Join(d.KeyPoints, "\n"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(exportSheet, "C", "C", 30); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "G", "H", 60); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
