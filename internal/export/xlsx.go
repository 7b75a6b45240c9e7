package export

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/electronjoe/photocoords/internal/photo"
)

// SheetName is the single worksheet of the generated workbook.
const SheetName = "Sheet1"

const (
	widthPadding = 2
	widthFactor  = 1.2
)

// WriteSpreadsheet writes a header row plus one row per record to an xlsx
// workbook at path. Columns are sized to their longest value and every used
// cell is horizontally centered.
func WriteSpreadsheet(path string, records []photo.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := make([][]any, 0, len(records)+1)
	header := make([]any, len(photo.Columns))
	for i, name := range photo.Columns {
		header[i] = name
	}
	rows = append(rows, header)
	for _, rec := range records {
		rows = append(rows, rec.Values())
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	for col, width := range columnWidths(rows) {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, width); err != nil {
			return fmt.Errorf("set width of column %s: %w", name, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create cell style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(photo.Columns), len(rows))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("apply cell style: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("render workbook: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// columnWidths sizes each column to (longest stringified value + padding) * factor.
func columnWidths(rows [][]any) []float64 {
	widths := make([]float64, len(photo.Columns))
	for col := range widths {
		longest := 0
		for _, row := range rows {
			if col >= len(row) {
				continue
			}
			if n := utf8.RuneCountInString(cellText(row[col])); n > longest {
				longest = n
			}
		}
		widths[col] = float64(longest+widthPadding) * widthFactor
	}
	return widths
}

func cellText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
