package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"alpr-service/internal/plate"
)

const SheetName = "Plates"

// Row is one line of the plate report.
type Row struct {
	DetectedAt time.Time
	Source     string
	Record     plate.Record
	FirstSeen  bool
}

var headers = []string{
	"Detected At", "Source", "Plate", "Original Text", "Region Code", "Region",
	"City", "Category", "Confidence", "X1", "Y1", "X2", "Y2", "First Seen",
}

// WriteExcel writes rows as an xlsx workbook with a single sheet.
func WriteExcel(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("style headers: %w", err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		rec := row.Record
		values := []interface{}{
			row.DetectedAt.Format(time.RFC3339),
			row.Source,
			rec.FormattedPlate,
			rec.OriginalText,
			rec.RegionCode,
			rec.RegionInfo,
			rec.City,
			string(rec.Category),
			rec.Confidence,
			rec.BBox[0], rec.BBox[1], rec.BBox[2], rec.BBox[3],
			row.FirstSeen,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 22)
	_ = f.SetColWidth(SheetName, "C", "D", 14)
	_ = f.SetColWidth(SheetName, "F", "G", 36)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
