// Package export writes the session's job list to an XLSX report.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/five82/ferry/internal/job"
)

// SheetName is the worksheet the report is written to.
const SheetName = "Uploads"

var headers = []string{
	"File",
	"Status",
	"Remote Job ID",
	"Download URL",
	"Lines Processed",
	"Departments",
	"Elapsed (s)",
	"Submitted At",
	"Checks",
	"Downloaded To",
}

// ReportPath returns the report location for a session exported at now.
func ReportPath(dir string, now time.Time) string {
	return filepath.Join(dir, "ferry-session-"+now.Format("20060102-150405")+".xlsx")
}

// WriteXLSX writes jobs, in the given order, to a workbook at path.
func WriteXLSX(path string, jobs []job.Job) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("report path is empty")
	}

	f, err := Workbook(jobs)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// Workbook builds the report in memory. The caller closes the file.
func Workbook(jobs []job.Job) (*excelize.File, error) {
	f := excelize.NewFile()

	defSheet := f.GetSheetName(0)
	if defSheet == "" {
		defSheet = "Sheet1"
	}
	if err := f.SetSheetName(defSheet, SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	f.SetActiveSheet(0)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	failedStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
	})

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(SheetName, "A1", last, headerStyle)

	for idx, j := range jobs {
		row := idx + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, j.FileName)
		write(2, j.Label())
		write(3, j.RemoteJobID)
		write(4, j.DownloadLink())
		if p := j.Progress; p != nil {
			if p.LinesProcessed != nil {
				write(5, *p.LinesProcessed)
			}
			if p.Departments != nil {
				write(6, *p.Departments)
			}
			if p.ElapsedSeconds != nil {
				write(7, *p.ElapsedSeconds)
			}
		}
		if !j.SubmittedAt.IsZero() {
			write(8, j.SubmittedAt.Format(time.RFC3339))
		}
		write(9, j.Checks)
		write(10, j.DownloadedTo)

		if j.Status == job.StatusFailed {
			cell, _ := excelize.CoordinatesToCellName(2, row)
			_ = f.SetCellStyle(SheetName, cell, cell, failedStyle)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 28)
	_ = f.SetColWidth(SheetName, "B", "B", 14)
	_ = f.SetColWidth(SheetName, "C", "C", 38)
	_ = f.SetColWidth(SheetName, "D", "D", 60)
	_ = f.SetColWidth(SheetName, "E", "G", 16)
	_ = f.SetColWidth(SheetName, "H", "H", 26)
	_ = f.SetColWidth(SheetName, "J", "J", 60)
	_ = f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return f, nil
}
