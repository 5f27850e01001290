// Package export renders booking lists as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"shareit/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Bookings"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	cellLayout  = "02.01.2006 15:04"
)

var headers = []string{"ID", "Item", "Booker", "Start", "End", "Status"}

var statusFill = map[models.BookingStatus]string{
	models.StatusWaiting:  "#FFF2CC",
	models.StatusApproved: "#E2EFDA",
	models.StatusRejected: "#F8CBAD",
}

// FileName builds the download name for an owner's export.
func FileName(ownerID int64, state models.BookingState, now time.Time) string {
	return fmt.Sprintf("bookings_%d_%s_%s.xlsx", ownerID, state, now.Format("2006-01-02"))
}

// WriteBookings writes one row per booking under a styled header row.
func WriteBookings(w io.Writer, title string, bookings []*models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	// Переименовываем стандартный лист
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	_ = f.SetCellValue(SheetName, "A1", title)
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	_ = f.SetCellStyle(SheetName, "A1", "A1", titleStyle)
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(SheetName, "A1", lastCol+"1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(SheetName, cell, h)
		_ = f.SetCellStyle(SheetName, cell, cell, headerStyle)
	}

	styles := make(map[models.BookingStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("create style: %w", err)
		}
		styles[status] = id
	}

	for i, b := range bookings {
		row := i + 3
		values := []interface{}{
			b.ID,
			b.ItemName,
			fmt.Sprintf("%s (%d)", b.BookerName, b.BookerID),
			b.Start.UTC().Format(cellLayout),
			b.End.UTC().Format(cellLayout),
			string(b.Status),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if style, ok := styles[b.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(SheetName, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 8)
	_ = f.SetColWidth(SheetName, "B", "C", 25)
	_ = f.SetColWidth(SheetName, "D", "F", 18)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
