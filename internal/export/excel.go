package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zanara/internal/models"

	"github.com/xuri/excelize/v2"
)

// BookingsToExcel записывает бронирования периода в xlsx файл и возвращает
// путь к нему.
func BookingsToExcel(dir string, startDate, endDate time.Time, bookings []*models.Booking) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))

	headers := []string{"Reference", "Client", "Professional", "Title", "Service", "Start", "End", "Duration (min)", "Venue", "Amount", "Currency", "Status"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for rowIdx, b := range bookings {
		row := []interface{}{
			b.Reference,
			b.ClientID,
			b.ProfessionalID,
			b.Title,
			b.ServiceType,
			b.StartTime.Format("2006-01-02 15:04"),
			b.EndTime.Format("2006-01-02 15:04"),
			b.Duration,
			b.Location.Venue,
			b.Pricing.TotalAmount,
			b.Pricing.Currency,
			b.Status,
		}
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+3)
			_ = f.SetCellValue(sheetName, cell, val)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "L", 18)

	lastCol, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.MergeCell(sheetName, "A1", lastCol)

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	return filePath, nil
}
