package export

import (
	"testing"
	"time"

	"zanara/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBookingsToExcel(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	bookings := []*models.Booking{
		{
			Reference:      "BK-9F3A2C41",
			ClientID:       1,
			ProfessionalID: 2,
			Title:          "Lookbook shoot",
			ServiceType:    "photoshoot",
			StartTime:      start.Add(24 * time.Hour),
			EndTime:        start.Add(27 * time.Hour),
			Duration:       180,
			Location:       models.Location{Venue: "Studio 9"},
			Pricing:        models.Pricing{TotalAmount: 450, Currency: "EUR"},
			Status:         models.StatusConfirmed,
		},
	}

	path, err := BookingsToExcel(dir, start, end, bookings)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "bookings_2026-09-01_to_2026-10-01.xlsx")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	period, err := f.GetCellValue("Bookings", "A1")
	require.NoError(t, err)
	assert.Contains(t, period, "2026-09-01")

	ref, err := f.GetCellValue("Bookings", "A3")
	require.NoError(t, err)
	assert.Equal(t, "BK-9F3A2C41", ref)

	status, err := f.GetCellValue("Bookings", "L3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, status)
}

func TestBookingsToExcel_Empty(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	path, err := BookingsToExcel(dir, now, now.AddDate(0, 1, 0), nil)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
