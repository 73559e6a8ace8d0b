package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hoteldesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var (
	from = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
)

func reportBookings() []*models.Booking {
	out := time.Date(2024, 3, 10, 13, 16, 0, 0, time.UTC)
	return []*models.Booking{
		{
			BookingNo:          "BK1",
			InvoiceNumber:      "MPZ/03/001",
			GuestName:          "Asha Verma",
			CheckInDate:        time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
			CheckOutDate:       time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			TimeOut:            "12:00",
			ActualCheckOutTime: &out,
			Status:             models.StatusCheckedOut,
			Rate:               3500,
			LateCheckoutFine:   models.LateCheckoutFine{Applied: true, Amount: 1000, MinutesLate: 76},
		},
		{
			BookingNo:        "BK2",
			InvoiceNumber:    "MPZ/03/002",
			Status:           models.StatusCheckedOut,
			LateCheckoutFine: models.LateCheckoutFine{Applied: true, Waived: true, WaivedBy: "manager", WaivedReason: "flight delayed", MinutesLate: 40},
		},
		{BookingNo: "BK3", InvoiceNumber: "MPZ/03/003", Status: models.StatusBooked},
	}
}

func TestWriteReport(t *testing.T) {
	e := NewExporter("", time.UTC, nil)

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, reportBookings(), from, to))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Bookings", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Period: 2024-03-01 - 2024-03-31", rows[0][0])
	assert.Equal(t, "Booking No", rows[1][0])
	assert.Equal(t, "Fine", rows[1][14])

	first := rows[2]
	assert.Equal(t, "BK1", first[0])
	assert.Equal(t, "2024-03-10 13:16:00", first[9])
	assert.Equal(t, "76", first[13])
	assert.Equal(t, "1000", first[14])
	assert.Equal(t, "no", first[15])

	waived := rows[3]
	assert.Equal(t, "yes", waived[15])
	assert.Equal(t, "flight delayed", waived[17])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bookings", "3"}, summary[0])
	assert.Equal(t, []string{"Late fines total", "1000"}, summary[6])
	assert.Equal(t, []string{"Fines waived", "1"}, summary[7])
}

func TestSaveReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := NewExporter(dir, time.UTC, nil)

	path, err := e.Save(reportBookings(), from, to)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookings_2024-03-01_to_2024-03-31.xlsx"), path)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveWithoutDirectory(t *testing.T) {
	_, err := NewExporter("", time.UTC, nil).Save(nil, from, to)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := Summarize(reportBookings())
	assert.Equal(t, 2, s.ByStatus[models.StatusCheckedOut])
	assert.Equal(t, 1, s.ByStatus[models.StatusBooked])
	assert.Equal(t, 1, s.FinesCount)
	assert.Equal(t, float64(1000), s.FinesAmount)
	assert.Equal(t, 1, s.WaivedCount)
}

func TestEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter("", nil, nil).Write(&buf, nil, from, to))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
