package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var columns = []string{
	"Booking No", "Invoice", "GRC No", "Guest", "Mobile", "Room",
	"Check-in", "Check-out", "Time Out", "Actual Out", "Status",
	"Payment", "Rate", "Minutes Late", "Fine", "Waived", "Waived By", "Waive Reason",
}

// Exporter renders booking and billing reports as XLSX workbooks.
type Exporter struct {
	dir    string
	loc    *time.Location
	logger *zerolog.Logger
}

func NewExporter(dir string, loc *time.Location, logger *zerolog.Logger) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{dir: dir, loc: loc, logger: logger}
}

// FileName is the report name for the period.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// Write renders the report to w.
func (e *Exporter) Write(w io.Writer, bookings []*models.Booking, from, to time.Time) error {
	f, err := e.build(bookings, from, to)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// Save renders the report into the export directory and returns its path.
func (e *Exporter) Save(bookings []*models.Booking, from, to time.Time) (string, error) {
	if e.dir == "" {
		return "", fmt.Errorf("export directory is not configured")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.build(bookings, from, to)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(e.dir, FileName(from, to))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", path).Int("bookings", len(bookings)).Msg("Excel file created")
	return path, nil
}

func (e *Exporter) build(bookings []*models.Booking, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(bookingsSheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format(models.DateLayout), to.Format(models.DateLayout)))
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	_ = f.MergeCell(bookingsSheet, "A1", lastCol+"1")
	_ = f.SetCellStyle(bookingsSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(bookingsSheet, cell, name)
	}
	_ = f.SetCellStyle(bookingsSheet, "A2", lastCol+"2", headerStyle)

	fineStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})

	for i, b := range bookings {
		row := i + 3
		values := e.rowValues(b)
		if err := f.SetSheetRow(bookingsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		if b.LateCheckoutFine.Applied && !b.LateCheckoutFine.Waived {
			_ = f.SetCellStyle(bookingsSheet, fmt.Sprintf("O%d", row), fmt.Sprintf("O%d", row), fineStyle)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 18)
	_ = f.SetColWidth(bookingsSheet, "B", lastCol, 14)
	_ = f.SetColWidth(bookingsSheet, "D", "D", 24)

	if err := e.writeSummary(f, bookings); err != nil {
		f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func (e *Exporter) rowValues(b *models.Booking) []interface{} {
	actualOut := ""
	if b.ActualCheckOutTime != nil {
		actualOut = b.ActualCheckOutTime.In(e.loc).Format(models.TimestampLayout)
	}
	fine := b.LateCheckoutFine
	waived := "no"
	if fine.Waived {
		waived = "yes"
	}

	return []interface{}{
		b.BookingNo,
		b.InvoiceNumber,
		b.GRCNo,
		b.GuestName,
		b.MobileNo,
		b.RoomNumber,
		b.CheckInDate.Format(models.DateLayout),
		b.CheckOutDate.Format(models.DateLayout),
		b.TimeOut,
		actualOut,
		b.Status,
		b.PaymentStatus,
		b.Rate,
		fine.MinutesLate,
		fine.Amount,
		waived,
		fine.WaivedBy,
		fine.WaivedReason,
	}
}

// Summary totals a set of bookings.
type Summary struct {
	ByStatus    map[string]int
	FinesCount  int
	FinesAmount float64
	WaivedCount int
}

func Summarize(bookings []*models.Booking) Summary {
	s := Summary{ByStatus: make(map[string]int)}
	for _, b := range bookings {
		s.ByStatus[b.Status]++
		switch {
		case b.LateCheckoutFine.Waived:
			s.WaivedCount++
		case b.LateCheckoutFine.Applied && b.LateCheckoutFine.Amount > 0:
			s.FinesCount++
			s.FinesAmount += b.LateCheckoutFine.Amount
		}
	}
	return s
}

func (e *Exporter) writeSummary(f *excelize.File, bookings []*models.Booking) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	s := Summarize(bookings)
	rows := [][]interface{}{
		{"Bookings", len(bookings)},
	}
	for _, status := range []string{models.StatusBooked, models.StatusCheckedIn, models.StatusCheckedOut, models.StatusCancelled} {
		rows = append(rows, []interface{}{status, s.ByStatus[status]})
	}
	rows = append(rows,
		[]interface{}{"Late fines", s.FinesCount},
		[]interface{}{"Late fines total", s.FinesAmount},
		[]interface{}{"Fines waived", s.WaivedCount},
	)

	for i, r := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return fmt.Errorf("error writing summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	return nil
}
