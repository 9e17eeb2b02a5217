package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salonagent/internal/contacts"
	"salonagent/internal/salon"
)

// Sheet names in the knowledge workbook.
const (
	SheetServices = "Services"
	SheetStaff    = "Staff"
	SheetSchedule = "Schedule"
	SheetContacts = "Contacts"
)

const maxSheetName = 31

// Writer fills an xlsx workbook sheet by sheet, row by row.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	bold         int
}

// NewWriter creates an empty workbook.
func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddSheet starts a new sheet; the first call renames the default one.
func (w *Writer) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes a bold header row and freezes it.
func (w *Writer) WriteHeader(columns []string) error {
	if err := w.writeRow(toAny(columns)); err != nil {
		return err
	}
	if w.bold == 0 {
		style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		w.bold = style
	}
	row := w.currentRow - 1
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(len(columns), row)
	if err := w.file.SetCellStyle(w.currentSheet, start, end, w.bold); err != nil {
		return err
	}
	return w.file.SetPanes(w.currentSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      row,
		TopLeftCell: fmt.Sprintf("A%d", row+1),
		ActivePane:  "bottomLeft",
	})
}

// WriteRow writes one data row.
func (w *Writer) WriteRow(row []any) error {
	return w.writeRow(row)
}

func (w *Writer) writeRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

// SetWidths sets column widths of the current sheet, starting at column A.
func (w *Writer) SetWidths(widths ...float64) error {
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(w.currentSheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the workbook.
func (w *Writer) Save(out io.Writer) error {
	return w.file.Write(out)
}

// SaveToFile writes the workbook to disk.
func (w *Writer) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}

// Options selects what goes into the knowledge workbook.
type Options struct {
	// From is the first day of the schedule sheet.
	From time.Time
	// Days is the schedule length; zero means a week.
	Days int
	// Contacts adds a contacts sheet when non-nil.
	Contacts []contacts.Contact
}

// Knowledge exports the catalog, the staff and their upcoming schedule so
// the salon can review what the agent will tell clients.
func Knowledge(out io.Writer, db *salon.DB, opts Options) error {
	w := NewWriter()
	defer w.Close()

	if err := writeServices(w, db); err != nil {
		return err
	}
	if err := writeStaff(w, db); err != nil {
		return err
	}
	if err := writeSchedule(w, db, opts); err != nil {
		return err
	}
	if opts.Contacts != nil {
		if err := writeContacts(w, opts.Contacts); err != nil {
			return err
		}
	}
	return w.Save(out)
}

func writeServices(w *Writer, db *salon.DB) error {
	if err := w.AddSheet(SheetServices); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Code", "Name", "Category", "Price", "Price " + db.Currency, "Minutes", "Tags"}); err != nil {
		return err
	}
	for i := range db.Services {
		svc := &db.Services[i]
		var price, minutes any
		if svc.PriceAmount != nil {
			price = *svc.PriceAmount
		}
		if svc.DurationMin != nil {
			minutes = *svc.DurationMin
		}
		row := []any{svc.Code, svc.Name, svc.Category, svc.PriceText, price, minutes, strings.Join(svc.Tags, ", ")}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.SetWidths(10, 40, 20, 16, 10, 10, 30)
}

func writeStaff(w *Writer, db *salon.DB) error {
	if err := w.AddSheet(SheetStaff); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"ID", "Name", "Summary", "Specialties", "Services", "Calendar", "Days off"}); err != nil {
		return err
	}
	for i := range db.Staff {
		m := &db.Staff[i]
		row := []any{
			m.ID,
			m.Name,
			m.Summary,
			strings.Join(m.Specialties, ", "),
			strings.Join(m.ServiceCodes, ", "),
			m.CalendarID,
			strings.Join(m.WeeklyDaysOff, ", "),
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.SetWidths(12, 20, 50, 30, 30, 30, 16)
}

func writeSchedule(w *Writer, db *salon.DB, opts Options) error {
	if err := w.AddSheet(SheetSchedule); err != nil {
		return err
	}
	days := opts.Days
	if days <= 0 {
		days = 7
	}
	from := opts.From.In(db.Location())
	y, mo, d := from.Date()

	header := []string{"Staff"}
	dates := make([]time.Time, days)
	for i := range dates {
		dates[i] = time.Date(y, mo, d+i, 0, 0, 0, 0, from.Location())
		header = append(header, salon.WeekdayCode(dates[i].Weekday())+" "+dates[i].Format("02.01"))
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	for i := range db.Staff {
		m := &db.Staff[i]
		row := []any{m.Name}
		for _, day := range dates {
			st := m.DayStatus(&db.Store, day)
			if st.Working {
				row = append(row, strings.Join(st.Shifts, " / "))
			} else {
				row = append(row, "— "+st.Reason)
			}
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	widths := []float64{20}
	for range dates {
		widths = append(widths, 24)
	}
	return w.SetWidths(widths...)
}

func writeContacts(w *Writer, list []contacts.Contact) error {
	if err := w.AddSheet(SheetContacts); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Ref", "Name", "Phone", "Times", "First seen", "Last seen"}); err != nil {
		return err
	}
	for _, c := range list {
		row := []any{c.Ref, c.Name, c.Phone, c.Times, c.FirstSeen.Format(time.DateTime), c.LastSeen.Format(time.DateTime)}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.SetWidths(38, 24, 18, 8, 20, 20)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
