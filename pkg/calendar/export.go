package calendar

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// Format is an export format.
type Format string

const (
	FormatText Format = "text"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat is returned for an unknown export extension.
var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	dateLayout = "02 Jan"
	timeLayout = "15:04"
	sheetName  = "Ramzan"
)

var header = []string{"Day", "Date", "Weekday", "Sehri", "Iftar"}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", "":
		return FormatText, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

func (d Day) cells() []string {
	return []string{
		fmt.Sprint(d.Number),
		d.Date.Midnight(time.UTC).Format(dateLayout),
		d.Weekday.String()[:3],
		d.Sehri.Format(timeLayout),
		d.Iftar.Format(timeLayout),
	}
}

func (t *Table) title() string {
	return fmt.Sprintf("Ramzan timetable for %s (%s, %s)", t.Location, t.Ruleset.Method, t.Ruleset.Madhab)
}

// Write renders the table in format f.
func (t *Table) Write(w io.Writer, f Format) error {
	switch f {
	case FormatText:
		return t.WriteText(w)
	case FormatXLSX:
		return t.WriteXLSX(w)
	case FormatPDF:
		return t.WritePDF(w)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Export writes the table to path on fs, choosing the format by extension.
func (t *Table) Export(fs afero.Fs, path string) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	out, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("error: cannot create %s: %w", path, err)
	}
	if err := t.Write(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WriteText renders a fixed-width table.
func (t *Table) WriteText(w io.Writer) error {
	widths := []int{3, 6, 7, 5, 5}
	line := "+"
	for _, n := range widths {
		line += strings.Repeat("-", n+2) + "+"
	}
	row := func(cells []string) string {
		s := "|"
		for i, c := range cells {
			s += fmt.Sprintf(" %-*s |", widths[i], c)
		}
		return s
	}

	var b strings.Builder
	b.WriteString(t.title() + "\n\n")
	b.WriteString(line + "\n" + row(header) + "\n" + line + "\n")
	for _, d := range t.Days {
		b.WriteString(row(d.cells()) + "\n")
	}
	b.WriteString(line + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteXLSX renders a single sheet workbook.
func (t *Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	_ = f.SetCellValue(sheetName, "A1", t.title())
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	for r, d := range t.Days {
		for c, v := range d.cells() {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+4)
			if c == 0 {
				_ = f.SetCellValue(sheetName, cell, d.Number)
				continue
			}
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}
	return f.Write(w)
}

// WritePDF renders an A4 page with a bordered table.
func (t *Table) WritePDF(w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(t.title(), false)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, t.title())
	pdf.Ln(12)

	widths := []float64{15, 30, 30, 30, 30}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range header {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, d := range t.Days {
		for i, c := range d.cells() {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}
