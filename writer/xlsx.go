package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookgo/atomicfile"
	"github.com/xuri/excelize/v2"

	"satcatflow/models"
)

// Display formats per column of models.Columns. Empty means text.
var columnFormats = []string{
	"",      // INTLDES
	"0",     // NORAD_CAT_ID
	"",      // OBJECT_TYPE
	"",      // SATNAME
	"",      // COUNTRY
	"",      // LAUNCH
	"0",     // LAUNCH_YEAR
	"",      // CURRENT
	"0.00",  // PERIOD
	"0.00",  // INCLINATION
	"0.0",   // APOGEE
	"0.0",   // PERIGEE
	"0.000", // ECCENTRICITY
	"0.0",   // SEMI_MAJOR_AXIS
	"0.0",   // SEMI_MINOR_AXIS
}

var columnWidths = []float64{12, 14, 14, 26, 10, 12, 12, 9, 10, 12, 10, 10, 14, 17, 17}

// XLSXSink writes records to one worksheet: a header row followed by one row
// per record.
type XLSXSink struct {
	path   string
	file   *excelize.File
	stream *excelize.StreamWriter
	styles []int
	row    int
	closed bool
}

func NewXLSXSink(path, sheet string) (*XLSXSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if sheet == "" {
		sheet = "Sheet1"
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	styles := make([]int, len(columnFormats))
	for i, format := range columnFormats {
		if format == "" {
			continue
		}
		numFmt := format
		id, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create style %q: %w", format, err)
		}
		styles[i] = id
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open stream writer: %w", err)
	}
	for i, w := range columnWidths {
		if err := sw.SetColWidth(i+1, i+1, w); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	s := &XLSXSink{path: path, file: f, stream: sw, styles: styles}

	header := make([]interface{}, len(models.Columns))
	for i, c := range models.Columns {
		header[i] = c
	}
	if err := s.setRow(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return s, nil
}

func (s *XLSXSink) Name() string { return "spreadsheet" }

func (s *XLSXSink) Path() string { return s.path }

func (s *XLSXSink) Write(rec models.OrbitalRecord) error {
	if s.closed {
		return fmt.Errorf("write after close")
	}
	values := rec.Row()
	row := make([]interface{}, len(values))
	for i, v := range values {
		if s.styles[i] == 0 {
			row[i] = v
			continue
		}
		row[i] = excelize.Cell{StyleID: s.styles[i], Value: v}
	}
	return s.setRow(row)
}

func (s *XLSXSink) setRow(values []interface{}) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.stream.SetRow(cell, values)
}

// Close flushes the sheet and atomically writes the workbook to Path.
func (s *XLSXSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.file.Close()

	if err := s.stream.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	out, err := atomicfile.New(s.path, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if _, err := s.file.WriteTo(out); err != nil {
		out.Abort()
		return fmt.Errorf("write workbook: %w", err)
	}
	return out.Close()
}
