package writer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookgo/atomicfile"

	"satcatflow/models"
)

// JSONSink streams records as a JSON array into a temporary file that
// replaces Path only when the sink is closed.
type JSONSink struct {
	path   string
	file   *atomicfile.File
	buf    *bufio.Writer
	count  int
	closed bool
}

func NewJSONSink(path string) (*JSONSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := atomicfile.New(path, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &JSONSink{path: path, file: f, buf: bufio.NewWriter(f)}
	if _, err := s.buf.WriteString("["); err != nil {
		f.Abort()
		return nil, err
	}
	return s, nil
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Path() string { return s.path }

func (s *JSONSink) Write(rec models.OrbitalRecord) error {
	if s.closed {
		return fmt.Errorf("write after close")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %d: %w", rec.CatalogID, err)
	}
	sep := "\n"
	if s.count > 0 {
		sep = ",\n"
	}
	if _, err := s.buf.WriteString(sep); err != nil {
		return err
	}
	if _, err := s.buf.Write(data); err != nil {
		return err
	}
	s.count++
	return nil
}

// Close terminates the array and atomically moves the file into place.
func (s *JSONSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	tail := "]\n"
	if s.count > 0 {
		tail = "\n]\n"
	}
	if _, err := s.buf.WriteString(tail); err != nil {
		s.file.Abort()
		return err
	}
	if err := s.buf.Flush(); err != nil {
		s.file.Abort()
		return err
	}
	return s.file.Close()
}
