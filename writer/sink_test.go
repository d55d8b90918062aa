package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xuri/excelize/v2"

	"satcatflow/config"
	"satcatflow/models"
)

func sample() models.OrbitalRecord {
	return models.OrbitalRecord{
		InternationalDesignator: "20-001A",
		CatalogID:               45000,
		ObjectType:              "PAYLOAD",
		Name:                    "STARLINK-1130",
		Country:                 "US",
		LaunchDate:              "2020-01-07",
		LaunchYear:              2020,
		CurrentFlag:             "Y",
		PeriodMinutes:           95.591,
		InclinationDegrees:      53.054,
		ApogeeKm:                550,
		PerigeeKm:               540,
		Eccentricity:            0.009174311926605505,
		SemiMajorAxisKm:         545,
		SemiMinorAxisKm:         544.9770631,
	}
}

func TestJSONSinkEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "empty.json")
	s, err := NewJSONSink(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var out []models.OrbitalRecord
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("not a json array: %v (%q)", err, data)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty array, got %v", out)
	}
}

func TestJSONSinkWritesArrayInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.json")
	s, err := NewJSONSink(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	degraded := sample()
	degraded.CatalogID = 45001
	degraded.Degraded = true
	for _, r := range []models.OrbitalRecord{sample(), degraded} {
		if err := s.Write(r); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file must not appear before close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Write(sample()); err == nil {
		t.Fatal("expected error writing after close")
	}

	var out []models.OrbitalRecord
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("not a json array: %v", err)
	}
	if len(out) != 2 || out[0] != sample() || out[1] != degraded {
		t.Fatalf("unexpected contents %+v", out)
	}
}

func TestXLSXSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.xlsx")
	s, err := NewXLSXSink(path, "Satellites")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Write(sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Satellites")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	for i, col := range models.Columns {
		if rows[0][i] != col {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	want := map[int]string{
		1:  "45000",
		6:  "2020",
		8:  "95.59",
		9:  "53.05",
		10: "550.0",
		12: "0.009",
		14: "545.0",
	}
	for i, v := range want {
		if rows[1][i] != v {
			t.Errorf("%s = %q, want %q", models.Columns[i], rows[1][i], v)
		}
	}
}

func TestXLSXSinkEmptyHasHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	s, err := NewXLSXSink(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != len(models.Columns) {
		t.Fatalf("expected only the header row, got %v", rows)
	}
}

func TestParquetSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.parquet")
	s, err := NewParquetSink(path, "snappy")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Write(sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PAR1")) || !bytes.HasSuffix(data, []byte("PAR1")) {
		t.Fatalf("output is not a parquet file (%d bytes)", len(data))
	}
}

func TestParquetSinkRejectsUnknownCompression(t *testing.T) {
	if _, err := NewParquetSink(filepath.Join(t.TempDir(), "x.parquet"), "zstd-ish"); err == nil {
		t.Fatal("expected error for unknown compression")
	}
}

func TestOpenSinksFollowsConfiguredOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Pipeline.Sinks = []string{config.SinkSpreadsheet, config.SinkJSON}

	sinks, err := OpenSinks(&cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(sinks) != 2 || sinks[0].Name() != "spreadsheet" || sinks[1].Name() != "json" {
		t.Fatalf("unexpected sinks %v", sinks)
	}
	if err := CloseSinks(sinks); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, s := range sinks {
		if _, err := os.Stat(s.Path()); err != nil {
			t.Fatalf("%s not committed: %v", s.Path(), err)
		}
	}
}

func TestOpenSinksUnknownKind(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Pipeline.Sinks = []string{config.SinkJSON, "csv"}

	_, err := OpenSinks(&cfg)
	var sinkErr *SinkWriteError
	if !errors.As(err, &sinkErr) || sinkErr.Sink != "csv" {
		t.Fatalf("expected SinkWriteError for csv, got %v", err)
	}
}

type fakePutter struct {
	keys   []string
	bodies map[string][]byte
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	if f.bodies == nil {
		f.bodies = map[string][]byte{}
	}
	f.keys = append(f.keys, *in.Key)
	f.bodies[*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func TestUploaderKeysAndBodies(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "starlink-track.json")
	if err := os.WriteFile(file, []byte("[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	putter := &fakePutter{}
	u := NewUploaderWithClient(putter, "satcat-exports", "/daily/", "1.0.0")
	if err := u.Upload(context.Background(), "run-1", []string{file}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(putter.keys) != 1 || putter.keys[0] != "daily/run-1/starlink-track.json" {
		t.Fatalf("unexpected keys %v", putter.keys)
	}
	if string(putter.bodies[putter.keys[0]]) != "[]\n" {
		t.Fatalf("unexpected body %q", putter.bodies[putter.keys[0]])
	}
}

func TestUploaderFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.json")
	if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	u := NewUploaderWithClient(&fakePutter{err: errors.New("denied")}, "b", "", "dev")
	if err := u.Upload(context.Background(), "r", []string{file}); err == nil {
		t.Fatal("expected upload error")
	}
}
