package writer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookgo/atomicfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"satcatflow/models"
)

// ParquetRecord is the column layout of the parquet output.
type ParquetRecord struct {
	InternationalDesignator string  `parquet:"name=intldes, type=BYTE_ARRAY, convertedtype=UTF8"`
	CatalogID               int64   `parquet:"name=norad_cat_id, type=INT64"`
	ObjectType              string  `parquet:"name=object_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name                    string  `parquet:"name=satname, type=BYTE_ARRAY, convertedtype=UTF8"`
	Country                 string  `parquet:"name=country, type=BYTE_ARRAY, convertedtype=UTF8"`
	LaunchDate              string  `parquet:"name=launch, type=BYTE_ARRAY, convertedtype=UTF8"`
	LaunchYear              int32   `parquet:"name=launch_year, type=INT32"`
	CurrentFlag             string  `parquet:"name=current, type=BYTE_ARRAY, convertedtype=UTF8"`
	PeriodMinutes           float64 `parquet:"name=period, type=DOUBLE"`
	InclinationDegrees      float64 `parquet:"name=inclination, type=DOUBLE"`
	ApogeeKm                float64 `parquet:"name=apogee, type=DOUBLE"`
	PerigeeKm               float64 `parquet:"name=perigee, type=DOUBLE"`
	Eccentricity            float64 `parquet:"name=eccentricity, type=DOUBLE"`
	SemiMajorAxisKm         float64 `parquet:"name=semi_major_axis, type=DOUBLE"`
	SemiMinorAxisKm         float64 `parquet:"name=semi_minor_axis, type=DOUBLE"`
	Degraded                bool    `parquet:"name=degraded, type=BOOLEAN"`
}

func toParquet(rec models.OrbitalRecord) ParquetRecord {
	return ParquetRecord{
		InternationalDesignator: rec.InternationalDesignator,
		CatalogID:               int64(rec.CatalogID),
		ObjectType:              rec.ObjectType,
		Name:                    rec.Name,
		Country:                 rec.Country,
		LaunchDate:              rec.LaunchDate,
		LaunchYear:              int32(rec.LaunchYear),
		CurrentFlag:             rec.CurrentFlag,
		PeriodMinutes:           rec.PeriodMinutes,
		InclinationDegrees:      rec.InclinationDegrees,
		ApogeeKm:                rec.ApogeeKm,
		PerigeeKm:               rec.PerigeeKm,
		Eccentricity:            rec.Eccentricity,
		SemiMajorAxisKm:         rec.SemiMajorAxisKm,
		SemiMinorAxisKm:         rec.SemiMinorAxisKm,
		Degraded:                rec.Degraded,
	}
}

// memoryFileWriter implements source.ParquetFile over an in-memory buffer.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

// Seek is only used by the writer to learn the current offset.
func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// ParquetSink buffers the encoded file in memory and writes it on Close.
type ParquetSink struct {
	path   string
	fw     *memoryFileWriter
	pw     *pqwriter.ParquetWriter
	closed bool
}

func NewParquetSink(path, compression string) (*ParquetSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	fw := newMemoryFileWriter()
	pw, err := pqwriter.NewParquetWriter(fw, new(ParquetRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch compression {
	case "snappy", "":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "none":
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	default:
		return nil, fmt.Errorf("unsupported parquet compression %q", compression)
	}

	return &ParquetSink{path: path, fw: fw, pw: pw}, nil
}

func (s *ParquetSink) Name() string { return "parquet" }

func (s *ParquetSink) Path() string { return s.path }

func (s *ParquetSink) Write(rec models.OrbitalRecord) error {
	if s.closed {
		return fmt.Errorf("write after close")
	}
	if err := s.pw.Write(toParquet(rec)); err != nil {
		return fmt.Errorf("failed to write parquet record: %w", err)
	}
	return nil
}

func (s *ParquetSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	out, err := atomicfile.New(s.path, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if _, err := out.Write(s.fw.Bytes()); err != nil {
		out.Abort()
		return err
	}
	return out.Close()
}
