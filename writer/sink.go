package writer

import (
	"errors"
	"fmt"
	"path/filepath"

	"satcatflow/config"
	"satcatflow/logger"
	"satcatflow/models"
)

// Sink receives orbital records in emission order. Close commits whatever
// was written; a sink is closed exactly once.
type Sink interface {
	Name() string
	Path() string
	Write(rec models.OrbitalRecord) error
	Close() error
}

// SinkWriteError wraps a failed write or commit on a sink.
type SinkWriteError struct {
	Sink string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}

// OpenSinks opens the sinks named in cfg.Pipeline.Sinks, in that order. On
// failure the sinks opened so far are closed again.
func OpenSinks(cfg *config.Config) ([]Sink, error) {
	log := logger.GetLogger().WithComponent("sinks")

	sinks := make([]Sink, 0, len(cfg.Pipeline.Sinks))
	for _, kind := range cfg.Pipeline.Sinks {
		var (
			s   Sink
			err error
		)
		switch kind {
		case config.SinkJSON:
			s, err = NewJSONSink(filepath.Join(cfg.Output.Dir, cfg.Output.JSONFile))
		case config.SinkSpreadsheet:
			s, err = NewXLSXSink(filepath.Join(cfg.Output.Dir, cfg.Output.XLSXFile), cfg.Output.XLSXSheet)
		case config.SinkParquet:
			s, err = NewParquetSink(filepath.Join(cfg.Output.Dir, cfg.Output.ParquetFile), cfg.Output.ParquetCompression)
		default:
			err = fmt.Errorf("unknown sink %q", kind)
		}
		if err != nil {
			closeErr := CloseSinks(sinks)
			return nil, errors.Join(&SinkWriteError{Sink: kind, Err: err}, closeErr)
		}
		log.WithFields(logger.Fields{"sink": s.Name(), "path": s.Path()}).Debug("sink opened")
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// CloseSinks closes every sink and returns the joined errors.
func CloseSinks(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, &SinkWriteError{Sink: s.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}
