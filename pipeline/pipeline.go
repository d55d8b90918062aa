package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"satcatflow/config"
	"satcatflow/internal/metrics"
	"satcatflow/logger"
	"satcatflow/models"
	"satcatflow/processor"
	"satcatflow/reader/spacetrack"
	"satcatflow/writer"
)

// ArtifactUploader copies finished sink files to remote storage.
type ArtifactUploader interface {
	Upload(ctx context.Context, runID string, files []string) error
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Fetched    int
	Processed  int
	WellFormed int
	Degraded   int
	Written    int
	Pauses     int
	Files      []string
	Duration   time.Duration
}

func (s Summary) stats() logger.RunStats {
	return logger.RunStats{
		RunID:      s.RunID,
		Fetched:    s.Fetched,
		Processed:  s.Processed,
		WellFormed: s.WellFormed,
		Degraded:   s.Degraded,
		Written:    s.Written,
		Pauses:     s.Pauses,
		Duration:   s.Duration,
	}
}

// Pipeline carries everything a run needs: configuration, the normalizer,
// the pause waiter and the optional uploader and metrics. Nothing is kept at
// package scope.
type Pipeline struct {
	cfg        *config.Config
	normalizer *processor.Normalizer
	waiter     writer.Waiter
	uploader   ArtifactUploader
	metrics    *metrics.RunMetrics
	runID      string
	now        func() time.Time
	log        *logger.Log
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithWaiter replaces the timer used for rate limit pauses.
func WithWaiter(w writer.Waiter) Option {
	return func(p *Pipeline) { p.waiter = w }
}

// WithUploader uploads sink files after a successful run.
func WithUploader(u ArtifactUploader) Option {
	return func(p *Pipeline) { p.uploader = u }
}

// WithMetrics records run metrics into m.
func WithMetrics(m *metrics.RunMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// New builds a pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		normalizer: processor.NewNormalizer(cfg.Pipeline.Seed),
		runID:      uuid.NewString(),
		now:        time.Now,
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil && cfg.Metrics.PushgatewayURL != "" {
		p.metrics = metrics.NewRunMetrics()
	}
	return p
}

// RunID returns the id attached to this pipeline's logs, metrics and
// uploaded objects.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run logs in, fetches the catalog, keeps the first MaxRecords records,
// normalizes them and emits each to every configured sink. The catalog
// session is closed on every return path. Sinks are opened only after a
// successful fetch and are always closed, so records written before a
// failure stay committed.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := p.now()
	sum := Summary{RunID: p.runID}
	log := p.log.WithComponent("pipeline").WithFields(logger.Fields{"run_id": p.runID})

	log.WithFields(logger.Fields{
		"max_records": p.cfg.Pipeline.MaxRecords,
		"sinks":       p.cfg.Pipeline.Sinks,
		"batch_size":  p.cfg.Pipeline.RateLimitBatchSize,
		"pause":       p.cfg.Pipeline.RateLimitPause.String(),
	}).Info("starting run")

	err := spacetrack.WithSession(ctx, p.cfg.SpaceTrack, func(ctx context.Context, s *spacetrack.Session) error {
		if err := s.Login(ctx); err != nil {
			return err
		}
		raw, err := s.FetchCatalog(ctx)
		if err != nil {
			return err
		}
		sum.Fetched = len(raw)
		return p.emit(ctx, processor.Take(raw, p.cfg.Pipeline.MaxRecords), &sum)
	})

	if err == nil && p.uploader != nil && len(sum.Files) > 0 {
		if uerr := p.uploader.Upload(ctx, p.runID, sum.Files); uerr != nil {
			err = fmt.Errorf("upload artifacts: %w", uerr)
		}
	}

	sum.Duration = p.now().Sub(start)
	p.report(ctx, sum, err == nil)

	if err != nil {
		log.WithError(err).WithFields(failureFields(err)).Error("run failed")
		return sum, err
	}

	log.WithFields(logger.Fields{
		"written":  sum.Written,
		"degraded": sum.Degraded,
		"files":    sum.Files,
	}).Info("completed session")
	return sum, nil
}

func (p *Pipeline) emit(ctx context.Context, raw []models.RawRecord, sum *Summary) error {
	log := p.log.WithComponent("pipeline").WithFields(logger.Fields{"run_id": p.runID})

	sinks, err := writer.OpenSinks(p.cfg)
	if err != nil {
		return err
	}

	em := writer.NewEmitter(sinks, p.cfg.Pipeline.RateLimitBatchSize, p.cfg.Pipeline.RateLimitPause, p.waiter)

	var emitErr error
	for _, r := range raw {
		res := p.normalizer.Normalize(r)
		sum.Processed++
		if res.Degraded() {
			sum.Degraded++
			log.WithFields(logger.Fields{
				"norad_cat_id": res.Record.CatalogID,
				"intldes":      res.Record.InternationalDesignator,
				"reason":       res.Reason,
			}).Debug("record degraded")
		} else {
			sum.WellFormed++
		}
		if emitErr = em.Emit(ctx, res.Record); emitErr != nil {
			break
		}
	}
	sum.Written = em.Written()
	sum.Pauses = em.Pauses()

	closeErr := writer.CloseSinks(sinks)
	if closeErr == nil {
		for _, s := range sinks {
			sum.Files = append(sum.Files, s.Path())
		}
	}
	logger.LogDataFlowEntry(log, "normalizer", "sinks", sum.Written, "orbital_records")
	return errors.Join(emitErr, closeErr)
}

func (p *Pipeline) report(ctx context.Context, sum Summary, succeeded bool) {
	stats := sum.stats()
	logger.LogRunReport(ctx, p.log, stats)
	metrics.ReportQuality(p.log, stats)

	if p.metrics == nil {
		return
	}
	p.metrics.Observe(stats, succeeded, p.now())
	if url := p.cfg.Metrics.PushgatewayURL; url != "" {
		if err := p.metrics.Push(ctx, url, p.cfg.Metrics.Job, p.runID); err != nil {
			p.log.WithComponent("metrics").WithError(err).Warn("metrics push failed")
		}
	}
}

// failureFields names the step that failed and the remote status when there
// is one.
func failureFields(err error) logger.Fields {
	var (
		authErr  *spacetrack.AuthError
		fetchErr *spacetrack.FetchError
		sinkErr  *writer.SinkWriteError
	)
	switch {
	case errors.As(err, &authErr):
		return logger.Fields{"operation": "login", "status": authErr.Status}
	case errors.As(err, &fetchErr):
		return logger.Fields{"operation": "fetch_catalog", "status": fetchErr.Status}
	case errors.As(err, &sinkErr):
		return logger.Fields{"operation": "emit", "sink": sinkErr.Sink}
	default:
		return logger.Fields{"operation": "run"}
	}
}
