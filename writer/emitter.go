package writer

import (
	"context"
	"fmt"
	"time"

	"satcatflow/logger"
	"satcatflow/models"
)

// Waiter suspends the caller for a fixed duration.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerWaiter waits on a real timer and returns early with ctx.Err() when
// the context is cancelled.
type TimerWaiter struct{}

func (TimerWaiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Emitter writes records to all sinks in order and pauses after every
// batchSize records so per-record remote calls made in the same loop stay
// under the catalog service's ceiling (20 requests/minute, 200/hour).
// The pause is counter-triggered, never adaptive.
type Emitter struct {
	sinks     []Sink
	batchSize int
	pause     time.Duration
	waiter    Waiter
	log       *logger.Log

	written int
	pauses  int
}

// NewEmitter returns an Emitter. A batchSize below 1 disables pausing; a nil
// waiter means TimerWaiter.
func NewEmitter(sinks []Sink, batchSize int, pause time.Duration, waiter Waiter) *Emitter {
	if waiter == nil {
		waiter = TimerWaiter{}
	}
	return &Emitter{
		sinks:     sinks,
		batchSize: batchSize,
		pause:     pause,
		waiter:    waiter,
		log:       logger.GetLogger(),
	}
}

// Emit writes rec to every sink. When a full batch has already been written
// it first waits for the configured pause, so n records cause
// (n-1)/batchSize pauses. Records already written are never rolled back.
func (e *Emitter) Emit(ctx context.Context, rec models.OrbitalRecord) error {
	if e.batchSize > 0 && e.written > 0 && e.written%e.batchSize == 0 {
		e.log.WithComponent("emitter").WithFields(logger.Fields{
			"written":  e.written,
			"pause_ms": e.pause.Milliseconds(),
		}).Info("rate limit pause")
		if err := e.waiter.Wait(ctx, e.pause); err != nil {
			return fmt.Errorf("rate limit pause interrupted: %w", err)
		}
		e.pauses++
	}

	for _, s := range e.sinks {
		if err := s.Write(rec); err != nil {
			e.log.WithComponent("emitter").WithError(err).WithFields(logger.Fields{
				"sink":         s.Name(),
				"norad_cat_id": rec.CatalogID,
				"written":      e.written,
			}).Error("sink write failed")
			return &SinkWriteError{Sink: s.Name(), Err: err}
		}
	}
	e.written++
	return nil
}

// EmitAll emits records in order and stops at the first error.
func (e *Emitter) EmitAll(ctx context.Context, records []models.OrbitalRecord) error {
	for _, rec := range records {
		if err := e.Emit(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Written returns the number of records written to all sinks.
func (e *Emitter) Written() int { return e.written }

// Pauses returns the number of completed pauses.
func (e *Emitter) Pauses() int { return e.pauses }
