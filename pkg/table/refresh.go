package table

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabula/pkg/event"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// Refresher fetches a new row collection from the supplier and applies it
// through Items.Set. Every refresh takes a generation number; a result that
// arrives after a newer refresh was issued is discarded.
type Refresher[R, C comparable] struct {
	m          *Model[R, C]
	supplier   types.Supplier[R]
	async      atomic.Bool
	dispatch   func(func())
	onError    func(error)
	generation atomic.Uint64

	refreshing *event.Value[bool]
	refreshed  event.Event[[]R]
	failed     event.Event[error]
}

func newRefresher[R, C comparable](m *Model[R, C], opts Options[R, C]) *Refresher[R, C] {
	r := &Refresher[R, C]{
		m:          m,
		supplier:   opts.Supplier,
		dispatch:   opts.Dispatch,
		onError:    opts.OnRefreshError,
		refreshing: event.NewValue(false),
	}
	r.async.Store(opts.AsyncRefresh)
	if r.dispatch == nil {
		r.dispatch = func(fn func()) { fn() }
	}
	return r
}

// Refreshing observes whether a refresh is in flight.
func (r *Refresher[R, C]) Refreshing() event.ValueObserver[bool] { return r.refreshing }

// Refreshed fires with the applied rows after each successful refresh.
func (r *Refresher[R, C]) Refreshed() event.Observer[[]R] { return &r.refreshed }

// Failed fires with each refresh failure, wrapped in ErrRefreshFailure.
func (r *Refresher[R, C]) Failed() event.Observer[error] { return &r.failed }

// SetAsync switches between synchronous and asynchronous refresh.
func (r *Refresher[R, C]) SetAsync(async bool) { r.async.Store(async) }

// Async reports whether refresh runs asynchronously.
func (r *Refresher[R, C]) Async() bool { return r.async.Load() }

// Refresh fetches rows and applies them, then calls onComplete (may be nil)
// with the applied rows. A synchronous refresh returns the failure when no
// error handler is configured; an asynchronous one returns immediately.
func (r *Refresher[R, C]) Refresh(ctx context.Context, onComplete func([]R)) error {
	gen := r.generation.Add(1)
	log := r.m.log.With(zap.String("refresh", requestID()), zap.Uint64("generation", gen))
	r.refreshing.Set(true)

	if !r.async.Load() {
		log.Debug("refresh started", zap.Bool("async", false))
		rows, err := r.fetch(ctx)
		if err != nil {
			return r.fail(log, gen, err, true)
		}
		if err := r.apply(log, gen, rows, onComplete); err != nil {
			return r.fail(log, gen, err, true)
		}
		return nil
	}

	log.Debug("refresh started", zap.Bool("async", true))
	go func() {
		rows, err := r.fetch(ctx)
		r.dispatch(func() {
			if err == nil {
				err = r.apply(log, gen, rows, onComplete)
			}
			if err != nil {
				_ = r.fail(log, gen, err, false)
			}
		})
	}()
	return nil
}

// fetch calls the supplier, turning a panic into an error. With no
// supplier it returns the current rows.
func (r *Refresher[R, C]) fetch(ctx context.Context) (rows []R, err error) {
	if r.supplier == nil {
		return r.m.items.All(), nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("supplier panic: %v", p)
		}
	}()
	return r.supplier(ctx)
}

func (r *Refresher[R, C]) apply(log *zap.Logger, gen uint64, rows []R, onComplete func([]R)) error {
	applied, err := r.m.items.setIf(func() bool { return !r.stale(gen) }, rows)
	if err != nil {
		return err
	}
	if !applied {
		log.Debug("discarding stale refresh result", zap.Uint64("latest", r.generation.Load()))
		return nil
	}
	r.refreshing.Set(false)
	log.Debug("refresh applied", zap.Int("rows", len(rows)))
	r.refreshed.Fire(rows)
	if onComplete != nil {
		onComplete(rows)
	}
	return nil
}

func (r *Refresher[R, C]) fail(log *zap.Logger, gen uint64, err error, sync bool) error {
	if r.stale(gen) {
		log.Debug("discarding stale refresh failure", zap.Error(err))
		return nil
	}
	wrapped := fmt.Errorf("%w: %w", types.ErrRefreshFailure, err)
	r.refreshing.Set(false)
	r.failed.Fire(wrapped)
	switch {
	case r.onError != nil:
		r.onError(wrapped)
		return nil
	case sync:
		return wrapped
	default:
		log.Warn("refresh failed", zap.Error(err))
		return nil
	}
}

func (r *Refresher[R, C]) stale(gen uint64) bool {
	return gen != r.generation.Load()
}

// requestID returns a time-ordered id for log correlation.
func requestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Refresh refreshes the model with its refresher.
func (m *Model[R, C]) Refresh(ctx context.Context) error {
	return m.refresher.Refresh(ctx, nil)
}
