// Package reaper periodically deletes expired sessions so the session table
// does not grow without bound. Expired sessions are already rejected by the
// validator; reaping only reclaims space.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/logging"
)

// DefaultInterval is the sweep period used when none is configured.
const DefaultInterval = time.Hour

// ErrLeaseHeld is returned by RunOnce when another replica owns this tick.
var ErrLeaseHeld = errors.New("reaper lease held elsewhere")

// Store deletes sessions whose expiry is before now.
type Store interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Lease grants the right to reap for ttl. Acquire reports false when another
// holder owns it.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
}

type Reaper struct {
	store    Store
	interval time.Duration
	logger   logging.Logger
	lease    Lease
	timeout  time.Duration
	now      func() time.Time
}

type Option func(*Reaper)

// WithLease makes every tick conditional on acquiring l.
func WithLease(l Lease) Option {
	return func(r *Reaper) { r.lease = l }
}

// WithTimeout bounds each sweep's storage call.
func WithTimeout(d time.Duration) Option {
	return func(r *Reaper) { r.timeout = d }
}

// WithClock replaces the time source used for the expiry cutoff.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) { r.now = now }
}

// New builds a Reaper. A non-positive interval falls back to DefaultInterval.
func New(store Store, interval time.Duration, logger logging.Logger, opts ...Option) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Reaper{
		store:    store,
		interval: interval,
		logger:   logger.With("component", "reaper"),
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run sweeps once per interval until ctx is cancelled. A failed sweep is
// logged and the schedule continues.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info(ctx, "session reaper started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			r.logger.Info(context.WithoutCancel(ctx), "session reaper stopped")
			return
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	n, err := r.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrLeaseHeld):
		r.logger.Debug(ctx, "sweep skipped, lease held elsewhere")
	case err != nil:
		r.logger.Error(ctx, "expired session sweep failed", "error", err)
	default:
		r.logger.Info(ctx, "expired sessions deleted", "count", n)
	}
}

// RunOnce performs a single sweep and returns how many sessions it deleted.
func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	if r.lease != nil {
		ok, err := r.lease.Acquire(ctx, r.interval)
		if err != nil {
			return 0, fmt.Errorf("lease error: %w", err)
		}
		if !ok {
			return 0, ErrLeaseHeld
		}
	}

	ctx, cancel := dbx.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.store.DeleteExpired(ctx, r.now())
}
