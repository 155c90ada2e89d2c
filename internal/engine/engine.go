// Package engine orchestrates ingestion, categorization and analysis over one
// profile's ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/audit"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/metrics"
	"github.com/Veraticus/the-ledger-must-balance/internal/pattern"
	"github.com/Veraticus/the-ledger-must-balance/internal/recurring"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/transfer"
)

// Config holds the analysis tunables of an engine.
type Config struct {
	Audit     audit.Config
	Suggest   pattern.SuggestConfig
	Transfer  transfer.Config
	Recurring recurring.Config
	Retry     common.RetryOptions
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Audit:     audit.DefaultConfig(),
		Suggest:   pattern.DefaultSuggestConfig(),
		Transfer:  transfer.DefaultConfig(),
		Recurring: recurring.DefaultConfig(),
		Retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
		},
	}
}

// Engine is bound to exactly one profile's storage. Mutating operations are
// serialized and each runs inside a single database transaction.
type Engine struct {
	storage service.Storage
	metrics metrics.Recorder
	profile string
	config  Config
	mu      sync.Mutex
}

// Option customizes an Engine.
type Option func(*Engine)

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// New creates an engine over storage for the named profile.
func New(storage service.Storage, profile string, opts ...Option) *Engine {
	e := &Engine{
		storage: storage,
		profile: profile,
		config:  DefaultConfig(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Profile returns the profile name the engine serves.
func (e *Engine) Profile() string {
	return e.profile
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Close closes the underlying storage.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storage.Close()
}

// write runs fn inside one transaction while holding the write lock. The
// whole attempt is retried when the database reports it is busy, so fn must
// reset any state it accumulates.
func (e *Engine) write(ctx context.Context, fn func(tx service.Transaction) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return common.WithRetry(ctx, func() error {
		tx, err := e.storage.BeginTx(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	}, e.config.Retry)
}

// read runs fn against one read-only transaction so every query sees the
// same snapshot. It neither takes the write mutex nor waits for writers.
func (e *Engine) read(ctx context.Context, fn func(q service.Store) error) error {
	tx, err := e.storage.BeginReadTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

// finish records metrics and logs for one operation and normalizes its error.
func (e *Engine) finish(op string, start time.Time, err error, fields common.Fields) error {
	elapsed := time.Since(start)
	if fields == nil {
		fields = common.Fields{}
	}
	fields["profile"] = e.profile
	fields["operation"] = op
	fields["duration_ms"] = elapsed.Milliseconds()

	if err != nil {
		e.metrics.ObserveOperation(e.profile, op, metrics.StatusError, elapsed)
		out := common.AsError(err, fmt.Sprintf("%s failed", op))
		if common.KindOf(out) == common.KindInternal {
			common.LogError(err, "Engine operation failed", fields)
		} else {
			common.LogDebug("Engine operation rejected: "+out.Error(), fields)
		}
		return out
	}

	e.metrics.ObserveOperation(e.profile, op, metrics.StatusOK, elapsed)
	for k, v := range fields {
		if n, ok := v.(int); ok {
			e.metrics.CountRows(e.profile, op, k, n)
		}
	}
	common.LogInfo("Engine operation completed", fields)
	return nil
}

// notFound converts a storage miss into a NotFound error naming what was missing.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, common.ErrNotFound) {
		var e *common.Error
		if !errors.As(err, &e) {
			return common.NotFoundf(format, args...)
		}
	}
	return err
}
