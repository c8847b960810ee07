// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/storefront/internal/breaker"
	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
)

// WriteErrorKind classifies an AuditWriteError.
type WriteErrorKind string

const (
	// WriteErrBufferFull means the record was rejected before queueing.
	WriteErrBufferFull WriteErrorKind = "buffer_full"

	// WriteErrPersist means the store (or its circuit breaker) refused the record.
	WriteErrPersist WriteErrorKind = "persist"
)

// ErrBufferFull is wrapped by AuditWriteError when the buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

// AuditWriteError describes a record that was not persisted. It unwraps to
// ErrBufferFull or to the store or breaker error.
type AuditWriteError struct {
	Kind     WriteErrorKind
	RecordID string
	Err      error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("audit write %s (record %s): %v", e.Kind, e.RecordID, e.Err)
}

func (e *AuditWriteError) Unwrap() error {
	return e.Err
}

// WriteResult is returned synchronously by Log. Queued is true once the record
// is in the buffer; persistence outcome is reported later through OnResult
// and the operational log, never to the caller.
type WriteResult struct {
	Queued bool
	Err    *AuditWriteError
}

// Recorder is what request handlers depend on.
type Recorder interface {
	Log(ctx context.Context, rec *Record) WriteResult
}

// WriterConfig sizes the buffer and bounds each store write. Zero values
// fall back to DefaultWriterConfig.
type WriterConfig struct {
	BufferSize   int
	WriteTimeout time.Duration
	Breaker      breaker.Config
}

func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
		Breaker:      breaker.DefaultConfig("audit-store"),
	}
}

// Writer decouples audit persistence from the request path with a bounded
// buffer drained by RunWithContext.
type Writer struct {
	store    Store
	cfg      WriterConfig
	buf      chan *Record
	cb       *gobreaker.CircuitBreaker[struct{}]
	onResult func(*Record, *AuditWriteError)
}

// NewWriter returns a Writer for store. Nothing is persisted until
// RunWithContext is started.
func NewWriter(store Store, cfg WriterConfig) *Writer {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = breaker.DefaultConfig("audit-store")
	}
	return &Writer{
		store: store,
		cfg:   cfg,
		buf:   make(chan *Record, cfg.BufferSize),
		cb:    breaker.New(cfg.Breaker),
	}
}

// OnResult registers a callback invoked after every persistence attempt.
// Must be called before RunWithContext.
func (w *Writer) OnResult(fn func(*Record, *AuditWriteError)) {
	w.onResult = fn
}

// Pending is the number of buffered records.
func (w *Writer) Pending() int {
	return len(w.buf)
}

// Check fails with ErrBufferFull while the buffer has no free slot, so a
// saturated writer takes the instance out of rotation.
func (w *Writer) Check(context.Context) error {
	if w.Pending() >= cap(w.buf) {
		return &AuditWriteError{Kind: WriteErrBufferFull, Err: ErrBufferFull}
	}
	return nil
}

// Log stamps and enqueues rec without blocking. The ID, timestamp and
// severity are filled when missing.
func (w *Writer) Log(ctx context.Context, rec *Record) WriteResult {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Severity == "" {
		rec.Severity = SeverityInfo
	}

	select {
	case w.buf <- rec:
		metrics.AuditBufferDepth.Set(float64(len(w.buf)))
		return WriteResult{Queued: true}
	default:
		metrics.RecordAuditDrop()
		metrics.RecordAuditLoss(string(WriteErrBufferFull))
		werr := &AuditWriteError{Kind: WriteErrBufferFull, RecordID: rec.ID, Err: ErrBufferFull}
		logging.Ctx(ctx).Warn().
			Str("record_id", rec.ID).
			Str("action", rec.Action).
			Str("entity", rec.Entity).
			Msg("Audit buffer full, dropping record")
		return WriteResult{Err: werr}
	}
}

// RunWithContext persists buffered records until ctx is canceled, then
// drains what is left and returns ctx.Err().
func (w *Writer) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case rec := <-w.buf:
			w.persist(ctx, rec)
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case rec := <-w.buf:
			w.persist(context.Background(), rec)
		default:
			return
		}
	}
}

func (w *Writer) persist(parent context.Context, rec *Record) {
	metrics.AuditBufferDepth.Set(float64(len(w.buf)))

	start := time.Now()
	err := breaker.Run(w.cb, func() error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.cfg.WriteTimeout)
		defer cancel()
		return w.store.Append(ctx, rec)
	})
	metrics.RecordAuditWrite(time.Since(start), err)

	var werr *AuditWriteError
	if err != nil {
		werr = &AuditWriteError{Kind: WriteErrPersist, RecordID: rec.ID, Err: err}
		logging.Error().
			Err(err).
			Str("record_id", rec.ID).
			Str("action", rec.Action).
			Str("entity", rec.Entity).
			Bool("breaker_open", breaker.IsRejected(err)).
			Msg("Failed to persist audit record")
	}
	if w.onResult != nil {
		w.onResult(rec, werr)
	}
}
