// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
)

// Retention periodically purges records older than a fixed age.
type Retention struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewRetention(store Store, days int, interval time.Duration) *Retention {
	return &Retention{
		store:    store,
		maxAge:   time.Duration(days) * 24 * time.Hour,
		interval: interval,
		now:      time.Now,
	}
}

// PurgeOnce removes records older than the retention window.
func (r *Retention) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.maxAge)
	n, err := r.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.AuditRecordsPurged.Add(float64(n))
	return n, nil
}

// RunWithContext purges immediately and then on every interval tick.
func (r *Retention) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.PurgeOnce(ctx)
		switch {
		case err != nil:
			logging.Error().Err(err).Msg("Audit retention purge failed")
		case n > 0:
			logging.Info().Int64("count", n).Dur("max_age", r.maxAge).Msg("Purged expired audit records")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
