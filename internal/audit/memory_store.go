// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Used for development and
// tests; data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *rec)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if s.records[i].ID == id {
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Query(_ context.Context, filter Filter, page PageRequest) (*Page, error) {
	page = page.normalize()

	s.mu.RLock()
	matched := s.matching(&filter)
	s.mu.RUnlock()

	less := recordLess(page.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		if page.SortAsc {
			return less(&matched[i], &matched[j])
		}
		return less(&matched[j], &matched[i])
	})

	total := int64(len(matched))
	start := page.offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return newPage(matched[start:end], total, page), nil
}

func (s *MemoryStore) AggregateByDimension(_ context.Context, dim Dimension, filter Filter) ([]Bucket, error) {
	if !dim.Valid() {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	s.mu.RLock()
	matched := s.matching(&filter)
	s.mu.RUnlock()

	counts := make(map[string]int64)
	for i := range matched {
		counts[dimensionValue(&matched[i], dim)]++
	}
	return sortBuckets(counts), nil
}

func (s *MemoryStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var removed int64
	for i := range s.records {
		if s.records[i].Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s.records[i])
	}
	s.records = kept
	return removed, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// matching must be called with at least a read lock held.
func (s *MemoryStore) matching(f *Filter) []Record {
	out := make([]Record, 0, len(s.records))
	for i := range s.records {
		if f.matches(&s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out
}

func (f *Filter) matches(r *Record) bool {
	if f.StartTime != nil && r.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && r.Timestamp.After(*f.EndTime) {
		return false
	}
	if f.ActorID != "" && r.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if f.Entity != "" && r.Entity != f.Entity {
		return false
	}
	if f.MinSeverity != "" && r.Severity.Rank() < f.MinSeverity.Rank() {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.ActorName), q) &&
			!strings.Contains(strings.ToLower(r.ActorEmail), q) {
			return false
		}
	}
	return true
}

func recordLess(field string) func(a, b *Record) bool {
	switch field {
	case SortAction:
		return func(a, b *Record) bool { return a.Action < b.Action }
	case SortEntity:
		return func(a, b *Record) bool { return a.Entity < b.Entity }
	case SortActorName:
		return func(a, b *Record) bool { return a.ActorName < b.ActorName }
	case SortSeverity:
		return func(a, b *Record) bool { return a.Severity.Rank() < b.Severity.Rank() }
	default:
		return func(a, b *Record) bool { return a.Timestamp.Before(b.Timestamp) }
	}
}

func dimensionValue(r *Record, dim Dimension) string {
	switch dim {
	case DimensionAction:
		return r.Action
	case DimensionEntity:
		return r.Entity
	case DimensionActor:
		return r.ActorID
	case DimensionSeverity:
		return string(r.Severity)
	}
	return ""
}

func sortBuckets(counts map[string]int64) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for k, v := range counts {
		out = append(out, Bucket{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
