package ics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"printcal/internal/config"
	appLog "printcal/internal/log"
	"printcal/internal/model"
)

// Window returns the expansion window around now: from the first day of
// the month six months back to day 31 of the month six months ahead, which
// normalizes past shorter months.
func Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	start := time.Date(n.Year(), n.Month()-6, 1, 0, 0, 0, 0, loc)
	end := time.Date(n.Year(), n.Month()+6, 31, 0, 0, 0, 0, loc)
	return start, end
}

// Resolve fetches, parses and expands every source into one flat event
// list, in source order. Any failing source fails the whole call and no
// events are returned.
func Resolve(ctx context.Context, f *Fetcher, sources []Source, now time.Time, loc *time.Location) ([]model.CalendarEvent, error) {
	if len(sources) == 0 {
		return []model.CalendarEvent{}, nil
	}

	results, errs := f.FetchAll(ctx, sources)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", res.Source.ID, err)
		}
		parsed = append(parsed, events...)
	}

	rangeStart, rangeEnd := Window(now, loc)
	result, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		return nil, err
	}
	return result.Events, nil
}

// Status describes the resolver's last refresh.
type Status struct {
	Connected  bool      `json:"connected"`
	Sources    int       `json:"sources"`
	EventCount int       `json:"event_count"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
}

// Resolver keeps the most recently resolved event list for a set of
// sources. It is safe for concurrent use; refreshes are serialized.
type Resolver struct {
	fetcher *Fetcher
	loc     *time.Location
	now     func() time.Time

	refreshMu sync.Mutex

	mu        sync.RWMutex
	gen       uint64
	sources   []Source
	events    []model.CalendarEvent
	updatedAt time.Time
	lastErr   error
}

// NewResolver creates a Resolver that expands events into loc.
func NewResolver(f *Fetcher, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{
		fetcher: f,
		loc:     loc,
		now:     time.Now,
		events:  []model.CalendarEvent{},
	}
}

// SetSources replaces the source list and drops the current events. Call
// Refresh afterwards to load the new sources. A refresh still running for
// the previous sources discards its result.
func (r *Resolver) SetSources(sources []Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.sources = append([]Source(nil), sources...)
	r.events = []model.CalendarEvent{}
	r.lastErr = nil
	r.updatedAt = time.Time{}
}

// Refresh resolves all sources. On failure the event list is cleared, the
// error is recorded and returned.
func (r *Resolver) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	r.mu.RLock()
	gen := r.gen
	sources := append([]Source(nil), r.sources...)
	r.mu.RUnlock()

	started := time.Now()
	events, err := Resolve(ctx, r.fetcher, sources, r.now(), r.loc)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		appLog.Debug("calendar refresh discarded; sources changed", "sources", len(sources))
		return nil
	}
	r.updatedAt = r.now()
	if err != nil {
		r.events = []model.CalendarEvent{}
		r.lastErr = err
		appLog.Error("calendar refresh failed", err, "sources", len(sources))
		return err
	}
	r.events = events
	r.lastErr = nil
	appLog.Info("calendar refreshed", "sources", len(sources), "events", len(events), "took", time.Since(started))
	return nil
}

// Events returns a copy of the current event list.
func (r *Resolver) Events() []model.CalendarEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.CalendarEvent{}, r.events...)
}

// Err returns the error of the last refresh, if any.
func (r *Resolver) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Status reports the state of the last refresh.
func (r *Resolver) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Status{
		Sources:    len(r.sources),
		EventCount: len(r.events),
		UpdatedAt:  r.updatedAt,
	}
	st.Connected = len(r.sources) > 0 && !r.updatedAt.IsZero() && r.lastErr == nil
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}

// SourcesFromConfig converts the configured feeds into fetch sources.
func SourcesFromConfig(cfg *config.Config) []Source {
	entries := cfg.Sources()
	out := make([]Source, 0, len(entries))
	for _, e := range entries {
		out = append(out, Source{ID: e.ID, URL: e.URL})
	}
	return out
}
