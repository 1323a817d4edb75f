// Package scheduler reloads the fallback usage table on a fixed schedule,
// keeps the result cache consistent with it and warns when the table goes stale.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/giygas/medlookup-api/data"
	"github.com/giygas/medlookup-api/interfaces"
	"github.com/giygas/medlookup-api/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	reloadTimes   = "06:00;18:00"
	staleAfter    = 25 * time.Hour
	warmupTimeout = 30 * time.Second
	monitorPeriod = time.Hour
)

// CachePurger drops every cached lookup result
type CachePurger interface {
	PurgeCache()
}

// Options configures the optional parts of the scheduler
type Options struct {
	// Parser reads override entries. Nil keeps the built-in table and disables reloads.
	Parser interfaces.Parser
	// Cache is purged after every applied reload.
	Cache CachePurger
	// Warmer, when set, looks up every fallback drug after a reload.
	Warmer interfaces.Lookuper
}

// Scheduler handles fallback table reloads and staleness monitoring
type Scheduler struct {
	store     interfaces.FallbackStore
	parser    interfaces.Parser
	cache     CachePurger
	warmer    interfaces.Lookuper
	scheduler *gocron.Scheduler

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(store interfaces.FallbackStore, opts Options) *Scheduler {
	return &Scheduler{
		store:     store,
		parser:    opts.Parser,
		cache:     opts.Cache,
		warmer:    opts.Warmer,
		scheduler: gocron.NewScheduler(time.Local),
		stop:      make(chan struct{}),
	}
}

// ReloadsEnabled reports whether an override source is configured
func (s *Scheduler) ReloadsEnabled() bool {
	return s.parser != nil
}

// Start loads the table once and schedules reloads at 06:00 and 18:00.
// A failing source at startup is logged and the store keeps its current entries.
func (s *Scheduler) Start() error {
	if !s.ReloadsEnabled() {
		logging.Info("No fallback table source configured, using built-in entries",
			"entries", len(s.store.GetUsages()))
		s.startWarmup()
		return nil
	}

	if err := s.reload(); err != nil {
		logging.Error("Initial fallback table load failed, keeping current entries", "error", err)
		s.startWarmup()
	}

	_, err := s.scheduler.Every(1).Days().At(reloadTimes).Do(func() {
		if err := s.reload(); err != nil {
			logging.Error("Failed to reload fallback table", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule reloads", "error", err)
		return fmt.Errorf("failed to schedule reloads: %w", err)
	}

	s.scheduler.StartAsync()
	s.startStaleMonitoring(monitorPeriod)

	return nil
}

// Stop stops scheduled reloads, the staleness monitor and any running warmup
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// reload reads the override source and swaps the merged table in. The
// previous table stays in place when the source fails.
func (s *Scheduler) reload() error {
	if !s.store.BeginUpdate() {
		logging.Info("Fallback table reload already in progress, skipping...")
		return nil
	}

	start := time.Now()
	overrides, err := s.parser.ParseUsages()
	if err != nil {
		s.store.EndUpdate()
		return fmt.Errorf("failed to parse fallback table: %w", err)
	}

	merged := data.MergeUsages(overrides)
	s.store.UpdateUsages(merged)
	s.store.EndUpdate()

	if s.cache != nil {
		s.cache.PurgeCache()
	}

	logging.Info("Fallback table reload completed",
		"duration", time.Since(start).String(),
		"overrides", len(overrides),
		"entries", len(merged),
	)

	s.startWarmup()
	return nil
}

// startWarmup runs warm in the background so a slow upstream never delays
// startup or the reload job
func (s *Scheduler) startWarmup() {
	if s.warmer == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.warm()
	}()
}

// warm runs one lookup per fallback drug so the cache holds their results
func (s *Scheduler) warm() int {
	usages := s.store.GetUsages()
	names := make([]string, 0, len(usages))
	for name := range usages {
		names = append(names, name)
	}
	slices.Sort(names)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	warmed := 0
	for _, name := range names {
		if ctx.Err() != nil {
			logging.Info("Cache warmup interrupted", "warmed", warmed)
			return warmed
		}

		lookupCtx, lookupCancel := context.WithTimeout(ctx, warmupTimeout)
		outcome, err := s.warmer.Lookup(lookupCtx, name)
		lookupCancel()
		if err != nil {
			logging.Warn("Cache warmup lookup rejected", "name", name, "error", err)
			continue
		}
		logging.Debug("Cache warmup lookup", "name", name, "status", outcome.Status.String())
		warmed++
	}

	logging.Info("Cache warmup completed", "warmed", warmed, "duration", time.Since(start).String())
	return warmed
}

// checkStale logs a warning when the last reload is older than staleAfter.
// A table that never loaded from its source ages from server start.
func (s *Scheduler) checkStale(now time.Time) bool {
	lastUpdate := s.store.GetLastUpdated()
	if lastUpdate.IsZero() {
		start := s.store.GetServerStartTime()
		if start.IsZero() || now.Sub(start) <= staleAfter {
			return false
		}
		logging.Warn("Fallback table source hasn't loaded since startup",
			"server_start", start.Format(time.RFC3339))
		return true
	}
	if now.Sub(lastUpdate) <= staleAfter {
		return false
	}
	logging.Warn("Fallback table hasn't been reloaded in over 25 hours",
		"last_update", lastUpdate.Format(time.RFC3339))
	return true
}

func (s *Scheduler) startStaleMonitoring(period time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				s.checkStale(now)
			}
		}
	}()
}
