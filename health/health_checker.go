// Package health reports whether the lookup service can currently answer.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/medlookup-api/interfaces"
	"github.com/giygas/medlookup-api/upstream"
)

const staleTableAge = 48 * time.Hour

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store          interfaces.FallbackStore
	upstreams      interfaces.UpstreamMonitor
	reloadsEnabled bool
	now            func() time.Time
}

// NewHealthChecker creates a health checker. reloadsEnabled tells whether the
// fallback table has an external source whose age is worth watching.
func NewHealthChecker(store interfaces.FallbackStore, upstreams interfaces.UpstreamMonitor, reloadsEnabled bool) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		store:          store,
		upstreams:      upstreams,
		reloadsEnabled: reloadsEnabled,
		now:            time.Now,
	}
}

// HealthCheck returns the status, the details for /health and the HTTP code.
//
// unhealthy (503): the identity endpoint breaker is open, so every lookup fails.
// degraded (200): another breaker is open, the table is empty, or its external
// source has not loaded for two days (counted from server start when it never
// loaded); lookups answer with defaults.
func (h *HealthCheckerImpl) HealthCheck() (status string, details map[string]any, httpStatus int) {
	states := map[string]string{}
	if h.upstreams != nil {
		states = h.upstreams.UpstreamStates()
	}

	entries := len(h.store.GetUsages())
	lastUpdate := h.store.GetLastUpdated()
	isUpdating := h.store.IsUpdating()

	openBreakers := 0
	for _, state := range states {
		if state != "closed" {
			openBreakers++
		}
	}

	// A table that never loaded ages from server start.
	since := lastUpdate
	if since.IsZero() {
		since = h.store.GetServerStartTime()
	}
	stale := h.reloadsEnabled && !since.IsZero() && h.now().Sub(since) > staleTableAge

	switch {
	case states[upstream.EndpointRxcui] == "open":
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	case openBreakers > 0 || entries == 0 || stale:
		status, httpStatus = "degraded", http.StatusOK
	default:
		status, httpStatus = "healthy", http.StatusOK
	}

	details = map[string]any{
		"upstreams": states,
		"fallback_table": map[string]any{
			"entries":     entries,
			"is_updating": isUpdating,
			"last_update": formatTime(lastUpdate),
			"age_hours":   ageHours(h.now(), lastUpdate),
			"next_update": h.CalculateNextUpdate().Format(time.RFC3339),
		},
	}
	if start := h.store.GetServerStartTime(); !start.IsZero() {
		details["uptime_seconds"] = math.Round(h.now().Sub(start).Seconds())
	}

	return status, details, httpStatus
}

// CalculateNextUpdate returns the next scheduled table reload (06:00 or 18:00 local)
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	now := h.now()

	sixAM := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location())
	sixPM := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())

	switch {
	case now.Before(sixAM):
		return sixAM
	case now.Before(sixPM):
		return sixPM
	default:
		return sixAM.AddDate(0, 0, 1)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// ageHours is rounded to one decimal, -1 when the table never reloaded
func ageHours(now, t time.Time) float64 {
	if t.IsZero() {
		return -1
	}
	return math.Round(now.Sub(t).Hours()*10) / 10
}
