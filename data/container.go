// Package data provides thread-safe storage for the local usage fallback table.
// The table is swapped atomically so lookups never see a half-loaded reload.
package data

import (
	"maps"
	"sync/atomic"
	"time"

	"github.com/giygas/medlookup-api/interfaces"
	"github.com/giygas/medlookup-api/logging"
	"github.com/giygas/medlookup-api/metrics"
)

// Compile-time check to ensure DataContainer implements FallbackStore
var _ interfaces.FallbackStore = (*DataContainer)(nil)

// DataContainer holds the fallback usages behind atomic values for zero-downtime reloads
type DataContainer struct {
	usages          atomic.Value // map[string]string
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a container seeded with a copy of DefaultUsages
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.usages.Store(maps.Clone(DefaultUsages))
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	metrics.FallbackEntries.Set(float64(len(DefaultUsages)))
	return dc
}

// GetUsage returns the usage text for a normalized drug name
func (dc *DataContainer) GetUsage(name string) (string, bool) {
	usage, ok := dc.GetUsages()[name]
	if !ok || usage == "" {
		return "", false
	}
	return usage, true
}

// GetUsages returns the whole table. Callers must not modify it.
func (dc *DataContainer) GetUsages() map[string]string {
	if v := dc.usages.Load(); v != nil {
		if usages, ok := v.(map[string]string); ok {
			return usages
		}
	}

	logging.Warn("Fallback usage table is empty or invalid")
	return map[string]string{}
}

// GetLastUpdated returns the time of the last successful reload, zero if none
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}
	return time.Time{}
}

// IsUpdating returns true while a reload is in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}
	return time.Time{}
}

// UpdateUsages atomically replaces the table. A nil map is ignored so a broken
// reload never empties the table.
func (dc *DataContainer) UpdateUsages(usages map[string]string) {
	if usages == nil {
		logging.Warn("Ignoring nil fallback usage table")
		return
	}
	dc.usages.Store(usages)
	dc.lastUpdated.Store(time.Now())
	metrics.FallbackEntries.Set(float64(len(usages)))
}

// BeginUpdate marks the start of a reload.
// Returns true if the reload can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a reload
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
