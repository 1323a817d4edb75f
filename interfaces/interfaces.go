// Package interfaces defines core abstractions for the medication lookup API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/medlookup-api/entities"
)

// VocabularyClient defines the contract for the drug vocabulary service (RxNav).
// Absence is reported with zero values, never with an error; errors mean the
// upstream could not be reached or answered with an unusable payload.
type VocabularyClient interface {
	// FindConceptID returns the first concept identifier for a normalized name, or "".
	FindConceptID(ctx context.Context, name string) (string, error)

	// GetProperties returns the concept properties, or nil when the source has none.
	GetProperties(ctx context.Context, conceptID string) (*entities.ConceptProperties, error)

	// GetDrugGroups returns the grouped concept lists for a normalized name.
	GetDrugGroups(ctx context.Context, name string) ([]entities.ConceptGroup, error)

	// GetInteractions returns the interaction groups reported for a concept.
	GetInteractions(ctx context.Context, conceptID string) ([]entities.InteractionGroup, error)
}

// LabelClient defines the contract for the drug label database (openFDA).
type LabelClient interface {
	// FindLabel returns the first matching label, or nil when nothing matches.
	FindLabel(ctx context.Context, name string) (*entities.DrugLabel, error)
}

// FallbackStore provides thread-safe access to the local drug usage table
// with atomic operations for zero-downtime reloads.
type FallbackStore interface {
	GetUsage(name string) (string, bool)
	GetUsages() map[string]string
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateUsages(usages map[string]string)
	BeginUpdate() bool
	EndUpdate()
}

// Parser defines the contract for reading fallback usage entries from an
// external source (file or URL).
type Parser interface {
	ParseUsages() (map[string]string, error)
}

// Lookuper runs the medication lookup pipeline. The error is only set for
// rejected input; every other terminal state is carried by the outcome.
type Lookuper interface {
	Lookup(ctx context.Context, query string) (*entities.Outcome, error)
}

// UpstreamMonitor exposes the circuit breaker state of each upstream endpoint.
type UpstreamMonitor interface {
	UpstreamStates() map[string]string
}

// Scheduler defines the contract for job scheduling and health monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	LookupMedication(w http.ResponseWriter, r *http.Request)
	SearchMedication(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled fallback table reload
	CalculateNextUpdate() time.Time
}

// QueryValidator validates user supplied drug names before any lookup.
type QueryValidator interface {
	ValidateInput(input string) error
}
