package upstream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/giygas/medlookup-api/interfaces"
	"github.com/giygas/medlookup-api/logging"
	"github.com/giygas/medlookup-api/metrics"
	"github.com/sony/gobreaker/v2"
)

// Endpoint names, also used as breaker names and metric labels
const (
	EndpointRxcui       = "rxnav-rxcui"
	EndpointProperties  = "rxnav-properties"
	EndpointDrugs       = "rxnav-drugs"
	EndpointInteraction = "rxnav-interaction"
	EndpointLabel       = "openfda-label"
)

// BreakerSettings tunes every breaker of a client
type BreakerSettings struct {
	MaxRequests         uint32        // trial calls allowed while half-open
	Interval            time.Duration // closed-state counter reset period
	Timeout             time.Duration // open-state duration before half-open
	ConsecutiveFailures uint32        // trips the breaker
}

// DefaultBreakerSettings returns the settings used in production
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         3,
		Interval:            30 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Compile-time check to ensure BreakerSet implements UpstreamMonitor
var _ interfaces.UpstreamMonitor = (*BreakerSet)(nil)

// BreakerSet owns one circuit breaker per endpoint and reports their states.
// Clients sharing a set show up together on /health.
type BreakerSet struct {
	settings BreakerSettings

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[bool]
}

// NewBreakerSet creates an empty set
func NewBreakerSet(settings BreakerSettings) *BreakerSet {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}
	return &BreakerSet{
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker[bool]),
	}
}

// get returns the breaker for endpoint, creating it on first use
func (s *BreakerSet) get(endpoint string) *gobreaker.CircuitBreaker[bool] {
	s.mu.RLock()
	cb, ok := s.breakers[endpoint]
	s.mu.RUnlock()
	if ok {
		return cb
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := s.breakers[endpoint]; ok {
		return cb
	}

	threshold := s.settings.ConsecutiveFailures
	cb = gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: s.settings.MaxRequests,
		Interval:    s.settings.Interval,
		Timeout:     s.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			if to == gobreaker.StateOpen {
				logging.Warn("Upstream circuit breaker opened", "endpoint", name, "from", from.String())
				return
			}
			logging.Info("Upstream circuit breaker state changed", "endpoint", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: isSuccessful,
		IsExcluded:   isExcluded,
	})
	metrics.BreakerState.WithLabelValues(endpoint).Set(float64(gobreaker.StateClosed))
	s.breakers[endpoint] = cb
	return cb
}

// isSuccessful decides what counts against a breaker. A stage deadline counts,
// since a hung upstream is what the breaker is there to shed.
func isSuccessful(err error) bool {
	return err == nil
}

// isExcluded drops calls the caller abandoned. They say nothing about the
// upstream, so they neither reset the failure streak nor settle a half-open trial call.
func isExcluded(err error) bool {
	return errors.Is(err, context.Canceled)
}

// UpstreamStates returns "closed", "half-open" or "open" per endpoint
func (s *BreakerSet) UpstreamStates() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]string, len(s.breakers))
	for name, cb := range s.breakers {
		states[name] = cb.State().String()
	}
	return states
}

// Register creates breakers for endpoints up front so they are reported
// before their first call.
func (s *BreakerSet) Register(endpoints ...string) {
	for _, endpoint := range endpoints {
		s.get(endpoint)
	}
}
