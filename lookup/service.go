// Package lookup resolves a free-text drug name into one medication record by
// fanning out to the vocabulary and label services and merging what comes back.
package lookup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/giygas/medlookup-api/cache"
	"github.com/giygas/medlookup-api/entities"
	"github.com/giygas/medlookup-api/interfaces"
	"github.com/giygas/medlookup-api/logging"
	"github.com/giygas/medlookup-api/metrics"
	"github.com/google/uuid"
)

// Compile-time check to ensure Service implements Lookuper
var _ interfaces.Lookuper = (*Service)(nil)

// Options tunes the pipeline
type Options struct {
	StageTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Service runs lookups. It is safe for concurrent use.
type Service struct {
	vocab    interfaces.VocabularyClient
	label    interfaces.LabelClient
	fallback interfaces.FallbackStore
	cache    *cache.ResultCache
	policy   stagePolicy
}

// NewService wires a lookup service. results may be nil to disable caching.
func NewService(vocab interfaces.VocabularyClient, label interfaces.LabelClient,
	fallback interfaces.FallbackStore, results *cache.ResultCache, opts Options) *Service {

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Service{
		vocab:    vocab,
		label:    label,
		fallback: fallback,
		cache:    results,
		policy: stagePolicy{
			timeout:    opts.StageTimeout,
			maxRetries: max(opts.MaxRetries, 0),
			backoff:    backoff,
		},
	}
}

// Lookup resolves query. The error is ErrEmptyQuery for blank input and nil
// otherwise; not found and failed lookups are reported through the outcome.
//
// The synonym and usage stages start together with identity resolution.
// Properties and interactions need the concept id and start once it is known.
// The outcome is built only after every started stage has returned.
func (s *Service) Lookup(ctx context.Context, query string) (*entities.Outcome, error) {
	name := entities.NormalizeName(query)
	if name == "" {
		return nil, ErrEmptyQuery
	}

	if cached, ok := s.cache.Get(name); ok {
		metrics.LookupTotal.WithLabelValues(cached.Status.String()).Inc()
		return cached, nil
	}

	log := logging.Logger().With("lookup_id", uuid.NewString(), "query", name)
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg           sync.WaitGroup
		synonyms     entities.SynonymSet
		usage        string
		properties   = entities.DefaultDrugProperties()
		interactions []entities.InteractionGroup

		synonymsDegraded, usageDegraded          bool
		propertiesDegraded, interactionsDegraded bool
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		synonyms, synonymsDegraded = s.collectSynonyms(ctx, log, name)
	}()
	go func() {
		defer wg.Done()
		usage, usageDegraded = s.resolveUsage(ctx, log, name)
	}()

	id, err := s.resolveIdentity(ctx, log, name)
	if err != nil {
		cancel()
		wg.Wait()
		outcome := Aggregate(Parts{
			Query:  name,
			Status: entities.StatusLookupFailed,
			Reason: err.Error(),
		})
		return s.finish(log, name, start, &outcome, false), nil
	}

	status := entities.StatusNotFound
	if id != "" {
		status = entities.StatusResolved
		wg.Add(2)
		go func() {
			defer wg.Done()
			properties, propertiesDegraded = s.fetchProperties(ctx, log, id)
		}()
		go func() {
			defer wg.Done()
			interactions, interactionsDegraded = s.fetchInteractions(ctx, log, id)
		}()
	} else {
		recordStage(stageProperties, metrics.OutcomeSkipped)
		recordStage(stageInteractions, metrics.OutcomeSkipped)
	}

	wg.Wait()

	var degraded []string
	for _, d := range []struct {
		stage string
		hit   bool
	}{
		{stageProperties, propertiesDegraded},
		{stageSynonyms, synonymsDegraded},
		{stageUsage, usageDegraded},
		{stageInteractions, interactionsDegraded},
	} {
		if d.hit {
			degraded = append(degraded, d.stage)
		}
	}

	outcome := Aggregate(Parts{
		Query:        name,
		Status:       status,
		ConceptID:    id,
		Properties:   properties,
		Synonyms:     synonyms,
		Usage:        usage,
		Interactions: interactions,
		Degraded:     degraded,
	})
	if len(degraded) > 0 {
		log = log.With("degraded", degraded)
	}
	// A degraded stage is retried on the next query instead of being served from cache.
	return s.finish(log, name, start, &outcome, len(degraded) == 0), nil
}

// finish records and logs a completed outcome, caching it when cacheable
func (s *Service) finish(log *slog.Logger, name string, start time.Time, outcome *entities.Outcome, cacheable bool) *entities.Outcome {
	metrics.LookupTotal.WithLabelValues(outcome.Status.String()).Inc()

	attrs := []any{"status", outcome.Status.String(), "duration_ms", time.Since(start).Milliseconds()}
	if outcome.Status == entities.StatusLookupFailed {
		log.Warn("Lookup failed", append(attrs, "reason", outcome.Reason)...)
		return outcome
	}

	log.Info("Lookup completed", attrs...)
	if cacheable {
		s.cache.Put(name, outcome)
	}
	return outcome
}

// PurgeCache drops cached outcomes, used after the local usage table changes
func (s *Service) PurgeCache() {
	s.cache.Purge()
}
