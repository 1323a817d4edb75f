package lookup

import (
	"context"
	"log/slog"
	"strings"

	"github.com/giygas/medlookup-api/entities"
	"github.com/giygas/medlookup-api/metrics"
)

// resolveIdentity returns the concept id for name, "" when the vocabulary has
// none. An error means the identity could not be determined at all.
func (s *Service) resolveIdentity(ctx context.Context, log *slog.Logger, name string) (string, error) {
	id, err := runStage(ctx, s.policy, stageIdentity, func(ctx context.Context) (string, error) {
		return s.vocab.FindConceptID(ctx, name)
	})
	switch {
	case err != nil:
		recordStage(stageIdentity, metrics.OutcomeFailed)
		log.Warn("Identity resolution failed", "error", err)
	case id == "":
		recordStage(stageIdentity, metrics.OutcomeOK)
		log.Debug("No concept id for query")
	default:
		recordStage(stageIdentity, metrics.OutcomeOK)
		log.Debug("Identity resolved", "concept_id", id)
	}
	return id, err
}

// fetchProperties returns the canonical name and term type of id. Each field
// falls back to "Not available" on its own.
func (s *Service) fetchProperties(ctx context.Context, log *slog.Logger, id string) (entities.DrugProperties, bool) {
	props := entities.DefaultDrugProperties()

	concept, err := runStage(ctx, s.policy, stageProperties, func(ctx context.Context) (*entities.ConceptProperties, error) {
		return s.vocab.GetProperties(ctx, id)
	})
	if err != nil {
		recordStage(stageProperties, metrics.OutcomeDegraded)
		log.Warn("Properties stage degraded", "concept_id", id, "error", err)
		return props, true
	}

	recordStage(stageProperties, metrics.OutcomeOK)
	if concept == nil {
		return props, false
	}
	if name := strings.TrimSpace(concept.Name); name != "" {
		props.CanonicalName = name
	}
	if tty := strings.TrimSpace(concept.Tty); tty != "" {
		props.FormType = tty
	}
	return props, false
}

// collectSynonyms flattens every concept name of every group returned for name
func (s *Service) collectSynonyms(ctx context.Context, log *slog.Logger, name string) (entities.SynonymSet, bool) {
	groups, err := runStage(ctx, s.policy, stageSynonyms, func(ctx context.Context) ([]entities.ConceptGroup, error) {
		return s.vocab.GetDrugGroups(ctx, name)
	})
	if err != nil {
		recordStage(stageSynonyms, metrics.OutcomeDegraded)
		log.Warn("Synonyms stage degraded", "error", err)
		return entities.NewSynonymSet(), true
	}

	recordStage(stageSynonyms, metrics.OutcomeOK)
	return flattenSynonyms(groups), false
}

func flattenSynonyms(groups []entities.ConceptGroup) entities.SynonymSet {
	var names []string
	for _, group := range groups {
		for _, concept := range group.ConceptProperties {
			names = append(names, concept.Name)
		}
	}
	return entities.NewSynonymSet(names...)
}

// resolveUsage tries the label database, then the local table, then the
// literal default. A failed remote call degrades the stage even when the local
// table answers.
func (s *Service) resolveUsage(ctx context.Context, log *slog.Logger, name string) (string, bool) {
	label, err := runStage(ctx, s.policy, stageUsage, func(ctx context.Context) (*entities.DrugLabel, error) {
		return s.label.FindLabel(ctx, name)
	})

	degraded := err != nil
	if degraded {
		recordStage(stageUsage, metrics.OutcomeDegraded)
		log.Warn("Usage stage degraded, using local table", "error", err)
	} else {
		recordStage(stageUsage, metrics.OutcomeOK)
		if usage := usageFromLabel(label); usage != "" {
			return usage, false
		}
	}

	if usage, ok := s.fallback.GetUsage(name); ok {
		log.Debug("Usage served from local table")
		return usage, degraded
	}
	return entities.UsageNotAvailable, degraded
}

// usageFromLabel returns the first non-blank indications entry, else the
// first non-blank purpose entry.
func usageFromLabel(label *entities.DrugLabel) string {
	if label == nil {
		return ""
	}
	for _, field := range [][]string{label.IndicationsAndUsage, label.Purpose} {
		for _, text := range field {
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
		}
	}
	return ""
}

// fetchInteractions returns the interaction groups of id. A failure yields an
// empty slice, indistinguishable from "none reported" except in logs and
// metrics.
func (s *Service) fetchInteractions(ctx context.Context, log *slog.Logger, id string) ([]entities.InteractionGroup, bool) {
	groups, err := runStage(ctx, s.policy, stageInteractions, func(ctx context.Context) ([]entities.InteractionGroup, error) {
		return s.vocab.GetInteractions(ctx, id)
	})
	if err != nil {
		recordStage(stageInteractions, metrics.OutcomeDegraded)
		log.Warn("Interactions stage degraded", "concept_id", id, "error", err)
		return []entities.InteractionGroup{}, true
	}

	recordStage(stageInteractions, metrics.OutcomeOK)
	if groups == nil {
		return []entities.InteractionGroup{}, false
	}
	return groups, false
}
