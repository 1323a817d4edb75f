package lookup

import (
	"strings"

	"github.com/giygas/medlookup-api/entities"
)

// Parts are the stage results of one lookup, each already carrying its default.
type Parts struct {
	Query      string
	Status     entities.Status
	ConceptID  string
	Properties entities.DrugProperties
	Synonyms   entities.SynonymSet
	Usage      string
	// Interactions may be nil; the result always carries a non-nil slice.
	Interactions []entities.InteractionGroup
	// Degraded lists the stages that fell back to a default.
	Degraded []string
	// Reason explains a StatusLookupFailed outcome.
	Reason string
}

// Aggregate shapes the final outcome. It does no I/O and cannot fail; blank
// fields are replaced with their documented defaults.
func Aggregate(p Parts) entities.Outcome {
	result := entities.LookupResult{
		Properties:   p.Properties,
		Synonyms:     p.Synonyms,
		Usage:        strings.TrimSpace(p.Usage),
		Interactions: p.Interactions,
	}
	if strings.TrimSpace(result.Properties.CanonicalName) == "" {
		result.Properties.CanonicalName = entities.NotAvailable
	}
	if strings.TrimSpace(result.Properties.FormType) == "" {
		result.Properties.FormType = entities.NotAvailable
	}
	if result.Synonyms == nil {
		result.Synonyms = entities.SynonymSet{}
	}
	if result.Usage == "" {
		result.Usage = entities.UsageNotAvailable
	}
	if result.Interactions == nil {
		result.Interactions = []entities.InteractionGroup{}
	}

	outcome := entities.Outcome{Status: p.Status, Query: p.Query}

	switch p.Status {
	case entities.StatusResolved:
		result.ConceptID = p.ConceptID
		if len(p.Degraded) > 0 {
			outcome.Message = MsgDegraded
		}
	case entities.StatusNotFound:
		outcome.Message = MsgNotFound
	default:
		outcome.Status = entities.StatusLookupFailed
		outcome.Message = MsgLookupFailed
		outcome.Reason = p.Reason
		result = defaultResult()
	}

	outcome.Result = result
	return outcome
}

// defaultResult is the record returned when nothing could be looked up
func defaultResult() entities.LookupResult {
	return entities.LookupResult{
		Properties:   entities.DefaultDrugProperties(),
		Synonyms:     entities.SynonymSet{},
		Usage:        entities.UsageNotAvailable,
		Interactions: []entities.InteractionGroup{},
	}
}
