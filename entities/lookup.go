package entities

import (
	"encoding/json"
	"slices"
	"strings"
)

// Display defaults for missing data
const (
	NotAvailable      = "Not available"
	UsageNotAvailable = "Use information not available"
	synonymSeparator  = ", "
)

// DrugProperties is the canonical name and term type of a concept.
type DrugProperties struct {
	CanonicalName string `json:"canonical_name"`
	FormType      string `json:"form_type"`
}

// DefaultDrugProperties is what a failed or empty properties call degrades to.
func DefaultDrugProperties() DrugProperties {
	return DrugProperties{CanonicalName: NotAvailable, FormType: NotAvailable}
}

// SynonymSet keeps distinct names in first-seen order.
type SynonymSet []string

// NewSynonymSet deduplicates names, dropping blanks and keeping the first occurrence.
func NewSynonymSet(names ...string) SynonymSet {
	seen := make(map[string]struct{}, len(names))
	set := make(SynonymSet, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		set = append(set, name)
	}
	return set
}

// String joins the names, or reports NotAvailable for an empty set.
func (s SynonymSet) String() string {
	if len(s) == 0 {
		return NotAvailable
	}
	return strings.Join(s, synonymSeparator)
}

// MarshalJSON encodes the set as its display string.
func (s SynonymSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// LookupResult is the merged record for one query.
type LookupResult struct {
	Properties   DrugProperties     `json:"properties"`
	Synonyms     SynonymSet         `json:"synonyms"`
	Usage        string             `json:"usage"`
	Interactions []InteractionGroup `json:"interactions"`
	ConceptID    string             `json:"concept_id,omitempty"`
}

// HasIdentity reports whether the query resolved to a concept identifier.
func (r LookupResult) HasIdentity() bool {
	return r.ConceptID != ""
}

// Clone returns a deep copy sharing no slices with r.
func (r LookupResult) Clone() LookupResult {
	r.Synonyms = slices.Clone(r.Synonyms)
	if r.Interactions != nil {
		groups := make([]InteractionGroup, len(r.Interactions))
		for i, g := range r.Interactions {
			groups[i] = g.Clone()
		}
		r.Interactions = groups
	}
	return r
}
