package entities

import "slices"

// RxcuiResponse is the payload of rxcui.json?name=
type RxcuiResponse struct {
	IDGroup struct {
		Name     string   `json:"name"`
		RxnormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

// ConceptProperties describes one RxNorm concept.
type ConceptProperties struct {
	Rxcui    string `json:"rxcui"`
	Name     string `json:"name"`
	Synonym  string `json:"synonym"`
	Tty      string `json:"tty"`
	Language string `json:"language"`
}

// PropertiesResponse is the payload of rxcui/{id}/properties.json
type PropertiesResponse struct {
	Properties *ConceptProperties `json:"properties"`
}

// ConceptGroup lists the concepts of one term type.
type ConceptGroup struct {
	Tty               string              `json:"tty"`
	ConceptProperties []ConceptProperties `json:"conceptProperties"`
}

// DrugsResponse is the payload of drugs.json?name=
type DrugsResponse struct {
	DrugGroup struct {
		Name         string         `json:"name"`
		ConceptGroup []ConceptGroup `json:"conceptGroup"`
	} `json:"drugGroup"`
}

// MinConceptItem is the short concept reference used by the interaction API.
type MinConceptItem struct {
	Rxcui string `json:"rxcui"`
	Name  string `json:"name"`
	Tty   string `json:"tty"`
}

// InteractionConcept is one side of an interaction pair.
type InteractionConcept struct {
	MinConceptItem    MinConceptItem `json:"minConceptItem"`
	SourceConceptItem struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"sourceConceptItem"`
}

// InteractionPair is one reported interaction between two concepts.
type InteractionPair struct {
	InteractionConcept []InteractionConcept `json:"interactionConcept"`
	Severity           string               `json:"severity"`
	Description        string               `json:"description"`
}

// InteractionType groups the pairs reported for one concept.
type InteractionType struct {
	Comment         string            `json:"comment,omitempty"`
	MinConceptItem  MinConceptItem    `json:"minConceptItem"`
	InteractionPair []InteractionPair `json:"interactionPair"`
}

// InteractionGroup mirrors one RxNav interactionTypeGroup entry as returned upstream.
type InteractionGroup struct {
	SourceDisclaimer string            `json:"sourceDisclaimer"`
	SourceName       string            `json:"sourceName"`
	InteractionType  []InteractionType `json:"interactionType"`
}

// InteractionResponse is the payload of interaction/list.json?rxcuis=
type InteractionResponse struct {
	NlmDisclaimer        string             `json:"nlmDisclaimer"`
	InteractionTypeGroup []InteractionGroup `json:"interactionTypeGroup"`
}

// Clone returns a deep copy so the group can be handed out without sharing
// its slices.
func (g InteractionGroup) Clone() InteractionGroup {
	types := make([]InteractionType, len(g.InteractionType))
	for i, t := range g.InteractionType {
		pairs := make([]InteractionPair, len(t.InteractionPair))
		for j, p := range t.InteractionPair {
			p.InteractionConcept = slices.Clone(p.InteractionConcept)
			pairs[j] = p
		}
		if t.InteractionPair == nil {
			pairs = nil
		}
		t.InteractionPair = pairs
		types[i] = t
	}
	if g.InteractionType == nil {
		types = nil
	}
	g.InteractionType = types
	return g
}
