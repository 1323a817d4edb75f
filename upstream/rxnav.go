package upstream

import (
	"context"
	"net/url"

	"github.com/giygas/medlookup-api/entities"
	"github.com/giygas/medlookup-api/interfaces"
)

// Compile-time check to ensure RxNavClient implements VocabularyClient
var _ interfaces.VocabularyClient = (*RxNavClient)(nil)

// RxNavClient talks to the NLM RxNav REST API
type RxNavClient struct {
	*transport
}

// NewRxNavClient creates a client for opts.BaseURL, e.g. https://rxnav.nlm.nih.gov/REST
func NewRxNavClient(opts Options) *RxNavClient {
	c := &RxNavClient{transport: newTransport(opts)}
	c.breakers.Register(EndpointRxcui, EndpointProperties, EndpointDrugs, EndpointInteraction)
	return c
}

// FindConceptID returns the first RxCUI for name, "" when RxNav knows none
func (c *RxNavClient) FindConceptID(ctx context.Context, name string) (string, error) {
	var resp entities.RxcuiResponse
	found, err := c.getJSON(ctx, EndpointRxcui, c.baseURL+"/rxcui.json?name="+url.QueryEscape(name), &resp)
	if err != nil || !found {
		return "", err
	}
	for _, id := range resp.IDGroup.RxnormID {
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}

// GetProperties returns the concept properties, nil when RxNav has none
func (c *RxNavClient) GetProperties(ctx context.Context, conceptID string) (*entities.ConceptProperties, error) {
	var resp entities.PropertiesResponse
	found, err := c.getJSON(ctx, EndpointProperties, c.baseURL+"/rxcui/"+url.PathEscape(conceptID)+"/properties.json", &resp)
	if err != nil || !found {
		return nil, err
	}
	return resp.Properties, nil
}

// GetDrugGroups returns the concept groups of every drug product matching name
func (c *RxNavClient) GetDrugGroups(ctx context.Context, name string) ([]entities.ConceptGroup, error) {
	var resp entities.DrugsResponse
	found, err := c.getJSON(ctx, EndpointDrugs, c.baseURL+"/drugs.json?name="+url.QueryEscape(name), &resp)
	if err != nil || !found {
		return nil, err
	}
	return resp.DrugGroup.ConceptGroup, nil
}

// GetInteractions returns the interaction type groups reported for conceptID
func (c *RxNavClient) GetInteractions(ctx context.Context, conceptID string) ([]entities.InteractionGroup, error) {
	var resp entities.InteractionResponse
	found, err := c.getJSON(ctx, EndpointInteraction, c.baseURL+"/interaction/list.json?rxcuis="+url.QueryEscape(conceptID), &resp)
	if err != nil || !found {
		return nil, err
	}
	return resp.InteractionTypeGroup, nil
}
