package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/giygas/medlookup-api/entities"
	"github.com/giygas/medlookup-api/interfaces"
)

// Compile-time check to ensure OpenFDAClient implements LabelClient
var _ interfaces.LabelClient = (*OpenFDAClient)(nil)

// OpenFDAClient queries the openFDA drug label endpoint
type OpenFDAClient struct {
	*transport
	apiKey string
}

// NewOpenFDAClient creates a client for opts.BaseURL, e.g. https://api.fda.gov
func NewOpenFDAClient(opts Options) *OpenFDAClient {
	c := &OpenFDAClient{transport: newTransport(opts), apiKey: opts.APIKey}
	c.breakers.Register(EndpointLabel)
	return c
}

// FindLabel returns the first label whose generic name, brand name or active
// ingredient matches name. openFDA answers 404 when nothing matches, which
// is reported as a nil label.
func (c *OpenFDAClient) FindLabel(ctx context.Context, name string) (*entities.DrugLabel, error) {
	query := url.Values{}
	query.Set("search", labelSearch(name))
	query.Set("limit", "1")
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	var resp entities.LabelResponse
	found, err := c.getJSON(ctx, EndpointLabel, c.baseURL+"/drug/label.json?"+query.Encode(), &resp)
	if err != nil || !found || len(resp.Results) == 0 {
		return nil, err
	}
	return &resp.Results[0], nil
}

// labelSearch builds the openFDA search expression. Multi-word names are
// quoted so they match as a phrase.
func labelSearch(name string) string {
	term := name
	if strings.ContainsAny(term, " \t") {
		term = `"` + strings.ReplaceAll(term, `"`, "") + `"`
	}
	return fmt.Sprintf("generic_name:%s OR brand_name:%s OR active_ingredient:%s", term, term, term)
}
