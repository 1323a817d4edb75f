package entities

// DrugLabel is one openFDA drug label record, reduced to the fields used here.
type DrugLabel struct {
	ID                  string   `json:"id"`
	IndicationsAndUsage []string `json:"indications_and_usage"`
	Purpose             []string `json:"purpose"`
	OpenFDA             struct {
		GenericName []string `json:"generic_name"`
		BrandName   []string `json:"brand_name"`
	} `json:"openfda"`
}

// LabelResponse is the payload of drug/label.json?search=
type LabelResponse struct {
	Results []DrugLabel `json:"results"`
}
