package data

import "maps"

// DefaultUsages is the built-in usage table consulted when the label database
// has nothing for a drug. Keys are normalized drug names.
var DefaultUsages = map[string]string{
	"ibuprofen":    "Used to reduce fever and relieve pain or inflammation.",
	"amoxicillin":  "Treats bacterial infections like bronchitis, pneumonia, and tonsillitis.",
	"metformin":    "Manages type 2 diabetes by lowering blood sugar.",
	"atorvastatin": "Lowers cholesterol and prevents heart disease.",
	"omeprazole":   "Treats acid reflux, ulcers, and GERD.",
	"paracetamol":  "Relieves mild to moderate pain and reduces fever.",
	"azithromycin": "Used for respiratory infections, skin infections, and sexually transmitted diseases.",
	"albuterol":    "Relieves bronchospasm in conditions like asthma and COPD.",
	"simvastatin":  "Lowers cholesterol and reduces risk of cardiovascular disease.",
	"losartan":     "Treats high blood pressure and protects kidneys from damage due to diabetes.",
}

// MergeUsages returns DefaultUsages overlaid with overrides. Overrides win on
// conflicts and never remove a built-in entry.
func MergeUsages(overrides map[string]string) map[string]string {
	merged := maps.Clone(DefaultUsages)
	maps.Copy(merged, overrides)
	return merged
}
