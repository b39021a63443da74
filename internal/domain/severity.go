package domain

// SeverityScore carries the four severity sub-scores (0-100 each), the
// weighted overall score, and a coarse routing suggestion. It is advisory
// input to routing, not authoritative.
type SeverityScore struct {
	PropertyDamage int `json:"propertyDamage"`
	BodilyInjury   int `json:"bodilyInjury"`
	Complexity     int `json:"complexity"`
	LitigationRisk int `json:"litigationRisk"`
	Overall        int `json:"overall"`

	Suggestion RoutingOption `json:"suggestion"`
	Flags      []string      `json:"flags,omitempty"`
}
