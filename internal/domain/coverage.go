package domain

// CoverageApplicability is the derived applicability of one coverage type for
// a specific claim. Recomputed on every coverage evaluation; never persisted
// independently of the claim's evaluation snapshot.
type CoverageApplicability struct {
	Type       CoverageType `json:"type"`
	Applicable bool         `json:"applicable"`
	Limit      float64      `json:"limit"`
	Deductible float64      `json:"deductible"`
	Remaining  float64      `json:"remaining"`
	Reason     string       `json:"reason"`
}

// CoverageEvaluation is the full output of the coverage validator for one
// claim/policy pair.
type CoverageEvaluation struct {
	Applies     bool                                   `json:"coverageApplies"`
	PerCoverage map[CoverageType]CoverageApplicability `json:"perCoverage,omitempty"`
	Exclusions  []string                               `json:"exclusions,omitempty"`
	Gaps        []string                               `json:"gaps,omitempty"`
	Warnings    []string                               `json:"warnings,omitempty"`
	Errors      []string                               `json:"errors,omitempty"`
}

// NetAvailable returns the total applicable limit minus deductibles across
// applicable coverages. Settlement scaling uses this as the hard ceiling.
func (e *CoverageEvaluation) NetAvailable() float64 {
	var total float64
	for _, a := range e.PerCoverage {
		if !a.Applicable {
			continue
		}
		net := a.Remaining - a.Deductible
		if net > 0 {
			total += net
		}
	}
	return total
}

// HasGaps reports whether any coverage gaps were detected.
func (e *CoverageEvaluation) HasGaps() bool {
	return len(e.Gaps) > 0
}
