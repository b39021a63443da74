package valuation

import "github.com/openclaims/kite/internal/domain"

// StateThreshold is one state's total-loss rule. Kept as data so adding a
// state is a data change, not a code change.
type StateThreshold struct {
	Method domain.ThresholdMethod
	// Pct applies to PERCENTAGE and HYBRID methods.
	Pct float64
}

// defaultThreshold applies when the loss state is not configured.
var defaultThreshold = StateThreshold{Method: domain.ThresholdPercentage, Pct: 0.75}

// stateThresholds holds per-state total-loss rules. Values follow the common
// statutory scheme: many states use a straight percentage of ACV, the rest use
// the total-loss formula (repair + salvage >= ACV) or a hybrid.
var stateThresholds = map[string]StateThreshold{
	"AL": {Method: domain.ThresholdPercentage, Pct: 0.75},
	"AR": {Method: domain.ThresholdPercentage, Pct: 0.70},
	"AZ": {Method: domain.ThresholdFormula},
	"CA": {Method: domain.ThresholdFormula},
	"CO": {Method: domain.ThresholdPercentage, Pct: 1.00},
	"FL": {Method: domain.ThresholdPercentage, Pct: 0.80},
	"GA": {Method: domain.ThresholdFormula},
	"IA": {Method: domain.ThresholdPercentage, Pct: 0.70},
	"IL": {Method: domain.ThresholdFormula},
	"IN": {Method: domain.ThresholdPercentage, Pct: 0.70},
	"KS": {Method: domain.ThresholdPercentage, Pct: 0.75},
	"KY": {Method: domain.ThresholdPercentage, Pct: 0.75},
	"LA": {Method: domain.ThresholdPercentage, Pct: 0.75},
	"MI": {Method: domain.ThresholdPercentage, Pct: 0.75},
	"MN": {Method: domain.ThresholdHybrid, Pct: 0.80},
	"MO": {Method: domain.ThresholdPercentage, Pct: 0.80},
	"NC": {Method: domain.ThresholdPercentage, Pct: 0.75},
	"NV": {Method: domain.ThresholdPercentage, Pct: 0.65},
	"NY": {Method: domain.ThresholdPercentage, Pct: 0.75},
	"OH": {Method: domain.ThresholdFormula},
	"OK": {Method: domain.ThresholdPercentage, Pct: 0.60},
	"OR": {Method: domain.ThresholdPercentage, Pct: 0.80},
	"TX": {Method: domain.ThresholdPercentage, Pct: 1.00},
	"WA": {Method: domain.ThresholdFormula},
	"WI": {Method: domain.ThresholdPercentage, Pct: 0.70},
}

// ThresholdFor returns the total-loss rule for a state.
func ThresholdFor(state string) StateThreshold {
	if t, ok := stateThresholds[state]; ok {
		return t
	}
	return defaultThreshold
}
