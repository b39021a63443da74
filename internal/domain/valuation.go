package domain

// ACVAdjustments itemizes how the base value was adjusted to reach ACV.
type ACVAdjustments struct {
	Mileage     float64 `json:"mileage"`
	Condition   float64 `json:"condition"`
	Options     float64 `json:"options"`
	PriorDamage float64 `json:"priorDamage"`
}

// SalvageMethod identifies how the salvage value was derived.
type SalvageMethod string

const (
	SalvageBidAverage    SalvageMethod = "BID_AVERAGE"
	SalvagePercentageACV SalvageMethod = "PERCENTAGE_ACV"
)

// SalvageDisposition classifies what a salvage buyer can do with the vehicle.
type SalvageDisposition string

const (
	SalvageRebuildable SalvageDisposition = "REBUILDABLE"
	SalvagePartsOnly   SalvageDisposition = "PARTS_ONLY"
	SalvageScrap       SalvageDisposition = "SCRAP"
)

// SalvageEstimate is the estimated residual value of the damaged vehicle.
type SalvageEstimate struct {
	Value       float64            `json:"value"`
	Method      SalvageMethod      `json:"method"`
	BidLow      float64            `json:"bidLow,omitempty"`
	BidHigh     float64            `json:"bidHigh,omitempty"`
	BidCount    int                `json:"bidCount,omitempty"`
	Disposition SalvageDisposition `json:"disposition"`
}

// RepairEstimate is the projected cost to repair the vehicle.
type RepairEstimate struct {
	Total     float64 `json:"total"`
	Source    string  `json:"source"` // "shop" or "estimated"
	LineItems int     `json:"lineItems,omitempty"`
}

// ThresholdMethod is how a state defines its total-loss test.
type ThresholdMethod string

const (
	// ThresholdPercentage: total loss when repair/ACV >= the state percentage.
	ThresholdPercentage ThresholdMethod = "PERCENTAGE"
	// ThresholdFormula: total loss when repair + salvage >= ACV.
	ThresholdFormula ThresholdMethod = "FORMULA"
	// ThresholdHybrid: total loss when either test is met.
	ThresholdHybrid ThresholdMethod = "HYBRID"
)

// TotalLossAnalysis is the outcome of the state-specific total-loss test.
type TotalLossAnalysis struct {
	IsTotalLoss  bool            `json:"isTotalLoss"`
	Method       ThresholdMethod `json:"method"`
	ThresholdPct float64         `json:"thresholdPct"`
	RatioPct     float64         `json:"ratioPct"`

	// SettlementAmount is ACV minus salvage (when the owner retains the
	// salvage) minus deductible, floored at zero. Zero when not a total loss.
	SettlementAmount float64 `json:"settlementAmount"`
}

// ValuationResult is the full valuation output for a claim vehicle.
type ValuationResult struct {
	VIN           string          `json:"vin"`
	ACV           float64         `json:"acv"`
	ACVConfidence float64         `json:"acvConfidence"`
	ACVSources    []string        `json:"acvSources,omitempty"`
	Adjustments   ACVAdjustments  `json:"adjustments"`
	Salvage       SalvageEstimate `json:"salvage"`
	Repair        RepairEstimate  `json:"repair"`
	TotalLoss     TotalLossAnalysis `json:"totalLoss"`
}
