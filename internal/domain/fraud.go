package domain

import "time"

// FraudFlagKind identifies a typed fraud indicator.
type FraudFlagKind string

const (
	FlagRapidPolicyPurchase   FraudFlagKind = "RAPID_POLICY_PURCHASE"
	FlagSuspiciousTiming      FraudFlagKind = "SUSPICIOUS_TIMING"
	FlagNarrativeMismatch     FraudFlagKind = "NARRATIVE_MISMATCH"
	FlagVehicleHistoryMismatch FraudFlagKind = "VEHICLE_HISTORY_MISMATCH"
	FlagPriorDamage           FraudFlagKind = "PRIOR_DAMAGE"
	FlagMedicalBillingAnomaly FraudFlagKind = "MEDICAL_BILLING_ANOMALY"
	FlagInflatedRepair        FraudFlagKind = "INFLATED_REPAIR"
	FlagMissingPoliceReport   FraudFlagKind = "MISSING_POLICE_REPORT"
	FlagWatchlistClaimant     FraudFlagKind = "WATCHLIST_CLAIMANT"
	FlagWatchlistProvider     FraudFlagKind = "WATCHLIST_PROVIDER"
	FlagWatchlistAttorney     FraudFlagKind = "WATCHLIST_ATTORNEY"
	FlagWatchlistShop         FraudFlagKind = "WATCHLIST_SHOP"
	FlagRepeatedClaimant      FraudFlagKind = "REPEATED_CLAIMANT"
	FlagStagedAccident        FraudFlagKind = "STAGED_ACCIDENT"
	FlagModelSignal           FraudFlagKind = "MODEL_SIGNAL"
)

// FlagSeverity tiers a single fraud flag.
type FlagSeverity string

const (
	FlagLow      FlagSeverity = "LOW"
	FlagMedium   FlagSeverity = "MEDIUM"
	FlagHigh     FlagSeverity = "HIGH"
	FlagCritical FlagSeverity = "CRITICAL"
)

// FraudFlag is one raised indicator with its weighted contribution and the
// evidence that raised it.
type FraudFlag struct {
	Kind      FraudFlagKind `json:"kind"`
	Severity  FlagSeverity  `json:"severity"`
	Weight    float64       `json:"weight"`
	Evidence  []string      `json:"evidence,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// RiskTier buckets the aggregate fraud score.
type RiskTier string

const (
	RiskLow      RiskTier = "LOW"
	RiskMedium   RiskTier = "MEDIUM"
	RiskHigh     RiskTier = "HIGH"
	RiskCritical RiskTier = "CRITICAL"
)

// TierForScore maps an aggregate fraud score to its risk tier.
func TierForScore(score float64) RiskTier {
	switch {
	case score < 25:
		return RiskLow
	case score < 50:
		return RiskMedium
	case score < 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// FraudScore is the aggregate fraud screening result for a claim.
type FraudScore struct {
	Score             float64     `json:"score"`
	Tier              RiskTier    `json:"tier"`
	Flags             []FraudFlag `json:"flags,omitempty"`
	Patterns          []string    `json:"patterns,omitempty"`
	RequiresSIUReview bool        `json:"requiresSiuReview"`

	// Component breakdown, kept for the audit trail.
	RuleScore         float64 `json:"ruleScore"`
	ModelSignal       float64 `json:"modelSignal"`
	WatchlistHits     int     `json:"watchlistHits"`
	NetworkMultiplier float64 `json:"networkMultiplier"`
}

// FraudRuleConfig defines one configurable fraud indicator rule. The
// expression is CEL, evaluated against a flattened claim activation; a truthy
// result raises a flag of the configured kind and weight.
type FraudRuleConfig struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenantId"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Version     string        `json:"version"`
	Kind        FraudFlagKind `json:"kind"`
	Expression  string        `json:"expression"`
	Weight      float64       `json:"weight"`
	Severity    FlagSeverity  `json:"severity"`
	Enabled     bool          `json:"enabled"`
}
