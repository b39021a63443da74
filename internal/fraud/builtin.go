package fraud

import "github.com/openclaims/kite/internal/domain"

// DefaultRules returns the built-in indicator rule set. These ship enabled so
// the pipeline is deterministic out of the box; tenant rules loaded from the
// repository replace them on reload.
func DefaultRules() []*domain.FraudRuleConfig {
	return []*domain.FraudRuleConfig{
		{
			ID:          "builtin-rapid-purchase",
			Name:        "Rapid policy purchase",
			Description: "Loss occurred within 30 days of policy inception",
			Version:     "1.0",
			Kind:        domain.FlagRapidPolicyPurchase,
			Expression:  "days_since_policy_start < 30",
			Weight:      15,
			Severity:    domain.FlagHigh,
			Enabled:     true,
		},
		{
			ID:          "builtin-suspicious-timing",
			Name:        "Suspicious loss timing",
			Description: "Loss reported during overnight hours or on a weekend",
			Version:     "1.0",
			Kind:        domain.FlagSuspiciousTiming,
			Expression:  "loss_hour < 6 || loss_hour >= 22 || is_weekend",
			Weight:      8,
			Severity:    domain.FlagLow,
			Enabled:     true,
		},
		{
			ID:          "builtin-narrative-mismatch",
			Name:        "Narrative mismatch",
			Description: "Claimant narrative inconsistent with the police report accident type",
			Version:     "1.0",
			Kind:        domain.FlagNarrativeMismatch,
			Expression:  "police_report_filed && !narrative_matches_report",
			Weight:      12,
			Severity:    domain.FlagMedium,
			Enabled:     true,
		},
		{
			ID:          "builtin-vehicle-history",
			Name:        "Vehicle history mismatch",
			Description: "Reported damage history inconsistent with vehicle records",
			Version:     "1.0",
			Kind:        domain.FlagVehicleHistoryMismatch,
			Expression:  "vehicle_history_mismatch",
			Weight:      10,
			Severity:    domain.FlagMedium,
			Enabled:     true,
		},
		{
			ID:          "builtin-prior-damage",
			Name:        "Prior damage indicators",
			Description: "Pre-existing damage reported in the claimed loss area",
			Version:     "1.0",
			Kind:        domain.FlagPriorDamage,
			Expression:  "prior_damage",
			Weight:      8,
			Severity:    domain.FlagLow,
			Enabled:     true,
		},
		{
			ID:          "builtin-medical-anomaly",
			Name:        "Medical billing anomaly",
			Description: "Medical billing over $50,000 total or more than 10 line items",
			Version:     "1.0",
			Kind:        domain.FlagMedicalBillingAnomaly,
			Expression:  "medical_total > 50000.0 || medical_items > 10",
			Weight:      14,
			Severity:    domain.FlagHigh,
			Enabled:     true,
		},
		{
			ID:          "builtin-inflated-repair",
			Name:        "Inflated repair estimate",
			Description: "Average repair line item exceeds $15,000",
			Version:     "1.0",
			Kind:        domain.FlagInflatedRepair,
			Expression:  "repair_avg_line > 15000.0",
			Weight:      12,
			Severity:    domain.FlagMedium,
			Enabled:     true,
		},
	}
}
