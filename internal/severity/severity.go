// Package severity computes the claim severity score and a coarse routing
// suggestion. All scoring is deterministic with no external calls.
package severity

import (
	"math"

	"github.com/openclaims/kite/internal/domain"
)

// Sub-score bases kept as data. Shapes matter more than exact values; the
// defaults are tuned so the routing bands line up with the auto-approval
// thresholds in domain.PipelineConfig.
var propertyDamageBase = map[domain.DamageSeverity]int{
	domain.DamageMinor:     25,
	domain.DamageModerate:  50,
	domain.DamageSevere:    75,
	domain.DamageTotalLoss: 100,
}

var bodilyInjuryBase = map[domain.InjurySeverity]int{
	domain.InjuryNone:     0,
	domain.InjuryMinor:    30,
	domain.InjuryModerate: 50,
	domain.InjurySevere:   80,
	domain.InjuryFatal:    100,
}

// Overall weighting: property 0.3, injury 0.4, complexity 0.2, litigation 0.1.
const (
	weightProperty   = 0.3
	weightInjury     = 0.4
	weightComplexity = 0.2
	weightLitigation = 0.1
)

// Scorer computes severity scores.
type Scorer struct {
	autoApprovalCeiling float64
}

// NewScorer creates a severity scorer. The ceiling feeds the routing
// suggestion only; the orchestrator applies the authoritative gate.
func NewScorer(autoApprovalCeiling float64) *Scorer {
	return &Scorer{autoApprovalCeiling: autoApprovalCeiling}
}

// Score computes all four sub-scores, the weighted overall, and the routing
// suggestion for the claim. Coverage evaluation may be nil when coverage was
// not yet assessed.
func (s *Scorer) Score(claim *domain.ClaimRecord, cov *domain.CoverageEvaluation) *domain.SeverityScore {
	score := &domain.SeverityScore{
		PropertyDamage: s.propertyDamage(claim),
		BodilyInjury:   s.bodilyInjury(claim),
	}
	score.Complexity = s.complexity(claim, cov)
	score.LitigationRisk = s.litigationRisk(claim, score.BodilyInjury, score.PropertyDamage)

	overall := weightProperty*float64(score.PropertyDamage) +
		weightInjury*float64(score.BodilyInjury) +
		weightComplexity*float64(score.Complexity) +
		weightLitigation*float64(score.LitigationRisk)
	score.Overall = int(math.Round(overall))

	score.Flags = s.flags(claim, score)
	score.Suggestion = s.suggest(claim, cov, score)

	return score
}

func (s *Scorer) propertyDamage(claim *domain.ClaimRecord) int {
	score := propertyDamageBase[claim.Damage.Severity]
	if claim.Damage.AirbagDeployed {
		score += 20
	}
	if score > 100 {
		score = 100
	}
	if claim.Damage.StructuralDamage {
		score += 15
	}
	if !claim.Damage.Drivable {
		score += 10
	}
	return clamp(score)
}

func (s *Scorer) bodilyInjury(claim *domain.ClaimRecord) int {
	if !claim.Injuries.AnyInjuries {
		return 0
	}
	score := bodilyInjuryBase[claim.Injuries.Severity]
	if claim.Injuries.MedicalTreatment {
		score += 10
	}
	return clamp(score)
}

func (s *Scorer) complexity(claim *domain.ClaimRecord, cov *domain.CoverageEvaluation) int {
	score := 20

	others := claim.OtherPartyCount()
	if others > 1 {
		score += 20 * (others - 1)
	}
	if others > 2 {
		score += 20
	}

	if cov != nil {
		if !cov.Applies {
			score += 30
		}
		if len(cov.Exclusions) > 0 {
			score += 20
		}
	}
	return clamp(score)
}

func (s *Scorer) litigationRisk(claim *domain.ClaimRecord, injuryScore, propertyScore int) int {
	score := 10
	if injuryScore > 50 {
		score += 30
	}
	if claim.Injuries.Severity == domain.InjuryFatal {
		score += 40
	}
	if claim.OtherPartyCount() > 1 {
		score += 10
	}
	if propertyScore > 80 {
		score += 10
	}
	return clamp(score)
}

func (s *Scorer) flags(claim *domain.ClaimRecord, score *domain.SeverityScore) []string {
	var flags []string
	if claim.Injuries.AnyInjuries {
		flags = append(flags, "bodily injury reported")
	}
	if claim.Damage.Severity == domain.DamageTotalLoss {
		flags = append(flags, "reported as total loss")
	}
	if claim.Damage.StructuralDamage {
		flags = append(flags, "structural damage")
	}
	if score.LitigationRisk >= 50 {
		flags = append(flags, "elevated litigation risk")
	}
	return flags
}

// suggest applies the ordered routing tie-break. Earlier rules win.
func (s *Scorer) suggest(claim *domain.ClaimRecord, cov *domain.CoverageEvaluation, score *domain.SeverityScore) domain.RoutingOption {
	switch {
	case claim.Injuries.AnyInjuries:
		return domain.RouteFullAdjuster
	case score.Overall >= 80:
		return domain.RouteFullAdjuster
	case score.Overall >= 60:
		return domain.RouteExpressDesk
	case score.Complexity > 50:
		return domain.RouteExpressDesk
	case claim.EstimatedAmount > s.autoApprovalCeiling:
		return domain.RouteFullAdjuster
	case score.Overall < 40 && (cov == nil || len(cov.Warnings) == 0):
		return domain.RouteAutoApprove
	default:
		return domain.RouteExpressDesk
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
