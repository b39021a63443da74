// Package reserve produces reserve recommendations and settlement drafts.
package reserve

import (
	"math"

	"github.com/openclaims/kite/internal/domain"
)

// Calculator computes reserves and settlements from the upstream scoring and
// valuation output.
type Calculator struct {
	cfg domain.PipelineConfig
}

// NewCalculator creates a reserve/settlement calculator.
func NewCalculator(cfg domain.PipelineConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Recommend builds the per-category reserve breakdown and the state-adjusted
// total for the claim.
func (c *Calculator) Recommend(claim *domain.ClaimRecord, sev *domain.SeverityScore, val *domain.ValuationResult) *domain.ReserveRecommendation {
	rec := &domain.ReserveRecommendation{
		StateMultiplier: COLMultiplierFor(claim.Location.State),
	}

	rec.Breakdown.VehicleDamage = c.vehicleDamageReserve(claim, val)
	rec.Factors = append(rec.Factors, "vehicle damage tier "+string(claim.Damage.Severity))

	if claim.Injuries.AnyInjuries {
		rec.Breakdown.BodilyInjury = injuryReserve(claim.Injuries)
		rec.Factors = append(rec.Factors, "bodily injury "+string(claim.Injuries.Severity))
	}
	if claim.NeedsRental {
		rec.Breakdown.Rental = rentalReserve
		rec.Factors = append(rec.Factors, "rental coverage needed")
	}
	if claim.NeedsTowing {
		rec.Breakdown.Towing = towingReserve
		rec.Factors = append(rec.Factors, "towing needed")
	}
	if c.needsLegalReserve(claim, sev) {
		rec.Breakdown.LegalDefense = legalReserve
		rec.Factors = append(rec.Factors, "elevated litigation exposure")
	}

	total := sumRanges(
		rec.Breakdown.VehicleDamage,
		rec.Breakdown.BodilyInjury,
		rec.Breakdown.Rental,
		rec.Breakdown.Towing,
		rec.Breakdown.LegalDefense,
	)
	rec.Total = scaleRange(total, rec.StateMultiplier)
	if rec.StateMultiplier != 1.0 {
		rec.Factors = append(rec.Factors, "state cost-of-living adjustment")
	}

	rec.Confidence = c.confidence(claim, val)

	return rec
}

// vehicleDamageReserve scales the repair cost by the damage-severity
// multiplier. Total losses reserve the settlement amount directly.
func (c *Calculator) vehicleDamageReserve(claim *domain.ClaimRecord, val *domain.ValuationResult) domain.ReserveRange {
	if val == nil {
		return domain.ReserveRange{}
	}
	if val.TotalLoss.IsTotalLoss {
		amount := val.TotalLoss.SettlementAmount
		return domain.ReserveRange{
			Min:         round2(amount),
			Max:         round2(amount * 1.1),
			Recommended: round2(amount),
		}
	}

	mult, ok := severityMultiplier[claim.Damage.Severity]
	if !ok {
		mult = 1.2
	}
	base := val.Repair.Total
	return domain.ReserveRange{
		Min:         round2(base),
		Max:         round2(base * mult * 1.25),
		Recommended: round2(base * mult),
	}
}

func injuryReserve(report domain.InjuryReport) domain.ReserveRange {
	if byType, ok := injuryReserveTable[report.Type]; ok {
		if r, ok := byType[report.Severity]; ok {
			return r
		}
	}
	if r, ok := fallbackInjuryReserve[report.Severity]; ok {
		return r
	}
	return domain.ReserveRange{}
}

func (c *Calculator) needsLegalReserve(claim *domain.ClaimRecord, sev *domain.SeverityScore) bool {
	if sev != nil && sev.LitigationRisk >= 50 {
		return true
	}
	for _, p := range claim.Participants {
		if p.AttorneyName != "" {
			return true
		}
	}
	return false
}

func (c *Calculator) confidence(claim *domain.ClaimRecord, val *domain.ValuationResult) float64 {
	conf := 0.9
	if val != nil && val.ACVConfidence < 0.6 {
		conf -= 0.2
	}
	if claim.Injuries.AnyInjuries {
		// injury outcomes carry the widest variance
		conf -= 0.2
	}
	if claim.ShopEstimate == nil {
		conf -= 0.1
	}
	if conf < 0.3 {
		conf = 0.3
	}
	return conf
}

func sumRanges(ranges ...domain.ReserveRange) domain.ReserveRange {
	var total domain.ReserveRange
	for _, r := range ranges {
		total.Min += r.Min
		total.Max += r.Max
		total.Recommended += r.Recommended
	}
	return total
}

func scaleRange(r domain.ReserveRange, factor float64) domain.ReserveRange {
	return domain.ReserveRange{
		Min:         round2(r.Min * factor),
		Max:         round2(r.Max * factor),
		Recommended: round2(r.Recommended * factor),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
