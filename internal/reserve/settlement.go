package reserve

import (
	"time"

	"github.com/google/uuid"
	"github.com/openclaims/kite/internal/domain"
)

// Injury reserve split between economic and general damages.
const (
	medicalShare       = 0.60
	painSufferingShare = 0.40
	lostWagesShare     = 0.10
)

// BuildSettlement assembles the itemized settlement draft for the claim.
// Components are scaled proportionally when they exceed the net coverage
// available; exceeding the limit is a recoverable degrade, not a failure.
func (c *Calculator) BuildSettlement(claim *domain.ClaimRecord, rec *domain.ReserveRecommendation, val *domain.ValuationResult, cov *domain.CoverageEvaluation, fraud *domain.FraudScore, now time.Time) *domain.SettlementDraft {
	draft := &domain.SettlementDraft{
		ID:      uuid.New().String(),
		ClaimID: claim.ID,
	}

	draft.Components = c.buildComponents(claim, rec, val)

	var gross float64
	for _, comp := range draft.Components {
		gross += comp.Amount
	}
	draft.GrossAmount = round2(gross)

	net := gross
	if cov != nil {
		if available := cov.NetAvailable(); gross > available {
			draft.Components = scaleComponents(draft.Components, available/gross)
			net = available
		}
	}
	draft.NetAmount = round2(net)

	draft.AutoApprovalEligible = c.autoApprovalEligible(claim, cov, fraud, draft.NetAmount)
	draft.Negotiation = c.negotiationRange(claim, cov, draft.NetAmount)
	draft.ReleaseRequired = claim.Injuries.AnyInjuries || draft.NetAmount >= 10000

	draft.Payment = domain.PaymentStub{Method: "ach", Payee: claim.ClaimantName}

	validity := c.cfg.OfferValidityDays
	if validity <= 0 {
		validity = 30
	}
	draft.IssuedAt = now
	draft.ExpiresAt = now.AddDate(0, 0, validity)

	return draft
}

func (c *Calculator) buildComponents(claim *domain.ClaimRecord, rec *domain.ReserveRecommendation, val *domain.ValuationResult) []domain.SettlementComponent {
	var components []domain.SettlementComponent

	property := rec.Breakdown.VehicleDamage.Recommended
	if val != nil && val.TotalLoss.IsTotalLoss {
		property = val.TotalLoss.SettlementAmount
	}
	if property > 0 {
		components = append(components, domain.SettlementComponent{
			Category:    "property",
			Description: "vehicle damage",
			Amount:      round2(property),
		})
	}

	if injury := rec.Breakdown.BodilyInjury.Recommended; injury > 0 {
		components = append(components,
			domain.SettlementComponent{
				Category:    "medical",
				Description: "medical expenses",
				Amount:      round2(injury * medicalShare),
			},
			domain.SettlementComponent{
				Category:    "pain_suffering",
				Description: "pain and suffering",
				Amount:      round2(injury * painSufferingShare),
			},
		)
		if claim.Injuries.MedicalTreatment {
			components = append(components, domain.SettlementComponent{
				Category:    "lost_wages",
				Description: "lost wages",
				Amount:      round2(injury * lostWagesShare),
			})
		}
	}

	if rental := rec.Breakdown.Rental.Recommended; rental > 0 {
		components = append(components, domain.SettlementComponent{
			Category:    "loss_of_use",
			Description: "rental during repair",
			Amount:      round2(rental),
		})
	}
	if towing := rec.Breakdown.Towing.Recommended; towing > 0 {
		components = append(components, domain.SettlementComponent{
			Category:    "towing",
			Description: "towing and storage",
			Amount:      round2(towing),
		})
	}

	return components
}

// scaleComponents applies a uniform factor so the component sum fits the
// coverage limit.
func scaleComponents(components []domain.SettlementComponent, factor float64) []domain.SettlementComponent {
	scaled := make([]domain.SettlementComponent, len(components))
	for i, comp := range components {
		comp.Amount = round2(comp.Amount * factor)
		scaled[i] = comp
	}
	return scaled
}

// autoApprovalEligible applies the settlement-level AND gate. The orchestrator
// applies its own final gate on top of this.
func (c *Calculator) autoApprovalEligible(claim *domain.ClaimRecord, cov *domain.CoverageEvaluation, fraud *domain.FraudScore, amount float64) bool {
	ceiling := c.cfg.AutoApprovalCeiling
	if ceiling <= 0 {
		ceiling = 5000
	}
	fraudCeiling := c.cfg.FraudScoreCeiling
	if fraudCeiling <= 0 {
		fraudCeiling = 25
	}

	if amount > ceiling {
		return false
	}
	if fraud != nil && fraud.Score > fraudCeiling {
		return false
	}
	if claim.Injuries.AnyInjuries {
		return false
	}
	if cov != nil && cov.HasGaps() {
		return false
	}
	return autoApproveClaimTypes[claim.Type]
}

// negotiationRange brackets the offer. The minimum factor tightens when
// liability is disputed or exclusions cloud the claim.
func (c *Calculator) negotiationRange(claim *domain.ClaimRecord, cov *domain.CoverageEvaluation, base float64) domain.NegotiationRange {
	minFactor := 0.90
	if cov != nil && len(cov.Exclusions) > 0 {
		minFactor = 0.75
	} else if claim.OtherPartyCount() >= 1 && (claim.PoliceReport == nil || !claim.PoliceReport.Filed) {
		// liability contest likely without an official report
		minFactor = 0.80
	}

	return domain.NegotiationRange{
		Minimum: round2(base * minFactor),
		Target:  round2(base * 0.95),
		Maximum: round2(base),
	}
}
