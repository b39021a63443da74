package reserve

import (
	"math"
	"testing"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

func calcClaim() *domain.ClaimRecord {
	return &domain.ClaimRecord{
		ID:           "CLM-1",
		Type:         domain.ClaimCollision,
		ClaimantName: "Jordan Avery",
		Location:     domain.LossLocation{State: "AZ"},
		Damage:       domain.DamageReport{Severity: domain.DamageModerate, Drivable: true},
		Vehicle:      &domain.VehicleRecord{VIN: "VIN1"},
		PoliceReport: &domain.PoliceReport{Filed: true},
	}
}

func repairValuation(total float64) *domain.ValuationResult {
	return &domain.ValuationResult{
		ACV:           12000,
		ACVConfidence: 0.9,
		Repair:        domain.RepairEstimate{Total: total, Source: "shop"},
	}
}

func TestVehicleDamageReserveMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		severity domain.DamageSeverity
		want     float64
	}{
		{"minor", domain.DamageMinor, 4400},
		{"moderate", domain.DamageModerate, 4800},
		{"severe", domain.DamageSevere, 5200},
	}

	c := NewCalculator(domain.DefaultPipelineConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := calcClaim()
			claim.Damage.Severity = tt.severity
			rec := c.Recommend(claim, nil, repairValuation(4000))
			if rec.Breakdown.VehicleDamage.Recommended != tt.want {
				t.Errorf("expected %v, got %v", tt.want, rec.Breakdown.VehicleDamage.Recommended)
			}
		})
	}
}

func TestTotalLossReservesSettlementAmount(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())
	val := repairValuation(11000)
	val.TotalLoss = domain.TotalLossAnalysis{IsTotalLoss: true, SettlementAmount: 11500}

	rec := c.Recommend(calcClaim(), nil, val)
	if rec.Breakdown.VehicleDamage.Recommended != 11500 {
		t.Errorf("expected settlement amount reserved, got %v", rec.Breakdown.VehicleDamage.Recommended)
	}
}

func TestInjuryReserveTable(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())

	claim := calcClaim()
	claim.Injuries = domain.InjuryReport{
		AnyInjuries: true,
		Severity:    domain.InjuryModerate,
		Type:        domain.InjuryFracture,
	}

	rec := c.Recommend(claim, nil, repairValuation(4000))
	if rec.Breakdown.BodilyInjury.Recommended != 30000 {
		t.Errorf("expected fracture/moderate reserve 30000, got %v", rec.Breakdown.BodilyInjury.Recommended)
	}
}

func TestConditionalAddOns(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())

	claim := calcClaim()
	claim.NeedsRental = true
	claim.NeedsTowing = true
	claim.Participants = []domain.Participant{
		{Name: "a", Role: domain.RoleOtherDriver, AttorneyName: "Stern & Wolfe"},
	}

	rec := c.Recommend(claim, nil, repairValuation(4000))
	if rec.Breakdown.Rental.Recommended == 0 {
		t.Error("expected rental reserve")
	}
	if rec.Breakdown.Towing.Recommended == 0 {
		t.Error("expected towing reserve")
	}
	if rec.Breakdown.LegalDefense.Recommended == 0 {
		t.Error("expected legal defense reserve when an attorney appears")
	}
}

func TestStateMultiplierApplied(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())

	claim := calcClaim()
	claim.Location.State = "CA"

	rec := c.Recommend(claim, nil, repairValuation(4000))
	if rec.StateMultiplier != 1.25 {
		t.Fatalf("expected CA multiplier 1.25, got %v", rec.StateMultiplier)
	}
	// moderate: recommended 4800 x 1.25
	if rec.Total.Recommended != 6000 {
		t.Errorf("expected total 6000, got %v", rec.Total.Recommended)
	}
}

func cleanCoverage(limit, deductible float64) *domain.CoverageEvaluation {
	return &domain.CoverageEvaluation{
		Applies: true,
		PerCoverage: map[domain.CoverageType]domain.CoverageApplicability{
			domain.CoverageCollision: {
				Type:       domain.CoverageCollision,
				Applicable: true,
				Limit:      limit,
				Deductible: deductible,
				Remaining:  limit,
			},
		},
	}
}

func TestSettlementComponents(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())

	claim := calcClaim()
	claim.Injuries = domain.InjuryReport{
		AnyInjuries:      true,
		Severity:         domain.InjuryModerate,
		Type:             domain.InjurySoftTissue,
		MedicalTreatment: true,
	}
	claim.NeedsRental = true
	claim.NeedsTowing = true

	rec := c.Recommend(claim, nil, repairValuation(4000))
	draft := c.BuildSettlement(claim, rec, repairValuation(4000), cleanCoverage(500000, 500), nil, time.Now())

	byCategory := map[string]float64{}
	for _, comp := range draft.Components {
		byCategory[comp.Category] = comp.Amount
	}

	// injury reserve soft tissue moderate = 7500
	if byCategory["medical"] != 4500 {
		t.Errorf("expected medical 60%% = 4500, got %v", byCategory["medical"])
	}
	if byCategory["pain_suffering"] != 3000 {
		t.Errorf("expected pain and suffering 40%% = 3000, got %v", byCategory["pain_suffering"])
	}
	if byCategory["lost_wages"] != 750 {
		t.Errorf("expected lost wages 750, got %v", byCategory["lost_wages"])
	}
	if byCategory["property"] == 0 || byCategory["loss_of_use"] == 0 || byCategory["towing"] == 0 {
		t.Errorf("missing components: %v", byCategory)
	}
}

func TestProportionalLimitScaling(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())

	claim := calcClaim()
	claim.Injuries = domain.InjuryReport{
		AnyInjuries: true,
		Severity:    domain.InjurySevere,
		Type:        domain.InjurySpinal,
	}

	rec := c.Recommend(claim, nil, repairValuation(4000))
	cov := cleanCoverage(50000, 500)
	draft := c.BuildSettlement(claim, rec, repairValuation(4000), cov, nil, time.Now())

	net := cov.NetAvailable()
	var sum float64
	for _, comp := range draft.Components {
		sum += comp.Amount
	}
	if math.Abs(sum-net) > 0.05 {
		t.Errorf("scaled components must sum to net coverage %v, got %v", net, sum)
	}
	if draft.NetAmount != round2(net) {
		t.Errorf("expected net amount %v, got %v", net, draft.NetAmount)
	}
	if draft.GrossAmount <= draft.NetAmount {
		t.Error("gross must exceed net when scaling applied")
	}
}

func TestAutoApprovalGate(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())
	lowFraud := &domain.FraudScore{Score: 10}

	tests := []struct {
		name   string
		mutate func(*domain.ClaimRecord, *domain.CoverageEvaluation) *domain.FraudScore
		want   bool
	}{
		{"clean small claim", func(_ *domain.ClaimRecord, _ *domain.CoverageEvaluation) *domain.FraudScore {
			return lowFraud
		}, true},
		{"injuries block", func(claim *domain.ClaimRecord, _ *domain.CoverageEvaluation) *domain.FraudScore {
			claim.Injuries.AnyInjuries = true
			return lowFraud
		}, false},
		{"fraud score blocks", func(_ *domain.ClaimRecord, _ *domain.CoverageEvaluation) *domain.FraudScore {
			return &domain.FraudScore{Score: 40}
		}, false},
		{"coverage gap blocks", func(_ *domain.ClaimRecord, cov *domain.CoverageEvaluation) *domain.FraudScore {
			cov.Gaps = append(cov.Gaps, "no rental coverage")
			return lowFraud
		}, false},
		{"claim type outside allow-list", func(claim *domain.ClaimRecord, _ *domain.CoverageEvaluation) *domain.FraudScore {
			claim.Type = domain.ClaimLiability
			return lowFraud
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := calcClaim()
			claim.Damage.Severity = domain.DamageMinor
			cov := cleanCoverage(500000, 0)
			fraud := tt.mutate(claim, cov)

			rec := c.Recommend(claim, nil, repairValuation(1000))
			draft := c.BuildSettlement(claim, rec, repairValuation(1000), cov, fraud, time.Now())
			if draft.AutoApprovalEligible != tt.want {
				t.Errorf("expected eligible=%v, got %v (net %v)", tt.want, draft.AutoApprovalEligible, draft.NetAmount)
			}
		})
	}
}

func TestAutoApprovalAmountCeiling(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())
	claim := calcClaim()
	cov := cleanCoverage(500000, 0)

	rec := c.Recommend(claim, nil, repairValuation(8000))
	draft := c.BuildSettlement(claim, rec, repairValuation(8000), cov, &domain.FraudScore{Score: 5}, time.Now())
	if draft.AutoApprovalEligible {
		t.Errorf("amount %v above the ceiling must not be eligible", draft.NetAmount)
	}
}

func TestNegotiationRangeAndExpiry(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())
	claim := calcClaim()
	cov := cleanCoverage(500000, 0)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	rec := c.Recommend(claim, nil, repairValuation(4000))
	draft := c.BuildSettlement(claim, rec, repairValuation(4000), cov, nil, now)

	base := draft.NetAmount
	if draft.Negotiation.Maximum != base {
		t.Errorf("maximum must equal base, got %v", draft.Negotiation.Maximum)
	}
	if draft.Negotiation.Target != round2(base*0.95) {
		t.Errorf("target must be 95%% of base, got %v", draft.Negotiation.Target)
	}
	if draft.Negotiation.Minimum != round2(base*0.90) {
		t.Errorf("undisputed minimum must be 90%% of base, got %v", draft.Negotiation.Minimum)
	}

	wantExpiry := now.AddDate(0, 0, 30)
	if !draft.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expected expiry %v, got %v", wantExpiry, draft.ExpiresAt)
	}
	if draft.Expired(now.AddDate(0, 0, 29)) {
		t.Error("offer must still be open before expiry")
	}
	if !draft.Expired(now.AddDate(0, 0, 31)) {
		t.Error("offer must be expired after 30 days")
	}
}

func TestNegotiationMinimumTightensOnDispute(t *testing.T) {
	c := NewCalculator(domain.DefaultPipelineConfig())
	claim := calcClaim()
	claim.Participants = []domain.Participant{{Name: "a", Role: domain.RoleOtherDriver}}
	claim.PoliceReport = nil
	cov := cleanCoverage(500000, 0)

	rec := c.Recommend(claim, nil, repairValuation(4000))
	draft := c.BuildSettlement(claim, rec, repairValuation(4000), cov, nil, time.Now())
	if draft.Negotiation.Minimum != round2(draft.NetAmount*0.80) {
		t.Errorf("expected disputed minimum 80%%, got %v", draft.Negotiation.Minimum)
	}
}
