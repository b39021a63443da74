// Package coverage validates policy coverage for a claim.
package coverage

import (
	"strings"

	"github.com/openclaims/kite/internal/domain"
)

// candidateCoverages maps a claim type to the coverage types that can respond
// to it. Kept as data so adding a claim type is a data change.
var candidateCoverages = map[domain.ClaimType][]domain.CoverageType{
	domain.ClaimCollision:         {domain.CoverageCollision, domain.CoverageComprehensive},
	domain.ClaimComprehensive:     {domain.CoverageComprehensive},
	domain.ClaimLiability:         {domain.CoverageLiability},
	domain.ClaimUninsuredMotorist: {domain.CoverageUninsuredMotorist},
	domain.ClaimMedicalPayments:   {domain.CoverageMedicalPayments},
	domain.ClaimTheft:             {domain.CoverageComprehensive},
	domain.ClaimVandalism:         {domain.CoverageComprehensive},
	domain.ClaimWeather:           {domain.CoverageComprehensive},
}

// exclusionRule marks a coverage inapplicable when any keyword appears in the
// loss description.
type exclusionRule struct {
	name     string
	keywords []string
	reason   string
}

var exclusionRules = []exclusionRule{
	{
		name:     "racing",
		keywords: []string{"racing", "speed contest", "street race", "drag race"},
		reason:   "loss occurred during racing or a speed contest",
	},
	{
		name:     "intentional",
		keywords: []string{"intentional", "on purpose", "deliberately"},
		reason:   "intentional damage is excluded",
	},
	{
		name:     "commercial_use",
		keywords: []string{"delivery", "rideshare", "commercial use", "hauling for hire"},
		reason:   "commercial use on a personal policy is excluded",
	},
	{
		name:     "driver_status",
		keywords: []string{"unlicensed", "suspended license", "intoxicated", "dui", "dwi"},
		reason:   "unlicensed or intoxicated driver is excluded",
	},
}

// Validator determines which coverages apply to a claim. It never mutates the
// policy; its output is a snapshot attached to the claim's evaluation.
type Validator struct{}

// NewValidator creates a coverage validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Evaluate computes coverage applicability for the claim against its policy.
func (v *Validator) Evaluate(claim *domain.ClaimRecord) *domain.CoverageEvaluation {
	eval := &domain.CoverageEvaluation{
		PerCoverage: make(map[domain.CoverageType]domain.CoverageApplicability),
	}

	policy := claim.Policy
	if policy == nil {
		eval.Errors = append(eval.Errors, "no policy resolved for claim")
		return eval
	}

	if !policy.ActiveAt(claim.LossDate) {
		if policy.Status != domain.PolicyActive {
			eval.Errors = append(eval.Errors,
				"policy status "+string(policy.Status)+" at loss date")
		} else {
			eval.Errors = append(eval.Errors,
				"loss date outside policy effective window")
		}
		return eval
	}

	exclusions := matchExclusions(claim.Description)
	eval.Exclusions = exclusions

	candidates, ok := candidateCoverages[claim.Type]
	if !ok {
		eval.Warnings = append(eval.Warnings, "unrecognized claim type "+string(claim.Type))
	}

	for _, ct := range candidates {
		cov, found := policy.FindCoverage(ct)
		if !found {
			eval.PerCoverage[ct] = domain.CoverageApplicability{
				Type:   ct,
				Reason: "coverage not present on policy",
			}
			continue
		}

		app := domain.CoverageApplicability{
			Type:       ct,
			Applicable: true,
			Limit:      cov.Limit,
			Deductible: cov.Deductible,
			Remaining:  cov.Limit,
			Reason:     "coverage active at loss date",
		}
		if len(exclusions) > 0 {
			app.Applicable = false
			app.Reason = exclusions[0]
		}
		eval.PerCoverage[ct] = app

		if app.Applicable {
			eval.Applies = true
		}
	}

	v.detectGaps(claim, eval)

	return eval
}

// detectGaps records soft coverage gaps. Gaps are advisory, not hard failures.
func (v *Validator) detectGaps(claim *domain.ClaimRecord, eval *domain.CoverageEvaluation) {
	policy := claim.Policy

	if claim.Injuries.AnyInjuries {
		if _, ok := policy.FindCoverage(domain.CoverageMedicalPayments); !ok {
			eval.Gaps = append(eval.Gaps, "injuries reported but no medical payments coverage")
		}
	}
	if claim.NeedsRental {
		if _, ok := policy.FindCoverage(domain.CoverageRental); !ok {
			eval.Gaps = append(eval.Gaps, "rental needed but no rental coverage")
		}
	}
	if claim.NeedsTowing {
		if _, ok := policy.FindCoverage(domain.CoverageRoadside); !ok {
			eval.Gaps = append(eval.Gaps, "towing needed but no roadside coverage")
		}
	}
	if claim.Vehicle != nil && claim.Vehicle.LoanBalance > claim.Vehicle.BaseValue {
		if _, ok := policy.FindCoverage(domain.CoverageGAP); !ok {
			eval.Gaps = append(eval.Gaps, "loan balance exceeds vehicle value but no GAP coverage")
		}
	}
}

// matchExclusions returns exclusion reasons triggered by the loss description.
func matchExclusions(description string) []string {
	desc := strings.ToLower(description)
	var matched []string
	for _, rule := range exclusionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(desc, kw) {
				matched = append(matched, rule.reason)
				break
			}
		}
	}
	return matched
}
