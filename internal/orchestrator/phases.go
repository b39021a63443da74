package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/openclaims/kite/internal/domain"
	"github.com/openclaims/kite/internal/investigation"
)

// phaseIntake validates the claim, evaluates coverage, and computes the
// severity triage score. An inactive policy blocks here; the scoring phases
// are never reached.
func (o *Orchestrator) phaseIntake(_ context.Context, state *runState) phaseResult {
	claim := state.claim
	var triggers []domain.EscalationTrigger

	if claim.Status == domain.StatusSubmitted || claim.Status == domain.StatusIncomplete {
		claim.Status = domain.StatusUnderReview
	}

	claim.Coverage = o.coverage.Evaluate(claim)
	if len(claim.Coverage.Errors) > 0 {
		return phaseResult{triggers: []domain.EscalationTrigger{
			newTrigger(domain.TriggerCoverageIssue, domain.SeverityHigh,
				"coverage does not apply: "+claim.Coverage.Errors[0]),
		}}
	}
	if !claim.Coverage.Applies {
		reason := "no applicable coverage for claim type"
		if len(claim.Coverage.Exclusions) > 0 {
			reason = "coverage excluded: " + claim.Coverage.Exclusions[0]
		}
		return phaseResult{triggers: []domain.EscalationTrigger{
			newTrigger(domain.TriggerCoverageIssue, domain.SeverityHigh, reason),
		}}
	}
	if claim.Coverage.HasGaps() {
		triggers = append(triggers, newTrigger(domain.TriggerCoverageIssue, domain.SeverityLow,
			fmt.Sprintf("%d coverage gaps detected", len(claim.Coverage.Gaps))))
	}

	claim.Severity = o.severity.Score(claim, claim.Coverage)

	return phaseResult{triggers: triggers}
}

// phaseInvestigation runs the investigation and fraud sub-pipelines
// concurrently against the same read-only claim snapshot and joins them.
func (o *Orchestrator) phaseInvestigation(ctx context.Context, state *runState) phaseResult {
	claim := state.claim
	claim.Status = domain.StatusInvestigating

	var (
		wg      sync.WaitGroup
		report  *investigation.Report
		screen  *domain.FraudScore
		subErrs [2]error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		subErrs[0] = o.guardSub(claim.ID, "investigation", func() {
			report = o.investigation.Investigate(ctx, claim)
		})
	}()
	go func() {
		defer wg.Done()
		subErrs[1] = o.guardSub(claim.ID, "fraud", func() {
			screen = o.fraud.Screen(ctx, claim)
		})
	}()
	wg.Wait()

	for _, err := range subErrs {
		if err != nil {
			return phaseResult{
				triggers: []domain.EscalationTrigger{
					newTrigger(domain.TriggerSystemError, domain.SeverityCritical, err.Error()),
				},
				err: err,
			}
		}
	}

	state.report = report
	claim.Fraud = screen

	var triggers []domain.EscalationTrigger

	switch {
	case screen.Tier == domain.RiskCritical:
		triggers = append(triggers, newTrigger(domain.TriggerFraudIndicator, domain.SeverityCritical,
			fmt.Sprintf("critical fraud risk, score %.0f", screen.Score)))
	case screen.RequiresSIUReview:
		// SIU-bound claims complete the pipeline so routing can send them
		// to the investigations unit with full context.
		triggers = append(triggers, newTrigger(domain.TriggerFraudIndicator, domain.SeverityMedium,
			fmt.Sprintf("SIU referral required, score %.0f", screen.Score)))
	case screen.Tier == domain.RiskMedium:
		triggers = append(triggers, newTrigger(domain.TriggerFraudIndicator, domain.SeverityLow,
			fmt.Sprintf("medium fraud risk, score %.0f", screen.Score)))
	}

	if report != nil && report.Evidence != nil && report.Evidence.Completeness < 0.5 {
		triggers = append(triggers, newTrigger(domain.TriggerQualityFailure, domain.SeverityLow,
			fmt.Sprintf("evidence completeness %.2f", report.Evidence.Completeness)))
	}

	return phaseResult{triggers: triggers}
}

// phaseEvaluation computes valuation, reserves, and the settlement draft.
func (o *Orchestrator) phaseEvaluation(ctx context.Context, state *runState) phaseResult {
	claim := state.claim
	var triggers []domain.EscalationTrigger

	claim.Valuation = o.valuation.Valuate(ctx, claim, applicableDeductible(claim.Coverage))

	if claim.Valuation.TotalLoss.IsTotalLoss {
		triggers = append(triggers, newTrigger(domain.TriggerTotalLoss, domain.SeverityMedium,
			fmt.Sprintf("total loss at %.0f%% of ACV", claim.Valuation.TotalLoss.RatioPct)))
	}

	claim.Reserve = o.reserve.Recommend(claim, claim.Severity, claim.Valuation)

	switch {
	case claim.Reserve.Total.Recommended > 100000:
		triggers = append(triggers, newTrigger(domain.TriggerHighReserve, domain.SeverityHigh,
			fmt.Sprintf("recommended reserve %.0f exceeds authority limit", claim.Reserve.Total.Recommended)))
	case claim.Reserve.Total.Recommended > 25000:
		triggers = append(triggers, newTrigger(domain.TriggerHighReserve, domain.SeverityMedium,
			fmt.Sprintf("recommended reserve %.0f requires supervisor review", claim.Reserve.Total.Recommended)))
	}

	claim.Settlement = o.reserve.BuildSettlement(claim, claim.Reserve, claim.Valuation, claim.Coverage, claim.Fraud, time.Now().UTC())

	return phaseResult{triggers: triggers}
}

// phaseCommunications runs the regulatory compliance checks. Claimant-facing
// letters and notices are generated by an external collaborator and are out
// of scope here.
func (o *Orchestrator) phaseCommunications(_ context.Context, state *runState) phaseResult {
	claim := state.claim

	claim.Compliance = o.regulatory.Check(claim, claim.Fraud, time.Now().UTC())

	var triggers []domain.EscalationTrigger
	switch claim.Compliance.Overall {
	case domain.NonCompliant:
		triggers = append(triggers, newTrigger(domain.TriggerComplianceFailure, domain.SeverityHigh,
			"regulatory compliance failure in state "+claim.Compliance.State))
	case domain.NeedsReview:
		triggers = append(triggers, newTrigger(domain.TriggerComplianceFailure, domain.SeverityLow,
			"compliance check needs review in state "+claim.Compliance.State))
	}

	return phaseResult{triggers: triggers}
}

// phaseQuality cross-checks the computed artifacts for internal consistency.
func (o *Orchestrator) phaseQuality(_ context.Context, state *runState) phaseResult {
	claim := state.claim

	var problems []string
	if claim.Coverage == nil {
		problems = append(problems, "coverage evaluation missing")
	}
	if claim.Severity == nil {
		problems = append(problems, "severity score missing")
	} else if claim.Severity.Overall < 0 || claim.Severity.Overall > 100 {
		problems = append(problems, "severity score out of range")
	}
	if claim.Fraud == nil {
		problems = append(problems, "fraud screen missing")
	} else if claim.Fraud.Score < 0 || claim.Fraud.Score > 100 {
		problems = append(problems, "fraud score out of range")
	}
	if claim.Valuation == nil {
		problems = append(problems, "valuation missing")
	}
	if claim.Reserve == nil {
		problems = append(problems, "reserve recommendation missing")
	}
	if claim.Settlement == nil {
		problems = append(problems, "settlement draft missing")
	} else {
		var sum float64
		for _, comp := range claim.Settlement.Components {
			sum += comp.Amount
		}
		if math.Abs(sum-claim.Settlement.NetAmount) > 0.05 {
			problems = append(problems, "settlement components do not sum to net amount")
		}
	}
	if claim.Compliance == nil {
		problems = append(problems, "compliance report missing")
	}

	if len(problems) > 0 {
		return phaseResult{triggers: []domain.EscalationTrigger{
			newTrigger(domain.TriggerQualityFailure, domain.SeverityHigh,
				"quality assurance failed: "+problems[0]),
		}}
	}
	return phaseResult{}
}

// phaseFinalValidation verifies the claim is in a routable state before the
// decision is made.
func (o *Orchestrator) phaseFinalValidation(_ context.Context, state *runState) phaseResult {
	claim := state.claim
	now := time.Now().UTC()

	if claim.Settlement.Expired(now) {
		return phaseResult{triggers: []domain.EscalationTrigger{
			newTrigger(domain.TriggerQualityFailure, domain.SeverityHigh,
				"settlement offer expired before routing"),
		}}
	}
	if claim.Settlement.NetAmount < 0 {
		return phaseResult{triggers: []domain.EscalationTrigger{
			newTrigger(domain.TriggerQualityFailure, domain.SeverityHigh,
				"negative settlement amount"),
		}}
	}
	if claim.Status.Terminal() {
		return phaseResult{err: fmt.Errorf("claim %s already terminal", claim.ID)}
	}
	return phaseResult{}
}

// applicableDeductible returns the deductible of the first applicable
// coverage. The coverage map is keyed by type; pick the lowest deductible
// among applicable coverages so the insured-favorable line wins.
func applicableDeductible(cov *domain.CoverageEvaluation) float64 {
	if cov == nil {
		return 0
	}
	deductible := -1.0
	for _, a := range cov.PerCoverage {
		if !a.Applicable {
			continue
		}
		if deductible < 0 || a.Deductible < deductible {
			deductible = a.Deductible
		}
	}
	if deductible < 0 {
		return 0
	}
	return deductible
}
