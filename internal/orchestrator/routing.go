package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openclaims/kite/internal/domain"
)

// phaseRouting applies the final auto-approval AND gate and routes the claim.
// Every gate condition must hold for auto-approval; any single failure routes
// the claim to a human lane instead.
func (o *Orchestrator) phaseRouting(ctx context.Context, state *runState) (*domain.RoutingDecision, error) {
	claim := state.claim

	option, reason := o.route(state)

	decision := &domain.RoutingDecision{
		ID:        uuid.New().String(),
		TenantID:  claim.TenantID,
		ClaimID:   claim.ID,
		Decision:  option,
		Reason:    reason,
		Priority:  routePriority(option, claim),
		Triggers:  state.triggers,
		Checklist: state.checklist,
		DecidedAt: time.Now().UTC(),
	}

	applyRoutingStatus(claim, option)

	severity := ""
	if option == domain.RouteSIU {
		severity = string(domain.SeverityHigh)
	}
	if err := o.recordDecision(ctx, claim, decision, severity); err != nil {
		return nil, err
	}
	return decision, nil
}

func (o *Orchestrator) route(state *runState) (domain.RoutingOption, string) {
	claim := state.claim

	if claim.Fraud.RequiresSIUReview {
		return domain.RouteSIU,
			fmt.Sprintf("fraud score %.0f requires special investigations review", claim.Fraud.Score)
	}

	if ok, failed := o.autoApprovalGate(state); ok {
		return domain.RouteAutoApprove,
			fmt.Sprintf("all approval conditions met, settlement %.2f", claim.Settlement.NetAmount)
	} else if claim.Injuries.AnyInjuries {
		// injury claims always get a full adjuster regardless of amount
		return domain.RouteFullAdjuster, "bodily injury reported: " + failed
	} else if claim.Valuation.TotalLoss.IsTotalLoss {
		return domain.RouteSpecialist, "total loss requires a salvage specialist: " + failed
	}

	switch claim.Severity.Suggestion {
	case domain.RouteFullAdjuster:
		return domain.RouteFullAdjuster, fmt.Sprintf("severity score %d requires full adjustment", claim.Severity.Overall)
	case domain.RouteAutoApprove:
		// the triage suggestion is advisory; a failed gate overrides it
		return domain.RouteExpressDesk, "approval gate not met, routed for express handling"
	default:
		return domain.RouteExpressDesk, "routine claim, express desk handling"
	}
}

// autoApprovalGate is the explicit AND over every approval condition. It
// returns the first failing condition for the decision reason.
func (o *Orchestrator) autoApprovalGate(state *runState) (bool, string) {
	claim := state.claim

	ceiling := o.cfg.AutoApprovalCeiling
	if ceiling <= 0 {
		ceiling = 5000
	}
	fraudCeiling := o.cfg.FraudScoreCeiling
	if fraudCeiling <= 0 {
		fraudCeiling = 25
	}
	confidenceFloor := o.cfg.ConfidenceFloor
	if confidenceFloor <= 0 {
		confidenceFloor = 0.6
	}
	recentYears := o.cfg.RecentModelYears
	if recentYears <= 0 {
		recentYears = 3
	}

	switch {
	case claim.Settlement.NetAmount > ceiling:
		return false, fmt.Sprintf("settlement %.2f above auto-approval ceiling", claim.Settlement.NetAmount)
	case claim.Fraud.Score > fraudCeiling:
		return false, fmt.Sprintf("fraud score %.0f above ceiling", claim.Fraud.Score)
	case len(state.triggers) > 0:
		return false, fmt.Sprintf("%d open escalation triggers", len(state.triggers))
	case claim.Valuation.ACVConfidence < confidenceFloor:
		return false, fmt.Sprintf("valuation confidence %.2f below floor", claim.Valuation.ACVConfidence)
	case claim.Valuation.TotalLoss.IsTotalLoss:
		return false, "total loss determination"
	case claim.Damage.SensorZoneDamage && claim.Vehicle.Age(time.Now()) <= recentYears:
		return false, "sensor zone damage on a recent-model vehicle"
	case claim.Injuries.AnyInjuries:
		return false, "bodily injury reported"
	case !claim.Coverage.Applies || len(claim.Coverage.Exclusions) > 0 || claim.Coverage.HasGaps():
		return false, "coverage dispute open"
	case !claim.Settlement.AutoApprovalEligible:
		return false, "settlement draft not eligible for auto approval"
	}
	return true, ""
}

func applyRoutingStatus(claim *domain.ClaimRecord, option domain.RoutingOption) {
	switch option {
	case domain.RouteAutoApprove:
		claim.Status = domain.StatusApproved
	case domain.RouteSIU:
		claim.Status = domain.StatusFlaggedFraud
	case domain.RouteEscalate:
		claim.Status = domain.StatusEscalated
	default:
		claim.Status = domain.StatusUnderReview
	}
}

func routePriority(option domain.RoutingOption, claim *domain.ClaimRecord) string {
	switch option {
	case domain.RouteAutoApprove:
		return "low"
	case domain.RouteSIU:
		return "high"
	case domain.RouteEscalate:
		return "high"
	}
	if claim.Injuries.AnyInjuries || claim.Severity.Overall >= 80 {
		return "high"
	}
	return "normal"
}
