// Package regulatory checks claim handling against per-state fair claims
// practice deadlines.
package regulatory

import (
	"fmt"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

// StateRule holds one state's claim-handling deadlines, in days.
type StateRule struct {
	AckDays        int
	DecisionDays   int
	PaymentDays    int
	FraudReporting bool
	Citation       string
}

// defaultRule applies when the loss state is not configured.
var defaultRule = StateRule{
	AckDays:        15,
	DecisionDays:   40,
	PaymentDays:    30,
	FraudReporting: false,
	Citation:       "NAIC Unfair Claims Settlement Practices Model Act",
}

// stateRules holds per-state deadlines. Adding a state is a data change.
var stateRules = map[string]StateRule{
	"AZ": {AckDays: 10, DecisionDays: 30, PaymentDays: 30, FraudReporting: true, Citation: "Ariz. Admin. Code R20-6-801"},
	"CA": {AckDays: 15, DecisionDays: 40, PaymentDays: 30, FraudReporting: true, Citation: "Cal. Code Regs. tit. 10 § 2695"},
	"CO": {AckDays: 10, DecisionDays: 60, PaymentDays: 30, FraudReporting: true, Citation: "Colo. Rev. Stat. § 10-3-1104"},
	"CT": {AckDays: 15, DecisionDays: 40, PaymentDays: 30, FraudReporting: true, Citation: "Conn. Agencies Regs. § 38a-816"},
	"FL": {AckDays: 14, DecisionDays: 90, PaymentDays: 20, FraudReporting: true, Citation: "Fla. Stat. § 626.9541"},
	"GA": {AckDays: 15, DecisionDays: 30, PaymentDays: 10, FraudReporting: true, Citation: "Ga. Comp. R. & Regs. 120-2-52"},
	"IL": {AckDays: 21, DecisionDays: 30, PaymentDays: 30, FraudReporting: false, Citation: "50 Ill. Adm. Code 919"},
	"MA": {AckDays: 14, DecisionDays: 25, PaymentDays: 30, FraudReporting: true, Citation: "Mass. Gen. Laws ch. 176D"},
	"MI": {AckDays: 30, DecisionDays: 30, PaymentDays: 60, FraudReporting: true, Citation: "Mich. Comp. Laws § 500.2006"},
	"NC": {AckDays: 14, DecisionDays: 30, PaymentDays: 30, FraudReporting: true, Citation: "N.C. Gen. Stat. § 58-63-15"},
	"NJ": {AckDays: 10, DecisionDays: 45, PaymentDays: 30, FraudReporting: true, Citation: "N.J. Admin. Code § 11:2-17"},
	"NY": {AckDays: 15, DecisionDays: 15, PaymentDays: 30, FraudReporting: true, Citation: "N.Y. Comp. Codes R. & Regs. tit. 11 § 216"},
	"OH": {AckDays: 15, DecisionDays: 21, PaymentDays: 10, FraudReporting: false, Citation: "Ohio Admin. Code 3901-1-54"},
	"OR": {AckDays: 30, DecisionDays: 45, PaymentDays: 30, FraudReporting: false, Citation: "Or. Admin. R. 836-080-0225"},
	"PA": {AckDays: 10, DecisionDays: 30, PaymentDays: 30, FraudReporting: true, Citation: "31 Pa. Code § 146"},
	"TX": {AckDays: 15, DecisionDays: 15, PaymentDays: 5, FraudReporting: true, Citation: "Tex. Ins. Code § 542.055"},
	"WA": {AckDays: 10, DecisionDays: 30, PaymentDays: 30, FraudReporting: true, Citation: "Wash. Admin. Code 284-30-330"},
}

// RuleFor returns the claim-handling rule for a state.
func RuleFor(state string) StateRule {
	if r, ok := stateRules[state]; ok {
		return r
	}
	return defaultRule
}

// Validator runs the per-state compliance point checks.
type Validator struct{}

// NewValidator creates a regulatory validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Check runs all point checks for the claim as of now. Fraud may be nil when
// the fraud screen has not run.
func (v *Validator) Check(claim *domain.ClaimRecord, fraud *domain.FraudScore, now time.Time) *domain.ComplianceReport {
	state := claim.Location.State
	rule := RuleFor(state)

	report := &domain.ComplianceReport{State: state}
	report.Checks = append(report.Checks,
		v.checkAcknowledgment(claim, rule, now),
		v.checkPromptNotice(claim, rule),
		v.checkDecisionDeadline(claim, rule, now),
		v.checkPaymentDeadline(claim, rule, now),
		v.checkFraudReporting(fraud, rule),
	)

	report.Overall = rollUp(report.Checks)
	return report
}

// checkAcknowledgment verifies the claim was acknowledged (taken into intake)
// within the state's acknowledgment window.
func (v *Validator) checkAcknowledgment(claim *domain.ClaimRecord, rule StateRule, now time.Time) domain.ComplianceCheck {
	check := domain.ComplianceCheck{
		Name:     "acknowledgment_timeliness",
		Citation: rule.Citation,
	}

	ackAt := claim.CreatedAt
	if ackAt.IsZero() {
		ackAt = now
	}
	days := daysBetween(claim.ReportDate, ackAt)

	if days <= rule.AckDays {
		check.Status = domain.Compliant
		check.Detail = fmt.Sprintf("acknowledged %d days after report (limit %d)", days, rule.AckDays)
	} else {
		check.Status = domain.NonCompliant
		check.Detail = fmt.Sprintf("acknowledged %d days after report, limit is %d", days, rule.AckDays)
		check.Remediation = "send written acknowledgment to the claimant immediately and document the delay"
	}
	return check
}

// checkPromptNotice reviews the lag between the loss and its report. Late
// notice is ambiguous, not an automatic violation.
func (v *Validator) checkPromptNotice(claim *domain.ClaimRecord, rule StateRule) domain.ComplianceCheck {
	check := domain.ComplianceCheck{
		Name:     "prompt_notice",
		Citation: rule.Citation,
	}

	lag := daysBetween(claim.LossDate, claim.ReportDate)
	if lag <= 30 {
		check.Status = domain.Compliant
		check.Detail = fmt.Sprintf("loss reported %d days after occurrence", lag)
	} else {
		check.Status = domain.NeedsReview
		check.Detail = fmt.Sprintf("loss reported %d days after occurrence", lag)
		check.Remediation = "review late-notice prejudice before denying on notice grounds"
	}
	return check
}

// checkDecisionDeadline verifies the claim decision is on track against the
// state decision window.
func (v *Validator) checkDecisionDeadline(claim *domain.ClaimRecord, rule StateRule, now time.Time) domain.ComplianceCheck {
	check := domain.ComplianceCheck{
		Name:     "decision_deadline",
		Citation: rule.Citation,
	}

	if decided(claim.Status) {
		check.Status = domain.Compliant
		check.Detail = "decision already issued"
		return check
	}

	elapsed := daysBetween(claim.ReportDate, now)
	switch {
	case elapsed > rule.DecisionDays:
		check.Status = domain.NonCompliant
		check.Detail = fmt.Sprintf("undecided %d days after report, limit is %d", elapsed, rule.DecisionDays)
		check.Remediation = "issue a decision or a written delay notice with the reason for the delay"
	case elapsed*4 > rule.DecisionDays*3:
		check.Status = domain.NeedsReview
		check.Detail = fmt.Sprintf("%d of %d decision days elapsed", elapsed, rule.DecisionDays)
		check.Remediation = "prioritize this claim ahead of the statutory decision deadline"
	default:
		check.Status = domain.Compliant
		check.Detail = fmt.Sprintf("%d of %d decision days elapsed", elapsed, rule.DecisionDays)
	}
	return check
}

// checkPaymentDeadline applies only after approval.
func (v *Validator) checkPaymentDeadline(claim *domain.ClaimRecord, rule StateRule, now time.Time) domain.ComplianceCheck {
	check := domain.ComplianceCheck{
		Name:     "payment_deadline",
		Citation: rule.Citation,
	}

	if claim.Status != domain.StatusApproved {
		check.Status = domain.NotApplicable
		check.Detail = "claim not yet approved"
		return check
	}

	elapsed := daysBetween(claim.UpdatedAt, now)
	if elapsed > rule.PaymentDays {
		check.Status = domain.NonCompliant
		check.Detail = fmt.Sprintf("approved %d days ago, payment limit is %d days", elapsed, rule.PaymentDays)
		check.Remediation = "initiate payment and document the delay cause"
	} else {
		check.Status = domain.Compliant
		check.Detail = fmt.Sprintf("%d of %d payment days elapsed", elapsed, rule.PaymentDays)
	}
	return check
}

// checkFraudReporting flags the state fraud-bureau reporting obligation when
// the claim is SIU-bound.
func (v *Validator) checkFraudReporting(fraud *domain.FraudScore, rule StateRule) domain.ComplianceCheck {
	check := domain.ComplianceCheck{
		Name:     "fraud_reporting",
		Citation: rule.Citation,
	}

	if fraud == nil || !fraud.RequiresSIUReview {
		check.Status = domain.NotApplicable
		check.Detail = "no SIU referral on this claim"
		return check
	}
	if !rule.FraudReporting {
		check.Status = domain.NotApplicable
		check.Detail = "state has no mandatory fraud reporting"
		return check
	}

	check.Status = domain.NeedsReview
	check.Detail = "SIU referral in a mandatory fraud-reporting state"
	check.Remediation = "file the state fraud bureau report within the statutory window"
	return check
}

// rollUp computes the overall status: NON_COMPLIANT if any check failed, else
// NEEDS_REVIEW if any check is ambiguous, else COMPLIANT.
func rollUp(checks []domain.ComplianceCheck) domain.ComplianceStatus {
	overall := domain.Compliant
	for _, c := range checks {
		switch c.Status {
		case domain.NonCompliant:
			return domain.NonCompliant
		case domain.NeedsReview:
			overall = domain.NeedsReview
		}
	}
	return overall
}

func decided(status domain.ClaimStatus) bool {
	switch status {
	case domain.StatusApproved, domain.StatusRejected, domain.StatusPaid, domain.StatusClosed:
		return true
	}
	return false
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
