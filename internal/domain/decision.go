package domain

import "time"

// RoutingOption is a terminal routing destination for a claim.
type RoutingOption string

const (
	RouteAutoApprove  RoutingOption = "auto_approve"
	RouteExpressDesk  RoutingOption = "express_desk"
	RouteFullAdjuster RoutingOption = "full_adjuster"
	RouteSpecialist   RoutingOption = "specialist"
	RouteSIU          RoutingOption = "siu"
	RouteEscalate     RoutingOption = "escalate"
)

// RoutingDecision is the final output of one orchestration run.
type RoutingDecision struct {
	ID       string        `json:"id"`
	TenantID string        `json:"tenantId"`
	ClaimID  string        `json:"claimId"`
	Decision RoutingOption `json:"decision"`
	Reason   string        `json:"reason"`
	Priority string        `json:"priority"` // low, normal, high, urgent

	Triggers  []EscalationTrigger `json:"triggers,omitempty"`
	Checklist ChecklistStatus     `json:"checklist"`
	DecidedAt time.Time           `json:"decidedAt"`
}

// TriggerType tags the reason class of an escalation trigger.
type TriggerType string

const (
	TriggerCoverageIssue     TriggerType = "COVERAGE_ISSUE"
	TriggerFraudIndicator    TriggerType = "FRAUD_INDICATOR"
	TriggerTotalLoss         TriggerType = "TOTAL_LOSS"
	TriggerHighReserve       TriggerType = "HIGH_RESERVE"
	TriggerComplianceFailure TriggerType = "COMPLIANCE_FAILURE"
	TriggerQualityFailure    TriggerType = "QA_FAILURE"
	TriggerSystemError       TriggerType = "SYSTEM_ERROR"
)

// TriggerSeverity grades an escalation trigger. CRITICAL and HIGH triggers
// short-circuit the orchestration to an escalated outcome.
type TriggerSeverity string

const (
	SeverityLow      TriggerSeverity = "LOW"
	SeverityMedium   TriggerSeverity = "MEDIUM"
	SeverityHigh     TriggerSeverity = "HIGH"
	SeverityCritical TriggerSeverity = "CRITICAL"
)

// EscalationTrigger records one reason a claim cannot proceed through
// automated processing. Triggers accumulate append-only within a run and are
// never cleared mid-run.
type EscalationTrigger struct {
	Type      TriggerType     `json:"type"`
	Reason    string          `json:"reason"`
	Severity  TriggerSeverity `json:"severity"`
	Timestamp time.Time       `json:"timestamp"`
}

// Blocking reports whether this trigger forces escalation on its own.
func (t EscalationTrigger) Blocking() bool {
	return t.Severity == SeverityHigh || t.Severity == SeverityCritical
}

// Phase identifies one of the seven orchestration phases.
type Phase string

const (
	PhaseIntake          Phase = "INTAKE_TRIAGE"
	PhaseInvestigation   Phase = "INVESTIGATION_FRAUD"
	PhaseEvaluation      Phase = "EVALUATION_SETTLEMENT"
	PhaseCommunications  Phase = "COMMUNICATIONS_COMPLIANCE"
	PhaseQuality         Phase = "QUALITY_ASSURANCE"
	PhaseFinalValidation Phase = "FINAL_VALIDATION"
	PhaseRouting         Phase = "SUBMISSION_ROUTING"
)

// PhaseOrder is the fixed processing order. A phase never starts before its
// predecessor completes successfully.
var PhaseOrder = []Phase{
	PhaseIntake,
	PhaseInvestigation,
	PhaseEvaluation,
	PhaseCommunications,
	PhaseQuality,
	PhaseFinalValidation,
	PhaseRouting,
}

// ChecklistStatus tracks phase completion for one orchestration run. Created
// at run start, mutated at each phase boundary, archived with the decision.
type ChecklistStatus struct {
	Completed    map[Phase]bool `json:"completed"`
	CompletedLog []Phase        `json:"completedLog,omitempty"`
	Current      Phase          `json:"current,omitempty"`
	StartedAt    time.Time      `json:"startedAt"`
}

// NewChecklist returns an empty checklist for a run starting now.
func NewChecklist(now time.Time) ChecklistStatus {
	return ChecklistStatus{
		Completed: make(map[Phase]bool, len(PhaseOrder)),
		StartedAt: now,
	}
}

// MarkDone records a completed phase.
func (c *ChecklistStatus) MarkDone(p Phase) {
	c.Completed[p] = true
	c.CompletedLog = append(c.CompletedLog, p)
}

// AllDone reports whether every phase completed.
func (c *ChecklistStatus) AllDone() bool {
	for _, p := range PhaseOrder {
		if !c.Completed[p] {
			return false
		}
	}
	return true
}

// AuditEvent is one durable entry in the claim audit trail. Every phase
// transition and the terminal decision must produce one.
type AuditEvent struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	ClaimID  string `json:"claimId"`
	Phase    string `json:"phase,omitempty"`
	Kind     string `json:"kind"`    // phase_started, phase_completed, phase_failed, escalation, decision
	Summary  string `json:"summary"` // inputs summary / outcome
	Outcome  string `json:"outcome,omitempty"`
	Severity string `json:"severity,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
