// Package orchestrator sequences claim processing through seven gated phases
// and emits the final routing decision.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openclaims/kite/internal/audit"
	"github.com/openclaims/kite/internal/coverage"
	"github.com/openclaims/kite/internal/domain"
	"github.com/openclaims/kite/internal/fraud"
	"github.com/openclaims/kite/internal/investigation"
	"github.com/openclaims/kite/internal/regulatory"
	"github.com/openclaims/kite/internal/reserve"
	"github.com/openclaims/kite/internal/severity"
	"github.com/openclaims/kite/internal/valuation"
)

var (
	// ErrRunInProgress is returned when a claim already has an active run.
	// At most one run per claim avoids duplicated triggers and double
	// payment initiation.
	ErrRunInProgress = errors.New("orchestration already in progress for claim")

	// ErrInvalidClaim is returned for claims missing required fields. The
	// claim is held at INCOMPLETE, not escalated.
	ErrInvalidClaim = errors.New("invalid claim")
)

// Orchestrator drives the seven-phase decision pipeline.
type Orchestrator struct {
	cfg domain.PipelineConfig

	coverage      *coverage.Validator
	severity      *severity.Scorer
	fraud         *fraud.Detector
	investigation *investigation.Service
	valuation     *valuation.Engine
	reserve       *reserve.Calculator
	regulatory    *regulatory.Validator

	repo   domain.Repository
	bus    domain.EventBus
	audit  *audit.Sink
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// Config bundles the orchestrator's collaborators.
type Config struct {
	Pipeline      domain.PipelineConfig
	Coverage      *coverage.Validator
	Severity      *severity.Scorer
	Fraud         *fraud.Detector
	Investigation *investigation.Service
	Valuation     *valuation.Engine
	Reserve       *reserve.Calculator
	Regulatory    *regulatory.Validator
	Repository    domain.Repository
	EventBus      domain.EventBus
	Audit         *audit.Sink
	Logger        *slog.Logger
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:           cfg.Pipeline,
		coverage:      cfg.Coverage,
		severity:      cfg.Severity,
		fraud:         cfg.Fraud,
		investigation: cfg.Investigation,
		valuation:     cfg.Valuation,
		reserve:       cfg.Reserve,
		regulatory:    cfg.Regulatory,
		repo:          cfg.Repository,
		bus:           cfg.EventBus,
		audit:         cfg.Audit,
		logger:        logger,
		active:        make(map[string]struct{}),
	}
}

// phaseResult carries one phase's outcome back to the run loop. Triggers are
// folded into the run accumulator; they are never global state.
type phaseResult struct {
	triggers []domain.EscalationTrigger
	err      error
}

// runState threads the accumulated pipeline state through phases.
type runState struct {
	claim     *domain.ClaimRecord
	triggers  []domain.EscalationTrigger
	checklist domain.ChecklistStatus
	report    *investigation.Report
}

// Run processes one claim through all phases and returns the routing
// decision. A failed phase or a blocking trigger short-circuits to an
// escalated decision; unexpected panics become SYSTEM_ERROR escalations.
func (o *Orchestrator) Run(ctx context.Context, claim *domain.ClaimRecord) (*domain.RoutingDecision, error) {
	if err := validateClaim(claim); err != nil {
		claim.Status = domain.StatusIncomplete
		return nil, err
	}

	if !o.acquire(claim.ID) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, claim.ID)
	}
	defer o.release(claim.ID)

	state := &runState{
		claim:     claim,
		checklist: domain.NewChecklist(time.Now().UTC()),
	}

	phases := []struct {
		phase domain.Phase
		fn    func(context.Context, *runState) phaseResult
	}{
		{domain.PhaseIntake, o.phaseIntake},
		{domain.PhaseInvestigation, o.phaseInvestigation},
		{domain.PhaseEvaluation, o.phaseEvaluation},
		{domain.PhaseCommunications, o.phaseCommunications},
		{domain.PhaseQuality, o.phaseQuality},
		{domain.PhaseFinalValidation, o.phaseFinalValidation},
	}

	for _, p := range phases {
		state.checklist.Current = p.phase
		o.auditPhase(ctx, claim, p.phase, "phase_started", "", "")

		result := o.runPhase(ctx, p.phase, p.fn, state)
		state.triggers = append(state.triggers, result.triggers...)

		if result.err != nil {
			o.auditPhase(ctx, claim, p.phase, "phase_failed", result.err.Error(), "escalated")
			return o.decideEscalated(ctx, state, fmt.Sprintf("phase %s failed: %v", p.phase, result.err))
		}
		if trigger, blocked := firstBlocking(result.triggers); blocked {
			o.auditPhase(ctx, claim, p.phase, "phase_failed", trigger.Reason, "escalated")
			return o.decideEscalated(ctx, state, trigger.Reason)
		}

		state.checklist.MarkDone(p.phase)
		o.auditPhase(ctx, claim, p.phase, "phase_completed", "", "ok")
		o.saveClaim(ctx, claim)
	}

	state.checklist.Current = domain.PhaseRouting
	o.auditPhase(ctx, claim, domain.PhaseRouting, "phase_started", "", "")
	decision, err := o.phaseRouting(ctx, state)
	if err != nil {
		o.auditPhase(ctx, claim, domain.PhaseRouting, "phase_failed", err.Error(), "escalated")
		return o.decideEscalated(ctx, state, fmt.Sprintf("routing failed: %v", err))
	}
	state.checklist.MarkDone(domain.PhaseRouting)
	o.auditPhase(ctx, claim, domain.PhaseRouting, "phase_completed", string(decision.Decision), "ok")

	return decision, nil
}

// runPhase executes one phase with panic containment. A panicking phase must
// never crash the run; it becomes a SYSTEM_ERROR escalation.
func (o *Orchestrator) runPhase(ctx context.Context, phase domain.Phase, fn func(context.Context, *runState) phaseResult, state *runState) (result phaseResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("phase panicked", "phase", phase, "claim_id", state.claim.ID, "panic", r)
			result = phaseResult{
				triggers: []domain.EscalationTrigger{{
					Type:      domain.TriggerSystemError,
					Reason:    fmt.Sprintf("unexpected error in phase %s", phase),
					Severity:  domain.SeverityCritical,
					Timestamp: time.Now().UTC(),
				}},
				err: fmt.Errorf("phase %s panicked", phase),
			}
		}
	}()
	return fn(ctx, state)
}

// guardSub contains panics from a sub-pipeline goroutine, converting them to
// an error. A recover only catches panics on its own goroutine, so runPhase
// cannot cover work the phase fans out.
func (o *Orchestrator) guardSub(claimID, name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("sub-pipeline panicked", "pipeline", name, "claim_id", claimID, "panic", r)
			err = fmt.Errorf("%s sub-pipeline panicked", name)
		}
	}()
	fn()
	return nil
}

func (o *Orchestrator) acquire(claimID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.active[claimID]; busy {
		return false
	}
	o.active[claimID] = struct{}{}
	return true
}

func (o *Orchestrator) release(claimID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, claimID)
}

func validateClaim(claim *domain.ClaimRecord) error {
	switch {
	case claim == nil:
		return fmt.Errorf("%w: nil claim", ErrInvalidClaim)
	case claim.ID == "" || claim.TenantID == "":
		return fmt.Errorf("%w: missing claim or tenant id", ErrInvalidClaim)
	case claim.Policy == nil:
		return fmt.Errorf("%w: policy not resolved", ErrInvalidClaim)
	case claim.Vehicle == nil:
		return fmt.Errorf("%w: vehicle not resolved", ErrInvalidClaim)
	case claim.Vehicle.VIN == "":
		return fmt.Errorf("%w: vehicle VIN missing", ErrInvalidClaim)
	case claim.LossDate.IsZero():
		return fmt.Errorf("%w: loss date missing", ErrInvalidClaim)
	case claim.Type == "":
		return fmt.Errorf("%w: claim type missing", ErrInvalidClaim)
	}
	return nil
}

func firstBlocking(triggers []domain.EscalationTrigger) (domain.EscalationTrigger, bool) {
	for _, t := range triggers {
		if t.Blocking() {
			return t, true
		}
	}
	return domain.EscalationTrigger{}, false
}

func newTrigger(t domain.TriggerType, severity domain.TriggerSeverity, reason string) domain.EscalationTrigger {
	return domain.EscalationTrigger{
		Type:      t,
		Reason:    reason,
		Severity:  severity,
		Timestamp: time.Now().UTC(),
	}
}

// decideEscalated produces the terminal escalated decision. The escalation
// audit event is severity-graded; CRITICAL events must persist durably.
func (o *Orchestrator) decideEscalated(ctx context.Context, state *runState, reason string) (*domain.RoutingDecision, error) {
	claim := state.claim
	claim.Status = domain.StatusEscalated

	maxSev := domain.SeverityHigh
	for _, t := range state.triggers {
		if t.Severity == domain.SeverityCritical {
			maxSev = domain.SeverityCritical
			break
		}
	}

	decision := &domain.RoutingDecision{
		ID:        uuid.New().String(),
		TenantID:  claim.TenantID,
		ClaimID:   claim.ID,
		Decision:  domain.RouteEscalate,
		Reason:    reason,
		Priority:  priorityFor(maxSev),
		Triggers:  state.triggers,
		Checklist: state.checklist,
		DecidedAt: time.Now().UTC(),
	}

	if err := o.recordDecision(ctx, claim, decision, string(maxSev)); err != nil {
		return nil, err
	}
	return decision, nil
}

// recordDecision persists the claim and decision and writes the decision
// audit event. Audit persistence failure for critical events propagates.
func (o *Orchestrator) recordDecision(ctx context.Context, claim *domain.ClaimRecord, decision *domain.RoutingDecision, severity string) error {
	o.saveClaim(ctx, claim)

	if o.repo != nil {
		if err := o.repo.SaveDecision(ctx, claim.TenantID, decision); err != nil {
			o.logger.Error("failed to persist decision", "claim_id", claim.ID, "error", err)
		}
	}

	if o.bus != nil {
		topic := domain.TopicDecision
		if decision.Decision == domain.RouteEscalate {
			topic = domain.TopicEscalation
		}
		if err := o.bus.Publish(ctx, claim.TenantID, topic, []byte(decision.ID)); err != nil {
			o.logger.Warn("failed to publish decision", "claim_id", claim.ID, "error", err)
		}
	}

	if o.audit != nil {
		err := o.audit.Record(ctx, &domain.AuditEvent{
			TenantID: claim.TenantID,
			ClaimID:  claim.ID,
			Kind:     "decision",
			Summary:  decision.Reason,
			Outcome:  string(decision.Decision),
			Severity: severity,
		})
		if err != nil {
			return fmt.Errorf("decision made but audit trail lost: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) auditPhase(ctx context.Context, claim *domain.ClaimRecord, phase domain.Phase, kind, summary, outcome string) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Record(ctx, &domain.AuditEvent{
		TenantID: claim.TenantID,
		ClaimID:  claim.ID,
		Phase:    string(phase),
		Kind:     kind,
		Summary:  summary,
		Outcome:  outcome,
	}); err != nil {
		o.logger.Error("audit record failed", "claim_id", claim.ID, "phase", phase, "error", err)
	}
}

func (o *Orchestrator) saveClaim(ctx context.Context, claim *domain.ClaimRecord) {
	if o.repo == nil {
		return
	}
	claim.UpdatedAt = time.Now().UTC()
	if err := o.repo.SaveClaim(ctx, claim.TenantID, claim); err != nil {
		o.logger.Error("failed to persist claim", "claim_id", claim.ID, "error", err)
	}
}

func priorityFor(severity domain.TriggerSeverity) string {
	switch severity {
	case domain.SeverityCritical:
		return "urgent"
	case domain.SeverityHigh:
		return "high"
	case domain.SeverityMedium:
		return "normal"
	default:
		return "low"
	}
}
