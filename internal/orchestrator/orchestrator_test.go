package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openclaims/kite/internal/audit"
	"github.com/openclaims/kite/internal/coverage"
	"github.com/openclaims/kite/internal/domain"
	"github.com/openclaims/kite/internal/extract"
	"github.com/openclaims/kite/internal/fraud"
	"github.com/openclaims/kite/internal/investigation"
	"github.com/openclaims/kite/internal/regulatory"
	"github.com/openclaims/kite/internal/reserve"
	"github.com/openclaims/kite/internal/severity"
	"github.com/openclaims/kite/internal/valuation"
)

// memRepo is an in-memory Repository for pipeline tests.
type memRepo struct {
	mu        sync.Mutex
	claims    map[string]*domain.ClaimRecord
	decisions map[string]*domain.RoutingDecision
	rules     map[string]*domain.FraudRuleConfig
	watchlist []*domain.WatchlistEntry
	events    []*domain.AuditEvent
	failAudit bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		claims:    make(map[string]*domain.ClaimRecord),
		decisions: make(map[string]*domain.RoutingDecision),
		rules:     make(map[string]*domain.FraudRuleConfig),
	}
}

func (m *memRepo) SaveClaim(_ context.Context, _ string, claim *domain.ClaimRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ID] = claim
	return nil
}

func (m *memRepo) GetClaim(_ context.Context, _ string, id string) (*domain.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.claims[id]; ok {
		return c, nil
	}
	return nil, errors.New("not found")
}

func (m *memRepo) CountClaimsByClaimant(_ context.Context, _, _ string, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *memRepo) SaveDecision(_ context.Context, _ string, d *domain.RoutingDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[d.ID] = d
	return nil
}

func (m *memRepo) GetDecision(_ context.Context, _ string, id string) (*domain.RoutingDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.decisions[id]; ok {
		return d, nil
	}
	return nil, errors.New("not found")
}

func (m *memRepo) GetDecisionByClaim(_ context.Context, _ string, claimID string) (*domain.RoutingDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.decisions {
		if d.ClaimID == claimID {
			return d, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memRepo) SaveFraudRule(_ context.Context, _ string, r *domain.FraudRuleConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = r
	return nil
}

func (m *memRepo) GetFraudRule(_ context.Context, _ string, id string) (*domain.FraudRuleConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rules[id]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

func (m *memRepo) ListFraudRules(_ context.Context, _ string) ([]*domain.FraudRuleConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.FraudRuleConfig
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) SaveWatchlistEntry(_ context.Context, _ string, e *domain.WatchlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchlist = append(m.watchlist, e)
	return nil
}

func (m *memRepo) FindWatchlistEntries(_ context.Context, _ string, party domain.WatchlistParty, name string) ([]*domain.WatchlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.WatchlistEntry
	for _, e := range m.watchlist {
		if e.Party == party && e.Name == name {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) SaveAuditEvent(_ context.Context, _ string, e *domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAudit {
		return errors.New("audit store down")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memRepo) ListAuditEvents(_ context.Context, _ string, claimID string) ([]*domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditEvent
	for _, e := range m.events {
		if e.ClaimID == claimID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) Ping(_ context.Context) error { return nil }
func (m *memRepo) Close() error                 { return nil }

type fixedPricing struct {
	value float64
}

func (f fixedPricing) Name() string { return "test-book" }
func (f fixedPricing) ACV(_ context.Context, _ *domain.VehicleRecord) (*domain.PricingQuote, error) {
	return &domain.PricingQuote{Value: f.value, Confidence: 0.9, Source: "test-book"}, nil
}

type fixedModel struct {
	signal float64
}

func (f fixedModel) Score(_ context.Context, _ *domain.ClaimRecord) (float64, error) {
	return f.signal, nil
}

type panickingModel struct{}

func (panickingModel) Score(_ context.Context, _ *domain.ClaimRecord) (float64, error) {
	panic("model backend lost connection")
}

type okExtractor struct{}

func (okExtractor) Extract(_ context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	return &domain.ExtractionResult{DocumentID: doc.ID, Confidence: 0.9}, nil
}

type harness struct {
	orch *Orchestrator
	repo *memRepo
}

func newHarness(t *testing.T, fraudRules []*domain.FraudRuleConfig, model domain.FraudModel, acv float64) *harness {
	t.Helper()

	engine, err := fraud.NewEngine(5)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { engine.Close() })
	if err := engine.LoadRules(fraudRules); err != nil {
		t.Fatal(err)
	}

	cfg := domain.DefaultPipelineConfig()
	repo := newMemRepo()
	sink := audit.NewSink(repo, nil, nil)

	orch := New(Config{
		Pipeline:      cfg,
		Coverage:      coverage.NewValidator(),
		Severity:      severity.NewScorer(cfg.AutoApprovalCeiling),
		Fraud:         fraud.NewDetector(engine, model, nil, nil, cfg, nil),
		Investigation: investigation.NewService(extract.NewService(okExtractor{}, time.Second, nil), nil),
		Valuation:     valuation.NewEngine([]domain.PricingSource{fixedPricing{value: acv}}, nil, time.Second, nil),
		Reserve:       reserve.NewCalculator(cfg),
		Regulatory:    regulatory.NewValidator(),
		Repository:    repo,
		Audit:         sink,
	})
	return &harness{orch: orch, repo: repo}
}

// pipelineClaim builds a routable collision claim reported yesterday.
func pipelineClaim() *domain.ClaimRecord {
	now := time.Now().UTC()
	loss := now.AddDate(0, 0, -2)
	return &domain.ClaimRecord{
		ID:           "CLM-100",
		TenantID:     "tenant-1",
		PolicyNumber: "POL-1001",
		Type:         domain.ClaimCollision,
		Status:       domain.StatusSubmitted,
		ClaimantID:   "clmt-1",
		ClaimantName: "Jordan Avery",
		LossDate:     loss,
		ReportDate:   now.AddDate(0, 0, -1),
		CreatedAt:    now.AddDate(0, 0, -1),
		Description:  "backed into a pole in a parking garage",
		Location:     domain.LossLocation{State: "AZ"},
		Vehicle: &domain.VehicleRecord{
			VIN:       "1HGCM82633A004352",
			Make:      "Honda",
			Model:     "Accord",
			Year:      now.Year() - 6,
			Mileage:   70000,
			Condition: domain.ConditionGood,
			BaseValue: 22000,
		},
		Policy: &domain.PolicyRecord{
			Number:         "POL-1001",
			NamedInsured:   "Jordan Avery",
			EffectiveDate:  now.AddDate(-1, 0, 0),
			ExpirationDate: now.AddDate(1, 0, 0),
			Status:         domain.PolicyActive,
			Coverages: []domain.Coverage{
				{Type: domain.CoverageCollision, Limit: 50000, Deductible: 500, Active: true},
				{Type: domain.CoverageComprehensive, Limit: 50000, Deductible: 250, Active: true},
				{Type: domain.CoverageMedicalPayments, Limit: 25000, Active: true},
			},
			PolicyLimit: 100000,
		},
		PoliceReport:    &domain.PoliceReport{Filed: true},
		ShopEstimate:    &domain.ShopEstimate{ShopName: "Axel Body Works", Total: 1200},
		Damage:          domain.DamageReport{Severity: domain.DamageMinor, Drivable: true},
		Injuries:        domain.InjuryReport{Severity: domain.InjuryNone},
		EstimatedAmount: 1200,
	}
}

func TestCleanClaimAutoApproves(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)
	claim := pipelineClaim()

	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if decision.Decision != domain.RouteAutoApprove {
		t.Fatalf("expected auto_approve, got %s (%s)", decision.Decision, decision.Reason)
	}
	if claim.Status != domain.StatusApproved {
		t.Errorf("expected APPROVED status, got %s", claim.Status)
	}
	if !decision.Checklist.AllDone() {
		t.Error("all seven phases must complete for auto approval")
	}
	if len(decision.Triggers) != 0 {
		t.Errorf("expected zero triggers, got %v", decision.Triggers)
	}
}

func TestInjuryClaimNeverAutoApproves(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)
	claim := pipelineClaim()
	claim.Injuries = domain.InjuryReport{
		AnyInjuries: true,
		Severity:    domain.InjuryModerate,
		Type:        domain.InjurySoftTissue,
	}

	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if decision.Decision == domain.RouteAutoApprove {
		t.Fatal("injury claim must never auto-approve")
	}
	if decision.Decision != domain.RouteFullAdjuster {
		t.Errorf("expected full_adjuster, got %s", decision.Decision)
	}
	if want := "bodily injury"; !strings.Contains(decision.Reason, want) {
		t.Errorf("reason %q must mention %q", decision.Reason, want)
	}
}

func TestCancelledPolicyEscalatesBeforeScoring(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)
	claim := pipelineClaim()
	claim.Policy.Status = domain.PolicyCancelled

	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if decision.Decision != domain.RouteEscalate {
		t.Fatalf("expected escalate, got %s", decision.Decision)
	}
	if claim.Status != domain.StatusEscalated {
		t.Errorf("expected ESCALATED_TO_HUMAN, got %s", claim.Status)
	}
	if claim.Coverage == nil || claim.Coverage.Applies {
		t.Error("coverage must be evaluated and inapplicable")
	}

	found := false
	for _, trig := range decision.Triggers {
		if trig.Type == domain.TriggerCoverageIssue {
			found = true
		}
	}
	if !found {
		t.Errorf("expected COVERAGE_ISSUE trigger, got %v", decision.Triggers)
	}

	// scoring phases were never reached
	if claim.Severity != nil || claim.Fraud != nil || claim.Valuation != nil {
		t.Error("severity, fraud, and valuation must not run after a coverage failure")
	}
}

func TestTotalLossRoutesSpecialist(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)
	claim := pipelineClaim()
	claim.ShopEstimate = &domain.ShopEstimate{ShopName: "Axel Body Works", Total: 9000}
	claim.Damage.Severity = domain.DamageSevere
	claim.Location.State = "FL" // 80% threshold, 9000/10000 = 90%

	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !claim.Valuation.TotalLoss.IsTotalLoss {
		t.Fatal("expected total loss determination")
	}
	if decision.Decision != domain.RouteSpecialist {
		t.Errorf("expected specialist, got %s (%s)", decision.Decision, decision.Reason)
	}
}

func TestCriticalFraudEscalates(t *testing.T) {
	rules := []*domain.FraudRuleConfig{{
		ID:         "always-max",
		Name:       "always max",
		Kind:       domain.FlagStagedAccident,
		Expression: "true",
		Weight:     80,
		Severity:   domain.FlagCritical,
		Enabled:    true,
	}}
	// capped rule score 50 plus 0.3 * 100 model signal lands at 80, critical
	h := newHarness(t, rules, fixedModel{signal: 100}, 10000)
	claim := pipelineClaim()

	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if decision.Decision != domain.RouteEscalate {
		t.Fatalf("expected escalate, got %s (%s)", decision.Decision, decision.Reason)
	}
	if claim.Status != domain.StatusEscalated {
		t.Errorf("expected ESCALATED_TO_HUMAN, got %s", claim.Status)
	}

	found := false
	for _, trig := range decision.Triggers {
		if trig.Type == domain.TriggerFraudIndicator && trig.Severity == domain.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("expected CRITICAL fraud trigger, got %v", decision.Triggers)
	}
}

func TestCriticalAuditFailureSurfaces(t *testing.T) {
	rules := []*domain.FraudRuleConfig{{
		ID:         "always-max",
		Name:       "always max",
		Kind:       domain.FlagStagedAccident,
		Expression: "true",
		Weight:     80,
		Severity:   domain.FlagCritical,
		Enabled:    true,
	}}
	h := newHarness(t, rules, fixedModel{signal: 100}, 10000)
	h.repo.failAudit = true

	_, err := h.orch.Run(context.Background(), pipelineClaim())
	if err == nil {
		t.Fatal("losing the audit trail for a critical escalation must surface an error")
	}
	if !strings.Contains(err.Error(), "audit trail") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSIUReferralRoutesToSIU(t *testing.T) {
	rules := []*domain.FraudRuleConfig{{
		ID:         "always-50",
		Name:       "always 50",
		Kind:       domain.FlagStagedAccident,
		Expression: "true",
		Weight:     50,
		Severity:   domain.FlagHigh,
		Enabled:    true,
	}}
	h := newHarness(t, rules, nil, 10000)
	claim := pipelineClaim()

	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if decision.Decision != domain.RouteSIU {
		t.Fatalf("expected siu, got %s (%s)", decision.Decision, decision.Reason)
	}
	if claim.Status != domain.StatusFlaggedFraud {
		t.Errorf("expected FLAGGED_FRAUD, got %s", claim.Status)
	}
}

func TestPanicBecomesSystemErrorEscalation(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)
	h.orch.valuation = nil // force a nil dereference inside the evaluation phase

	claim := pipelineClaim()
	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatalf("panic must not fail the run: %v", err)
	}
	if decision.Decision != domain.RouteEscalate {
		t.Fatalf("expected escalate, got %s", decision.Decision)
	}

	found := false
	for _, trig := range decision.Triggers {
		if trig.Type == domain.TriggerSystemError && trig.Severity == domain.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("expected CRITICAL SYSTEM_ERROR trigger, got %v", decision.Triggers)
	}
}

func TestSubPipelinePanicEscalates(t *testing.T) {
	h := newHarness(t, nil, panickingModel{}, 10000)

	claim := pipelineClaim()
	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatalf("panic must not fail the run: %v", err)
	}
	if decision.Decision != domain.RouteEscalate {
		t.Fatalf("expected escalate, got %s", decision.Decision)
	}

	found := false
	for _, trig := range decision.Triggers {
		if trig.Type == domain.TriggerSystemError && trig.Severity == domain.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("expected CRITICAL SYSTEM_ERROR trigger, got %v", decision.Triggers)
	}
}

func TestInvalidClaimHeldIncomplete(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)
	claim := pipelineClaim()
	claim.Vehicle.VIN = ""

	_, err := h.orch.Run(context.Background(), claim)
	if !errors.Is(err, ErrInvalidClaim) {
		t.Fatalf("expected ErrInvalidClaim, got %v", err)
	}
	if claim.Status != domain.StatusIncomplete {
		t.Errorf("expected INCOMPLETE, got %s", claim.Status)
	}
}

func TestRunLockIsPerClaim(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)

	if !h.orch.acquire("CLM-1") {
		t.Fatal("first acquire must succeed")
	}
	if h.orch.acquire("CLM-1") {
		t.Fatal("second acquire on the same claim must fail")
	}
	if !h.orch.acquire("CLM-2") {
		t.Fatal("a different claim must not be blocked")
	}
	h.orch.release("CLM-1")
	if !h.orch.acquire("CLM-1") {
		t.Fatal("acquire must succeed after release")
	}
}

func TestAuditTrailCoversPhases(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)
	claim := pipelineClaim()

	if _, err := h.orch.Run(context.Background(), claim); err != nil {
		t.Fatal(err)
	}

	events, err := h.repo.ListAuditEvents(context.Background(), claim.TenantID, claim.ID)
	if err != nil {
		t.Fatal(err)
	}

	started := map[string]bool{}
	completed := map[string]bool{}
	decided := false
	for _, e := range events {
		switch e.Kind {
		case "phase_started":
			started[e.Phase] = true
		case "phase_completed":
			completed[e.Phase] = true
		case "decision":
			decided = true
		}
	}
	for _, phase := range domain.PhaseOrder {
		if !started[string(phase)] || !completed[string(phase)] {
			t.Errorf("phase %s missing from audit trail", phase)
		}
	}
	if !decided {
		t.Error("terminal decision missing from audit trail")
	}
}

func TestDecisionPersisted(t *testing.T) {
	h := newHarness(t, nil, nil, 10000)
	claim := pipelineClaim()

	decision, err := h.orch.Run(context.Background(), claim)
	if err != nil {
		t.Fatal(err)
	}

	stored, err := h.repo.GetDecisionByClaim(context.Background(), claim.TenantID, claim.ID)
	if err != nil {
		t.Fatalf("decision not persisted: %v", err)
	}
	if stored.ID != decision.ID || stored.Decision != decision.Decision {
		t.Errorf("stored decision mismatch: %+v vs %+v", stored, decision)
	}
}
