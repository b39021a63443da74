// Package fraud screens claims for fraud indicators and aggregates them into
// a scored risk tier.
package fraud

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/openclaims/kite/internal/domain"
)

// Engine is the CEL-based fraud indicator rule engine. Rules are configurable
// per tenant and hot-reloadable from the repository.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program for one indicator rule.
type CompiledRule struct {
	Config  *domain.FraudRuleConfig
	Program cel.Program
}

// NewEngine creates a new fraud rule engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment with flattened claim variables
	env, err := cel.NewEnv(
		cel.Variable("claim", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("claim_type", cel.StringType),
		cel.Variable("state", cel.StringType),
		cel.Variable("days_since_policy_start", cel.IntType),
		cel.Variable("report_lag_days", cel.IntType),
		cel.Variable("loss_hour", cel.IntType),
		cel.Variable("is_weekend", cel.BoolType),
		cel.Variable("police_report_filed", cel.BoolType),
		cel.Variable("narrative_matches_report", cel.BoolType),
		cel.Variable("vehicle_history_mismatch", cel.BoolType),
		cel.Variable("prior_damage", cel.BoolType),
		cel.Variable("any_injuries", cel.BoolType),
		cel.Variable("other_party_count", cel.IntType),
		cel.Variable("medical_total", cel.DoubleType),
		cel.Variable("medical_items", cel.IntType),
		cel.Variable("repair_total", cel.DoubleType),
		cel.Variable("repair_avg_line", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded rules.
func (e *Engine) ValidateRule(cfg *domain.FraudRuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.FraudRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules. Disabled rules are skipped.
func (e *Engine) LoadRules(configs []*domain.FraudRuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules clears all existing rules and loads new ones. This enables
// hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.FraudRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.FraudRuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.FraudRuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

// EvaluateAll evaluates all loaded rules against the claim in parallel and
// returns the raised flags. A rule that evaluates truthy raises one flag of
// its configured kind and weight; evaluation errors never raise flags.
func (e *Engine) EvaluateAll(ctx context.Context, claim *domain.ClaimRecord) []domain.FraudFlag {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := buildActivation(claim)

	flags := make([]*domain.FraudFlag, len(rules))
	var wg sync.WaitGroup

	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			flags[idx] = e.evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	var raised []domain.FraudFlag
	for _, f := range flags {
		if f != nil {
			raised = append(raised, *f)
		}
	}
	return raised
}

// evaluateRule runs one rule and returns a flag if it triggered.
func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any) *domain.FraudFlag {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		return nil
	}

	if !truthy(out) {
		return nil
	}

	return &domain.FraudFlag{
		Kind:      rule.Config.Kind,
		Severity:  rule.Config.Severity,
		Weight:    rule.Config.Weight,
		Evidence:  []string{rule.Config.Name},
		Timestamp: time.Now().UTC(),
	}
}

// buildActivation flattens the claim into CEL activation variables.
func buildActivation(claim *domain.ClaimRecord) map[string]any {
	var daysSincePolicyStart int64
	if claim.Policy != nil {
		daysSincePolicyStart = int64(claim.LossDate.Sub(claim.Policy.EffectiveDate).Hours() / 24)
	}

	reportLagDays := int64(claim.ReportDate.Sub(claim.LossDate).Hours() / 24)

	lossHour := int64(claim.LossDate.Hour())
	wd := claim.LossDate.Weekday()
	isWeekend := wd == time.Saturday || wd == time.Sunday

	policeFiled := claim.PoliceReport != nil && claim.PoliceReport.Filed
	narrativeMatches := true
	if policeFiled && claim.PoliceReport.AccidentType != "" {
		narrativeMatches = strings.Contains(
			strings.ToLower(claim.Description),
			strings.ToLower(claim.PoliceReport.AccidentType),
		)
	}

	// Reported damage history inconsistent with the vehicle record.
	historyMismatch := false
	if claim.Vehicle != nil {
		historyMismatch = claim.Damage.PriorDamage != claim.Vehicle.PriorDamage
	}

	var medicalTotal float64
	for _, b := range claim.MedicalBills {
		medicalTotal += b.Amount
	}

	var repairTotal, repairAvg float64
	var repairLines int
	if claim.ShopEstimate != nil {
		repairTotal = claim.ShopEstimate.Total
		repairLines = len(claim.ShopEstimate.LineItems)
		if repairLines > 0 {
			repairAvg = repairTotal / float64(repairLines)
		}
	}

	return map[string]any{
		"claim": map[string]any{
			"id":          claim.ID,
			"type":        string(claim.Type),
			"description": claim.Description,
			"amount":      claim.EstimatedAmount,
		},
		"amount":                   claim.EstimatedAmount,
		"claim_type":               string(claim.Type),
		"state":                    claim.Location.State,
		"days_since_policy_start":  daysSincePolicyStart,
		"report_lag_days":          reportLagDays,
		"loss_hour":                lossHour,
		"is_weekend":               isWeekend,
		"police_report_filed":      policeFiled,
		"narrative_matches_report": narrativeMatches,
		"vehicle_history_mismatch": historyMismatch,
		"prior_damage":             claim.Damage.PriorDamage,
		"any_injuries":             claim.Injuries.AnyInjuries,
		"other_party_count":        int64(claim.OtherPartyCount()),
		"medical_total":            medicalTotal,
		"medical_items":            int64(len(claim.MedicalBills)),
		"repair_total":             repairTotal,
		"repair_avg_line":          repairAvg,
	}
}

// truthy converts a CEL result to a triggered/not-triggered outcome.
func truthy(val ref.Val) bool {
	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	case types.Double:
		return float64(v) > 0
	case types.Int:
		return int64(v) > 0
	default:
		return false
	}
}

func (e *Engine) compileRule(cfg *domain.FraudRuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
