package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
}

func TestLoadRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.FraudRuleConfig{
		ID:         "test-rule-001",
		Name:       "Test Rule",
		Kind:       domain.FlagSuspiciousTiming,
		Expression: "amount > 100.0",
		Weight:     5,
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
}

func TestLoadInvalidRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.FraudRuleConfig{
		ID:         "invalid-rule",
		Name:       "Invalid Rule",
		Expression: "this is not valid CEL !!!",
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err == nil {
		t.Error("expected error for invalid CEL expression")
	}
}

func TestValidateRuleDoesNotMutate(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.FraudRuleConfig{
		ID:         "validate-only",
		Expression: "amount > 0.0",
	}

	if err := engine.ValidateRule(rule); err != nil {
		t.Fatalf("expected valid rule: %v", err)
	}
	if engine.RulesCount() != 0 {
		t.Errorf("validate must not load rules, got %d loaded", engine.RulesCount())
	}
}

func TestDefaultRulesCompile(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	if err := engine.LoadRules(DefaultRules()); err != nil {
		t.Fatalf("default rules must compile: %v", err)
	}
	if engine.RulesCount() != len(DefaultRules()) {
		t.Errorf("expected %d rules loaded, got %d", len(DefaultRules()), engine.RulesCount())
	}
}

func TestEvaluateRapidPurchase(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()
	if err := engine.LoadRules(DefaultRules()); err != nil {
		t.Fatal(err)
	}

	policyStart := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	claim := &domain.ClaimRecord{
		ID:       "CLM-1",
		TenantID: "tenant-1",
		// Tuesday midday, 10 days after inception
		LossDate:   time.Date(2026, 6, 11, 12, 0, 0, 0, time.UTC),
		ReportDate: time.Date(2026, 6, 11, 15, 0, 0, 0, time.UTC),
		Policy: &domain.PolicyRecord{
			EffectiveDate:  policyStart,
			ExpirationDate: policyStart.AddDate(1, 0, 0),
			Status:         domain.PolicyActive,
		},
		Vehicle:      &domain.VehicleRecord{},
		PoliceReport: &domain.PoliceReport{Filed: true},
	}

	flags := engine.EvaluateAll(context.Background(), claim)

	found := false
	for _, f := range flags {
		if f.Kind == domain.FlagRapidPolicyPurchase {
			found = true
			if f.Weight != 15 {
				t.Errorf("expected weight 15, got %v", f.Weight)
			}
		}
		if f.Kind == domain.FlagSuspiciousTiming {
			t.Error("midweek midday loss should not flag suspicious timing")
		}
	}
	if !found {
		t.Error("expected rapid policy purchase flag")
	}
}

func TestEvaluateMedicalAnomaly(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()
	if err := engine.LoadRules(DefaultRules()); err != nil {
		t.Fatal(err)
	}

	claim := &domain.ClaimRecord{
		ID:         "CLM-2",
		LossDate:   time.Date(2026, 6, 11, 12, 0, 0, 0, time.UTC),
		ReportDate: time.Date(2026, 6, 11, 15, 0, 0, 0, time.UTC),
		Policy: &domain.PolicyRecord{
			EffectiveDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			ExpirationDate: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		Vehicle:      &domain.VehicleRecord{},
		PoliceReport: &domain.PoliceReport{Filed: true},
		MedicalBills: []domain.MedicalBill{
			{Provider: "Valley Ortho", Amount: 60000},
		},
	}

	flags := engine.EvaluateAll(context.Background(), claim)

	found := false
	for _, f := range flags {
		if f.Kind == domain.FlagMedicalBillingAnomaly {
			found = true
		}
	}
	if !found {
		t.Error("expected medical billing anomaly flag for $60k total")
	}
}

func TestReloadRulesReplacesSet(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	if err := engine.LoadRules(DefaultRules()); err != nil {
		t.Fatal(err)
	}

	replacement := []*domain.FraudRuleConfig{
		{
			ID:         "only-rule",
			Name:       "Only Rule",
			Kind:       domain.FlagInflatedRepair,
			Expression: "repair_avg_line > 1.0",
			Weight:     1,
			Enabled:    true,
		},
		{
			ID:         "disabled-rule",
			Expression: "true",
			Enabled:    false,
		},
	}

	if err := engine.ReloadRules(replacement); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule after reload, got %d", engine.RulesCount())
	}
}
