package valuation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

type stubSource struct {
	name  string
	value float64
	conf  float64
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) ACV(ctx context.Context, _ *domain.VehicleRecord) (*domain.PricingQuote, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.PricingQuote{Value: s.value, Confidence: s.conf, Source: s.name}, nil
}

type stubBids struct {
	bids []float64
	err  error
}

func (s *stubBids) Bids(_ context.Context, _ *domain.VehicleRecord) ([]float64, error) {
	return s.bids, s.err
}

func testVehicle() *domain.VehicleRecord {
	return &domain.VehicleRecord{
		VIN:       "1HGCM82633A004352",
		Make:      "Honda",
		Model:     "Accord",
		Year:      time.Now().Year() - 4,
		Mileage:   48000,
		Condition: domain.ConditionGood,
		BaseValue: 28000,
	}
}

func testClaim(state string) *domain.ClaimRecord {
	return &domain.ClaimRecord{
		ID:       "CLM-1",
		Type:     domain.ClaimCollision,
		Location: domain.LossLocation{State: state},
		Vehicle:  testVehicle(),
		Damage:   domain.DamageReport{Severity: domain.DamageModerate},
	}
}

func TestACVAveragesSources(t *testing.T) {
	e := NewEngine([]domain.PricingSource{
		&stubSource{name: "book-a", value: 10000, conf: 0.9},
		&stubSource{name: "book-b", value: 12000, conf: 0.8},
	}, nil, time.Second, nil)

	result := e.Valuate(context.Background(), testClaim("FL"), 500)

	if result.ACV != 11000 {
		t.Errorf("expected ACV 11000, got %v", result.ACV)
	}
	if len(result.ACVSources) != 2 {
		t.Errorf("expected 2 sources, got %v", result.ACVSources)
	}
	if math.Abs(result.ACVConfidence-0.85) > 1e-9 {
		t.Errorf("expected confidence 0.85, got %v", result.ACVConfidence)
	}
}

func TestACVIsolatesSourceFailure(t *testing.T) {
	e := NewEngine([]domain.PricingSource{
		&stubSource{name: "book-a", value: 10000, conf: 0.9},
		&stubSource{name: "book-b", err: errors.New("upstream down")},
	}, nil, time.Second, nil)

	result := e.Valuate(context.Background(), testClaim("FL"), 500)
	if result.ACV != 10000 {
		t.Errorf("expected surviving source value 10000, got %v", result.ACV)
	}
}

func TestACVSourceTimeout(t *testing.T) {
	e := NewEngine([]domain.PricingSource{
		&stubSource{name: "fast", value: 9000, conf: 0.9},
		&stubSource{name: "slow", value: 20000, conf: 0.9, delay: 200 * time.Millisecond},
	}, nil, 20*time.Millisecond, nil)

	result := e.Valuate(context.Background(), testClaim("FL"), 500)
	if result.ACV != 9000 {
		t.Errorf("slow source must be dropped, got ACV %v", result.ACV)
	}
}

func TestACVFallbackDepreciation(t *testing.T) {
	e := NewEngine(nil, nil, time.Second, nil)

	result := e.Valuate(context.Background(), testClaim("FL"), 500)

	// 28000 * 0.85^4 = 14616.18 before adjustments; good condition and
	// expected mileage add nothing
	want := round2(28000 * math.Pow(0.85, 4))
	if result.ACV != want {
		t.Errorf("expected fallback ACV %v, got %v", want, result.ACV)
	}
	if result.ACVConfidence >= 0.6 {
		t.Errorf("fallback confidence must be lower, got %v", result.ACVConfidence)
	}
	if len(result.ACVSources) != 1 || result.ACVSources[0] != "internal_depreciation_model" {
		t.Errorf("expected fallback source tag, got %v", result.ACVSources)
	}
}

func TestFallbackAdjustments(t *testing.T) {
	e := NewEngine(nil, nil, time.Second, nil)
	claim := testClaim("FL")
	claim.Vehicle.Condition = domain.ConditionPoor
	claim.Vehicle.PriorDamage = true

	result := e.Valuate(context.Background(), claim, 500)
	if result.Adjustments.Condition >= 0 {
		t.Error("poor condition must reduce value")
	}
	if result.Adjustments.PriorDamage >= 0 {
		t.Error("prior damage must reduce value")
	}
}

func TestSalvageBidAverage(t *testing.T) {
	e := NewEngine(nil, &stubBids{bids: []float64{2000, 2400, 2800}}, time.Second, nil)

	result := e.Valuate(context.Background(), testClaim("FL"), 500)

	if result.Salvage.Method != domain.SalvageBidAverage {
		t.Fatalf("expected BID_AVERAGE, got %s", result.Salvage.Method)
	}
	if result.Salvage.Value != 2400 {
		t.Errorf("expected salvage 2400, got %v", result.Salvage.Value)
	}
	if result.Salvage.BidLow != 2000 || result.Salvage.BidHigh != 2800 {
		t.Errorf("unexpected bid range %v-%v", result.Salvage.BidLow, result.Salvage.BidHigh)
	}
}

func TestSalvagePercentageFallback(t *testing.T) {
	tests := []struct {
		name string
		bids *stubBids
	}{
		{"no bid source", nil},
		{"too few bids", &stubBids{bids: []float64{2000, 2400}}},
		{"bid source error", &stubBids{err: errors.New("auction feed down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bids domain.SalvageBidSource
			if tt.bids != nil {
				bids = tt.bids
			}
			e := NewEngine([]domain.PricingSource{
				&stubSource{name: "book", value: 10000, conf: 0.9},
			}, bids, time.Second, nil)

			result := e.Valuate(context.Background(), testClaim("FL"), 500)
			if result.Salvage.Method != domain.SalvagePercentageACV {
				t.Fatalf("expected PERCENTAGE_ACV, got %s", result.Salvage.Method)
			}
			if result.Salvage.Value != 2500 {
				t.Errorf("expected 25%% of ACV = 2500, got %v", result.Salvage.Value)
			}
		})
	}
}

func TestSalvageDisposition(t *testing.T) {
	tests := []struct {
		name  string
		age   int
		value float64
		want  domain.SalvageDisposition
	}{
		{"recent high value", 4, 5000, domain.SalvageRebuildable},
		{"old vehicle", 12, 5000, domain.SalvagePartsOnly},
		{"low value", 4, 2000, domain.SalvagePartsOnly},
		{"very old", 16, 5000, domain.SalvageScrap},
		{"near worthless", 4, 500, domain.SalvageScrap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDisposition(tt.age, tt.value); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRepairFromShopEstimate(t *testing.T) {
	e := NewEngine(nil, nil, time.Second, nil)
	claim := testClaim("FL")
	claim.ShopEstimate = &domain.ShopEstimate{
		ShopName: "Axel Body Works",
		Total:    4200,
		LineItems: []domain.EstimateLineItem{
			{Description: "bumper", Amount: 1200},
			{Description: "paint", Amount: 3000},
		},
	}

	result := e.Valuate(context.Background(), claim, 500)
	if result.Repair.Source != "shop" || result.Repair.Total != 4200 {
		t.Errorf("expected shop estimate 4200, got %+v", result.Repair)
	}
}

func TestRepairKeywordEstimator(t *testing.T) {
	minor := EstimateRepairFromDescription("scraped the bumper", domain.DamageMinor)
	severe := EstimateRepairFromDescription("scraped the bumper", domain.DamageSevere)
	if minor != 1400 {
		t.Errorf("expected 500+900=1400 for minor bumper, got %v", minor)
	}
	if severe <= minor {
		t.Error("severity factor must scale the estimate up")
	}
}

func TestTotalLossDetermination(t *testing.T) {
	tests := []struct {
		name      string
		repair    float64
		acv       float64
		salvage   float64
		threshold StateThreshold
		want      bool
	}{
		{"85% vs 80% threshold", 8500, 10000, 2000, StateThreshold{Method: domain.ThresholdPercentage, Pct: 0.80}, true},
		{"85% vs 75% threshold", 8500, 10000, 2000, StateThreshold{Method: domain.ThresholdPercentage, Pct: 0.75}, true},
		{"85% vs 90% threshold", 8500, 10000, 2000, StateThreshold{Method: domain.ThresholdPercentage, Pct: 0.90}, false},
		{"formula met", 8500, 10000, 2000, StateThreshold{Method: domain.ThresholdFormula}, true},
		{"formula not met", 6000, 10000, 2000, StateThreshold{Method: domain.ThresholdFormula}, false},
		{"hybrid either test", 6000, 10000, 4500, StateThreshold{Method: domain.ThresholdHybrid, Pct: 0.80}, true},
		{"hybrid neither test", 6000, 10000, 2000, StateThreshold{Method: domain.ThresholdHybrid, Pct: 0.80}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Determine(tt.repair, tt.acv, tt.salvage, tt.threshold)
			if got.IsTotalLoss != tt.want {
				t.Errorf("expected %v, got %v (ratio %v%%)", tt.want, got.IsTotalLoss, got.RatioPct)
			}
		})
	}
}

func TestTotalLossIsPure(t *testing.T) {
	threshold := StateThreshold{Method: domain.ThresholdPercentage, Pct: 0.80}
	first := Determine(8500, 10000, 2000, threshold)
	for i := 0; i < 5; i++ {
		again := Determine(8500, 10000, 2000, threshold)
		if again != first {
			t.Fatalf("determination changed between identical calls: %+v vs %+v", first, again)
		}
	}
}

func TestTotalLossSettlement(t *testing.T) {
	e := NewEngine([]domain.PricingSource{
		&stubSource{name: "book", value: 10000, conf: 0.9},
	}, nil, time.Second, nil)

	t.Run("insurer keeps salvage", func(t *testing.T) {
		claim := testClaim("FL")
		claim.ShopEstimate = &domain.ShopEstimate{ShopName: "shop", Total: 8500}

		result := e.Valuate(context.Background(), claim, 500)
		if !result.TotalLoss.IsTotalLoss {
			t.Fatal("expected total loss at 85% vs FL 80%")
		}
		// ACV 10000 - deductible 500, salvage stays with insurer
		if result.TotalLoss.SettlementAmount != 9500 {
			t.Errorf("expected settlement 9500, got %v", result.TotalLoss.SettlementAmount)
		}
	})

	t.Run("owner retains salvage", func(t *testing.T) {
		claim := testClaim("FL")
		claim.RetainSalvage = true
		claim.ShopEstimate = &domain.ShopEstimate{ShopName: "shop", Total: 8500}

		result := e.Valuate(context.Background(), claim, 500)
		// 10000 - 2500 salvage - 500 deductible
		if result.TotalLoss.SettlementAmount != 7000 {
			t.Errorf("expected settlement 7000, got %v", result.TotalLoss.SettlementAmount)
		}
	})

	t.Run("floored at zero", func(t *testing.T) {
		claim := testClaim("FL")
		claim.RetainSalvage = true
		claim.ShopEstimate = &domain.ShopEstimate{ShopName: "shop", Total: 9900}
		deep := NewEngine([]domain.PricingSource{
			&stubSource{name: "book", value: 1000, conf: 0.9},
		}, nil, time.Second, nil)

		result := deep.Valuate(context.Background(), claim, 2000)
		if result.TotalLoss.SettlementAmount != 0 {
			t.Errorf("expected settlement floored at 0, got %v", result.TotalLoss.SettlementAmount)
		}
	})
}
