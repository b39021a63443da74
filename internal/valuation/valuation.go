// Package valuation computes vehicle ACV, salvage value, repair cost, and the
// state-specific total-loss determination.
package valuation

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

const (
	annualDepreciation   = 0.15
	fallbackConfidence   = 0.5
	expectedMilesPerYear = 12000
	salvagePctOfACV      = 0.25
	minBidsForAverage    = 3
)

// conditionAdjustment is the ACV multiplier delta per vehicle condition.
var conditionAdjustment = map[domain.VehicleCondition]float64{
	domain.ConditionExcellent: 0.10,
	domain.ConditionGood:      0.0,
	domain.ConditionFair:      -0.10,
	domain.ConditionPoor:      -0.25,
}

// repairKeyword weights the keyword repair estimator. Amounts are per match,
// summed over all matched keywords.
var repairKeywords = map[string]float64{
	"bumper":     900,
	"fender":     1200,
	"door":       1500,
	"hood":       1400,
	"windshield": 600,
	"glass":      400,
	"headlight":  450,
	"airbag":     2500,
	"frame":      5000,
	"structural": 5000,
	"engine":     4500,
	"radiator":   1100,
	"suspension": 1800,
	"quarter panel": 1600,
}

// Engine computes valuations. External pricing and bid sources are pluggable
// and may be unavailable; the engine always produces a result.
type Engine struct {
	sources []domain.PricingSource
	bids    domain.SalvageBidSource
	timeout time.Duration
	logger  *slog.Logger
}

// NewEngine creates a valuation engine. A zero timeout defaults to 5s per
// external call.
func NewEngine(sources []domain.PricingSource, bids domain.SalvageBidSource, timeout time.Duration, logger *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sources: sources,
		bids:    bids,
		timeout: timeout,
		logger:  logger,
	}
}

// Valuate runs the full valuation for the claim vehicle: ACV, salvage,
// repair estimate, and the total-loss test for the loss state.
func (e *Engine) Valuate(ctx context.Context, claim *domain.ClaimRecord, deductible float64) *domain.ValuationResult {
	vehicle := claim.Vehicle

	result := &domain.ValuationResult{VIN: vehicle.VIN}

	acv, confidence, sources, adjustments := e.computeACV(ctx, vehicle)
	result.ACV = acv
	result.ACVConfidence = confidence
	result.ACVSources = sources
	result.Adjustments = adjustments

	result.Salvage = e.computeSalvage(ctx, vehicle, acv)
	result.Repair = e.computeRepair(claim)
	result.TotalLoss = e.totalLossTest(claim, acv, result.Repair.Total, result.Salvage.Value, deductible)

	return result
}

// computeACV averages the available concurrent pricing sources, falling back
// to the internal depreciation model when every source fails.
func (e *Engine) computeACV(ctx context.Context, vehicle *domain.VehicleRecord) (float64, float64, []string, domain.ACVAdjustments) {
	quotes := e.collectQuotes(ctx, vehicle)

	if len(quotes) > 0 {
		var sumValue, sumConfidence float64
		names := make([]string, 0, len(quotes))
		for _, q := range quotes {
			sumValue += q.Value
			sumConfidence += q.Confidence
			names = append(names, q.Source)
		}
		sort.Strings(names)
		return round2(sumValue / float64(len(quotes))),
			sumConfidence / float64(len(quotes)),
			names,
			domain.ACVAdjustments{}
	}

	value, adjustments := e.fallbackACV(vehicle)
	return value, fallbackConfidence, []string{"internal_depreciation_model"}, adjustments
}

// collectQuotes issues all pricing calls concurrently with per-call timeouts.
// A failed source is skipped, never fatal.
func (e *Engine) collectQuotes(ctx context.Context, vehicle *domain.VehicleRecord) []*domain.PricingQuote {
	if len(e.sources) == 0 {
		return nil
	}

	results := make([]*domain.PricingQuote, len(e.sources))
	var wg sync.WaitGroup

	for i, src := range e.sources {
		wg.Add(1)
		go func(idx int, s domain.PricingSource) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			quote, err := s.ACV(callCtx, vehicle)
			if err != nil {
				e.logger.Warn("pricing source unavailable", "source", s.Name(), "error", err)
				return
			}
			results[idx] = quote
		}(i, src)
	}

	wg.Wait()

	var quotes []*domain.PricingQuote
	for _, q := range results {
		if q != nil && q.Value > 0 {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// fallbackACV applies the internal depreciation model:
// base value x (1-0.15)^age, then mileage, condition, options, and prior
// damage adjustments.
func (e *Engine) fallbackACV(vehicle *domain.VehicleRecord) (float64, domain.ACVAdjustments) {
	age := vehicle.Age(time.Now())
	value := vehicle.BaseValue * math.Pow(1-annualDepreciation, float64(age))

	var adj domain.ACVAdjustments

	// Mileage against the expected accumulation for the vehicle's age, at
	// ten cents per excess mile, bounded to 20% of current value either way.
	excessMiles := float64(vehicle.Mileage - age*expectedMilesPerYear)
	mileageAdj := -excessMiles * 0.10
	bound := value * 0.20
	if mileageAdj > bound {
		mileageAdj = bound
	}
	if mileageAdj < -bound {
		mileageAdj = -bound
	}
	adj.Mileage = round2(mileageAdj)

	adj.Condition = round2(value * conditionAdjustment[vehicle.Condition])

	// Each recorded option adds 1.5%, capped at 6%.
	optionPct := 0.015 * float64(len(vehicle.Options))
	if optionPct > 0.06 {
		optionPct = 0.06
	}
	adj.Options = round2(value * optionPct)

	if vehicle.PriorDamage {
		adj.PriorDamage = round2(-value * 0.10)
	}

	value += adj.Mileage + adj.Condition + adj.Options + adj.PriorDamage
	if value < 0 {
		value = 0
	}
	return round2(value), adj
}

// computeSalvage averages historical bids when at least three are available,
// else falls back to a fixed percentage of ACV.
func (e *Engine) computeSalvage(ctx context.Context, vehicle *domain.VehicleRecord, acv float64) domain.SalvageEstimate {
	est := domain.SalvageEstimate{
		Value:  round2(acv * salvagePctOfACV),
		Method: domain.SalvagePercentageACV,
	}

	if e.bids != nil {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		bids, err := e.bids.Bids(callCtx, vehicle)
		cancel()
		if err != nil {
			e.logger.Warn("salvage bid source unavailable", "vin", vehicle.VIN, "error", err)
		} else if len(bids) >= minBidsForAverage {
			var sum float64
			low, high := bids[0], bids[0]
			for _, b := range bids {
				sum += b
				if b < low {
					low = b
				}
				if b > high {
					high = b
				}
			}
			est = domain.SalvageEstimate{
				Value:    round2(sum / float64(len(bids))),
				Method:   domain.SalvageBidAverage,
				BidLow:   low,
				BidHigh:  high,
				BidCount: len(bids),
			}
		}
	}

	est.Disposition = classifyDisposition(vehicle.Age(time.Now()), est.Value)
	return est
}

// classifyDisposition grades the salvage outcome by age and value.
func classifyDisposition(age int, value float64) domain.SalvageDisposition {
	switch {
	case age >= 15 || value < 1000:
		return domain.SalvageScrap
	case age >= 10 || value < 3000:
		return domain.SalvagePartsOnly
	default:
		return domain.SalvageRebuildable
	}
}

// computeRepair uses the shop estimate when present, else the keyword
// estimator over the loss description.
func (e *Engine) computeRepair(claim *domain.ClaimRecord) domain.RepairEstimate {
	if claim.ShopEstimate != nil && claim.ShopEstimate.Total > 0 {
		return domain.RepairEstimate{
			Total:     claim.ShopEstimate.Total,
			Source:    "shop",
			LineItems: len(claim.ShopEstimate.LineItems),
		}
	}
	return domain.RepairEstimate{
		Total:  EstimateRepairFromDescription(claim.Description, claim.Damage.Severity),
		Source: "estimated",
	}
}

// EstimateRepairFromDescription sums keyword weights found in the loss
// description, scaled by the damage severity tier.
func EstimateRepairFromDescription(description string, severity domain.DamageSeverity) float64 {
	desc := strings.ToLower(description)

	base := 500.0
	for kw, amount := range repairKeywords {
		if strings.Contains(desc, kw) {
			base += amount
		}
	}

	factor := 1.0
	switch severity {
	case domain.DamageModerate:
		factor = 1.5
	case domain.DamageSevere:
		factor = 2.5
	case domain.DamageTotalLoss:
		factor = 4.0
	}

	return round2(base * factor)
}

// totalLossTest applies the loss state's threshold rule. The determination is
// a pure function of repair cost, ACV, salvage value, and the state rule.
func (e *Engine) totalLossTest(claim *domain.ClaimRecord, acv, repair, salvage, deductible float64) domain.TotalLossAnalysis {
	threshold := ThresholdFor(claim.Location.State)
	analysis := Determine(repair, acv, salvage, threshold)

	if analysis.IsTotalLoss {
		settlement := acv - deductible
		if claim.RetainSalvage {
			settlement -= salvage
		}
		if settlement < 0 {
			settlement = 0
		}
		analysis.SettlementAmount = round2(settlement)
	}
	return analysis
}

// Determine is the pure total-loss test: same four inputs, same answer.
func Determine(repair, acv, salvage float64, threshold StateThreshold) domain.TotalLossAnalysis {
	analysis := domain.TotalLossAnalysis{
		Method:       threshold.Method,
		ThresholdPct: threshold.Pct,
	}
	if acv <= 0 {
		return analysis
	}

	ratio := repair / acv
	analysis.RatioPct = round2(ratio * 100)

	percentageMet := threshold.Pct > 0 && ratio >= threshold.Pct
	formulaMet := repair+salvage >= acv

	switch threshold.Method {
	case domain.ThresholdPercentage:
		analysis.IsTotalLoss = percentageMet
	case domain.ThresholdFormula:
		analysis.IsTotalLoss = formulaMet
	case domain.ThresholdHybrid:
		analysis.IsTotalLoss = percentageMet || formulaMet
	}
	return analysis
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
