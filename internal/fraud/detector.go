package fraud

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

// Weighting constants for the aggregate. The rule-weight sum is capped so no
// accumulation of soft indicators alone can force the critical tier.
const (
	ruleScoreCap        = 50.0
	modelSignalWeight   = 0.3
	watchlistHitScore   = 10.0
	patternScore        = 5.0
	watchlistFlagWeight = 20.0

	repeatedClaimantThreshold = 3
	repeatedClaimantWindow    = 24 * 30 * 24 * time.Hour // 24 months
)

// FrequencyGetter returns the number of claims a claimant filed in a window.
type FrequencyGetter func(ctx context.Context, tenantID, claimantID string, window time.Duration) (int64, error)

// Detector combines independently-scored fraud signals into one FraudScore.
// No single signal is authoritative.
type Detector struct {
	engine    *Engine
	model     domain.FraudModel
	watchlist domain.WatchlistSource
	frequency FrequencyGetter
	cfg       domain.PipelineConfig
	logger    *slog.Logger
}

// NewDetector creates a fraud detector. Model, watchlist, and frequency are
// optional; a nil collaborator contributes zero to the aggregate.
func NewDetector(engine *Engine, model domain.FraudModel, watchlist domain.WatchlistSource, frequency FrequencyGetter, cfg domain.PipelineConfig, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		engine:    engine,
		model:     model,
		watchlist: watchlist,
		frequency: frequency,
		cfg:       cfg,
		logger:    logger,
	}
}

// Screen runs all fraud signals against the claim and aggregates them.
// Collaborator failures degrade to a zero contribution rather than aborting
// the screen.
func (d *Detector) Screen(ctx context.Context, claim *domain.ClaimRecord) *domain.FraudScore {
	flags := d.engine.EvaluateAll(ctx, claim)

	var ruleSum float64
	for _, f := range flags {
		ruleSum += f.Weight
	}
	ruleScore := ruleSum
	if ruleScore > ruleScoreCap {
		ruleScore = ruleScoreCap
	}

	modelSignal := d.modelSignal(ctx, claim)

	hits := d.screenWatchlist(ctx, claim)
	for _, hit := range hits {
		flags = append(flags, domain.FraudFlag{
			Kind:      watchlistFlagKind(hit.Party),
			Severity:  domain.FlagHigh,
			Weight:    watchlistFlagWeight,
			Evidence:  []string{"watchlist match: " + hit.Name},
			Timestamp: time.Now().UTC(),
		})
	}

	patterns, patternFlags := d.detectPatterns(ctx, claim)
	flags = append(flags, patternFlags...)

	multiplier := d.cfg.NetworkRiskMultiplier
	if multiplier <= 0 {
		multiplier = 1.0
	}

	total := ruleScore +
		modelSignalWeight*modelSignal +
		watchlistHitScore*float64(len(hits)) +
		patternScore*float64(len(patterns))
	total *= multiplier
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	tier := domain.TierForScore(total)
	siuThreshold := d.cfg.FraudSIUThreshold
	if siuThreshold <= 0 {
		siuThreshold = 50
	}

	return &domain.FraudScore{
		Score:             total,
		Tier:              tier,
		Flags:             flags,
		Patterns:          patterns,
		RequiresSIUReview: total >= siuThreshold || tier == domain.RiskHigh || tier == domain.RiskCritical,
		RuleScore:         ruleScore,
		ModelSignal:       modelSignal,
		WatchlistHits:     len(hits),
		NetworkMultiplier: multiplier,
	}
}

func (d *Detector) modelSignal(ctx context.Context, claim *domain.ClaimRecord) float64 {
	if d.model == nil {
		return 0
	}
	signal, err := d.model.Score(ctx, claim)
	if err != nil {
		d.logger.Warn("fraud model unavailable", "claim_id", claim.ID, "error", err)
		return 0
	}
	if signal < 0 {
		return 0
	}
	if signal > 100 {
		return 100
	}
	return signal
}

func (d *Detector) screenWatchlist(ctx context.Context, claim *domain.ClaimRecord) []domain.WatchlistHit {
	if d.watchlist == nil {
		return nil
	}

	query := domain.WatchlistQuery{Claimant: claim.ClaimantName}
	for _, p := range claim.Participants {
		if p.AttorneyName != "" && query.Attorney == "" {
			query.Attorney = p.AttorneyName
		}
		if p.MedicalProvider != "" && query.Provider == "" {
			query.Provider = p.MedicalProvider
		}
	}
	if claim.ShopEstimate != nil {
		query.Shop = claim.ShopEstimate.ShopName
	}

	hits, err := d.watchlist.Screen(ctx, claim.TenantID, query)
	if err != nil {
		d.logger.Warn("watchlist screen failed", "claim_id", claim.ID, "error", err)
		return nil
	}
	return hits
}

// detectPatterns runs the cross-claim pattern detectors.
func (d *Detector) detectPatterns(ctx context.Context, claim *domain.ClaimRecord) ([]string, []domain.FraudFlag) {
	var patterns []string
	var flags []domain.FraudFlag
	now := time.Now().UTC()

	if d.frequency != nil {
		count, err := d.frequency(ctx, claim.TenantID, claim.ClaimantID, repeatedClaimantWindow)
		if err != nil {
			d.logger.Warn("claim frequency lookup failed", "claim_id", claim.ID, "error", err)
		} else if count >= repeatedClaimantThreshold {
			patterns = append(patterns, "repeated_claimant")
			flags = append(flags, domain.FraudFlag{
				Kind:      domain.FlagRepeatedClaimant,
				Severity:  domain.FlagHigh,
				Evidence:  []string{"claimant filed 3+ claims in 24 months"},
				Timestamp: now,
			})
		}
	}

	if indicators := stagedAccidentIndicators(claim); len(indicators) >= 2 {
		patterns = append(patterns, "staged_accident")
		flags = append(flags, domain.FraudFlag{
			Kind:      domain.FlagStagedAccident,
			Severity:  domain.FlagHigh,
			Evidence:  indicators,
			Timestamp: now,
		})
	}

	return patterns, flags
}

// stagedAccidentIndicators returns the matched indicators of the staged
// accident heuristic. Two or more matches trigger the pattern.
func stagedAccidentIndicators(claim *domain.ClaimRecord) []string {
	var indicators []string

	if claim.OtherPartyCount() == 1 {
		indicators = append(indicators, "two-party accident")
	}
	if strings.Contains(strings.ToLower(claim.Description), "rear-end") ||
		strings.Contains(strings.ToLower(claim.Description), "rear end") {
		indicators = append(indicators, "rear-end collision narrative")
	}
	if claim.PoliceReport == nil || !claim.PoliceReport.Filed {
		indicators = append(indicators, "no police report filed")
	}

	return indicators
}

func watchlistFlagKind(party domain.WatchlistParty) domain.FraudFlagKind {
	switch party {
	case domain.WatchlistProvider:
		return domain.FlagWatchlistProvider
	case domain.WatchlistAttorney:
		return domain.FlagWatchlistAttorney
	case domain.WatchlistShop:
		return domain.FlagWatchlistShop
	default:
		return domain.FlagWatchlistClaimant
	}
}
