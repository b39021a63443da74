package domain

import "context"

// PricingQuote is one ACV quote from an external pricing source.
type PricingQuote struct {
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// PricingSource is an external vehicle valuation provider. Sources may be
// unavailable; callers issue quotes concurrently with per-call timeouts and
// fall back to the internal depreciation model on total failure.
type PricingSource interface {
	Name() string
	ACV(ctx context.Context, vehicle *VehicleRecord) (*PricingQuote, error)
}

// SalvageBidSource returns historical salvage bids for comparable vehicles.
type SalvageBidSource interface {
	Bids(ctx context.Context, vehicle *VehicleRecord) ([]float64, error)
}

// WatchlistParty identifies which party role a watchlist hit matched.
type WatchlistParty string

const (
	WatchlistClaimant WatchlistParty = "claimant"
	WatchlistProvider WatchlistParty = "provider"
	WatchlistAttorney WatchlistParty = "attorney"
	WatchlistShop     WatchlistParty = "shop"
)

// WatchlistQuery names the parties to screen for one claim.
type WatchlistQuery struct {
	Claimant string
	Provider string
	Attorney string
	Shop     string
}

// WatchlistHit is a confirmed watchlist membership.
type WatchlistHit struct {
	Party WatchlistParty `json:"party"`
	Name  string         `json:"name"`
}

// WatchlistSource screens claim parties against known-bad-actor lists. The
// production implementation is repository-backed and deterministic.
type WatchlistSource interface {
	Screen(ctx context.Context, tenantID string, q WatchlistQuery) ([]WatchlistHit, error)
}

// WatchlistEntry is one persisted watchlist row.
type WatchlistEntry struct {
	TenantID string         `json:"tenantId"`
	Party    WatchlistParty `json:"party"`
	Name     string         `json:"name"`
	Reason   string         `json:"reason,omitempty"`
}

// FraudModel is an external/pluggable scoring source contributing a 0-100
// signal to the fraud aggregate. A failed call contributes zero; it never
// aborts the screen.
type FraudModel interface {
	Score(ctx context.Context, claim *ClaimRecord) (float64, error)
}

// ExtractionResult is the structured output of one document extraction.
type ExtractionResult struct {
	DocumentID string            `json:"documentId"`
	Fields     map[string]string `json:"fields,omitempty"`
	Confidence float64           `json:"confidence"`
}

// DocumentExtractor is the OCR/vision collaborator. One document's failure
// must not block its siblings; callers fan out per document.
type DocumentExtractor interface {
	Extract(ctx context.Context, doc *Document) (*ExtractionResult, error)
}
