package domain

import "time"

// ReserveCategory identifies a reserve line.
type ReserveCategory string

const (
	ReserveVehicleDamage ReserveCategory = "VEHICLE_DAMAGE"
	ReserveBodilyInjury  ReserveCategory = "BODILY_INJURY"
	ReserveRental        ReserveCategory = "RENTAL"
	ReserveTowing        ReserveCategory = "TOWING"
	ReserveLegalDefense  ReserveCategory = "LEGAL_DEFENSE"
)

// ReserveRange is a min/max/recommended amount for one category.
type ReserveRange struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Recommended float64 `json:"recommended"`
}

// ReserveBreakdown holds per-category reserve ranges.
type ReserveBreakdown struct {
	VehicleDamage ReserveRange `json:"vehicleDamage"`
	BodilyInjury  ReserveRange `json:"bodilyInjury"`
	Rental        ReserveRange `json:"rental"`
	Towing        ReserveRange `json:"towing"`
	LegalDefense  ReserveRange `json:"legalDefense"`
}

// ReserveRecommendation is the full reserve output: category breakdown,
// state-adjusted total, confidence, and contributing factors.
type ReserveRecommendation struct {
	Breakdown       ReserveBreakdown `json:"breakdown"`
	Total           ReserveRange     `json:"total"`
	StateMultiplier float64          `json:"stateMultiplier"`
	Confidence      float64          `json:"confidence"`
	Factors         []string         `json:"factors,omitempty"`
}

// SettlementComponent is one itemized line of a settlement draft.
type SettlementComponent struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// NegotiationRange brackets the settlement negotiation.
type NegotiationRange struct {
	Minimum float64 `json:"minimum"`
	Target  float64 `json:"target"`
	Maximum float64 `json:"maximum"`
}

// PaymentStub is a placeholder for payment routing details. Payment execution
// is an external concern.
type PaymentStub struct {
	Method string `json:"method"`
	Payee  string `json:"payee"`
}

// SettlementDraft is a proposed settlement. A claim never carries two
// authoritative drafts: the pipeline recomputes the draft wholesale whenever
// any upstream score changes.
type SettlementDraft struct {
	ID      string `json:"id"`
	ClaimID string `json:"claimId"`

	Components  []SettlementComponent `json:"components"`
	GrossAmount float64               `json:"grossAmount"`
	NetAmount   float64               `json:"netAmount"`

	Negotiation          NegotiationRange `json:"negotiation"`
	AutoApprovalEligible bool             `json:"autoApprovalEligible"`
	ReleaseRequired      bool             `json:"releaseRequired"`
	Payment              PaymentStub      `json:"payment"`

	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the offer has lapsed as of now.
func (s *SettlementDraft) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
