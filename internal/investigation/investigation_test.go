package investigation

import (
	"context"
	"testing"
	"time"

	"github.com/openclaims/kite/internal/domain"
	"github.com/openclaims/kite/internal/extract"
)

type okExtractor struct{}

func (okExtractor) Extract(_ context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	return &domain.ExtractionResult{DocumentID: doc.ID, Confidence: 0.9}, nil
}

func invClaim() *domain.ClaimRecord {
	return &domain.ClaimRecord{
		ID:          "CLM-1",
		Description: "was rear-ended at a stop light",
		Documents: []domain.Document{
			{ID: "d1", Type: domain.DocPhoto},
			{ID: "d2", Type: domain.DocPoliceReport},
		},
		PoliceReport: &domain.PoliceReport{Filed: true},
		Participants: []domain.Participant{
			{Name: "other", Role: domain.RoleOtherDriver},
		},
	}
}

func newService() *Service {
	return NewService(extract.NewService(okExtractor{}, time.Second, nil), nil)
}

func TestFullEvidenceSet(t *testing.T) {
	s := newService()
	report := s.Investigate(context.Background(), invClaim())

	ev := report.Evidence
	if ev.PhotoCount != 1 || !ev.HasPoliceDoc {
		t.Errorf("expected photo and police doc, got %+v", ev)
	}
	if len(ev.MissingItems) != 0 {
		t.Errorf("expected no missing items, got %v", ev.MissingItems)
	}
	if ev.Completeness != 1.0 {
		t.Errorf("expected completeness 1.0, got %v", ev.Completeness)
	}
}

func TestMissingEvidenceLowersCompleteness(t *testing.T) {
	s := newService()
	claim := invClaim()
	claim.Documents = nil
	claim.Injuries = domain.InjuryReport{AnyInjuries: true, Severity: domain.InjuryMinor}

	report := s.Investigate(context.Background(), claim)
	ev := report.Evidence
	// photos, police report copy, and medical documentation all missing
	if len(ev.MissingItems) != 3 {
		t.Fatalf("expected 3 missing items, got %v", ev.MissingItems)
	}
	if ev.Completeness >= 1.0 {
		t.Errorf("expected reduced completeness, got %v", ev.Completeness)
	}
}

func TestLiabilityHeuristics(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*domain.ClaimRecord)
		wantShare   float64
		wantDispute bool
	}{
		{"rear-ended not at fault", func(_ *domain.ClaimRecord) {}, 0.0, false},
		{"single vehicle at fault", func(c *domain.ClaimRecord) {
			c.Participants = nil
			c.Description = "slid off the road into a guardrail"
		}, 1.0, false},
		{"admitted fault", func(c *domain.ClaimRecord) {
			c.Description = "i hit the car in front of me"
		}, 1.0, false},
		{"ambiguous multi-party disputed", func(c *domain.ClaimRecord) {
			c.Description = "collision at an intersection"
		}, 0.5, true},
		{"no police report disputes fault", func(c *domain.ClaimRecord) {
			c.PoliceReport = nil
		}, 0.0, true},
	}

	s := newService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := invClaim()
			tt.mutate(claim)

			report := s.Investigate(context.Background(), claim)
			liability := report.Liability
			if liability.ClaimantShare != tt.wantShare {
				t.Errorf("expected share %v, got %v", tt.wantShare, liability.ClaimantShare)
			}
			if liability.Disputed != tt.wantDispute {
				t.Errorf("expected disputed=%v, got %v", tt.wantDispute, liability.Disputed)
			}
			if len(liability.Basis) == 0 {
				t.Error("assessment must state its basis")
			}
		})
	}
}
