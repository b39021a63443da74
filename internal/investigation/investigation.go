// Package investigation collects claim evidence and assesses liability. It
// runs concurrently with the fraud screen during the investigation phase.
package investigation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/openclaims/kite/internal/domain"
	"github.com/openclaims/kite/internal/extract"
)

// EvidenceSummary is the joined outcome of evidence collection.
type EvidenceSummary struct {
	Extraction   *extract.Aggregate `json:"-"`
	PhotoCount   int                `json:"photoCount"`
	HasPoliceDoc bool               `json:"hasPoliceDoc"`
	MissingItems []string           `json:"missingItems,omitempty"`
	Completeness float64            `json:"completeness"`
}

// LiabilityAssessment is the heuristic comparative-fault read on the claim.
type LiabilityAssessment struct {
	ClaimantShare float64  `json:"claimantShare"`
	Disputed      bool     `json:"disputed"`
	Basis         []string `json:"basis,omitempty"`
}

// Report is the investigation sub-pipeline output.
type Report struct {
	Evidence  *EvidenceSummary     `json:"evidence"`
	Liability *LiabilityAssessment `json:"liability"`
}

// Service runs the investigation sub-pipeline.
type Service struct {
	extractor *extract.Service
	logger    *slog.Logger
}

// NewService creates an investigation service.
func NewService(extractor *extract.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor: extractor,
		logger:    logger,
	}
}

// Investigate collects evidence and assesses liability against a read-only
// claim snapshot.
func (s *Service) Investigate(ctx context.Context, claim *domain.ClaimRecord) *Report {
	return &Report{
		Evidence:  s.collectEvidence(ctx, claim),
		Liability: assessLiability(claim),
	}
}

// collectEvidence fans out document extraction and checks the evidence set
// for expected items. Missing items lower completeness but never fail the
// investigation.
func (s *Service) collectEvidence(ctx context.Context, claim *domain.ClaimRecord) *EvidenceSummary {
	summary := &EvidenceSummary{Completeness: 1.0}

	if s.extractor != nil {
		summary.Extraction = s.extractor.ExtractAll(ctx, claim)
	}

	for _, doc := range claim.Documents {
		switch doc.Type {
		case domain.DocPhoto:
			summary.PhotoCount++
		case domain.DocPoliceReport:
			summary.HasPoliceDoc = true
		}
	}

	if summary.PhotoCount == 0 {
		summary.MissingItems = append(summary.MissingItems, "damage photos")
	}
	if claim.PoliceReport != nil && claim.PoliceReport.Filed && !summary.HasPoliceDoc {
		summary.MissingItems = append(summary.MissingItems, "police report copy")
	}
	if claim.Injuries.AnyInjuries && len(claim.MedicalBills) == 0 {
		summary.MissingItems = append(summary.MissingItems, "medical documentation")
	}

	// Completeness blends extraction yield with expected-item coverage.
	extractionScore := 1.0
	if summary.Extraction != nil {
		extractionScore = summary.Extraction.Completeness
	}
	expected := 3.0
	present := expected - float64(len(summary.MissingItems))
	if present < 0 {
		present = 0
	}
	summary.Completeness = 0.5*extractionScore + 0.5*(present/expected)

	return summary
}

// assessLiability applies deterministic narrative heuristics. Anything
// ambiguous is marked disputed for the adjuster.
func assessLiability(claim *domain.ClaimRecord) *LiabilityAssessment {
	assessment := &LiabilityAssessment{}
	desc := strings.ToLower(claim.Description)
	others := claim.OtherPartyCount()

	switch {
	case others == 0:
		assessment.ClaimantShare = 1.0
		assessment.Basis = append(assessment.Basis, "single-vehicle loss")
	case strings.Contains(desc, "rear-ended") || strings.Contains(desc, "rear ended"):
		assessment.ClaimantShare = 0.0
		assessment.Basis = append(assessment.Basis, "claimant reports being struck from behind")
	case strings.Contains(desc, "i hit") || strings.Contains(desc, "my fault"):
		assessment.ClaimantShare = 1.0
		assessment.Basis = append(assessment.Basis, "claimant admits fault in narrative")
	default:
		assessment.ClaimantShare = 0.5
		assessment.Disputed = true
		assessment.Basis = append(assessment.Basis, "fault not determinable from narrative")
	}

	if claim.PoliceReport == nil || !claim.PoliceReport.Filed {
		if others > 0 {
			assessment.Disputed = true
			assessment.Basis = append(assessment.Basis, "no official report to corroborate fault")
		}
	}

	return assessment
}
