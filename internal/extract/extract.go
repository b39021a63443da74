// Package extract fans document extraction out to the OCR/vision collaborator
// and aggregates partial results.
package extract

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

// Aggregate is the joined result of extracting all of a claim's documents.
// One document's failure never aborts its siblings; failures are listed and
// reflected in the completeness score.
type Aggregate struct {
	Results      []*domain.ExtractionResult
	Failed       []string
	Completeness float64
}

// Service runs per-document extraction concurrently.
type Service struct {
	extractor domain.DocumentExtractor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService creates an extraction service. A zero timeout defaults to 10s
// per document.
func NewService(extractor domain.DocumentExtractor, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor: extractor,
		timeout:   timeout,
		logger:    logger,
	}
}

// ExtractAll extracts every document concurrently and aggregates the partial
// results. With no documents the aggregate is complete and empty.
func (s *Service) ExtractAll(ctx context.Context, claim *domain.ClaimRecord) *Aggregate {
	agg := &Aggregate{Completeness: 1.0}
	if len(claim.Documents) == 0 || s.extractor == nil {
		return agg
	}

	results := make([]*domain.ExtractionResult, len(claim.Documents))
	errs := make([]error, len(claim.Documents))
	var wg sync.WaitGroup

	for i := range claim.Documents {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			results[idx], errs[idx] = s.extractor.Extract(callCtx, &claim.Documents[idx])
		}(i)
	}

	wg.Wait()

	for i, doc := range claim.Documents {
		if errs[i] != nil || results[i] == nil {
			agg.Failed = append(agg.Failed, doc.ID)
			s.logger.Warn("document extraction failed",
				"claim_id", claim.ID, "document_id", doc.ID, "error", errs[i])
			continue
		}
		agg.Results = append(agg.Results, results[i])
	}

	agg.Completeness = float64(len(agg.Results)) / float64(len(claim.Documents))
	return agg
}
