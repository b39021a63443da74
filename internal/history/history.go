// Package history provides claimant claim-frequency lookups.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

// Service counts prior claims per claimant. The fraud detector uses it for
// the repeated-claimant pattern.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new claim history service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// CountRecentClaims returns the number of claims filed by a claimant within
// the window ending now.
func (s *Service) CountRecentClaims(ctx context.Context, tenantID, claimantID string, window time.Duration) (int64, error) {
	if tenantID == "" || claimantID == "" {
		return 0, fmt.Errorf("tenantID and claimantID are required")
	}
	if s.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-window)
	return s.repo.CountClaimsByClaimant(ctx, tenantID, claimantID, since)
}

// RecordClaim bumps the claimant's rolling frequency counter. Counter state is
// advisory; the authoritative count always comes from the repository.
func (s *Service) RecordClaim(ctx context.Context, tenantID, claimantID string, window time.Duration) error {
	if s.cache == nil {
		return nil
	}
	_, err := s.cache.IncrementCounter(ctx, tenantID, "claims:"+claimantID, window)
	return err
}

// GetFrequencyGetter returns the lookup function used by the fraud detector.
func (s *Service) GetFrequencyGetter() func(ctx context.Context, tenantID, claimantID string, window time.Duration) (int64, error) {
	return s.CountRecentClaims
}
