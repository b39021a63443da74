package repository

import (
	"context"

	"github.com/openclaims/kite/internal/domain"
)

// WatchlistScreen is the repository-backed watchlist source. Screening is a
// set of exact-name lookups, one per populated party, so results are
// deterministic for a given watchlist state.
type WatchlistScreen struct {
	repo domain.Repository
}

// NewWatchlistScreen wraps a repository as a watchlist source.
func NewWatchlistScreen(repo domain.Repository) *WatchlistScreen {
	return &WatchlistScreen{repo: repo}
}

// Screen checks each populated party name against the persisted watchlist.
func (w *WatchlistScreen) Screen(ctx context.Context, tenantID string, q domain.WatchlistQuery) ([]domain.WatchlistHit, error) {
	lookups := []struct {
		party domain.WatchlistParty
		name  string
	}{
		{domain.WatchlistClaimant, q.Claimant},
		{domain.WatchlistProvider, q.Provider},
		{domain.WatchlistAttorney, q.Attorney},
		{domain.WatchlistShop, q.Shop},
	}

	var hits []domain.WatchlistHit
	for _, l := range lookups {
		if l.name == "" {
			continue
		}
		entries, err := w.repo.FindWatchlistEntries(ctx, tenantID, l.party, l.name)
		if err != nil {
			return nil, err
		}
		for range entries {
			hits = append(hits, domain.WatchlistHit{Party: l.party, Name: l.name})
		}
	}
	return hits, nil
}
