package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetClaimSnapshot retrieves a cached claim snapshot.
	GetClaimSnapshot(ctx context.Context, tenantID string, claimID string) (*ClaimSnapshot, error)

	// SetClaimSnapshot caches claim data for pipeline processing.
	SetClaimSnapshot(ctx context.Context, tenantID string, claimID string, snap *ClaimSnapshot, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for claim-frequency checks (e.g., claims filed in a time window).
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ClaimSnapshot is the light claim projection cached for pipeline lookups.
type ClaimSnapshot struct {
	ClaimantID string      `json:"clmtId"`
	State      string      `json:"state"`
	Type       ClaimType   `json:"type"`
	Status     ClaimStatus `json:"status"`
	Amount     float64     `json:"amt"`
	LossDate   string      `json:"lossDate"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
