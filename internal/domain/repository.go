package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Claim operations. SaveClaim is an upsert keyed by claim id; the
	// orchestrator writes the claim back at every phase boundary.
	SaveClaim(ctx context.Context, tenantID string, claim *ClaimRecord) error
	GetClaim(ctx context.Context, tenantID string, claimID string) (*ClaimRecord, error)
	CountClaimsByClaimant(ctx context.Context, tenantID string, claimantID string, since time.Time) (int64, error)

	// Routing decisions.
	SaveDecision(ctx context.Context, tenantID string, decision *RoutingDecision) error
	GetDecision(ctx context.Context, tenantID string, decisionID string) (*RoutingDecision, error)
	GetDecisionByClaim(ctx context.Context, tenantID string, claimID string) (*RoutingDecision, error)

	// Fraud rule configuration.
	SaveFraudRule(ctx context.Context, tenantID string, rule *FraudRuleConfig) error
	GetFraudRule(ctx context.Context, tenantID string, ruleID string) (*FraudRuleConfig, error)
	ListFraudRules(ctx context.Context, tenantID string) ([]*FraudRuleConfig, error)

	// Watchlist management.
	SaveWatchlistEntry(ctx context.Context, tenantID string, entry *WatchlistEntry) error
	FindWatchlistEntries(ctx context.Context, tenantID string, party WatchlistParty, name string) ([]*WatchlistEntry, error)

	// Audit trail. Append-only; never updated or deleted.
	SaveAuditEvent(ctx context.Context, tenantID string, event *AuditEvent) error
	ListAuditEvents(ctx context.Context, tenantID string, claimID string) ([]*AuditEvent, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
