// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveClaim upserts a claim with tenant isolation. The orchestrator writes
// the claim back at every phase boundary, so the write path is an upsert on
// (id, tenant_id).
func (r *SQLRepository) SaveClaim(ctx context.Context, tenantID string, claim *domain.ClaimRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if claim == nil || claim.ID == "" {
		return fmt.Errorf("%w: claim id is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("failed to marshal claim: %w", err)
	}

	query := `
		INSERT INTO claims (
			id, tenant_id, policy_number, claimant_id, type, status, state,
			loss_date, report_date, created_at, updated_at, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		claim.ID, tenantID, claim.PolicyNumber, claim.ClaimantID,
		claim.Type, claim.Status, claim.Location.State,
		claim.LossDate, claim.ReportDate, claim.CreatedAt, claim.UpdatedAt,
		string(payload),
	)
	return err
}

// GetClaim retrieves a claim by ID with tenant isolation.
func (r *SQLRepository) GetClaim(ctx context.Context, tenantID string, claimID string) (*domain.ClaimRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT payload FROM claims WHERE tenant_id = ? AND id = ?`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, claimID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var claim domain.ClaimRecord
	if err := json.Unmarshal([]byte(payload), &claim); err != nil {
		return nil, fmt.Errorf("failed to parse claim %s: %w", claimID, err)
	}
	return &claim, nil
}

// CountClaimsByClaimant counts claims reported by a claimant since the given
// time. Drives the repeated-claimant fraud pattern.
func (r *SQLRepository) CountClaimsByClaimant(ctx context.Context, tenantID string, claimantID string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM claims
		WHERE tenant_id = ? AND claimant_id = ? AND report_date >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, claimantID, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SaveDecision stores a routing decision with tenant isolation.
func (r *SQLRepository) SaveDecision(ctx context.Context, tenantID string, decision *domain.RoutingDecision) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	query := `
		INSERT INTO decisions (
			id, tenant_id, claim_id, decision, reason, priority, decided_at, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		decision.ID, tenantID, decision.ClaimID,
		decision.Decision, decision.Reason, decision.Priority,
		decision.DecidedAt, string(payload),
	)
	return err
}

// GetDecision retrieves a decision by ID with tenant isolation.
func (r *SQLRepository) GetDecision(ctx context.Context, tenantID string, decisionID string) (*domain.RoutingDecision, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT payload FROM decisions WHERE tenant_id = ? AND id = ?`
	return r.scanDecision(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, decisionID))
}

// GetDecisionByClaim retrieves the latest decision for a claim.
func (r *SQLRepository) GetDecisionByClaim(ctx context.Context, tenantID string, claimID string) (*domain.RoutingDecision, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT payload FROM decisions
		WHERE tenant_id = ? AND claim_id = ?
		ORDER BY decided_at DESC
		LIMIT 1
	`
	return r.scanDecision(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, claimID))
}

func (r *SQLRepository) scanDecision(row *sql.Row) (*domain.RoutingDecision, error) {
	var payload string
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var decision domain.RoutingDecision
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}
	return &decision, nil
}

// SaveFraudRule stores a fraud rule configuration with tenant isolation.
func (r *SQLRepository) SaveFraudRule(ctx context.Context, tenantID string, rule *domain.FraudRuleConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO fraud_rules (
			id, tenant_id, name, description, version, kind, expression,
			weight, severity, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			kind = excluded.kind,
			expression = excluded.expression,
			weight = excluded.weight,
			severity = excluded.severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Kind, rule.Expression,
		rule.Weight, rule.Severity, enabled,
		now, now,
	)
	return err
}

// GetFraudRule retrieves the latest enabled version of a fraud rule.
func (r *SQLRepository) GetFraudRule(ctx context.Context, tenantID string, ruleID string) (*domain.FraudRuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, kind, expression, weight, severity, enabled
		FROM fraud_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var cfg domain.FraudRuleConfig
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description,
		&cfg.Version, &cfg.Kind, &cfg.Expression, &cfg.Weight, &cfg.Severity, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1
	return &cfg, nil
}

// ListFraudRules retrieves all enabled fraud rules for a tenant.
func (r *SQLRepository) ListFraudRules(ctx context.Context, tenantID string) ([]*domain.FraudRuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, kind, expression, weight, severity, enabled
		FROM fraud_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.FraudRuleConfig
	for rows.Next() {
		var cfg domain.FraudRuleConfig
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description,
			&cfg.Version, &cfg.Kind, &cfg.Expression, &cfg.Weight, &cfg.Severity, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// SaveWatchlistEntry upserts one watchlist row with tenant isolation.
func (r *SQLRepository) SaveWatchlistEntry(ctx context.Context, tenantID string, entry *domain.WatchlistEntry) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if entry == nil || entry.Party == "" || entry.Name == "" {
		return fmt.Errorf("%w: party and name are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO watchlist_entries (tenant_id, party, name, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, party, name) DO UPDATE SET
			reason = excluded.reason
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tenantID, entry.Party, entry.Name, entry.Reason, time.Now().UTC(),
	)
	return err
}

// FindWatchlistEntries returns watchlist rows matching a party and name.
func (r *SQLRepository) FindWatchlistEntries(ctx context.Context, tenantID string, party domain.WatchlistParty, name string) ([]*domain.WatchlistEntry, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT tenant_id, party, name, reason
		FROM watchlist_entries
		WHERE tenant_id = ? AND party = ? AND name = ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, party, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.WatchlistEntry
	for rows.Next() {
		var e domain.WatchlistEntry
		if err := rows.Scan(&e.TenantID, &e.Party, &e.Name, &e.Reason); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// SaveAuditEvent appends one audit event. There is no update path; the trail
// is append-only.
func (r *SQLRepository) SaveAuditEvent(ctx context.Context, tenantID string, event *domain.AuditEvent) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO audit_events (
			id, tenant_id, claim_id, phase, kind, summary, outcome, severity, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		event.ID, tenantID, event.ClaimID, event.Phase,
		event.Kind, event.Summary, event.Outcome, event.Severity,
		event.Timestamp,
	)
	return err
}

// ListAuditEvents returns the audit trail for a claim in chronological order.
func (r *SQLRepository) ListAuditEvents(ctx context.Context, tenantID string, claimID string) ([]*domain.AuditEvent, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, claim_id, phase, kind, summary, outcome, severity, timestamp
		FROM audit_events
		WHERE tenant_id = ? AND claim_id = ?
		ORDER BY timestamp
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.ClaimID, &e.Phase,
			&e.Kind, &e.Summary, &e.Outcome, &e.Severity,
			&e.Timestamp,
		); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
