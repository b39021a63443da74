package repository

// Schema definitions for the Kite database.
// Compatible with both SQLite and PostgreSQL.

// Claims are stored as a JSON payload with the hot columns lifted out for
// indexing. The payload is the source of truth; the columns exist for lookups
// and the claimant frequency count.
const schemaClaims = `
CREATE TABLE IF NOT EXISTS claims (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    policy_number TEXT NOT NULL,
    claimant_id TEXT NOT NULL,
    type TEXT NOT NULL,
    status TEXT NOT NULL,
    state TEXT,
    loss_date TIMESTAMP NOT NULL,
    report_date TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    payload TEXT NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_claims_tenant ON claims(tenant_id);
CREATE INDEX IF NOT EXISTS idx_claims_claimant ON claims(tenant_id, claimant_id, report_date);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(tenant_id, status);
`

const schemaDecisions = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    claim_id TEXT NOT NULL,
    decision TEXT NOT NULL,
    reason TEXT NOT NULL,
    priority TEXT NOT NULL,
    decided_at TIMESTAMP NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_tenant ON decisions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_decisions_claim ON decisions(tenant_id, claim_id, decided_at);
`

const schemaFraudRules = `
CREATE TABLE IF NOT EXISTS fraud_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    kind TEXT NOT NULL,
    expression TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    severity TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_fraud_rules_tenant ON fraud_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_fraud_rules_enabled ON fraud_rules(tenant_id, enabled);
`

const schemaWatchlist = `
CREATE TABLE IF NOT EXISTS watchlist_entries (
    tenant_id TEXT NOT NULL,
    party TEXT NOT NULL,
    name TEXT NOT NULL,
    reason TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, party, name)
);

CREATE INDEX IF NOT EXISTS idx_watchlist_lookup ON watchlist_entries(tenant_id, party, name);
`

// Audit events are append-only. No update path exists on purpose.
const schemaAuditEvents = `
CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    claim_id TEXT NOT NULL,
    phase TEXT,
    kind TEXT NOT NULL,
    summary TEXT,
    outcome TEXT,
    severity TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_claim ON audit_events(tenant_id, claim_id, timestamp);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaClaims,
		schemaDecisions,
		schemaFraudRules,
		schemaWatchlist,
		schemaAuditEvents,
	}
}
