package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/openclaims/kite/internal/audit"
	"github.com/openclaims/kite/internal/domain"
	"github.com/openclaims/kite/internal/fraud"
	"github.com/openclaims/kite/internal/history"
	"github.com/openclaims/kite/internal/orchestrator"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engine  *fraud.Engine
	orch    *orchestrator.Orchestrator
	auditor *audit.Sink
	history *history.Service
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *fraud.Engine, orch *orchestrator.Orchestrator, auditor *audit.Sink, hist *history.Service, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		engine:  engine,
		orch:    orch,
		auditor: auditor,
		history: hist,
		version: version,
	}
}

// ClaimRequest is the first-notice-of-loss request body for POST /claims.
// The policy and vehicle are resolved by the caller and submitted inline.
type ClaimRequest struct {
	PolicyNumber string               `json:"policyNumber"`
	Type         domain.ClaimType     `json:"type"`
	ClaimantID   string               `json:"claimantId"`
	ClaimantName string               `json:"claimantName"`
	LossDate     time.Time            `json:"lossDate"`
	ReportDate   time.Time            `json:"reportDate,omitempty"`
	Description  string               `json:"description,omitempty"`
	Location     domain.LossLocation  `json:"location"`
	Vehicle      *domain.VehicleRecord `json:"vehicle"`
	Policy       *domain.PolicyRecord  `json:"policy"`

	Participants []domain.Participant `json:"participants,omitempty"`
	Injuries     domain.InjuryReport  `json:"injuries"`
	Damage       domain.DamageReport  `json:"damage"`
	Documents    []domain.Document    `json:"documents,omitempty"`

	PoliceReport *domain.PoliceReport `json:"policeReport,omitempty"`
	ShopEstimate *domain.ShopEstimate `json:"shopEstimate,omitempty"`
	MedicalBills []domain.MedicalBill `json:"medicalBills,omitempty"`

	NeedsRental   bool `json:"needsRental,omitempty"`
	NeedsTowing   bool `json:"needsTowing,omitempty"`
	RetainSalvage bool `json:"retainSalvage,omitempty"`

	EstimatedAmount float64 `json:"estimatedAmount"`
}

// ProcessResponse is the response for POST /claims.
type ProcessResponse struct {
	ClaimID    string               `json:"claimId"`
	DecisionID string               `json:"decisionId"`
	Decision   domain.RoutingOption `json:"decision"`
	Reason     string               `json:"reason"`
	Priority   string               `json:"priority"`
	Status     domain.ClaimStatus   `json:"status"`
	Metadata   struct {
		TraceID  string `json:"traceId"`
		IngestMs int64  `json:"ingestMs"`
		TotalMs  int64  `json:"totalMs"`
		Version  string `json:"version"`
	} `json:"metadata"`
}

// ProcessClaim handles POST /claims: it ingests the first notice of loss and
// runs the decision pipeline synchronously.
func (h *Handler) ProcessClaim(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.PolicyNumber == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "policyNumber and type are required",
		})
		return
	}
	if req.Vehicle == nil || req.Policy == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "vehicle and policy must be resolved before submission",
		})
		return
	}
	if req.LossDate.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "lossDate is required",
		})
		return
	}

	now := time.Now().UTC()
	reportDate := req.ReportDate
	if reportDate.IsZero() {
		reportDate = now
	}

	claim := &domain.ClaimRecord{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		PolicyNumber:    req.PolicyNumber,
		Type:            req.Type,
		Status:          domain.StatusSubmitted,
		ClaimantID:      req.ClaimantID,
		ClaimantName:    req.ClaimantName,
		LossDate:        req.LossDate,
		ReportDate:      reportDate,
		Description:     req.Description,
		Location:        req.Location,
		Vehicle:         req.Vehicle,
		Policy:          req.Policy,
		Participants:    req.Participants,
		Injuries:        req.Injuries,
		Damage:          req.Damage,
		Documents:       req.Documents,
		PoliceReport:    req.PoliceReport,
		ShopEstimate:    req.ShopEstimate,
		MedicalBills:    req.MedicalBills,
		NeedsRental:     req.NeedsRental,
		NeedsTowing:     req.NeedsTowing,
		RetainSalvage:   req.RetainSalvage,
		EstimatedAmount: req.EstimatedAmount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	ingestMs := time.Since(start).Milliseconds()

	if h.repo != nil {
		if err := h.repo.SaveClaim(ctx, tenantID, claim); err != nil {
			slog.Error("failed to save claim", "claim_id", claim.ID, "error", err)
		}
	}
	if h.history != nil {
		if err := h.history.RecordClaim(ctx, tenantID, claim.ClaimantID, 30*24*time.Hour); err != nil {
			slog.Warn("failed to bump claim frequency counter", "error", err)
		}
	}
	if h.cache != nil {
		snap := &domain.ClaimSnapshot{
			ClaimantID: claim.ClaimantID,
			State:      claim.Location.State,
			Type:       claim.Type,
			Status:     claim.Status,
			Amount:     claim.EstimatedAmount,
			LossDate:   claim.LossDate.Format(time.RFC3339),
		}
		_ = h.cache.SetClaimSnapshot(ctx, tenantID, claim.ID, snap, 15*time.Minute)
	}
	if h.bus != nil {
		payload, _ := json.Marshal(map[string]string{
			"claimId":  claim.ID,
			"tenantId": tenantID,
			"traceId":  traceID,
		})
		if err := h.bus.Publish(ctx, tenantID, domain.TopicClaimIngested, payload); err != nil {
			slog.Warn("failed to publish claim ingested event", "claim_id", claim.ID, "error", err)
		}
	}

	decision, err := h.orch.Run(ctx, claim)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrInvalidClaim):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":   err.Error(),
				"claimId": claim.ID,
				"status":  string(claim.Status),
			})
		case errors.Is(err, orchestrator.ErrRunInProgress):
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":   err.Error(),
				"claimId": claim.ID,
			})
		default:
			slog.Error("claim processing failed", "claim_id", claim.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "claim processing failed",
				"claimId": claim.ID,
			})
		}
		return
	}

	resp := ProcessResponse{
		ClaimID:    claim.ID,
		DecisionID: decision.ID,
		Decision:   decision.Decision,
		Reason:     decision.Reason,
		Priority:   decision.Priority,
		Status:     claim.Status,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.IngestMs = ingestMs
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GetClaim retrieves a claim by ID.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	if claimID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "claim id is required",
		})
		return
	}
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	claim, err := h.repo.GetClaim(ctx, tenantID, claimID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "claim not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, claim)
}

// GetDecision retrieves a routing decision by ID.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	decisionID := chi.URLParam(r, "id")

	if decisionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "decision id is required",
		})
		return
	}
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	decision, err := h.repo.GetDecision(ctx, tenantID, decisionID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "decision not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// GetClaimDecision retrieves the latest decision for a claim.
func (h *Handler) GetClaimDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	decision, err := h.repo.GetDecisionByClaim(ctx, tenantID, claimID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no decision for claim",
		})
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// GetClaimAudit retrieves the audit trail for a claim.
func (h *Handler) GetClaimAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	if h.auditor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "audit trail not available",
		})
		return
	}

	events, err := h.auditor.Trail(ctx, tenantID, claimID)
	if err != nil {
		slog.Error("failed to load audit trail", "claim_id", claimID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load audit trail",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claimId": claimID,
		"events":  events,
		"count":   len(events),
	})
}

// ListFraudRules returns all loaded fraud rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via
// POST /fraud-rules/reload.
func (h *Handler) ListFraudRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetFraudRule retrieves a fraud rule by ID from the loaded engine rules.
func (h *Handler) GetFraudRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateFraudRuleRequest is the request body for creating a fraud rule.
type CreateFraudRuleRequest struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Kind        domain.FraudFlagKind `json:"kind"`
	Expression  string               `json:"expression"`
	Weight      float64              `json:"weight"`
	Severity    domain.FlagSeverity  `json:"severity"`
	Enabled     bool                 `json:"enabled"`
}

// GlobalTenantID is used for fraud rules that apply to all tenants.
const GlobalTenantID = "*"

// CreateFraudRule creates a new fraud rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /fraud-rules/reload to hot-reload into the engine.
func (h *Handler) CreateFraudRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateFraudRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	severity := req.Severity
	if severity == "" {
		severity = domain.FlagMedium
	}

	ruleConfig := &domain.FraudRuleConfig{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Kind:        req.Kind,
		Expression:  req.Expression,
		Weight:      req.Weight,
		Severity:    severity,
		Enabled:     req.Enabled,
	}

	// Validate the CEL expression before persisting
	if err := h.engine.ValidateRule(ruleConfig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveFraudRule(ctx, GlobalTenantID, ruleConfig); err != nil {
			slog.Error("failed to save fraud rule", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("fraud rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    ruleConfig,
		"message": "Rule created. Call POST /fraud-rules/reload to apply changes.",
	})
}

// ReloadFraudRules reloads all fraud rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadFraudRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListFraudRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list fraud rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload fraud rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("fraud rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// CreateWatchlistEntryRequest is the request body for adding a watchlist row.
type CreateWatchlistEntryRequest struct {
	Party  domain.WatchlistParty `json:"party"`
	Name   string                `json:"name"`
	Reason string                `json:"reason,omitempty"`
}

// CreateWatchlistEntry adds a party to the tenant's watchlist.
func (h *Handler) CreateWatchlistEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateWatchlistEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Party == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "party and name are required",
		})
		return
	}
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	entry := &domain.WatchlistEntry{
		TenantID: tenantID,
		Party:    req.Party,
		Name:     req.Name,
		Reason:   req.Reason,
	}
	if err := h.repo.SaveWatchlistEntry(ctx, tenantID, entry); err != nil {
		slog.Error("failed to save watchlist entry", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save watchlist entry",
		})
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// LookupWatchlist checks one party name against the tenant's watchlist.
func (h *Handler) LookupWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	party := domain.WatchlistParty(chi.URLParam(r, "party"))
	name := chi.URLParam(r, "name")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	entries, err := h.repo.FindWatchlistEntries(ctx, tenantID, party, name)
	if err != nil {
		slog.Error("watchlist lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "watchlist lookup failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"party":   party,
		"name":    name,
		"listed":  len(entries) > 0,
		"entries": entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
