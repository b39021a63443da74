// Package domain defines the core types and interfaces for Kite.
package domain

import (
	"time"
)

// ClaimType identifies the kind of loss being claimed.
type ClaimType string

const (
	ClaimCollision         ClaimType = "COLLISION"
	ClaimComprehensive     ClaimType = "COMPREHENSIVE"
	ClaimLiability         ClaimType = "LIABILITY"
	ClaimUninsuredMotorist ClaimType = "UNINSURED_MOTORIST"
	ClaimMedicalPayments   ClaimType = "MEDICAL_PAYMENTS"
	ClaimTheft             ClaimType = "THEFT"
	ClaimVandalism         ClaimType = "VANDALISM"
	ClaimWeather           ClaimType = "WEATHER"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	StatusSubmitted     ClaimStatus = "SUBMITTED"
	StatusUnderReview   ClaimStatus = "UNDER_REVIEW"
	StatusInvestigating ClaimStatus = "INVESTIGATING"
	StatusApproved      ClaimStatus = "APPROVED"
	StatusRejected      ClaimStatus = "REJECTED"
	StatusPaid          ClaimStatus = "PAID"
	StatusClosed        ClaimStatus = "CLOSED"
	StatusIncomplete    ClaimStatus = "INCOMPLETE"
	StatusFlaggedFraud  ClaimStatus = "FLAGGED_FRAUD"
	StatusEscalated     ClaimStatus = "ESCALATED_TO_HUMAN"
)

// claimTransitions defines the forward path of the claim state machine.
// FLAGGED_FRAUD and ESCALATED_TO_HUMAN are side branches reachable from any
// non-terminal state (handled in CanTransitionTo, not listed here).
var claimTransitions = map[ClaimStatus][]ClaimStatus{
	StatusSubmitted:     {StatusUnderReview, StatusIncomplete},
	StatusIncomplete:    {StatusSubmitted, StatusUnderReview},
	StatusUnderReview:   {StatusInvestigating, StatusApproved, StatusRejected},
	StatusInvestigating: {StatusApproved, StatusRejected},
	StatusApproved:      {StatusPaid},
	StatusRejected:      {StatusClosed},
	StatusPaid:          {StatusClosed},
	StatusFlaggedFraud:  {StatusInvestigating, StatusRejected, StatusClosed},
	StatusEscalated:     {StatusUnderReview, StatusInvestigating, StatusApproved, StatusRejected, StatusClosed},
}

// Terminal reports whether no further transitions are possible.
func (s ClaimStatus) Terminal() bool {
	return s == StatusClosed
}

// CanTransitionTo reports whether moving to next is a legal transition.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFlaggedFraud || next == StatusEscalated {
		return true
	}
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParticipantRole identifies how a person was involved in the loss.
type ParticipantRole string

const (
	RoleClaimant    ParticipantRole = "claimant"
	RoleDriver      ParticipantRole = "driver"
	RolePassenger   ParticipantRole = "passenger"
	RolePedestrian  ParticipantRole = "pedestrian"
	RoleOtherDriver ParticipantRole = "other_driver"
	RoleWitness     ParticipantRole = "witness"
)

// Participant is a person involved in the loss event.
type Participant struct {
	Name            string          `json:"name"`
	Role            ParticipantRole `json:"role"`
	Injured         bool            `json:"injured"`
	AttorneyName    string          `json:"attorneyName,omitempty"`
	MedicalProvider string          `json:"medicalProvider,omitempty"`
}

// InjurySeverity tiers bodily injury for scoring.
type InjurySeverity string

const (
	InjuryNone     InjurySeverity = "NONE"
	InjuryMinor    InjurySeverity = "MINOR"
	InjuryModerate InjurySeverity = "MODERATE"
	InjurySevere   InjurySeverity = "SEVERE"
	InjuryFatal    InjurySeverity = "FATAL"
)

// InjuryType categorizes injuries for reserve estimation.
type InjuryType string

const (
	InjurySoftTissue InjuryType = "SOFT_TISSUE"
	InjuryFracture   InjuryType = "FRACTURE"
	InjuryHead       InjuryType = "HEAD"
	InjurySpinal     InjuryType = "SPINAL"
	InjuryInternal   InjuryType = "INTERNAL"
	InjuryFatality   InjuryType = "FATALITY"
)

// InjuryReport summarizes reported injuries on a claim.
type InjuryReport struct {
	AnyInjuries      bool           `json:"anyInjuries"`
	Severity         InjurySeverity `json:"severity"`
	Type             InjuryType     `json:"type,omitempty"`
	MedicalTreatment bool           `json:"medicalTreatment"`
}

// DamageSeverity tiers vehicle damage for scoring.
type DamageSeverity string

const (
	DamageMinor     DamageSeverity = "MINOR"
	DamageModerate  DamageSeverity = "MODERATE"
	DamageSevere    DamageSeverity = "SEVERE"
	DamageTotalLoss DamageSeverity = "TOTAL_LOSS"
)

// DamageReport describes the reported vehicle damage.
type DamageReport struct {
	Severity         DamageSeverity `json:"severity"`
	AirbagDeployed   bool           `json:"airbagDeployed"`
	StructuralDamage bool           `json:"structuralDamage"`
	Drivable         bool           `json:"drivable"`
	SensorZoneDamage bool           `json:"sensorZoneDamage"`
	PriorDamage      bool           `json:"priorDamage"`
	Areas            []string       `json:"areas,omitempty"`
}

// DocumentType declares what a submitted document blob contains.
type DocumentType string

const (
	DocPhoto          DocumentType = "photo"
	DocPoliceReport   DocumentType = "police_report"
	DocRepairEstimate DocumentType = "repair_estimate"
	DocMedicalBill    DocumentType = "medical_bill"
	DocOther          DocumentType = "other"
)

// Document is a submitted blob with a declared type. Content extraction is
// delegated to the DocumentExtractor collaborator.
type Document struct {
	ID   string       `json:"id"`
	Type DocumentType `json:"type"`
	Name string       `json:"name"`
	URI  string       `json:"uri,omitempty"`
	Blob []byte       `json:"-"`
}

// PoliceReport captures the official accident report, if one was filed.
type PoliceReport struct {
	Filed        bool   `json:"filed"`
	ReportNumber string `json:"reportNumber,omitempty"`
	AccidentType string `json:"accidentType,omitempty"`
}

// EstimateLineItem is a single line on a repair estimate.
type EstimateLineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// ShopEstimate is a repair estimate supplied by a body shop.
type ShopEstimate struct {
	ShopName  string             `json:"shopName"`
	Total     float64            `json:"total"`
	LineItems []EstimateLineItem `json:"lineItems,omitempty"`
}

// MedicalBill is a single billed medical line item.
type MedicalBill struct {
	Provider string  `json:"provider"`
	Amount   float64 `json:"amount"`
}

// LossLocation is where the loss occurred. State drives threshold and
// compliance lookups.
type LossLocation struct {
	City  string `json:"city,omitempty"`
	State string `json:"state"`
}

// ClaimRecord is the central mutable record for one claim. It is created on
// intake with the policy and vehicle already resolved, and mutated by every
// processing phase.
type ClaimRecord struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenantId"`
	PolicyNumber string      `json:"policyNumber"`
	Type         ClaimType   `json:"type"`
	Status       ClaimStatus `json:"status"`

	ClaimantID   string `json:"claimantId"`
	ClaimantName string `json:"claimantName"`

	LossDate    time.Time    `json:"lossDate"`
	ReportDate  time.Time    `json:"reportDate"`
	Description string       `json:"description"`
	Location    LossLocation `json:"location"`

	Vehicle *VehicleRecord `json:"vehicle"`
	Policy  *PolicyRecord  `json:"policy"`

	Participants []Participant `json:"participants,omitempty"`
	Injuries     InjuryReport  `json:"injuries"`
	Damage       DamageReport  `json:"damage"`
	Documents    []Document    `json:"documents,omitempty"`

	PoliceReport *PoliceReport `json:"policeReport,omitempty"`
	ShopEstimate *ShopEstimate `json:"shopEstimate,omitempty"`
	MedicalBills []MedicalBill `json:"medicalBills,omitempty"`

	// Needs flags drive coverage gap detection.
	NeedsRental   bool `json:"needsRental,omitempty"`
	NeedsTowing   bool `json:"needsTowing,omitempty"`
	RetainSalvage bool `json:"retainSalvage,omitempty"`

	EstimatedAmount float64 `json:"estimatedAmount"`

	// Computed by the pipeline; recomputed wholesale on each run.
	Coverage   *CoverageEvaluation    `json:"coverage,omitempty"`
	Severity   *SeverityScore         `json:"severity,omitempty"`
	Fraud      *FraudScore            `json:"fraud,omitempty"`
	Valuation  *ValuationResult       `json:"valuation,omitempty"`
	Reserve    *ReserveRecommendation `json:"reserve,omitempty"`
	Settlement *SettlementDraft       `json:"settlement,omitempty"`
	Compliance *ComplianceReport      `json:"compliance,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OtherPartyCount returns the number of participants beyond the claimant.
func (c *ClaimRecord) OtherPartyCount() int {
	n := 0
	for _, p := range c.Participants {
		if p.Role != RoleClaimant && p.Role != RoleWitness {
			n++
		}
	}
	return n
}

// VehicleCondition grades overall vehicle condition for valuation.
type VehicleCondition string

const (
	ConditionExcellent VehicleCondition = "EXCELLENT"
	ConditionGood      VehicleCondition = "GOOD"
	ConditionFair      VehicleCondition = "FAIR"
	ConditionPoor      VehicleCondition = "POOR"
)

// VehicleRecord describes the insured vehicle.
type VehicleRecord struct {
	VIN         string           `json:"vin"`
	Make        string           `json:"make"`
	Model       string           `json:"model"`
	Year        int              `json:"year"`
	Mileage     int              `json:"mileage"`
	Condition   VehicleCondition `json:"condition"`
	Options     []string         `json:"options,omitempty"`
	PriorDamage bool             `json:"priorDamage"`

	// BaseValue seeds the internal depreciation model when all external
	// pricing sources are unavailable.
	BaseValue   float64 `json:"baseValue"`
	LoanBalance float64 `json:"loanBalance,omitempty"`
}

// Age returns vehicle age in whole years as of now, floored at zero.
func (v *VehicleRecord) Age(now time.Time) int {
	age := now.Year() - v.Year
	if age < 0 {
		return 0
	}
	return age
}

// PolicyStatus is the administrative state of a policy.
type PolicyStatus string

const (
	PolicyActive    PolicyStatus = "ACTIVE"
	PolicyCancelled PolicyStatus = "CANCELLED"
	PolicySuspended PolicyStatus = "SUSPENDED"
	PolicyLapsed    PolicyStatus = "LAPSED"
)

// CoverageType identifies a coverage on the policy.
type CoverageType string

const (
	CoverageCollision         CoverageType = "COLLISION"
	CoverageComprehensive     CoverageType = "COMPREHENSIVE"
	CoverageLiability         CoverageType = "LIABILITY"
	CoverageUninsuredMotorist CoverageType = "UNINSURED_MOTORIST"
	CoverageMedicalPayments   CoverageType = "MEDICAL_PAYMENTS"
	CoverageRental            CoverageType = "RENTAL"
	CoverageRoadside          CoverageType = "ROADSIDE"
	CoverageGAP               CoverageType = "GAP"
)

// Coverage is a single coverage line on a policy.
type Coverage struct {
	Type       CoverageType `json:"type"`
	Limit      float64      `json:"limit"`
	Deductible float64      `json:"deductible"`
	Active     bool         `json:"active"`
}

// PolicyRecord is the resolved policy for a claim. It is read-only input for
// the duration of claim processing.
type PolicyRecord struct {
	Number         string       `json:"number"`
	NamedInsured   string       `json:"namedInsured"`
	EffectiveDate  time.Time    `json:"effectiveDate"`
	ExpirationDate time.Time    `json:"expirationDate"`
	Status         PolicyStatus `json:"status"`
	VehicleVINs    []string     `json:"vehicleVins,omitempty"`
	Coverages      []Coverage   `json:"coverages"`
	PolicyLimit    float64      `json:"policyLimit"`
}

// FindCoverage returns the coverage line of the given type, if present and
// active.
func (p *PolicyRecord) FindCoverage(t CoverageType) (Coverage, bool) {
	for _, c := range p.Coverages {
		if c.Type == t && c.Active {
			return c, true
		}
	}
	return Coverage{}, false
}

// ActiveAt reports whether the policy was in force on the given date.
func (p *PolicyRecord) ActiveAt(at time.Time) bool {
	if p.Status != PolicyActive {
		return false
	}
	return !at.Before(p.EffectiveDate) && !at.After(p.ExpirationDate)
}
