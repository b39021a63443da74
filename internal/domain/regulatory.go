package domain

// ComplianceStatus is the outcome of a regulatory point check.
type ComplianceStatus string

const (
	Compliant     ComplianceStatus = "COMPLIANT"
	NonCompliant  ComplianceStatus = "NON_COMPLIANT"
	NeedsReview   ComplianceStatus = "NEEDS_REVIEW"
	NotApplicable ComplianceStatus = "NOT_APPLICABLE"
)

// ComplianceCheck is one regulatory point check with its citation and, on
// failure, a remediation instruction.
type ComplianceCheck struct {
	Name        string           `json:"name"`
	Status      ComplianceStatus `json:"status"`
	Citation    string           `json:"citation"`
	Detail      string           `json:"detail,omitempty"`
	Remediation string           `json:"remediation,omitempty"`
}

// ComplianceReport aggregates point checks for one claim in one state.
// Overall is NON_COMPLIANT if any check failed, else NEEDS_REVIEW if any check
// was ambiguous, else COMPLIANT.
type ComplianceReport struct {
	State   string            `json:"state"`
	Overall ComplianceStatus  `json:"overall"`
	Checks  []ComplianceCheck `json:"checks"`
}
