package regulatory

import (
	"testing"
	"time"

	"github.com/openclaims/kite/internal/domain"
)

func timelyClaim(state string) *domain.ClaimRecord {
	loss := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return &domain.ClaimRecord{
		ID:         "CLM-1",
		Status:     domain.StatusUnderReview,
		Location:   domain.LossLocation{State: state},
		LossDate:   loss,
		ReportDate: loss.AddDate(0, 0, 2),
		CreatedAt:  loss.AddDate(0, 0, 3),
		UpdatedAt:  loss.AddDate(0, 0, 3),
	}
}

func checkByName(t *testing.T, report *domain.ComplianceReport, name string) domain.ComplianceCheck {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not in report", name)
	return domain.ComplianceCheck{}
}

func TestTimelyClaimIsCompliant(t *testing.T) {
	v := NewValidator()
	claim := timelyClaim("CA")
	now := claim.ReportDate.AddDate(0, 0, 5)

	report := v.Check(claim, nil, now)
	if report.Overall != domain.Compliant {
		t.Fatalf("expected COMPLIANT, got %s: %+v", report.Overall, report.Checks)
	}
	if report.State != "CA" {
		t.Errorf("expected state CA, got %s", report.State)
	}
}

func TestLateAcknowledgment(t *testing.T) {
	v := NewValidator()
	claim := timelyClaim("CA")
	claim.CreatedAt = claim.ReportDate.AddDate(0, 0, 20) // CA limit 15

	report := v.Check(claim, nil, claim.CreatedAt)
	check := checkByName(t, report, "acknowledgment_timeliness")
	if check.Status != domain.NonCompliant {
		t.Errorf("expected NON_COMPLIANT, got %s", check.Status)
	}
	if check.Remediation == "" {
		t.Error("failed check must carry a remediation")
	}
	if check.Citation == "" {
		t.Error("every check must carry a citation")
	}
	if report.Overall != domain.NonCompliant {
		t.Errorf("one failed check must fail the report, got %s", report.Overall)
	}
}

func TestLateNoticeNeedsReview(t *testing.T) {
	v := NewValidator()
	claim := timelyClaim("CA")
	claim.ReportDate = claim.LossDate.AddDate(0, 0, 45)
	claim.CreatedAt = claim.ReportDate.AddDate(0, 0, 1)

	report := v.Check(claim, nil, claim.CreatedAt)
	check := checkByName(t, report, "prompt_notice")
	if check.Status != domain.NeedsReview {
		t.Errorf("expected NEEDS_REVIEW, got %s", check.Status)
	}
	if report.Overall != domain.NeedsReview {
		t.Errorf("ambiguous check must roll up to NEEDS_REVIEW, got %s", report.Overall)
	}
}

func TestDecisionDeadline(t *testing.T) {
	v := NewValidator()

	t.Run("overdue", func(t *testing.T) {
		claim := timelyClaim("NY") // 15 day decision window
		now := claim.ReportDate.AddDate(0, 0, 20)

		report := v.Check(claim, nil, now)
		check := checkByName(t, report, "decision_deadline")
		if check.Status != domain.NonCompliant {
			t.Errorf("expected NON_COMPLIANT, got %s", check.Status)
		}
	})

	t.Run("approaching", func(t *testing.T) {
		claim := timelyClaim("NY")
		now := claim.ReportDate.AddDate(0, 0, 13)

		report := v.Check(claim, nil, now)
		check := checkByName(t, report, "decision_deadline")
		if check.Status != domain.NeedsReview {
			t.Errorf("expected NEEDS_REVIEW, got %s", check.Status)
		}
	})

	t.Run("already decided", func(t *testing.T) {
		claim := timelyClaim("NY")
		claim.Status = domain.StatusRejected
		now := claim.ReportDate.AddDate(0, 0, 60)

		report := v.Check(claim, nil, now)
		check := checkByName(t, report, "decision_deadline")
		if check.Status != domain.Compliant {
			t.Errorf("decided claim should pass, got %s", check.Status)
		}
	})
}

func TestPaymentDeadline(t *testing.T) {
	v := NewValidator()

	t.Run("not applicable before approval", func(t *testing.T) {
		claim := timelyClaim("TX")
		report := v.Check(claim, nil, claim.CreatedAt)
		check := checkByName(t, report, "payment_deadline")
		if check.Status != domain.NotApplicable {
			t.Errorf("expected NOT_APPLICABLE, got %s", check.Status)
		}
	})

	t.Run("overdue after approval", func(t *testing.T) {
		claim := timelyClaim("TX") // 5 day payment window
		claim.Status = domain.StatusApproved
		claim.UpdatedAt = claim.CreatedAt
		now := claim.UpdatedAt.AddDate(0, 0, 10)

		report := v.Check(claim, nil, now)
		check := checkByName(t, report, "payment_deadline")
		if check.Status != domain.NonCompliant {
			t.Errorf("expected NON_COMPLIANT, got %s", check.Status)
		}
	})
}

func TestFraudReporting(t *testing.T) {
	v := NewValidator()

	t.Run("siu referral in reporting state", func(t *testing.T) {
		claim := timelyClaim("CA")
		fraud := &domain.FraudScore{Score: 60, RequiresSIUReview: true}

		report := v.Check(claim, fraud, claim.CreatedAt)
		check := checkByName(t, report, "fraud_reporting")
		if check.Status != domain.NeedsReview {
			t.Errorf("expected NEEDS_REVIEW, got %s", check.Status)
		}
	})

	t.Run("no siu referral", func(t *testing.T) {
		claim := timelyClaim("CA")
		fraud := &domain.FraudScore{Score: 5}

		report := v.Check(claim, fraud, claim.CreatedAt)
		check := checkByName(t, report, "fraud_reporting")
		if check.Status != domain.NotApplicable {
			t.Errorf("expected NOT_APPLICABLE, got %s", check.Status)
		}
	})

	t.Run("non reporting state", func(t *testing.T) {
		claim := timelyClaim("IL")
		fraud := &domain.FraudScore{Score: 60, RequiresSIUReview: true}

		report := v.Check(claim, fraud, claim.CreatedAt)
		check := checkByName(t, report, "fraud_reporting")
		if check.Status != domain.NotApplicable {
			t.Errorf("expected NOT_APPLICABLE, got %s", check.Status)
		}
	})
}

func TestUnknownStateUsesDefaults(t *testing.T) {
	v := NewValidator()
	claim := timelyClaim("ZZ")
	now := claim.ReportDate.AddDate(0, 0, 5)

	report := v.Check(claim, nil, now)
	if report.Overall != domain.Compliant {
		t.Errorf("expected default rule compliance, got %s", report.Overall)
	}
}
