package readiness

import (
	"time"

	"github.com/google/uuid"
)

// Fail reason severities. An error blocks sign-off outright; a warning
// lowers the score but can be overridden.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// FailReason explains one deduction in a readiness result.
type FailReason struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// BillingReadinessResult maps to the billing_readiness table. One row per
// visit, replaced on each scoring run.
type BillingReadinessResult struct {
	ID               uuid.UUID    `db:"id" json:"id"`
	VisitID          uuid.UUID    `db:"visit_id" json:"visit_id"`
	Completeness     float64      `db:"completeness" json:"completeness"`
	DiagnosisSupport float64      `db:"diagnosis_support" json:"diagnosis_support"`
	CodingCompliance float64      `db:"coding_compliance" json:"coding_compliance"`
	Overall          int          `db:"overall" json:"overall"`
	Passed           bool         `db:"passed" json:"passed"`
	FailReasons      []FailReason `db:"fail_reasons" json:"fail_reasons,omitempty"`
	Overridden       bool         `db:"overridden" json:"overridden"`
	OverrideReason   *string      `db:"override_reason" json:"override_reason,omitempty"`
	OverriddenBy     *string      `db:"overridden_by" json:"overridden_by,omitempty"`
	ComputedAt       time.Time    `db:"computed_at" json:"computed_at"`
}

// Ready reports whether the visit can move to billing: either the score
// passed or a coder overrode the failure.
func (r *BillingReadinessResult) Ready() bool {
	return r.Passed || r.Overridden
}
