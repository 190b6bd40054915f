package triggers

import (
	"time"

	"github.com/google/uuid"
)

// Operator is a comparison operator in a rule condition. Evaluation is
// fail-closed: an operator outside the known set never matches.
type Operator string

const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpEQ  Operator = "eq"
)

// Compare applies the operator to an actual value and a threshold. Unknown
// operators return false rather than erroring so one malformed rule cannot
// take evaluation down.
func (op Operator) Compare(actual, threshold float64) bool {
	switch op {
	case OpGT:
		return actual > threshold
	case OpGTE:
		return actual >= threshold
	case OpLT:
		return actual < threshold
	case OpLTE:
		return actual <= threshold
	case OpEQ:
		return actual == threshold
	default:
		return false
	}
}

// VitalsCondition matches one vitals field against a threshold. Or chains an
// alternative: the condition holds when either side does. A field that was
// not captured (nil) never matches.
type VitalsCondition struct {
	Field     string           `json:"field"`
	Operator  Operator         `json:"operator"`
	Threshold float64          `json:"threshold"`
	Or        *VitalsCondition `json:"or,omitempty"`
}

// Matches evaluates the condition against named vitals fields.
func (c *VitalsCondition) Matches(fields map[string]*float64) bool {
	if v := fields[c.Field]; v != nil && c.Operator.Compare(*v, c.Threshold) {
		return true
	}
	if c.Or != nil {
		return c.Or.Matches(fields)
	}
	return false
}

// AssessmentCondition matches a completed instrument's computed score.
type AssessmentCondition struct {
	InstrumentID   string   `json:"instrument_id"`
	Operator       Operator `json:"operator"`
	ScoreThreshold float64  `json:"score_threshold"`
}

// Conditions is the JSONB condition payload of a trigger rule. All listed
// conditions must hold for the rule to fire.
type Conditions struct {
	Vitals      []VitalsCondition     `json:"vitals,omitempty"`
	Assessments []AssessmentCondition `json:"assessments,omitempty"`
}

// Trigger sources. A rule fires off either a vitals capture or a completed
// assessment, never both.
const (
	SourceVitals     = "vitals"
	SourceAssessment = "assessment"
)

// Rule severities, carried onto the recommendations a rule fires.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// TriggerRule maps to the trigger_rule table.
type TriggerRule struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Code           string     `db:"code" json:"code"`
	Name           string     `db:"name" json:"name"`
	Source         string     `db:"source" json:"source"`
	Conditions     Conditions `db:"conditions" json:"conditions"`
	Recommendation string     `db:"recommendation" json:"recommendation"`
	Priority       int        `db:"priority" json:"priority"`
	Severity       string     `db:"severity" json:"severity"`
	Active         bool       `db:"active" json:"active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Recommendation statuses.
const (
	RecPending   = "pending"
	RecDismissed = "dismissed"
	RecResolved  = "resolved"
)

// Recommendation maps to the recommendation table. At most one row exists
// per (visit, rule) regardless of status: a dismissed recommendation is
// never resurrected by a later evaluation pass.
type Recommendation struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	VisitID       uuid.UUID  `db:"visit_id" json:"visit_id"`
	RuleID        uuid.UUID  `db:"rule_id" json:"rule_id"`
	RuleCode      string     `db:"rule_code" json:"rule_code"`
	Text          string     `db:"text" json:"text"`
	Priority      int        `db:"priority" json:"priority"`
	Severity      string     `db:"severity" json:"severity"`
	Status        string     `db:"status" json:"status"`
	DismissReason *string    `db:"dismiss_reason" json:"dismiss_reason,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
