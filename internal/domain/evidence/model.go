package evidence

import (
	"time"

	"github.com/google/uuid"
)

// Evidence requirement types.
const (
	ReqVitals     = "vitals"
	ReqLab        = "lab"
	ReqMedication = "medication"
	ReqAssessment = "assessment"
)

// EvidenceRequirement is one way a diagnosis can be substantiated. Exactly
// one of Field, TestName, Keyword or InstrumentID is set depending on Type.
type EvidenceRequirement struct {
	Type         string `json:"type"`
	Field        string `json:"field,omitempty"`
	TestName     string `json:"test_name,omitempty"`
	Keyword      string `json:"keyword,omitempty"`
	InstrumentID string `json:"instrument_id,omitempty"`
	Description  string `json:"description"`
}

// DiagnosisEvidenceRule maps to the diagnosis_evidence_rule table. A
// diagnosis is supported when every requirement is met, partial when some
// are, unsupported when none are.
type DiagnosisEvidenceRule struct {
	ID           uuid.UUID             `db:"id" json:"id"`
	ICD10Code    string                `db:"icd10_code" json:"icd10_code"`
	Description  string                `db:"description" json:"description"`
	Requirements []EvidenceRequirement `db:"requirements" json:"requirements"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time             `db:"updated_at" json:"updated_at"`
}

// Evidence statuses for a diagnosis on a visit.
const (
	StatusSupported   = "supported"
	StatusPartial     = "partial"
	StatusUnsupported = "unsupported"
	StatusNoRule      = "no_rule"
)

// RequirementOutcome reports one requirement's evaluation.
type RequirementOutcome struct {
	Description string `json:"description"`
	Met         bool   `json:"met"`
}

// DiagnosisEvidenceResult is the per-code validation outcome.
type DiagnosisEvidenceResult struct {
	ICD10Code    string               `json:"icd10_code"`
	Description  string               `json:"description,omitempty"`
	Status       string               `json:"status"`
	MetCount     int                  `json:"met_count"`
	Total        int                  `json:"total"`
	Requirements []RequirementOutcome `json:"requirements,omitempty"`
}
