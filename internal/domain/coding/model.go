package coding

import (
	"time"

	"github.com/google/uuid"
)

// Code types.
const (
	TypeCPT   = "cpt"
	TypeHCPCS = "hcpcs"
	TypeICD10 = "icd10"
)

// Code sources.
const (
	SourceAuto   = "auto_assigned"
	SourceManual = "manual"
)

// VisitCode maps to the visit_code table. Removed codes are kept as rows so
// a later regeneration does not re-add a code the NP explicitly took off.
type VisitCode struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	VisitID     uuid.UUID  `db:"visit_id" json:"visit_id"`
	CodeType    string     `db:"code_type" json:"code_type"`
	Code        string     `db:"code" json:"code"`
	Description string     `db:"description" json:"description"`
	Source      string     `db:"source" json:"source"`
	Verified    bool       `db:"verified" json:"verified"`
	VerifiedBy  *string    `db:"verified_by" json:"verified_by,omitempty"`
	Removed     bool       `db:"removed" json:"removed"`
	RemovedBy   *string    `db:"removed_by" json:"removed_by,omitempty"`
	SwappedFrom *string    `db:"swapped_from" json:"swapped_from,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	VerifiedAt  *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

// CodeKey identifies a code within a visit. Two rows with the same key can
// never both be active.
type CodeKey struct {
	Type string
	Code string
}

func (c *VisitCode) Key() CodeKey {
	return CodeKey{Type: c.CodeType, Code: c.Code}
}

// Active reports whether the code counts toward billing and the diagnosis
// requirement.
func (c *VisitCode) Active() bool {
	return !c.Removed
}
