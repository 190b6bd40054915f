package coding

import (
	"context"

	"github.com/google/uuid"
)

type VisitCodeRepository interface {
	Create(ctx context.Context, c *VisitCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*VisitCode, error)
	Update(ctx context.Context, c *VisitCode) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*VisitCode, error)
	// DeleteAutoAssigned removes the visit's active auto-assigned codes.
	// Manual codes and removed rows are untouched.
	DeleteAutoAssigned(ctx context.Context, visitID uuid.UUID) error
	// CountActiveDiagnoses counts active ICD-10 codes on the visit.
	CountActiveDiagnoses(ctx context.Context, visitID uuid.UUID) (int, error)
}
