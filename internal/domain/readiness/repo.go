package readiness

import (
	"context"

	"github.com/google/uuid"
)

type ReadinessRepository interface {
	// Upsert stores the result, replacing any previous one for the visit.
	Upsert(ctx context.Context, r *BillingReadinessResult) error
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*BillingReadinessResult, error)
}
