package evidence

import (
	"context"

	"github.com/google/uuid"
)

type EvidenceRuleRepository interface {
	Create(ctx context.Context, r *DiagnosisEvidenceRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*DiagnosisEvidenceRule, error)
	List(ctx context.Context) ([]*DiagnosisEvidenceRule, error)
}
