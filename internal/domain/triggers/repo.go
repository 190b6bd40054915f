package triggers

import (
	"context"

	"github.com/google/uuid"
)

type TriggerRuleRepository interface {
	Create(ctx context.Context, r *TriggerRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*TriggerRule, error)
	Update(ctx context.Context, r *TriggerRule) error
	List(ctx context.Context) ([]*TriggerRule, error)
	ListActive(ctx context.Context) ([]*TriggerRule, error)
}

type RecommendationRepository interface {
	Create(ctx context.Context, rec *Recommendation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error)
	Update(ctx context.Context, rec *Recommendation) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Recommendation, error)
}
