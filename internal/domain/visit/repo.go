package visit

import (
	"context"

	"github.com/google/uuid"
)

type VisitRepository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	List(ctx context.Context, limit, offset int) ([]*Visit, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
	// TransitionStatus atomically moves the visit to newStatus unless its
	// current status is one of the excluded states. Returns false when the
	// guard fails (concurrent finalize).
	TransitionStatus(ctx context.Context, id uuid.UUID, newStatus string, excluded ...string) (bool, error)
}

type VitalsRepository interface {
	Create(ctx context.Context, v *VitalsRecord) error
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*VitalsRecord, error)
}

type AssessmentRepository interface {
	Upsert(ctx context.Context, a *AssessmentResponse) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*AssessmentResponse, error)
}

type MeasureRepository interface {
	Upsert(ctx context.Context, m *MeasureResult) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MeasureResult, error)
}

type MedRecRepository interface {
	Create(ctx context.Context, e *MedRecEntry) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MedRecEntry, error)
}

type LabRepository interface {
	Create(ctx context.Context, l *LabResult) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabResult, error)
}

type ChecklistRepository interface {
	CreateBatch(ctx context.Context, items []*ChecklistItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChecklistItem, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*ChecklistItem, error)
	Update(ctx context.Context, item *ChecklistItem) error
	// FindByComponent locates the visit's item for a component type and
	// optional component ID (empty matches a type-level item).
	FindByComponent(ctx context.Context, visitID uuid.UUID, itemType, itemID string) (*ChecklistItem, error)
}

type PlanPackRepository interface {
	Create(ctx context.Context, p *PlanPack) error
	GetByID(ctx context.Context, id uuid.UUID) (*PlanPack, error)
	List(ctx context.Context) ([]*PlanPack, error)
	AddRule(ctx context.Context, r *CompletenessRule) error
	ListRules(ctx context.Context, planPackID uuid.UUID) ([]*CompletenessRule, error)
}
