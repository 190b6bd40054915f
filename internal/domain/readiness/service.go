package readiness

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/visitengine/internal/domain/coding"
	"github.com/carebridge/visitengine/internal/domain/evidence"
	"github.com/carebridge/visitengine/internal/domain/visit"
	"github.com/carebridge/visitengine/internal/platform/audit"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrReasonRequired = errors.New("override requires a reason")
	ErrNotFailed      = errors.New("only a failed result can be overridden")
	ErrNeverScored    = errors.New("visit has not been scored")
)

// SnapshotProvider supplies the visit aggregate for completeness scoring.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, visitID uuid.UUID) (*visit.Snapshot, error)
}

// EvidenceValidator supplies per-diagnosis evidence outcomes. Satisfied by
// the evidence service.
type EvidenceValidator interface {
	Validate(ctx context.Context, visitID uuid.UUID) ([]evidence.DiagnosisEvidenceResult, error)
}

// CodeSource supplies the visit's codes. Satisfied by the coding service.
type CodeSource interface {
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*coding.VisitCode, error)
}

type Service struct {
	results   ReadinessRepository
	snapshots SnapshotProvider
	evidence  EvidenceValidator
	codes     CodeSource
	auditor   audit.Recorder
}

func NewService(results ReadinessRepository, snapshots SnapshotProvider, ev EvidenceValidator, codes CodeSource) *Service {
	return &Service{results: results, snapshots: snapshots, evidence: ev, codes: codes}
}

// SetAuditRecorder wires the audit sink for override events.
func (s *Service) SetAuditRecorder(r audit.Recorder) { s.auditor = r }

// Score computes and stores the visit's billing readiness. Any earlier
// override is cleared: an override applies to the result it was granted
// for, not to whatever the chart looks like later.
func (s *Service) Score(ctx context.Context, visitID uuid.UUID) (*BillingReadinessResult, error) {
	snap, err := s.snapshots.Snapshot(ctx, visitID)
	if err != nil {
		return nil, err
	}
	satisfied, required := visit.ComponentSatisfaction(snap)

	evResults, err := s.evidence.Validate(ctx, visitID)
	if err != nil {
		return nil, err
	}
	codes, err := s.codes.ListByVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}

	result := Compute(ScoreInput{
		ComponentsSatisfied: satisfied,
		ComponentsRequired:  required,
		Evidence:            evResults,
		Codes:               codes,
	})
	result.VisitID = visitID
	result.ComputedAt = time.Now()

	if err := s.results.Upsert(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, visitID uuid.UUID) (*BillingReadinessResult, error) {
	return s.results.GetByVisit(ctx, visitID)
}

// Override lets a coder accept a failed result with a documented reason.
func (s *Service) Override(ctx context.Context, visitID uuid.UUID, actor, reason string) (*BillingReadinessResult, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	result, err := s.results.GetByVisit(ctx, visitID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNeverScored
		}
		return nil, err
	}
	if result.Passed {
		return nil, ErrNotFailed
	}

	result.Overridden = true
	result.OverrideReason = &reason
	result.OverriddenBy = &actor
	if err := s.results.Upsert(ctx, result); err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(audit.Event{
			Actor:     actor,
			Action:    "readiness.override",
			VisitID:   visitID,
			Detail:    reason,
			Timestamp: time.Now(),
		})
	}
	return result, nil
}
