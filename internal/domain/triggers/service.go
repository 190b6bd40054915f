package triggers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/visitengine/internal/domain/visit"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrReasonRequired = errors.New("dismissal requires a reason")
	ErrNotPending     = errors.New("recommendation is not pending")
)

// SnapshotProvider supplies the visit aggregate rules evaluate against.
// Satisfied by the visit service.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, visitID uuid.UUID) (*visit.Snapshot, error)
}

type Service struct {
	rules     TriggerRuleRepository
	recs      RecommendationRepository
	snapshots SnapshotProvider
}

func NewService(rules TriggerRuleRepository, recs RecommendationRepository, snapshots SnapshotProvider) *Service {
	return &Service{rules: rules, recs: recs, snapshots: snapshots}
}

// -- Rule administration --

func (s *Service) CreateRule(ctx context.Context, r *TriggerRule) error {
	if r.Code == "" {
		return fmt.Errorf("code is required")
	}
	if r.Recommendation == "" {
		return fmt.Errorf("recommendation text is required")
	}
	switch r.Source {
	case SourceVitals:
		if len(r.Conditions.Vitals) == 0 {
			return fmt.Errorf("a vitals rule must have at least one vitals condition")
		}
	case SourceAssessment:
		if len(r.Conditions.Assessments) == 0 {
			return fmt.Errorf("an assessment rule must have at least one assessment condition")
		}
	default:
		return fmt.Errorf("source must be %q or %q", SourceVitals, SourceAssessment)
	}
	return s.rules.Create(ctx, r)
}

func (s *Service) UpdateRule(ctx context.Context, r *TriggerRule) error {
	if _, err := s.rules.GetByID(ctx, r.ID); err != nil {
		return err
	}
	return s.rules.Update(ctx, r)
}

func (s *Service) ListRules(ctx context.Context) ([]*TriggerRule, error) {
	return s.rules.List(ctx)
}

// -- Evaluation --

// matches reports whether every condition of the rule holds against the
// snapshot. Vitals conditions read the latest vitals record; assessment
// conditions require a completed response with a computed score.
func matches(rule *TriggerRule, snap *visit.Snapshot) bool {
	if snap.Vitals == nil && len(rule.Conditions.Vitals) > 0 {
		return false
	}
	for _, c := range rule.Conditions.Vitals {
		if !c.Matches(snap.Vitals.Fields()) {
			return false
		}
	}
	for _, c := range rule.Conditions.Assessments {
		a := snap.Assessment(c.InstrumentID)
		if a == nil || a.Status != visit.AssessmentComplete || a.ComputedScore == nil {
			return false
		}
		if !c.Operator.Compare(*a.ComputedScore, c.ScoreThreshold) {
			return false
		}
	}
	return true
}

// Evaluate runs active rules against the visit's current data and creates a
// pending recommendation for each new match. Condition values are read from
// the stored snapshot, never from the caller, so a stale client cannot fire
// a rule the chart does not support. A non-empty source restricts the pass
// to rules of that trigger source; a rule that already has a recommendation
// on the visit, in any status, is skipped, so repeated evaluation is
// idempotent and dismissals stick.
func (s *Service) Evaluate(ctx context.Context, visitID uuid.UUID, source string) ([]*Recommendation, error) {
	snap, err := s.snapshots.Snapshot(ctx, visitID)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.recs.ListByVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	fired := make(map[uuid.UUID]bool, len(existing))
	for _, rec := range existing {
		fired[rec.RuleID] = true
	}

	var created []*Recommendation
	for _, rule := range rules {
		if source != "" && rule.Source != source {
			continue
		}
		if fired[rule.ID] || !matches(rule, snap) {
			continue
		}
		rec := &Recommendation{
			VisitID:  visitID,
			RuleID:   rule.ID,
			RuleCode: rule.Code,
			Text:     rule.Recommendation,
			Priority: rule.Priority,
			Severity: rule.Severity,
			Status:   RecPending,
		}
		if err := s.recs.Create(ctx, rec); err != nil {
			return nil, err
		}
		created = append(created, rec)
	}
	return created, nil
}

func (s *Service) ListRecommendations(ctx context.Context, visitID uuid.UUID) ([]*Recommendation, error) {
	return s.recs.ListByVisit(ctx, visitID)
}

// Dismiss marks a pending recommendation dismissed. The row stays so the
// rule never fires again for this visit.
func (s *Service) Dismiss(ctx context.Context, recID uuid.UUID, reason string) (*Recommendation, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	rec, err := s.recs.GetByID(ctx, recID)
	if err != nil {
		return nil, err
	}
	if rec.Status != RecPending {
		return nil, ErrNotPending
	}
	rec.Status = RecDismissed
	rec.DismissReason = &reason
	if err := s.recs.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Resolve marks a pending recommendation acted on.
func (s *Service) Resolve(ctx context.Context, recID uuid.UUID) (*Recommendation, error) {
	rec, err := s.recs.GetByID(ctx, recID)
	if err != nil {
		return nil, err
	}
	if rec.Status != RecPending {
		return nil, ErrNotPending
	}
	rec.Status = RecResolved
	now := time.Now()
	rec.ResolvedAt = &now
	if err := s.recs.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
