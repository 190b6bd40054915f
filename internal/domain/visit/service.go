package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/visitengine/internal/platform/audit"
)

// DiagnosisCounter reports the number of active (non-removed) ICD-10 codes
// on a visit. Satisfied by the coding service; injected with a setter to
// keep the dependency one-directional.
type DiagnosisCounter interface {
	CountActiveDiagnoses(ctx context.Context, visitID uuid.UUID) (int, error)
}

type Service struct {
	visits      VisitRepository
	vitals      VitalsRepository
	assessments AssessmentRepository
	measures    MeasureRepository
	medRec      MedRecRepository
	labs        LabRepository
	checklist   ChecklistRepository
	planPacks   PlanPackRepository
	diagnoses   DiagnosisCounter
	auditor     audit.Recorder
}

func NewService(
	visits VisitRepository,
	vitals VitalsRepository,
	assessments AssessmentRepository,
	measures MeasureRepository,
	medRec MedRecRepository,
	labs LabRepository,
	checklist ChecklistRepository,
	planPacks PlanPackRepository,
) *Service {
	return &Service{
		visits:      visits,
		vitals:      vitals,
		assessments: assessments,
		measures:    measures,
		medRec:      medRec,
		labs:        labs,
		checklist:   checklist,
		planPacks:   planPacks,
	}
}

// SetDiagnosisCounter wires the coding service into the finalize gate.
func (s *Service) SetDiagnosisCounter(dc DiagnosisCounter) { s.diagnoses = dc }

// SetAuditRecorder wires the audit sink for finalization events.
func (s *Service) SetAuditRecorder(r audit.Recorder) { s.auditor = r }

var validVisitTypes = map[string]bool{
	TypeAnnualWellness: true, TypeInitialAssessment: true, TypeFollowUp: true,
}

// -- Visit --

func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if !validVisitTypes[v.VisitType] {
		return fmt.Errorf("invalid visit_type: %s", v.VisitType)
	}
	if v.Status == "" {
		v.Status = StatusScheduled
	}
	if v.ScheduledAt.IsZero() {
		v.ScheduledAt = time.Now()
	}
	if err := s.visits.Create(ctx, v); err != nil {
		return err
	}
	if v.PlanPackID != nil {
		return s.ProvisionChecklist(ctx, v.ID)
	}
	return nil
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.visits.GetByID(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	return s.visits.List(ctx, limit, offset)
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.visits.ListByPatient(ctx, patientID, limit, offset)
}

// VerifyIdentity records that the patient's identity was confirmed at the
// door. One of the finalize gate conditions.
func (s *Service) VerifyIdentity(ctx context.Context, visitID uuid.UUID) error {
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return err
	}
	v.IdentityVerified = true
	return s.visits.Update(ctx, v)
}

// -- Checklist provisioning and transitions --

// ProvisionChecklist creates the visit's checklist from its plan pack's
// completeness rules. Items start not_started and are never deleted during
// the visit's life.
func (s *Service) ProvisionChecklist(ctx context.Context, visitID uuid.UUID) error {
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return err
	}
	if v.PlanPackID == nil {
		return fmt.Errorf("visit %s has no plan pack", visitID)
	}

	existing, err := s.checklist.ListByVisit(ctx, visitID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil // already provisioned
	}

	rules, err := s.planPacks.ListRules(ctx, *v.PlanPackID)
	if err != nil {
		return err
	}

	items := make([]*ChecklistItem, 0, len(rules))
	for _, r := range rules {
		items = append(items, &ChecklistItem{
			VisitID:  visitID,
			ItemType: r.ComponentType,
			ItemID:   r.ComponentID,
			Label:    r.Label,
			Status:   ItemNotStarted,
		})
	}
	return s.checklist.CreateBatch(ctx, items)
}

func (s *Service) ListChecklist(ctx context.Context, visitID uuid.UUID) ([]*ChecklistItem, error) {
	return s.checklist.ListByVisit(ctx, visitID)
}

// UpdateChecklistItem applies a status transition. unable_to_assess needs a
// structured reason; complete and unable_to_assess are terminal.
func (s *Service) UpdateChecklistItem(ctx context.Context, itemID uuid.UUID, newStatus string, reason string) (*ChecklistItem, error) {
	item, err := s.checklist.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !item.CanTransition(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.Status, newStatus)
	}
	if newStatus == ItemUnableToAssess && reason == "" {
		return nil, ErrReasonRequired
	}

	item.Status = newStatus
	if newStatus == ItemUnableToAssess {
		item.UnableToAssessReason = &reason
	}
	if newStatus == ItemComplete {
		now := time.Now()
		item.CompletedAt = &now
	}
	if err := s.checklist.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// completeComponent marks the checklist item backing a clinical entry as
// complete, skipping items already in a terminal state.
func (s *Service) completeComponent(ctx context.Context, visitID uuid.UUID, itemType, itemID string) error {
	item, err := s.checklist.FindByComponent(ctx, visitID, itemType, itemID)
	if err != nil {
		return nil // no checklist item for this component; nothing to mark
	}
	if !item.CanTransition(ItemComplete) {
		return nil
	}
	item.Status = ItemComplete
	now := time.Now()
	item.CompletedAt = &now
	return s.checklist.Update(ctx, item)
}

// -- Clinical data intake --

func (s *Service) RecordVitals(ctx context.Context, v *VitalsRecord) error {
	if v.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if _, err := s.visits.GetByID(ctx, v.VisitID); err != nil {
		return err
	}
	v.DeriveBMI()
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now()
	}
	if err := s.vitals.Create(ctx, v); err != nil {
		return err
	}
	return s.completeComponent(ctx, v.VisitID, ItemTypeVitals, "")
}

func (s *Service) GetVitals(ctx context.Context, visitID uuid.UUID) (*VitalsRecord, error) {
	return s.vitals.GetByVisit(ctx, visitID)
}

func (s *Service) SubmitAssessment(ctx context.Context, a *AssessmentResponse) error {
	if a.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if a.InstrumentID == "" {
		return fmt.Errorf("instrument_id is required")
	}
	if a.Status == "" {
		a.Status = AssessmentInProgress
	}
	if a.Status == AssessmentComplete && a.CompletedAt == nil {
		now := time.Now()
		a.CompletedAt = &now
	}
	if err := s.assessments.Upsert(ctx, a); err != nil {
		return err
	}
	if a.Status == AssessmentComplete {
		return s.completeComponent(ctx, a.VisitID, ItemTypeAssessment, a.InstrumentID)
	}
	return nil
}

func (s *Service) ListAssessments(ctx context.Context, visitID uuid.UUID) ([]*AssessmentResponse, error) {
	return s.assessments.ListByVisit(ctx, visitID)
}

func (s *Service) RecordMeasure(ctx context.Context, m *MeasureResult) error {
	if m.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if m.MeasureID == "" {
		return fmt.Errorf("measure_id is required")
	}
	if m.Status == "" {
		m.Status = AssessmentComplete
	}
	if m.Status == AssessmentComplete && m.CompletedAt == nil {
		now := time.Now()
		m.CompletedAt = &now
	}
	if err := s.measures.Upsert(ctx, m); err != nil {
		return err
	}
	if m.Status == AssessmentComplete {
		return s.completeComponent(ctx, m.VisitID, ItemTypeMeasure, m.MeasureID)
	}
	return nil
}

func (s *Service) ListMeasures(ctx context.Context, visitID uuid.UUID) ([]*MeasureResult, error) {
	return s.measures.ListByVisit(ctx, visitID)
}

func (s *Service) AddMedRecEntry(ctx context.Context, e *MedRecEntry) error {
	if e.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if e.MedicationName == "" {
		return fmt.Errorf("medication_name is required")
	}
	return s.medRec.Create(ctx, e)
}

func (s *Service) ListMedRec(ctx context.Context, visitID uuid.UUID) ([]*MedRecEntry, error) {
	return s.medRec.ListByVisit(ctx, visitID)
}

func (s *Service) AddLabResult(ctx context.Context, l *LabResult) error {
	if l.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if l.TestName == "" {
		return fmt.Errorf("test_name is required")
	}
	if l.CollectedAt.IsZero() {
		l.CollectedAt = time.Now()
	}
	return s.labs.Create(ctx, l)
}

func (s *Service) ListLabsByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabResult, error) {
	return s.labs.ListByPatient(ctx, patientID)
}

// -- Plan packs --

func (s *Service) CreatePlanPack(ctx context.Context, p *PlanPack) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validVisitTypes[p.VisitType] {
		return fmt.Errorf("invalid visit_type: %s", p.VisitType)
	}
	return s.planPacks.Create(ctx, p)
}

func (s *Service) ListPlanPacks(ctx context.Context) ([]*PlanPack, error) {
	return s.planPacks.List(ctx)
}

func (s *Service) AddCompletenessRule(ctx context.Context, r *CompletenessRule) error {
	if r.PlanPackID == uuid.Nil {
		return fmt.Errorf("plan_pack_id is required")
	}
	if r.Label == "" {
		return fmt.Errorf("label is required")
	}
	return s.planPacks.AddRule(ctx, r)
}

func (s *Service) ListCompletenessRules(ctx context.Context, planPackID uuid.UUID) ([]*CompletenessRule, error) {
	return s.planPacks.ListRules(ctx, planPackID)
}

// -- Snapshot & gate --

// Snapshot assembles the read-only aggregate the engines evaluate. Every
// engine call starts from one of these, never from live lookups.
func (s *Service) Snapshot(ctx context.Context, visitID uuid.UUID) (*Snapshot, error) {
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Visit: v}

	if snap.Vitals, err = s.vitals.GetByVisit(ctx, visitID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		snap.Vitals = nil // no vitals yet; the gate reports it
	}
	if snap.Assessments, err = s.assessments.ListByVisit(ctx, visitID); err != nil {
		return nil, err
	}
	if snap.Measures, err = s.measures.ListByVisit(ctx, visitID); err != nil {
		return nil, err
	}
	if snap.MedRec, err = s.medRec.ListByVisit(ctx, visitID); err != nil {
		return nil, err
	}
	if snap.Labs, err = s.labs.ListByPatient(ctx, v.PatientID); err != nil {
		return nil, err
	}
	if snap.Checklist, err = s.checklist.ListByVisit(ctx, visitID); err != nil {
		return nil, err
	}
	if v.PlanPackID != nil {
		if snap.Rules, err = s.planPacks.ListRules(ctx, *v.PlanPackID); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Gate evaluates finalize eligibility without mutating anything.
func (s *Service) Gate(ctx context.Context, visitID uuid.UUID) (GateResult, error) {
	snap, err := s.Snapshot(ctx, visitID)
	if err != nil {
		return GateResult{}, err
	}
	count, err := s.countDiagnoses(ctx, visitID)
	if err != nil {
		return GateResult{}, err
	}
	return EvaluateGate(snap, count), nil
}

func (s *Service) countDiagnoses(ctx context.Context, visitID uuid.UUID) (int, error) {
	if s.diagnoses == nil {
		return 0, nil
	}
	return s.diagnoses.CountActiveDiagnoses(ctx, visitID)
}

// Finalize runs the gate and, when it passes, transitions the visit to
// ready_for_review with a compare-and-set so concurrent finalize requests
// cannot both succeed. The loser gets ErrConflict, never a silent
// re-finalize.
func (s *Service) Finalize(ctx context.Context, visitID uuid.UUID, actor string) (*FinalizeOutcome, error) {
	gate, err := s.Gate(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if !gate.Ready {
		return &FinalizeOutcome{Finalized: false, Gate: gate}, nil
	}

	ok, err := s.visits.TransitionStatus(ctx, visitID, StatusReadyForReview, StatusReadyForReview, StatusFinalized)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	if s.auditor != nil {
		s.auditor.Record(audit.Event{
			Actor:     actor,
			Action:    "visit.finalize",
			VisitID:   visitID,
			Timestamp: time.Now(),
		})
	}

	return &FinalizeOutcome{Finalized: true, Status: StatusReadyForReview, Gate: gate}, nil
}
