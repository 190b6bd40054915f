package visit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// ── Mock Repositories ──

type mockVisitRepo struct {
	data map[uuid.UUID]*Visit
}

func (m *mockVisitRepo) Create(_ context.Context, v *Visit) error {
	v.ID = uuid.New()
	m.data[v.ID] = v
	return nil
}
func (m *mockVisitRepo) GetByID(_ context.Context, id uuid.UUID) (*Visit, error) {
	if v, ok := m.data[id]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}
func (m *mockVisitRepo) Update(_ context.Context, v *Visit) error {
	if _, ok := m.data[v.ID]; !ok {
		return ErrNotFound
	}
	m.data[v.ID] = v
	return nil
}
func (m *mockVisitRepo) List(_ context.Context, limit, offset int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.data {
		out = append(out, v)
	}
	return out, len(out), nil
}
func (m *mockVisitRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.data {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}
func (m *mockVisitRepo) TransitionStatus(_ context.Context, id uuid.UUID, newStatus string, excluded ...string) (bool, error) {
	v, ok := m.data[id]
	if !ok {
		return false, nil
	}
	for _, s := range excluded {
		if v.Status == s {
			return false, nil
		}
	}
	v.Status = newStatus
	return true, nil
}

type mockVitalsRepo struct {
	data map[uuid.UUID]*VitalsRecord // keyed by visit ID
}

func (m *mockVitalsRepo) Create(_ context.Context, v *VitalsRecord) error {
	v.ID = uuid.New()
	m.data[v.VisitID] = v
	return nil
}
func (m *mockVitalsRepo) GetByVisit(_ context.Context, visitID uuid.UUID) (*VitalsRecord, error) {
	if v, ok := m.data[visitID]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

type mockAssessmentRepo struct {
	data map[uuid.UUID][]*AssessmentResponse
}

func (m *mockAssessmentRepo) Upsert(_ context.Context, a *AssessmentResponse) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	for i, existing := range m.data[a.VisitID] {
		if existing.InstrumentID == a.InstrumentID {
			m.data[a.VisitID][i] = a
			return nil
		}
	}
	m.data[a.VisitID] = append(m.data[a.VisitID], a)
	return nil
}
func (m *mockAssessmentRepo) ListByVisit(_ context.Context, visitID uuid.UUID) ([]*AssessmentResponse, error) {
	return m.data[visitID], nil
}

type mockMeasureRepo struct {
	data map[uuid.UUID][]*MeasureResult
}

func (m *mockMeasureRepo) Upsert(_ context.Context, r *MeasureResult) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	for i, existing := range m.data[r.VisitID] {
		if existing.MeasureID == r.MeasureID {
			m.data[r.VisitID][i] = r
			return nil
		}
	}
	m.data[r.VisitID] = append(m.data[r.VisitID], r)
	return nil
}
func (m *mockMeasureRepo) ListByVisit(_ context.Context, visitID uuid.UUID) ([]*MeasureResult, error) {
	return m.data[visitID], nil
}

type mockMedRecRepo struct {
	data map[uuid.UUID][]*MedRecEntry
}

func (m *mockMedRecRepo) Create(_ context.Context, e *MedRecEntry) error {
	e.ID = uuid.New()
	m.data[e.VisitID] = append(m.data[e.VisitID], e)
	return nil
}
func (m *mockMedRecRepo) ListByVisit(_ context.Context, visitID uuid.UUID) ([]*MedRecEntry, error) {
	return m.data[visitID], nil
}

type mockLabRepo struct {
	data map[uuid.UUID][]*LabResult
}

func (m *mockLabRepo) Create(_ context.Context, l *LabResult) error {
	l.ID = uuid.New()
	m.data[l.PatientID] = append(m.data[l.PatientID], l)
	return nil
}
func (m *mockLabRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*LabResult, error) {
	return m.data[patientID], nil
}

type mockChecklistRepo struct {
	data map[uuid.UUID]*ChecklistItem
}

func (m *mockChecklistRepo) CreateBatch(_ context.Context, items []*ChecklistItem) error {
	for _, item := range items {
		item.ID = uuid.New()
		m.data[item.ID] = item
	}
	return nil
}
func (m *mockChecklistRepo) GetByID(_ context.Context, id uuid.UUID) (*ChecklistItem, error) {
	if i, ok := m.data[id]; ok {
		return i, nil
	}
	return nil, ErrNotFound
}
func (m *mockChecklistRepo) ListByVisit(_ context.Context, visitID uuid.UUID) ([]*ChecklistItem, error) {
	var out []*ChecklistItem
	for _, i := range m.data {
		if i.VisitID == visitID {
			out = append(out, i)
		}
	}
	return out, nil
}
func (m *mockChecklistRepo) Update(_ context.Context, item *ChecklistItem) error {
	if _, ok := m.data[item.ID]; !ok {
		return ErrNotFound
	}
	m.data[item.ID] = item
	return nil
}
func (m *mockChecklistRepo) FindByComponent(_ context.Context, visitID uuid.UUID, itemType, itemID string) (*ChecklistItem, error) {
	for _, i := range m.data {
		if i.VisitID != visitID || i.ItemType != itemType {
			continue
		}
		if itemID == "" && i.ItemID == nil {
			return i, nil
		}
		if i.ItemID != nil && *i.ItemID == itemID {
			return i, nil
		}
	}
	return nil, ErrNotFound
}

type mockPlanPackRepo struct {
	packs map[uuid.UUID]*PlanPack
	rules map[uuid.UUID][]*CompletenessRule
}

func (m *mockPlanPackRepo) Create(_ context.Context, p *PlanPack) error {
	p.ID = uuid.New()
	m.packs[p.ID] = p
	return nil
}
func (m *mockPlanPackRepo) GetByID(_ context.Context, id uuid.UUID) (*PlanPack, error) {
	if p, ok := m.packs[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}
func (m *mockPlanPackRepo) List(_ context.Context) ([]*PlanPack, error) {
	var out []*PlanPack
	for _, p := range m.packs {
		out = append(out, p)
	}
	return out, nil
}
func (m *mockPlanPackRepo) AddRule(_ context.Context, r *CompletenessRule) error {
	r.ID = uuid.New()
	m.rules[r.PlanPackID] = append(m.rules[r.PlanPackID], r)
	return nil
}
func (m *mockPlanPackRepo) ListRules(_ context.Context, planPackID uuid.UUID) ([]*CompletenessRule, error) {
	return m.rules[planPackID], nil
}

type fixedDiagnosisCounter int

func (f fixedDiagnosisCounter) CountActiveDiagnoses(_ context.Context, _ uuid.UUID) (int, error) {
	return int(f), nil
}

func newTestService() (*Service, *mockVisitRepo, *mockChecklistRepo, *mockPlanPackRepo) {
	visits := &mockVisitRepo{data: make(map[uuid.UUID]*Visit)}
	checklist := &mockChecklistRepo{data: make(map[uuid.UUID]*ChecklistItem)}
	packs := &mockPlanPackRepo{packs: make(map[uuid.UUID]*PlanPack), rules: make(map[uuid.UUID][]*CompletenessRule)}
	svc := NewService(
		visits,
		&mockVitalsRepo{data: make(map[uuid.UUID]*VitalsRecord)},
		&mockAssessmentRepo{data: make(map[uuid.UUID][]*AssessmentResponse)},
		&mockMeasureRepo{data: make(map[uuid.UUID][]*MeasureResult)},
		&mockMedRecRepo{data: make(map[uuid.UUID][]*MedRecEntry)},
		&mockLabRepo{data: make(map[uuid.UUID][]*LabResult)},
		checklist,
		packs,
	)
	return svc, visits, checklist, packs
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

// seedPack creates a plan pack with a PHQ-2 assessment rule and a vitals
// rule, then a visit provisioned from it.
func seedPack(t *testing.T, svc *Service, packs *mockPlanPackRepo) (*Visit, *PlanPack) {
	t.Helper()
	ctx := context.Background()

	pack := &PlanPack{Name: "AWV Standard", VisitType: TypeAnnualWellness}
	if err := svc.CreatePlanPack(ctx, pack); err != nil {
		t.Fatalf("CreatePlanPack: %v", err)
	}
	rules := []*CompletenessRule{
		{PlanPackID: pack.ID, ComponentType: ItemTypeAssessment, ComponentID: strPtr("PHQ-2"), Label: "PHQ-2 depression screen", Required: true, ExceptionAllowed: true},
		{PlanPackID: pack.ID, ComponentType: ItemTypeVitals, Label: "Vitals captured", Required: true},
	}
	for _, r := range rules {
		if err := svc.AddCompletenessRule(ctx, r); err != nil {
			t.Fatalf("AddCompletenessRule: %v", err)
		}
	}

	v := &Visit{PatientID: uuid.New(), VisitType: TypeAnnualWellness, PlanPackID: &pack.ID}
	if err := svc.CreateVisit(ctx, v); err != nil {
		t.Fatalf("CreateVisit: %v", err)
	}
	return v, pack
}

// ── Tests ──

func TestService_CreateVisit_ProvisionsChecklist(t *testing.T) {
	svc, _, _, packs := newTestService()
	v, _ := seedPack(t, svc, packs)

	items, err := svc.ListChecklist(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("ListChecklist: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 checklist items, got %d", len(items))
	}
	for _, item := range items {
		if item.Status != ItemNotStarted {
			t.Errorf("item %s started in status %s", item.Label, item.Status)
		}
	}
}

func TestService_CreateVisit_InvalidType(t *testing.T) {
	svc, _, _, _ := newTestService()
	err := svc.CreateVisit(context.Background(), &Visit{PatientID: uuid.New(), VisitType: "walk_in"})
	if err == nil {
		t.Fatal("expected error for invalid visit type")
	}
}

func TestService_ChecklistTransitions(t *testing.T) {
	svc, _, checklist, packs := newTestService()
	v, _ := seedPack(t, svc, packs)
	ctx := context.Background()

	items, _ := svc.ListChecklist(ctx, v.ID)
	item := items[0]

	updated, err := svc.UpdateChecklistItem(ctx, item.ID, ItemInProgress, "")
	if err != nil {
		t.Fatalf("not_started -> in_progress: %v", err)
	}
	if updated.Status != ItemInProgress {
		t.Fatalf("status = %s, want %s", updated.Status, ItemInProgress)
	}

	if _, err := svc.UpdateChecklistItem(ctx, item.ID, ItemComplete, ""); err != nil {
		t.Fatalf("in_progress -> complete: %v", err)
	}

	// complete is terminal
	if _, err := svc.UpdateChecklistItem(ctx, item.ID, ItemInProgress, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from complete, got %v", err)
	}

	// direct not_started -> unable_to_assess is allowed with a reason
	other := items[1]
	if _, err := svc.UpdateChecklistItem(ctx, other.ID, ItemUnableToAssess, "patient declined"); err != nil {
		t.Fatalf("not_started -> unable_to_assess: %v", err)
	}
	got, _ := checklist.GetByID(ctx, other.ID)
	if got.UnableToAssessReason == nil || *got.UnableToAssessReason != "patient declined" {
		t.Fatal("unable_to_assess reason not stored")
	}
}

func TestService_UnableToAssessRequiresReason(t *testing.T) {
	svc, _, _, packs := newTestService()
	v, _ := seedPack(t, svc, packs)
	ctx := context.Background()

	items, _ := svc.ListChecklist(ctx, v.ID)
	if _, err := svc.UpdateChecklistItem(ctx, items[0].ID, ItemUnableToAssess, ""); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
}

func TestService_RecordVitals_DerivesBMIAndCompletesItem(t *testing.T) {
	svc, _, _, packs := newTestService()
	v, _ := seedPack(t, svc, packs)
	ctx := context.Background()

	rec := &VitalsRecord{VisitID: v.ID, WeightLb: f64Ptr(185), HeightIn: f64Ptr(70)}
	if err := svc.RecordVitals(ctx, rec); err != nil {
		t.Fatalf("RecordVitals: %v", err)
	}
	if rec.BMI == nil {
		t.Fatal("BMI not derived from height/weight")
	}
	if *rec.BMI < 26.5 || *rec.BMI > 26.6 {
		t.Fatalf("BMI = %.2f, want ~26.54", *rec.BMI)
	}

	items, _ := svc.ListChecklist(ctx, v.ID)
	for _, item := range items {
		if item.ItemType == ItemTypeVitals && item.Status != ItemComplete {
			t.Fatalf("vitals checklist item not completed, status %s", item.Status)
		}
	}
}

func TestService_SubmitAssessment_CompletesMatchingItem(t *testing.T) {
	svc, _, _, packs := newTestService()
	v, _ := seedPack(t, svc, packs)
	ctx := context.Background()

	a := &AssessmentResponse{VisitID: v.ID, InstrumentID: "PHQ-2", ComputedScore: f64Ptr(1), Status: AssessmentComplete}
	if err := svc.SubmitAssessment(ctx, a); err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	items, _ := svc.ListChecklist(ctx, v.ID)
	for _, item := range items {
		if item.ItemType == ItemTypeAssessment && item.Status != ItemComplete {
			t.Fatalf("assessment checklist item not completed, status %s", item.Status)
		}
	}
}

// brokenVitalsRepo simulates a store failure, as opposed to no vitals
// existing yet.
type brokenVitalsRepo struct{ err error }

func (r *brokenVitalsRepo) Create(_ context.Context, _ *VitalsRecord) error { return r.err }
func (r *brokenVitalsRepo) GetByVisit(_ context.Context, _ uuid.UUID) (*VitalsRecord, error) {
	return nil, r.err
}

func TestService_Snapshot_PropagatesVitalsStoreFailure(t *testing.T) {
	visits := &mockVisitRepo{data: make(map[uuid.UUID]*Visit)}
	storeErr := errors.New("connection reset")
	svc := NewService(
		visits,
		&brokenVitalsRepo{err: storeErr},
		&mockAssessmentRepo{data: make(map[uuid.UUID][]*AssessmentResponse)},
		&mockMeasureRepo{data: make(map[uuid.UUID][]*MeasureResult)},
		&mockMedRecRepo{data: make(map[uuid.UUID][]*MedRecEntry)},
		&mockLabRepo{data: make(map[uuid.UUID][]*LabResult)},
		&mockChecklistRepo{data: make(map[uuid.UUID]*ChecklistItem)},
		&mockPlanPackRepo{packs: make(map[uuid.UUID]*PlanPack), rules: make(map[uuid.UUID][]*CompletenessRule)},
	)
	ctx := context.Background()

	v := &Visit{PatientID: uuid.New(), VisitType: TypeFollowUp}
	if err := svc.CreateVisit(ctx, v); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Snapshot(ctx, v.ID); !errors.Is(err, storeErr) {
		t.Fatalf("expected the store failure to propagate, got %v", err)
	}
}

func TestService_Gate_ReportsAllBlockers(t *testing.T) {
	svc, _, _, packs := newTestService()
	v, _ := seedPack(t, svc, packs)
	svc.SetDiagnosisCounter(fixedDiagnosisCounter(0))

	gate, err := svc.Gate(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("Gate: %v", err)
	}
	if gate.Ready {
		t.Fatal("fresh visit should not be ready")
	}
	// 2 unmet rules + identity + vitals + diagnosis
	if len(gate.Blockers) != 5 {
		t.Fatalf("expected 5 blockers, got %d: %v", len(gate.Blockers), gate.Blockers)
	}
}

func TestService_Gate_UnableToAssessSatisfiesOnlyWithException(t *testing.T) {
	svc, _, _, packs := newTestService()
	v, _ := seedPack(t, svc, packs)
	svc.SetDiagnosisCounter(fixedDiagnosisCounter(1))
	ctx := context.Background()

	if err := svc.VerifyIdentity(ctx, v.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordVitals(ctx, &VitalsRecord{VisitID: v.ID, Systolic: f64Ptr(120)}); err != nil {
		t.Fatal(err)
	}

	// PHQ-2 rule has exception_allowed: unable_to_assess satisfies it.
	items, _ := svc.ListChecklist(ctx, v.ID)
	for _, item := range items {
		if item.ItemType == ItemTypeAssessment {
			if _, err := svc.UpdateChecklistItem(ctx, item.ID, ItemUnableToAssess, "patient declined"); err != nil {
				t.Fatal(err)
			}
		}
	}

	gate, err := svc.Gate(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !gate.Ready {
		t.Fatalf("expected ready, blockers: %v", gate.Blockers)
	}
}

func TestService_Gate_ExceptionNotAllowed(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	pack := &PlanPack{Name: "Strict", VisitType: TypeFollowUp}
	if err := svc.CreatePlanPack(ctx, pack); err != nil {
		t.Fatal(err)
	}
	rule := &CompletenessRule{PlanPackID: pack.ID, ComponentType: ItemTypeAssessment, ComponentID: strPtr("PHQ-9"), Label: "PHQ-9", Required: true, ExceptionAllowed: false}
	if err := svc.AddCompletenessRule(ctx, rule); err != nil {
		t.Fatal(err)
	}
	v := &Visit{PatientID: uuid.New(), VisitType: TypeFollowUp, PlanPackID: &pack.ID}
	if err := svc.CreateVisit(ctx, v); err != nil {
		t.Fatal(err)
	}
	svc.SetDiagnosisCounter(fixedDiagnosisCounter(1))

	if err := svc.VerifyIdentity(ctx, v.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordVitals(ctx, &VitalsRecord{VisitID: v.ID, Systolic: f64Ptr(118)}); err != nil {
		t.Fatal(err)
	}
	items, _ := svc.ListChecklist(ctx, v.ID)
	if _, err := svc.UpdateChecklistItem(ctx, items[0].ID, ItemUnableToAssess, "refused"); err != nil {
		t.Fatal(err)
	}

	gate, err := svc.Gate(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gate.Ready {
		t.Fatal("unable_to_assess must not satisfy a rule without exception_allowed")
	}
}

func TestService_Finalize_BlockedAndSuccess(t *testing.T) {
	svc, visits, _, packs := newTestService()
	v, _ := seedPack(t, svc, packs)
	svc.SetDiagnosisCounter(fixedDiagnosisCounter(2))
	ctx := context.Background()

	outcome, err := svc.Finalize(ctx, v.ID, "np-1")
	if err != nil {
		t.Fatalf("Finalize (blocked): %v", err)
	}
	if outcome.Finalized {
		t.Fatal("finalize must not succeed with open blockers")
	}
	if visits.data[v.ID].Status != StatusScheduled {
		t.Fatalf("blocked finalize mutated status to %s", visits.data[v.ID].Status)
	}

	// satisfy everything
	if err := svc.VerifyIdentity(ctx, v.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordVitals(ctx, &VitalsRecord{VisitID: v.ID, Systolic: f64Ptr(122)}); err != nil {
		t.Fatal(err)
	}
	if err := svc.SubmitAssessment(ctx, &AssessmentResponse{VisitID: v.ID, InstrumentID: "PHQ-2", Status: AssessmentComplete}); err != nil {
		t.Fatal(err)
	}

	outcome, err = svc.Finalize(ctx, v.ID, "np-1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !outcome.Finalized || outcome.Status != StatusReadyForReview {
		t.Fatalf("outcome = %+v", outcome)
	}

	// second finalize loses the compare-and-set
	if _, err := svc.Finalize(ctx, v.ID, "np-2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double finalize, got %v", err)
	}
}
