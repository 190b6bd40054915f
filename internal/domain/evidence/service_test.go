package evidence

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/carebridge/visitengine/internal/domain/coding"
	"github.com/carebridge/visitengine/internal/domain/visit"
)

// ── Mocks ──

type mockRuleRepo struct {
	data map[string]*DiagnosisEvidenceRule
}

func (m *mockRuleRepo) Create(_ context.Context, r *DiagnosisEvidenceRule) error {
	r.ID = uuid.New()
	m.data[r.ICD10Code] = r
	return nil
}
func (m *mockRuleRepo) GetByID(_ context.Context, id uuid.UUID) (*DiagnosisEvidenceRule, error) {
	for _, r := range m.data {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}
func (m *mockRuleRepo) List(_ context.Context) ([]*DiagnosisEvidenceRule, error) {
	var out []*DiagnosisEvidenceRule
	for _, r := range m.data {
		out = append(out, r)
	}
	return out, nil
}

type staticSnapshots struct {
	snaps map[uuid.UUID]*visit.Snapshot
}

func (s *staticSnapshots) Snapshot(_ context.Context, visitID uuid.UUID) (*visit.Snapshot, error) {
	if snap, ok := s.snaps[visitID]; ok {
		return snap, nil
	}
	return nil, visit.ErrNotFound
}

type staticCodes struct {
	codes map[uuid.UUID][]*coding.VisitCode
}

func (s *staticCodes) ListByVisit(_ context.Context, visitID uuid.UUID) ([]*coding.VisitCode, error) {
	return s.codes[visitID], nil
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func newTestService() (*Service, *staticSnapshots, *staticCodes) {
	rules := &mockRuleRepo{data: make(map[string]*DiagnosisEvidenceRule)}
	snaps := &staticSnapshots{snaps: make(map[uuid.UUID]*visit.Snapshot)}
	codes := &staticCodes{codes: make(map[uuid.UUID][]*coding.VisitCode)}
	svc := NewService(rules, snaps, codes)
	for _, r := range DefaultRules() {
		if err := svc.CreateRule(context.Background(), r); err != nil {
			panic(err)
		}
	}
	return svc, snaps, codes
}

func icd10(visitID uuid.UUID, code string) *coding.VisitCode {
	return &coding.VisitCode{
		ID: uuid.New(), VisitID: visitID,
		CodeType: coding.TypeICD10, Code: code, Source: coding.SourceManual,
	}
}

func resultFor(results []DiagnosisEvidenceResult, code string) *DiagnosisEvidenceResult {
	for i := range results {
		if results[i].ICD10Code == code {
			return &results[i]
		}
	}
	return nil
}

// ── Tests ──

func TestService_Validate_Partial(t *testing.T) {
	svc, snaps, codes := newTestService()
	ctx := context.Background()

	visitID := uuid.New()
	patientID := uuid.New()
	snaps.snaps[visitID] = &visit.Snapshot{
		Visit: &visit.Visit{ID: visitID, PatientID: patientID},
		Labs: []*visit.LabResult{
			{PatientID: patientID, TestName: "hba1c"}, // case-insensitive match
		},
	}
	codes.codes[visitID] = []*coding.VisitCode{icd10(visitID, "E11.9")}

	results, err := svc.Validate(ctx, visitID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := resultFor(results, "E11.9")
	if r == nil {
		t.Fatal("no result for E11.9")
	}
	if r.Status != StatusPartial {
		t.Fatalf("status = %s, want partial", r.Status)
	}
	if r.MetCount != 1 || r.Total != 3 {
		t.Fatalf("met %d of %d, want 1 of 3", r.MetCount, r.Total)
	}
}

func TestService_Validate_Supported(t *testing.T) {
	svc, snaps, codes := newTestService()
	ctx := context.Background()

	visitID := uuid.New()
	patientID := uuid.New()
	snaps.snaps[visitID] = &visit.Snapshot{
		Visit: &visit.Visit{ID: visitID, PatientID: patientID},
		Labs: []*visit.LabResult{
			{PatientID: patientID, TestName: "HbA1c"},
			{PatientID: patientID, TestName: "Fasting glucose"},
		},
		MedRec: []*visit.MedRecEntry{
			{VisitID: visitID, MedicationName: "Metformin 500mg", Category: strPtr("antidiabetic")},
		},
	}
	codes.codes[visitID] = []*coding.VisitCode{icd10(visitID, "E11.9")}

	results, err := svc.Validate(ctx, visitID)
	if err != nil {
		t.Fatal(err)
	}
	if r := resultFor(results, "E11.9"); r == nil || r.Status != StatusSupported {
		t.Fatalf("result = %+v, want supported", r)
	}
}

func TestService_Validate_Unsupported(t *testing.T) {
	svc, snaps, codes := newTestService()
	ctx := context.Background()

	visitID := uuid.New()
	snaps.snaps[visitID] = &visit.Snapshot{Visit: &visit.Visit{ID: visitID}}
	codes.codes[visitID] = []*coding.VisitCode{icd10(visitID, "E11.9")}

	results, err := svc.Validate(ctx, visitID)
	if err != nil {
		t.Fatal(err)
	}
	if r := resultFor(results, "E11.9"); r == nil || r.Status != StatusUnsupported {
		t.Fatalf("result = %+v, want unsupported", r)
	}
}

func TestService_Validate_NoRule(t *testing.T) {
	svc, snaps, codes := newTestService()
	ctx := context.Background()

	visitID := uuid.New()
	snaps.snaps[visitID] = &visit.Snapshot{Visit: &visit.Visit{ID: visitID}}
	codes.codes[visitID] = []*coding.VisitCode{icd10(visitID, "Z99.89")}

	results, err := svc.Validate(ctx, visitID)
	if err != nil {
		t.Fatal(err)
	}
	if r := resultFor(results, "Z99.89"); r == nil || r.Status != StatusNoRule {
		t.Fatalf("result = %+v, want no_rule", r)
	}
}

func TestService_Validate_CodesIndependent(t *testing.T) {
	svc, snaps, codes := newTestService()
	ctx := context.Background()

	visitID := uuid.New()
	snaps.snaps[visitID] = &visit.Snapshot{
		Visit:  &visit.Visit{ID: visitID},
		Vitals: &visit.VitalsRecord{Systolic: f64Ptr(150), Diastolic: f64Ptr(92)},
	}
	codes.codes[visitID] = []*coding.VisitCode{
		icd10(visitID, "I10"),   // vitals present: supported
		icd10(visitID, "E11.9"), // nothing on file: unsupported
	}

	results, err := svc.Validate(ctx, visitID)
	if err != nil {
		t.Fatal(err)
	}
	if r := resultFor(results, "I10"); r == nil || r.Status != StatusSupported {
		t.Fatalf("I10 = %+v, want supported", r)
	}
	if r := resultFor(results, "E11.9"); r == nil || r.Status != StatusUnsupported {
		t.Fatalf("E11.9 = %+v, want unsupported", r)
	}
}

func TestService_Validate_SkipsRemovedAndNonDiagnosis(t *testing.T) {
	svc, snaps, codes := newTestService()
	ctx := context.Background()

	visitID := uuid.New()
	snaps.snaps[visitID] = &visit.Snapshot{Visit: &visit.Visit{ID: visitID}}
	removed := icd10(visitID, "I10")
	removed.Removed = true
	codes.codes[visitID] = []*coding.VisitCode{
		removed,
		{ID: uuid.New(), VisitID: visitID, CodeType: coding.TypeCPT, Code: "99387", Source: coding.SourceAuto},
	}

	results, err := svc.Validate(ctx, visitID)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
