package coding

import (
	"testing"

	"github.com/google/uuid"

	"github.com/carebridge/visitengine/internal/domain/visit"
)

func f64Ptr(f float64) *float64 { return &f }
func strPtr(s string) *string   { return &s }

func hasCode(codes []*VisitCode, codeType, code string) bool {
	for _, c := range codes {
		if c.CodeType == codeType && c.Code == code {
			return true
		}
	}
	return false
}

func TestGenerate_AnnualWellnessBaseCodes(t *testing.T) {
	snap := &visit.Snapshot{Visit: &visit.Visit{ID: uuid.New(), VisitType: visit.TypeAnnualWellness}}
	codes := Generate(snap)

	if len(codes) != 3 {
		t.Fatalf("expected 3 base codes, got %d", len(codes))
	}
	for _, want := range []struct{ codeType, code string }{
		{TypeCPT, "99387"}, {TypeHCPCS, "G0438"}, {TypeICD10, "Z00.00"},
	} {
		if !hasCode(codes, want.codeType, want.code) {
			t.Errorf("missing %s %s", want.codeType, want.code)
		}
	}
	for _, c := range codes {
		if c.Source != SourceAuto {
			t.Errorf("code %s has source %s", c.Code, c.Source)
		}
	}
}

func TestGenerate_VitalsThresholds(t *testing.T) {
	snap := &visit.Snapshot{
		Visit:  &visit.Visit{ID: uuid.New(), VisitType: visit.TypeFollowUp},
		Vitals: &visit.VitalsRecord{Systolic: f64Ptr(146), BMI: f64Ptr(31.2)},
	}
	codes := Generate(snap)

	if !hasCode(codes, TypeICD10, "I10") {
		t.Error("systolic 146 should produce I10")
	}
	if !hasCode(codes, TypeICD10, "E66.9") {
		t.Error("BMI 31.2 should produce E66.9")
	}
	if hasCode(codes, TypeICD10, "E66.3") {
		t.Error("obese BMI must not also produce the overweight code")
	}
}

func TestGenerate_OverweightBand(t *testing.T) {
	snap := &visit.Snapshot{
		Visit:  &visit.Visit{ID: uuid.New(), VisitType: visit.TypeFollowUp},
		Vitals: &visit.VitalsRecord{BMI: f64Ptr(27.5)},
	}
	codes := Generate(snap)
	if !hasCode(codes, TypeICD10, "E66.3") {
		t.Error("BMI 27.5 should produce E66.3")
	}
	if hasCode(codes, TypeICD10, "E66.9") {
		t.Error("BMI 27.5 must not produce the obesity code")
	}
}

func TestGenerate_AbsentVitalsProduceNothing(t *testing.T) {
	snap := &visit.Snapshot{
		Visit:  &visit.Visit{ID: uuid.New(), VisitType: visit.TypeFollowUp},
		Vitals: &visit.VitalsRecord{},
	}
	codes := Generate(snap)
	if hasCode(codes, TypeICD10, "I10") || hasCode(codes, TypeICD10, "E66.9") {
		t.Error("uncaptured measurements must not produce diagnosis codes")
	}
}

func TestGenerate_CompletionBundles(t *testing.T) {
	snap := &visit.Snapshot{
		Visit: &visit.Visit{ID: uuid.New(), VisitType: visit.TypeFollowUp},
		Checklist: []*visit.ChecklistItem{
			{ItemType: visit.ItemTypeAssessment, ItemID: strPtr("PHQ-9"), Status: visit.ItemComplete},
			{ItemType: visit.ItemTypeMeasure, ItemID: strPtr("BCS-E"), Status: visit.ItemComplete},
			{ItemType: visit.ItemTypeMeasure, ItemID: strPtr("COL"), Status: visit.ItemInProgress},
		},
		Assessments: []*visit.AssessmentResponse{
			{InstrumentID: "PHQ-9", ComputedScore: f64Ptr(13), Status: visit.AssessmentComplete},
		},
	}
	codes := Generate(snap)

	if !hasCode(codes, TypeCPT, "96127") {
		t.Error("completed PHQ-9 should produce 96127")
	}
	if !hasCode(codes, TypeICD10, "F32.1") {
		t.Error("PHQ-9 score 13 should produce F32.1")
	}
	if !hasCode(codes, TypeCPT, "77067") || !hasCode(codes, TypeICD10, "Z12.31") {
		t.Error("completed BCS-E should produce the mammography bundle")
	}
	if hasCode(codes, TypeCPT, "45378") {
		t.Error("in_progress COL item must not produce codes")
	}
}

func TestGenerate_CompletedAWVMeasureProducesG0438(t *testing.T) {
	snap := &visit.Snapshot{
		Visit: &visit.Visit{ID: uuid.New(), VisitType: visit.TypeFollowUp},
		Checklist: []*visit.ChecklistItem{
			{ItemType: visit.ItemTypeMeasure, ItemID: strPtr("AWV"), Status: visit.ItemComplete},
		},
	}
	codes := Generate(snap)
	if !hasCode(codes, TypeHCPCS, "G0438") {
		t.Error("completed AWV measure should produce G0438")
	}

	// On an annual wellness visit the base code set already carries G0438;
	// the completed measure must not duplicate it.
	snap.Visit.VisitType = visit.TypeAnnualWellness
	codes = Generate(snap)
	count := 0
	for _, c := range codes {
		if c.CodeType == TypeHCPCS && c.Code == "G0438" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one G0438, got %d", count)
	}
}

func TestGenerate_DeterministicAndUnique(t *testing.T) {
	snap := &visit.Snapshot{
		Visit:  &visit.Visit{ID: uuid.New(), VisitType: visit.TypeAnnualWellness},
		Vitals: &visit.VitalsRecord{Systolic: f64Ptr(150), Diastolic: f64Ptr(95)},
		Checklist: []*visit.ChecklistItem{
			{ItemType: visit.ItemTypeAssessment, ItemID: strPtr("PHQ-2"), Status: visit.ItemComplete},
			{ItemType: visit.ItemTypeAssessment, ItemID: strPtr("PHQ-9"), Status: visit.ItemComplete},
		},
	}

	first := Generate(snap)
	second := Generate(snap)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic output: %d vs %d codes", len(first), len(second))
	}
	for i := range first {
		if first[i].Key() != second[i].Key() {
			t.Fatalf("ordering differs at %d: %v vs %v", i, first[i].Key(), second[i].Key())
		}
	}

	// systolic and diastolic both map to I10; PHQ-2 and PHQ-9 both map to
	// 96127. Each key must appear once.
	seen := make(map[CodeKey]int)
	for _, c := range first {
		seen[c.Key()]++
	}
	for key, n := range seen {
		if n > 1 {
			t.Errorf("key %v appears %d times", key, n)
		}
	}
}
