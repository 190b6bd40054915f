package readiness

import (
	"testing"

	"github.com/carebridge/visitengine/internal/domain/coding"
	"github.com/carebridge/visitengine/internal/domain/evidence"
)

func codes(active, verified int) []*coding.VisitCode {
	out := make([]*coding.VisitCode, 0, active)
	for i := 0; i < active; i++ {
		out = append(out, &coding.VisitCode{Verified: i < verified})
	}
	return out
}

func evidenceResults(statuses ...string) []evidence.DiagnosisEvidenceResult {
	out := make([]evidence.DiagnosisEvidenceResult, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, evidence.DiagnosisEvidenceResult{ICD10Code: string(rune('A' + i)), Status: s})
	}
	return out
}

func TestCompute_WeightedFormula(t *testing.T) {
	// completeness 100, diagnosis support 60, compliance 80:
	// 0.40*100 + 0.35*60 + 0.25*80 = 81
	in := ScoreInput{
		ComponentsSatisfied: 4,
		ComponentsRequired:  4,
		Evidence: evidenceResults(
			evidence.StatusSupported, evidence.StatusSupported,
			evidence.StatusSupported,
			evidence.StatusPartial, evidence.StatusPartial,
		),
		Codes: codes(5, 4),
	}
	result := Compute(in)

	if result.Completeness != 100 || result.DiagnosisSupport != 60 || result.CodingCompliance != 80 {
		t.Fatalf("components = %.0f/%.0f/%.0f", result.Completeness, result.DiagnosisSupport, result.CodingCompliance)
	}
	if result.Overall != 81 {
		t.Fatalf("overall = %d, want 81", result.Overall)
	}
	if !result.Passed {
		t.Fatalf("expected pass, fail reasons: %v", result.FailReasons)
	}
}

func TestCompute_BelowThresholdFails(t *testing.T) {
	in := ScoreInput{
		ComponentsSatisfied: 1,
		ComponentsRequired:  2,
		Evidence:            evidenceResults(evidence.StatusSupported, evidence.StatusPartial),
		Codes:               codes(4, 2),
	}
	result := Compute(in)
	// 0.40*50 + 0.35*50 + 0.25*50 = 50
	if result.Overall != 50 {
		t.Fatalf("overall = %d, want 50", result.Overall)
	}
	if result.Passed {
		t.Fatal("expected fail")
	}
}

func TestCompute_PartialDoesNotCountAsSupported(t *testing.T) {
	in := ScoreInput{
		Evidence: evidenceResults(evidence.StatusPartial),
		Codes:    codes(1, 1),
	}
	result := Compute(in)
	if result.DiagnosisSupport != 0 {
		t.Fatalf("diagnosis support = %.0f, want 0 (partial is not supported)", result.DiagnosisSupport)
	}
	foundWarning := false
	for _, fr := range result.FailReasons {
		if fr.Severity == SeverityWarning {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Fatal("expected a warning fail reason for the partial diagnosis")
	}
}

func TestCompute_GateIsThresholdOnly(t *testing.T) {
	// one unsupported diagnosis among many supported keeps the overall high;
	// the error reason is surfaced but does not block the gate on its own.
	in := ScoreInput{
		ComponentsRequired: 0,
		Evidence: evidenceResults(
			evidence.StatusSupported, evidence.StatusSupported,
			evidence.StatusSupported, evidence.StatusSupported,
			evidence.StatusSupported, evidence.StatusSupported,
			evidence.StatusSupported, evidence.StatusUnsupported,
		),
		Codes: codes(8, 8),
	}
	result := Compute(in)
	if result.Overall < passThreshold {
		t.Fatalf("overall = %d, expected above threshold", result.Overall)
	}
	if !result.Passed {
		t.Fatal("score above threshold must pass")
	}
	foundError := false
	for _, fr := range result.FailReasons {
		if fr.Severity == SeverityError {
			foundError = true
		}
	}
	if !foundError {
		t.Fatal("unsupported diagnosis must still surface an error fail reason")
	}
}

func TestCompute_NoRuleExcludedFromDenominator(t *testing.T) {
	in := ScoreInput{
		Evidence: evidenceResults(evidence.StatusSupported, evidence.StatusNoRule, evidence.StatusNoRule),
		Codes:    codes(3, 3),
	}
	result := Compute(in)
	if result.DiagnosisSupport != 100 {
		t.Fatalf("diagnosis support = %.0f, want 100 (no_rule excluded)", result.DiagnosisSupport)
	}
}

func TestCompute_NoActiveCodesIsError(t *testing.T) {
	in := ScoreInput{Codes: nil}
	result := Compute(in)
	if result.CodingCompliance != 0 {
		t.Fatalf("compliance = %.0f, want 0", result.CodingCompliance)
	}
	if result.Passed {
		t.Fatal("a visit with no codes must not pass")
	}
	foundError := false
	for _, fr := range result.FailReasons {
		if fr.Severity == SeverityError {
			foundError = true
		}
	}
	if !foundError {
		t.Fatal("expected an error-severity fail reason")
	}
}

func TestCompute_Bounds(t *testing.T) {
	empty := Compute(ScoreInput{})
	if empty.Overall < 0 || empty.Overall > 100 {
		t.Fatalf("overall out of range: %d", empty.Overall)
	}

	perfect := Compute(ScoreInput{
		ComponentsSatisfied: 3,
		ComponentsRequired:  3,
		Evidence:            evidenceResults(evidence.StatusSupported),
		Codes:               codes(2, 2),
	})
	if perfect.Overall != 100 || !perfect.Passed {
		t.Fatalf("perfect input scored %d passed=%v", perfect.Overall, perfect.Passed)
	}
	if len(perfect.FailReasons) != 0 {
		t.Fatalf("perfect input has fail reasons: %v", perfect.FailReasons)
	}
}
