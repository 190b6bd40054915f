package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carebridge/visitengine/internal/domain/coding"
	"github.com/carebridge/visitengine/internal/domain/visit"
)

var ErrNotFound = errors.New("not found")

// SnapshotProvider supplies the visit aggregate requirements are checked
// against. Satisfied by the visit service.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, visitID uuid.UUID) (*visit.Snapshot, error)
}

// CodeSource supplies the visit's codes. Satisfied by the coding service.
type CodeSource interface {
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*coding.VisitCode, error)
}

type Service struct {
	rules     EvidenceRuleRepository
	snapshots SnapshotProvider
	codes     CodeSource
}

func NewService(rules EvidenceRuleRepository, snapshots SnapshotProvider, codes CodeSource) *Service {
	return &Service{rules: rules, snapshots: snapshots, codes: codes}
}

// -- Rule administration --

func (s *Service) CreateRule(ctx context.Context, r *DiagnosisEvidenceRule) error {
	if r.ICD10Code == "" {
		return fmt.Errorf("icd10_code is required")
	}
	if len(r.Requirements) == 0 {
		return fmt.Errorf("rule must have at least one requirement")
	}
	for _, req := range r.Requirements {
		switch req.Type {
		case ReqVitals, ReqLab, ReqMedication, ReqAssessment:
		default:
			return fmt.Errorf("invalid requirement type: %s", req.Type)
		}
	}
	return s.rules.Create(ctx, r)
}

func (s *Service) ListRules(ctx context.Context) ([]*DiagnosisEvidenceRule, error) {
	return s.rules.List(ctx)
}

// -- Validation --

// requirementMet evaluates one evidence requirement against the snapshot.
// Unknown requirement types are never met.
func requirementMet(req EvidenceRequirement, snap *visit.Snapshot) bool {
	switch req.Type {
	case ReqVitals:
		return snap.VitalsField(req.Field) != nil
	case ReqLab:
		for _, lab := range snap.Labs {
			if strings.EqualFold(lab.TestName, req.TestName) {
				return true
			}
		}
		return false
	case ReqMedication:
		kw := strings.ToLower(req.Keyword)
		for _, med := range snap.MedRec {
			if strings.Contains(strings.ToLower(med.MedicationName), kw) {
				return true
			}
			if med.Category != nil && strings.Contains(strings.ToLower(*med.Category), kw) {
				return true
			}
			if med.Notes != nil && strings.Contains(strings.ToLower(*med.Notes), kw) {
				return true
			}
		}
		return false
	case ReqAssessment:
		a := snap.Assessment(req.InstrumentID)
		return a != nil && a.Status == visit.AssessmentComplete
	default:
		return false
	}
}

// validateCode evaluates one diagnosis against its rule, if any.
func validateCode(code *coding.VisitCode, rules map[string]*DiagnosisEvidenceRule, snap *visit.Snapshot) DiagnosisEvidenceResult {
	result := DiagnosisEvidenceResult{
		ICD10Code:   code.Code,
		Description: code.Description,
	}

	rule, ok := rules[code.Code]
	if !ok {
		result.Status = StatusNoRule
		return result
	}

	result.Total = len(rule.Requirements)
	for _, req := range rule.Requirements {
		met := requirementMet(req, snap)
		if met {
			result.MetCount++
		}
		result.Requirements = append(result.Requirements, RequirementOutcome{
			Description: req.Description,
			Met:         met,
		})
	}

	switch {
	case result.MetCount == result.Total:
		result.Status = StatusSupported
	case result.MetCount > 0:
		result.Status = StatusPartial
	default:
		result.Status = StatusUnsupported
	}
	return result
}

// Validate checks every active ICD-10 code on the visit against the
// evidence rules. Codes validate independently: one unsupported diagnosis
// does not taint the others.
func (s *Service) Validate(ctx context.Context, visitID uuid.UUID) ([]DiagnosisEvidenceResult, error) {
	snap, err := s.snapshots.Snapshot(ctx, visitID)
	if err != nil {
		return nil, err
	}
	codes, err := s.codes.ListByVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	allRules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	ruleByCode := make(map[string]*DiagnosisEvidenceRule, len(allRules))
	for _, r := range allRules {
		ruleByCode[r.ICD10Code] = r
	}

	var results []DiagnosisEvidenceResult
	for _, code := range codes {
		if code.CodeType != coding.TypeICD10 || !code.Active() {
			continue
		}
		results = append(results, validateCode(code, ruleByCode, snap))
	}
	return results, nil
}
