package readiness

import (
	"fmt"
	"math"

	"github.com/carebridge/visitengine/internal/domain/coding"
	"github.com/carebridge/visitengine/internal/domain/evidence"
)

// Component weights and the pass threshold.
const (
	weightCompleteness     = 0.40
	weightDiagnosisSupport = 0.35
	weightCodingCompliance = 0.25
	passThreshold          = 80
)

// ScoreInput is everything the scoring formula reads, assembled by the
// service so the computation itself stays pure.
type ScoreInput struct {
	ComponentsSatisfied int
	ComponentsRequired  int
	Evidence            []evidence.DiagnosisEvidenceResult
	Codes               []*coding.VisitCode
}

// Compute runs the weighted readiness formula. Component scores are each on
// a 0-100 scale; the overall score is their weighted sum rounded to the
// nearest integer.
func Compute(in ScoreInput) *BillingReadinessResult {
	result := &BillingReadinessResult{}

	result.Completeness = completenessScore(in, result)
	result.DiagnosisSupport = diagnosisSupportScore(in, result)
	result.CodingCompliance = codingComplianceScore(in, result)

	overall := weightCompleteness*result.Completeness +
		weightDiagnosisSupport*result.DiagnosisSupport +
		weightCodingCompliance*result.CodingCompliance
	result.Overall = int(math.Round(overall))

	// The gate is threshold-only. Fail reasons, error severity included,
	// are surfaced for remediation but do not block on their own.
	result.Passed = result.Overall >= passThreshold

	return result
}

// completenessScore is the share of required plan-pack components that are
// satisfied. A visit with no required components scores 100.
func completenessScore(in ScoreInput, result *BillingReadinessResult) float64 {
	if in.ComponentsRequired == 0 {
		return 100
	}
	unmet := in.ComponentsRequired - in.ComponentsSatisfied
	if unmet > 0 {
		result.FailReasons = append(result.FailReasons, FailReason{
			Severity:    SeverityWarning,
			Description: fmt.Sprintf("%d required checklist component(s) not satisfied", unmet),
		})
	}
	return 100 * float64(in.ComponentsSatisfied) / float64(in.ComponentsRequired)
}

// diagnosisSupportScore is the share of diagnoses with a rule whose evidence
// outcome is supported. A partial outcome counts against the score like an
// unsupported one; codes with no rule are excluded from the denominator so
// an exotic diagnosis does not tank the score.
func diagnosisSupportScore(in ScoreInput, result *BillingReadinessResult) float64 {
	var supported, n float64
	for _, ev := range in.Evidence {
		switch ev.Status {
		case evidence.StatusSupported:
			supported++
			n++
		case evidence.StatusPartial:
			n++
			result.FailReasons = append(result.FailReasons, FailReason{
				Severity:    SeverityWarning,
				Description: fmt.Sprintf("diagnosis %s is only partially supported by chart evidence", ev.ICD10Code),
			})
		case evidence.StatusUnsupported:
			n++
			result.FailReasons = append(result.FailReasons, FailReason{
				Severity:    SeverityError,
				Description: fmt.Sprintf("diagnosis %s has no supporting chart evidence", ev.ICD10Code),
			})
		}
	}
	if n == 0 {
		return 100
	}
	return 100 * supported / n
}

// codingComplianceScore is the share of active codes a coder has verified.
// A visit with no active codes at all is an error: there is nothing to
// bill.
func codingComplianceScore(in ScoreInput, result *BillingReadinessResult) float64 {
	var active, verified float64
	for _, c := range in.Codes {
		if !c.Active() {
			continue
		}
		active++
		if c.Verified {
			verified++
		}
	}
	if active == 0 {
		result.FailReasons = append(result.FailReasons, FailReason{
			Severity:    SeverityError,
			Description: "visit has no active billing codes",
		})
		return 0
	}
	if verified < active {
		result.FailReasons = append(result.FailReasons, FailReason{
			Severity:    SeverityWarning,
			Description: fmt.Sprintf("%.0f of %.0f active codes are unverified", active-verified, active),
		})
	}
	return 100 * verified / active
}
