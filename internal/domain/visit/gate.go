package visit

import "fmt"

// GateResult is the outcome of a finalize-gate evaluation. Blockers names
// every unmet requirement so the caller can direct the user to each
// remediation rather than reporting a bare boolean.
type GateResult struct {
	Ready    bool     `json:"ready"`
	Blockers []string `json:"blockers,omitempty"`
}

// EvaluateGate decides finalize eligibility from a snapshot plus the count
// of active (non-removed) ICD-10 codes. A visit is ready when every
// required completeness component is satisfied, identity was verified, a
// vitals record exists, and at least one active diagnosis code exists.
func EvaluateGate(snap *Snapshot, activeDiagnoses int) GateResult {
	var blockers []string

	for _, rule := range snap.Rules {
		if !rule.Required {
			continue
		}
		if !ruleSatisfied(rule, snap.Checklist) {
			blockers = append(blockers, rule.Label)
		}
	}

	if !snap.Visit.IdentityVerified {
		blockers = append(blockers, "patient identity not verified")
	}
	if snap.Vitals == nil {
		blockers = append(blockers, "no vitals recorded")
	}
	if activeDiagnoses == 0 {
		blockers = append(blockers, "no active ICD-10 diagnosis code")
	}

	return GateResult{Ready: len(blockers) == 0, Blockers: blockers}
}

// ruleSatisfied finds the checklist item governed by the rule and checks
// its status. A rule with no matching checklist item is unmet: the visit
// was provisioned without a component its plan pack requires.
func ruleSatisfied(rule *CompletenessRule, checklist []*ChecklistItem) bool {
	for _, item := range checklist {
		if rule.MatchesItem(item) {
			return rule.SatisfiedBy(item)
		}
	}
	return false
}

// ComponentSatisfaction counts required completeness components and how
// many are currently satisfied. Used by readiness scoring, which shares the
// gate's satisfaction semantics.
func ComponentSatisfaction(snap *Snapshot) (satisfied, required int) {
	for _, rule := range snap.Rules {
		if !rule.Required {
			continue
		}
		required++
		if ruleSatisfied(rule, snap.Checklist) {
			satisfied++
		}
	}
	return satisfied, required
}

// FinalizeOutcome is returned by Service.Finalize. When the gate blocks,
// Finalized is false and Gate carries the blocker labels; this is expected
// user-correctable data, not an error.
type FinalizeOutcome struct {
	Finalized bool       `json:"finalized"`
	Status    string     `json:"status,omitempty"`
	Gate      GateResult `json:"gate"`
}

func (o FinalizeOutcome) String() string {
	if o.Finalized {
		return fmt.Sprintf("finalized (%s)", o.Status)
	}
	return fmt.Sprintf("blocked (%d blockers)", len(o.Gate.Blockers))
}
