package visit

import "testing"

func TestEvaluateGate_RuleWithoutItemIsUnmet(t *testing.T) {
	snap := &Snapshot{
		Visit:  &Visit{IdentityVerified: true},
		Vitals: &VitalsRecord{},
		Rules: []*CompletenessRule{
			{ComponentType: ItemTypeConsent, Label: "Consent on file", Required: true},
		},
	}
	gate := EvaluateGate(snap, 1)
	if gate.Ready {
		t.Fatal("rule with no provisioned checklist item must block")
	}
	if len(gate.Blockers) != 1 || gate.Blockers[0] != "Consent on file" {
		t.Fatalf("blockers = %v", gate.Blockers)
	}
}

func TestEvaluateGate_OptionalRuleIgnored(t *testing.T) {
	snap := &Snapshot{
		Visit:  &Visit{IdentityVerified: true},
		Vitals: &VitalsRecord{},
		Rules: []*CompletenessRule{
			{ComponentType: ItemTypeMeasure, Label: "Optional screen", Required: false},
		},
	}
	gate := EvaluateGate(snap, 1)
	if !gate.Ready {
		t.Fatalf("optional rule blocked the gate: %v", gate.Blockers)
	}
}

func TestComponentSatisfaction(t *testing.T) {
	phq := "PHQ-2"
	snap := &Snapshot{
		Visit: &Visit{},
		Rules: []*CompletenessRule{
			{ComponentType: ItemTypeAssessment, ComponentID: &phq, Label: "PHQ-2", Required: true},
			{ComponentType: ItemTypeVitals, Label: "Vitals", Required: true},
			{ComponentType: ItemTypeMeasure, Label: "Optional", Required: false},
		},
		Checklist: []*ChecklistItem{
			{ItemType: ItemTypeAssessment, ItemID: &phq, Status: ItemComplete},
			{ItemType: ItemTypeVitals, Status: ItemInProgress},
		},
	}
	satisfied, required := ComponentSatisfaction(snap)
	if required != 2 || satisfied != 1 {
		t.Fatalf("satisfied=%d required=%d, want 1/2", satisfied, required)
	}
}
