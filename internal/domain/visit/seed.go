package visit

import "context"

// AnnualWellnessPackName identifies the seeded default plan pack.
const AnnualWellnessPackName = "Annual Wellness Visit"

// SeedAnnualWellnessPack creates the standard annual wellness visit pack:
// PHQ-2 screen, PRAPARE screen, vitals, and medication reconciliation.
// Skipped when a pack with the same name already exists.
func SeedAnnualWellnessPack(ctx context.Context, repo PlanPackRepository) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p.Name == AnnualWellnessPackName {
			return nil
		}
	}

	pack := &PlanPack{Name: AnnualWellnessPackName, VisitType: TypeAnnualWellness}
	if err := repo.Create(ctx, pack); err != nil {
		return err
	}

	phq2 := "PHQ-2"
	prapare := "PRAPARE"
	rules := []*CompletenessRule{
		{ComponentType: ItemTypeAssessment, ComponentID: &phq2, Label: "Depression screening (PHQ-2)", Required: true, ExceptionAllowed: true},
		{ComponentType: ItemTypeAssessment, ComponentID: &prapare, Label: "Social needs screening (PRAPARE)", Required: true, ExceptionAllowed: true},
		{ComponentType: ItemTypeVitals, Label: "Vital signs", Required: true},
		{ComponentType: ItemTypeMedication, Label: "Medication reconciliation", Required: true},
	}
	for _, r := range rules {
		r.PlanPackID = pack.ID
		if err := repo.AddRule(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
