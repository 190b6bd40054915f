package triggers

import "context"

// DefaultRules is the starter rule set loaded by the seed command. Codes are
// stable identifiers shown on recommendations.
func DefaultRules() []*TriggerRule {
	return []*TriggerRule{
		{
			Code:   "BP_HYPERTENSION_SCREEN",
			Name:   "Elevated blood pressure",
			Source: SourceVitals,
			Conditions: Conditions{
				Vitals: []VitalsCondition{{
					Field: "systolic", Operator: OpGTE, Threshold: 140,
					Or: &VitalsCondition{Field: "diastolic", Operator: OpGTE, Threshold: 90},
				}},
			},
			Recommendation: "Blood pressure is in the hypertensive range. Recheck after 5 minutes rest and consider hypertension workup.",
			Priority:       2,
			Severity:       SeverityWarning,
			Active:         true,
		},
		{
			Code:   "BMI_OBESITY_COUNSEL",
			Name:   "BMI in obese range",
			Source: SourceVitals,
			Conditions: Conditions{
				Vitals: []VitalsCondition{{Field: "bmi", Operator: OpGTE, Threshold: 30}},
			},
			Recommendation: "BMI is 30 or above. Provide weight management counseling and document the discussion.",
			Priority:       3,
			Severity:       SeverityInfo,
			Active:         true,
		},
		{
			Code:   "SPO2_LOW",
			Name:   "Low oxygen saturation",
			Source: SourceVitals,
			Conditions: Conditions{
				Vitals: []VitalsCondition{{Field: "oxygen_saturation", Operator: OpLT, Threshold: 92}},
			},
			Recommendation: "Oxygen saturation below 92%. Recheck with a warm finger and escalate if confirmed.",
			Priority:       1,
			Severity:       SeverityCritical,
			Active:         true,
		},
		{
			Code:   "TACHYCARDIA_REVIEW",
			Name:   "Resting tachycardia",
			Source: SourceVitals,
			Conditions: Conditions{
				Vitals: []VitalsCondition{{Field: "heart_rate", Operator: OpGT, Threshold: 100}},
			},
			Recommendation: "Resting heart rate above 100. Review medications, hydration and recent symptoms.",
			Priority:       2,
			Severity:       SeverityWarning,
			Active:         true,
		},
		{
			Code:   "PHQ_DEPRESSION_FOLLOWUP",
			Name:   "Positive depression screen",
			Source: SourceAssessment,
			Conditions: Conditions{
				Assessments: []AssessmentCondition{{InstrumentID: "PHQ-9", Operator: OpGTE, ScoreThreshold: 10}},
			},
			Recommendation: "PHQ-9 score indicates moderate depression. Create a follow-up plan and assess safety.",
			Priority:       1,
			Severity:       SeverityWarning,
			Active:         true,
		},
		{
			Code:   "PHQ2_ESCALATE",
			Name:   "PHQ-2 positive, full PHQ-9 needed",
			Source: SourceAssessment,
			Conditions: Conditions{
				Assessments: []AssessmentCondition{{InstrumentID: "PHQ-2", Operator: OpGTE, ScoreThreshold: 3}},
			},
			Recommendation: "PHQ-2 screen is positive. Administer the full PHQ-9 during this visit.",
			Priority:       2,
			Severity:       SeverityWarning,
			Active:         true,
		},
	}
}

// SeedRules inserts the default rules, skipping codes that already exist.
func SeedRules(ctx context.Context, repo TriggerRuleRepository) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[r.Code] = true
	}

	inserted := 0
	for _, r := range DefaultRules() {
		if have[r.Code] {
			continue
		}
		if err := repo.Create(ctx, r); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
