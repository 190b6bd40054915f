package evidence

import "context"

// DefaultRules is the starter evidence rule set for the diagnoses the code
// generator can emit plus common manually added chronic conditions.
func DefaultRules() []*DiagnosisEvidenceRule {
	return []*DiagnosisEvidenceRule{
		{
			ICD10Code:   "E11.9",
			Description: "Type 2 diabetes mellitus without complications",
			Requirements: []EvidenceRequirement{
				{Type: ReqLab, TestName: "HbA1c", Description: "HbA1c result on file"},
				{Type: ReqLab, TestName: "Fasting glucose", Description: "Fasting glucose result on file"},
				{Type: ReqMedication, Keyword: "metformin", Description: "Diabetes medication on the med list"},
			},
		},
		{
			ICD10Code:   "I10",
			Description: "Essential (primary) hypertension",
			Requirements: []EvidenceRequirement{
				{Type: ReqVitals, Field: "systolic", Description: "Blood pressure recorded this visit"},
			},
		},
		{
			ICD10Code:   "E66.9",
			Description: "Obesity, unspecified",
			Requirements: []EvidenceRequirement{
				{Type: ReqVitals, Field: "bmi", Description: "BMI recorded this visit"},
			},
		},
		{
			ICD10Code:   "E66.3",
			Description: "Overweight",
			Requirements: []EvidenceRequirement{
				{Type: ReqVitals, Field: "bmi", Description: "BMI recorded this visit"},
			},
		},
		{
			ICD10Code:   "F32.1",
			Description: "Major depressive disorder, single episode, moderate",
			Requirements: []EvidenceRequirement{
				{Type: ReqAssessment, InstrumentID: "PHQ-9", Description: "Completed PHQ-9"},
			},
		},
		{
			ICD10Code:   "E78.5",
			Description: "Hyperlipidemia, unspecified",
			Requirements: []EvidenceRequirement{
				{Type: ReqLab, TestName: "Lipid panel", Description: "Lipid panel result on file"},
				{Type: ReqMedication, Keyword: "statin", Description: "Statin on the med list"},
			},
		},
		{
			ICD10Code:   "N18.3",
			Description: "Chronic kidney disease, stage 3",
			Requirements: []EvidenceRequirement{
				{Type: ReqLab, TestName: "eGFR", Description: "eGFR result on file"},
				{Type: ReqLab, TestName: "Urine albumin", Description: "Urine albumin result on file"},
			},
		},
	}
}

// SeedRules upserts the default evidence rules.
func SeedRules(ctx context.Context, repo EvidenceRuleRepository) (int, error) {
	inserted := 0
	for _, r := range DefaultRules() {
		if err := repo.Create(ctx, r); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
