package coding

import (
	"github.com/carebridge/visitengine/internal/domain/visit"
)

// codeSpec is one candidate code emitted by a generation step.
type codeSpec struct {
	codeType    string
	code        string
	description string
}

// baseCodes are assigned from the visit type alone.
var baseCodes = map[string][]codeSpec{
	visit.TypeAnnualWellness: {
		{TypeCPT, "99387", "Preventive visit, new patient, 65+"},
		{TypeHCPCS, "G0438", "Annual wellness visit, initial"},
		{TypeICD10, "Z00.00", "General adult medical exam without abnormal findings"},
	},
	visit.TypeInitialAssessment: {
		{TypeCPT, "99204", "Office visit, new patient, moderate complexity"},
		{TypeICD10, "Z00.00", "General adult medical exam without abnormal findings"},
	},
	visit.TypeFollowUp: {
		{TypeCPT, "99214", "Office visit, established patient, moderate complexity"},
	},
}

// bundleKey identifies a checklist-completion bundle: an instrument or
// measure whose completion carries billing codes.
type bundleKey struct {
	itemType string
	itemID   string
}

var completionBundles = map[bundleKey][]codeSpec{
	{visit.ItemTypeAssessment, "PHQ-2"}:   {{TypeCPT, "96127", "Brief behavioral assessment"}},
	{visit.ItemTypeAssessment, "PHQ-9"}:   {{TypeCPT, "96127", "Brief behavioral assessment"}},
	{visit.ItemTypeAssessment, "PRAPARE"}: {{TypeCPT, "96160", "Health risk assessment"}},
	{visit.ItemTypeMeasure, "BCS-E"}:      {{TypeCPT, "77067", "Screening mammography, bilateral"}, {TypeICD10, "Z12.31", "Screening mammogram encounter"}},
	{visit.ItemTypeMeasure, "COL"}:        {{TypeCPT, "45378", "Colonoscopy, diagnostic"}, {TypeICD10, "Z12.11", "Screening colonoscopy encounter"}},
	{visit.ItemTypeMeasure, "CDC-A1C"}:    {{TypeCPT, "83036", "Hemoglobin A1c"}},
	{visit.ItemTypeMeasure, "CBP"}:        {{TypeCPT, "99473", "Self-measured BP patient education"}},
	{visit.ItemTypeMeasure, "AWV"}:        {{TypeHCPCS, "G0438", "Annual wellness visit, initial"}},
}

// Generate derives the auto-assigned code set for a visit snapshot. Steps
// run in a fixed order (base, vitals, completion bundles) and the first
// occurrence of a (type, code) key wins, so output is deterministic for a
// given snapshot.
func Generate(snap *visit.Snapshot) []*VisitCode {
	var specs []codeSpec

	specs = append(specs, baseCodes[snap.Visit.VisitType]...)
	specs = append(specs, vitalsCodes(snap)...)
	specs = append(specs, bundleCodes(snap)...)

	seen := make(map[CodeKey]bool, len(specs))
	var out []*VisitCode
	for _, spec := range specs {
		key := CodeKey{Type: spec.codeType, Code: spec.code}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, &VisitCode{
			VisitID:     snap.Visit.ID,
			CodeType:    spec.codeType,
			Code:        spec.code,
			Description: spec.description,
			Source:      SourceAuto,
		})
	}
	return out
}

// vitalsCodes maps threshold findings in the vitals record to diagnosis
// codes. Absent measurements contribute nothing.
func vitalsCodes(snap *visit.Snapshot) []codeSpec {
	var out []codeSpec

	if sys := snap.VitalsField("systolic"); sys != nil && *sys >= 140 {
		out = append(out, codeSpec{TypeICD10, "I10", "Essential (primary) hypertension"})
	}
	if dia := snap.VitalsField("diastolic"); dia != nil && *dia >= 90 {
		out = append(out, codeSpec{TypeICD10, "I10", "Essential (primary) hypertension"})
	}
	if bmi := snap.VitalsField("bmi"); bmi != nil {
		switch {
		case *bmi >= 30:
			out = append(out, codeSpec{TypeICD10, "E66.9", "Obesity, unspecified"})
		case *bmi >= 25:
			out = append(out, codeSpec{TypeICD10, "E66.3", "Overweight"})
		}
	}
	return out
}

// bundleCodes maps completed checklist items to their billing bundles. The
// PHQ-9 bundle additionally carries a depression diagnosis when the
// computed score reaches the moderate range.
func bundleCodes(snap *visit.Snapshot) []codeSpec {
	var out []codeSpec
	for _, item := range snap.CompletedItems() {
		if item.ItemID == nil {
			continue
		}
		key := bundleKey{itemType: item.ItemType, itemID: *item.ItemID}
		out = append(out, completionBundles[key]...)

		if item.ItemType == visit.ItemTypeAssessment && *item.ItemID == "PHQ-9" {
			if a := snap.Assessment("PHQ-9"); a != nil && a.ComputedScore != nil && *a.ComputedScore >= 10 {
				out = append(out, codeSpec{TypeICD10, "F32.1", "Major depressive disorder, single episode, moderate"})
			}
		}
	}
	return out
}
