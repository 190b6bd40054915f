package visit

import (
	"time"

	"github.com/google/uuid"
)

// Visit statuses.
const (
	StatusScheduled      = "scheduled"
	StatusInProgress     = "in_progress"
	StatusReadyForReview = "ready_for_review"
	StatusFinalized      = "finalized"
)

// Visit types. Each type maps to a plan pack and a base code set.
const (
	TypeAnnualWellness    = "annual_wellness"
	TypeInitialAssessment = "initial_assessment"
	TypeFollowUp          = "follow_up"
)

// Visit maps to the visit table.
type Visit struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisitType        string     `db:"visit_type" json:"visit_type"`
	PlanPackID       *uuid.UUID `db:"plan_pack_id" json:"plan_pack_id,omitempty"`
	Status           string     `db:"status" json:"status"`
	IdentityVerified bool       `db:"identity_verified" json:"identity_verified"`
	ScheduledAt      time.Time  `db:"scheduled_at" json:"scheduled_at"`
	FinalizedAt      *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// VitalsRecord maps to the vitals_record table. Measurements are pointers:
// a nil field was not captured, which downstream rule evaluation treats as
// non-matching rather than as zero.
type VitalsRecord struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	VisitID          uuid.UUID  `db:"visit_id" json:"visit_id"`
	Systolic         *float64   `db:"systolic" json:"systolic,omitempty"`
	Diastolic        *float64   `db:"diastolic" json:"diastolic,omitempty"`
	HeartRate        *float64   `db:"heart_rate" json:"heart_rate,omitempty"`
	RespiratoryRate  *float64   `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	TemperatureF     *float64   `db:"temperature_f" json:"temperature_f,omitempty"`
	OxygenSaturation *float64   `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	WeightLb         *float64   `db:"weight_lb" json:"weight_lb,omitempty"`
	HeightIn         *float64   `db:"height_in" json:"height_in,omitempty"`
	BMI              *float64   `db:"bmi" json:"bmi,omitempty"`
	RecordedAt       time.Time  `db:"recorded_at" json:"recorded_at"`
}

// Fields returns the named measurement fields for rule evaluation. Nil
// entries are preserved so callers can distinguish "absent" from zero.
func (v *VitalsRecord) Fields() map[string]*float64 {
	return map[string]*float64{
		"systolic":          v.Systolic,
		"diastolic":         v.Diastolic,
		"heart_rate":        v.HeartRate,
		"respiratory_rate":  v.RespiratoryRate,
		"temperature_f":     v.TemperatureF,
		"oxygen_saturation": v.OxygenSaturation,
		"weight_lb":         v.WeightLb,
		"height_in":         v.HeightIn,
		"bmi":               v.BMI,
	}
}

// DeriveBMI computes BMI from height/weight when it was not captured
// directly. 703 is the lb/in² conversion constant.
func (v *VitalsRecord) DeriveBMI() {
	if v.BMI != nil || v.WeightLb == nil || v.HeightIn == nil || *v.HeightIn == 0 {
		return
	}
	bmi := *v.WeightLb / (*v.HeightIn * *v.HeightIn) * 703
	v.BMI = &bmi
}

// Assessment response statuses.
const (
	AssessmentInProgress = "in_progress"
	AssessmentComplete   = "complete"
)

// AssessmentResponse maps to the assessment_response table.
type AssessmentResponse struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	VisitID       uuid.UUID  `db:"visit_id" json:"visit_id"`
	InstrumentID  string     `db:"instrument_id" json:"instrument_id"`
	ComputedScore *float64   `db:"computed_score" json:"computed_score,omitempty"`
	Status        string     `db:"status" json:"status"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// MeasureResult maps to the measure_result table.
type MeasureResult struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	VisitID     uuid.UUID  `db:"visit_id" json:"visit_id"`
	MeasureID   string     `db:"measure_id" json:"measure_id"`
	Outcome     *string    `db:"outcome" json:"outcome,omitempty"`
	Status      string     `db:"status" json:"status"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// MedRecEntry maps to the med_rec_entry table.
type MedRecEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	VisitID        uuid.UUID `db:"visit_id" json:"visit_id"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	Category       *string   `db:"category" json:"category,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	Action         *string   `db:"action" json:"action,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// LabResult maps to the lab_result table. Labs are patient-scoped, not
// visit-scoped: evidence validation may reach back to results collected
// before the visit.
type LabResult struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	TestName    string    `db:"test_name" json:"test_name"`
	Value       *string   `db:"value" json:"value,omitempty"`
	Unit        *string   `db:"unit" json:"unit,omitempty"`
	CollectedAt time.Time `db:"collected_at" json:"collected_at"`
}

// Checklist item types.
const (
	ItemTypeAssessment = "assessment"
	ItemTypeMeasure    = "measure"
	ItemTypeVitals     = "vitals"
	ItemTypeMedication = "medication"
	ItemTypeConsent    = "consent"
)

// Checklist item statuses.
const (
	ItemNotStarted     = "not_started"
	ItemInProgress     = "in_progress"
	ItemComplete       = "complete"
	ItemUnableToAssess = "unable_to_assess"
)

// checklistTransitions is the closed set of legal status moves. complete
// and unable_to_assess are terminal for the visit instance.
var checklistTransitions = map[string][]string{
	ItemNotStarted: {ItemInProgress, ItemComplete, ItemUnableToAssess},
	ItemInProgress: {ItemComplete, ItemUnableToAssess},
}

// ChecklistItem maps to the checklist_item table.
type ChecklistItem struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	VisitID              uuid.UUID  `db:"visit_id" json:"visit_id"`
	ItemType             string     `db:"item_type" json:"item_type"`
	ItemID               *string    `db:"item_id" json:"item_id,omitempty"`
	Label                string     `db:"label" json:"label"`
	Status               string     `db:"status" json:"status"`
	UnableToAssessReason *string    `db:"unable_to_assess_reason" json:"unable_to_assess_reason,omitempty"`
	CompletedAt          *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// CanTransition reports whether the item may move to the target status.
func (i *ChecklistItem) CanTransition(to string) bool {
	for _, allowed := range checklistTransitions[i.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PlanPack maps to the plan_pack table.
type PlanPack struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	VisitType string    `db:"visit_type" json:"visit_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CompletenessRule maps to the completeness_rule table. It declares one
// mandatory checklist component for a plan pack. ExceptionAllowed controls
// whether unable_to_assess satisfies the requirement.
type CompletenessRule struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PlanPackID       uuid.UUID `db:"plan_pack_id" json:"plan_pack_id"`
	ComponentType    string    `db:"component_type" json:"component_type"`
	ComponentID      *string   `db:"component_id" json:"component_id,omitempty"`
	Label            string    `db:"label" json:"label"`
	Required         bool      `db:"required" json:"required"`
	ExceptionAllowed bool      `db:"exception_allowed" json:"exception_allowed"`
}

// MatchesItem reports whether a checklist item is the component this rule
// governs. A nil ComponentID matches any item of the component type.
func (r *CompletenessRule) MatchesItem(item *ChecklistItem) bool {
	if item.ItemType != r.ComponentType {
		return false
	}
	if r.ComponentID == nil {
		return true
	}
	return item.ItemID != nil && *item.ItemID == *r.ComponentID
}

// SatisfiedBy reports whether the item's status meets this rule per the
// completion gate semantics.
func (r *CompletenessRule) SatisfiedBy(item *ChecklistItem) bool {
	switch item.Status {
	case ItemComplete:
		return true
	case ItemUnableToAssess:
		return r.ExceptionAllowed
	default:
		return false
	}
}

// Snapshot is the read-only aggregate of a visit's clinical data consumed
// by the rule, coding, evidence, and scoring engines.
type Snapshot struct {
	Visit       *Visit
	Vitals      *VitalsRecord
	Assessments []*AssessmentResponse
	Measures    []*MeasureResult
	MedRec      []*MedRecEntry
	Labs        []*LabResult
	Checklist   []*ChecklistItem
	Rules       []*CompletenessRule
}

// Assessment returns the response for an instrument, or nil.
func (s *Snapshot) Assessment(instrumentID string) *AssessmentResponse {
	for _, a := range s.Assessments {
		if a.InstrumentID == instrumentID {
			return a
		}
	}
	return nil
}

// CompletedItems returns checklist items with status complete.
func (s *Snapshot) CompletedItems() []*ChecklistItem {
	var out []*ChecklistItem
	for _, item := range s.Checklist {
		if item.Status == ItemComplete {
			out = append(out, item)
		}
	}
	return out
}

// VitalsField returns the named vitals measurement, nil when the record or
// the field is absent.
func (s *Snapshot) VitalsField(name string) *float64 {
	if s.Vitals == nil {
		return nil
	}
	return s.Vitals.Fields()[name]
}
