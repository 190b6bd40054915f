package visit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/visitengine/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Visit Repository ===========

type visitRepoPG struct{ pool *pgxpool.Pool }

func NewVisitRepoPG(pool *pgxpool.Pool) VisitRepository { return &visitRepoPG{pool: pool} }

func (r *visitRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const visitCols = `id, patient_id, visit_type, plan_pack_id, status, identity_verified,
	scheduled_at, finalized_at, created_at, updated_at`

func (r *visitRepoPG) scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitType, &v.PlanPackID, &v.Status, &v.IdentityVerified,
		&v.ScheduledAt, &v.FinalizedAt, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit (id, patient_id, visit_type, plan_pack_id, status, identity_verified, scheduled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		v.ID, v.PatientID, v.VisitType, v.PlanPackID, v.Status, v.IdentityVerified, v.ScheduledAt)
	return err
}

func (r *visitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := r.scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

func (r *visitRepoPG) Update(ctx context.Context, v *Visit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit SET visit_type=$2, plan_pack_id=$3, status=$4, identity_verified=$5,
			scheduled_at=$6, finalized_at=$7, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.VisitType, v.PlanPackID, v.Status, v.IdentityVerified, v.ScheduledAt, v.FinalizedAt)
	return err
}

func (r *visitRepoPG) List(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+visitCols+` FROM visit ORDER BY scheduled_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var visits []*Visit
	for rows.Next() {
		v, err := r.scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

func (r *visitRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+visitCols+` FROM visit WHERE patient_id = $1 ORDER BY scheduled_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var visits []*Visit
	for rows.Next() {
		v, err := r.scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

func (r *visitRepoPG) TransitionStatus(ctx context.Context, id uuid.UUID, newStatus string, excluded ...string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit SET status=$2, finalized_at=NOW(), updated_at=NOW()
		WHERE id = $1 AND NOT (status = ANY($3))`,
		id, newStatus, excluded)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// =========== Vitals Repository ===========

type vitalsRepoPG struct{ pool *pgxpool.Pool }

func NewVitalsRepoPG(pool *pgxpool.Pool) VitalsRepository { return &vitalsRepoPG{pool: pool} }

func (r *vitalsRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const vitalsCols = `id, visit_id, systolic, diastolic, heart_rate, respiratory_rate,
	temperature_f, oxygen_saturation, weight_lb, height_in, bmi, recorded_at`

func (r *vitalsRepoPG) scanVitals(row pgx.Row) (*VitalsRecord, error) {
	var v VitalsRecord
	err := row.Scan(&v.ID, &v.VisitID, &v.Systolic, &v.Diastolic, &v.HeartRate, &v.RespiratoryRate,
		&v.TemperatureF, &v.OxygenSaturation, &v.WeightLb, &v.HeightIn, &v.BMI, &v.RecordedAt)
	return &v, err
}

func (r *vitalsRepoPG) Create(ctx context.Context, v *VitalsRecord) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vitals_record (id, visit_id, systolic, diastolic, heart_rate, respiratory_rate,
			temperature_f, oxygen_saturation, weight_lb, height_in, bmi, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		v.ID, v.VisitID, v.Systolic, v.Diastolic, v.HeartRate, v.RespiratoryRate,
		v.TemperatureF, v.OxygenSaturation, v.WeightLb, v.HeightIn, v.BMI, v.RecordedAt)
	return err
}

func (r *vitalsRepoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*VitalsRecord, error) {
	v, err := r.scanVitals(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vitalsCols+` FROM vitals_record WHERE visit_id = $1 ORDER BY recorded_at DESC LIMIT 1`, visitID))
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

// =========== Assessment Repository ===========

type assessmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository { return &assessmentRepoPG{pool: pool} }

func (r *assessmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const assessmentCols = `id, visit_id, instrument_id, computed_score, status, completed_at, created_at`

func (r *assessmentRepoPG) scanAssessment(row pgx.Row) (*AssessmentResponse, error) {
	var a AssessmentResponse
	err := row.Scan(&a.ID, &a.VisitID, &a.InstrumentID, &a.ComputedScore, &a.Status, &a.CompletedAt, &a.CreatedAt)
	return &a, err
}

func (r *assessmentRepoPG) Upsert(ctx context.Context, a *AssessmentResponse) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO assessment_response (id, visit_id, instrument_id, computed_score, status, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (visit_id, instrument_id) DO UPDATE
		SET computed_score = EXCLUDED.computed_score, status = EXCLUDED.status, completed_at = EXCLUDED.completed_at`,
		a.ID, a.VisitID, a.InstrumentID, a.ComputedScore, a.Status, a.CompletedAt)
	return err
}

func (r *assessmentRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*AssessmentResponse, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+assessmentCols+` FROM assessment_response WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*AssessmentResponse
	for rows.Next() {
		a, err := r.scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =========== Measure Repository ===========

type measureRepoPG struct{ pool *pgxpool.Pool }

func NewMeasureRepoPG(pool *pgxpool.Pool) MeasureRepository { return &measureRepoPG{pool: pool} }

func (r *measureRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const measureCols = `id, visit_id, measure_id, outcome, status, completed_at, created_at`

func (r *measureRepoPG) scanMeasure(row pgx.Row) (*MeasureResult, error) {
	var m MeasureResult
	err := row.Scan(&m.ID, &m.VisitID, &m.MeasureID, &m.Outcome, &m.Status, &m.CompletedAt, &m.CreatedAt)
	return &m, err
}

func (r *measureRepoPG) Upsert(ctx context.Context, m *MeasureResult) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO measure_result (id, visit_id, measure_id, outcome, status, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (visit_id, measure_id) DO UPDATE
		SET outcome = EXCLUDED.outcome, status = EXCLUDED.status, completed_at = EXCLUDED.completed_at`,
		m.ID, m.VisitID, m.MeasureID, m.Outcome, m.Status, m.CompletedAt)
	return err
}

func (r *measureRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MeasureResult, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+measureCols+` FROM measure_result WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*MeasureResult
	for rows.Next() {
		m, err := r.scanMeasure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// =========== Med Rec Repository ===========

type medRecRepoPG struct{ pool *pgxpool.Pool }

func NewMedRecRepoPG(pool *pgxpool.Pool) MedRecRepository { return &medRecRepoPG{pool: pool} }

func (r *medRecRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const medRecCols = `id, visit_id, medication_name, category, notes, action, created_at`

func (r *medRecRepoPG) Create(ctx context.Context, e *MedRecEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO med_rec_entry (id, visit_id, medication_name, category, notes, action)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.VisitID, e.MedicationName, e.Category, e.Notes, e.Action)
	return err
}

func (r *medRecRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MedRecEntry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medRecCols+` FROM med_rec_entry WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*MedRecEntry
	for rows.Next() {
		var e MedRecEntry
		if err := rows.Scan(&e.ID, &e.VisitID, &e.MedicationName, &e.Category, &e.Notes, &e.Action, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// =========== Lab Repository ===========

type labRepoPG struct{ pool *pgxpool.Pool }

func NewLabRepoPG(pool *pgxpool.Pool) LabRepository { return &labRepoPG{pool: pool} }

func (r *labRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const labCols = `id, patient_id, test_name, value, unit, collected_at`

func (r *labRepoPG) Create(ctx context.Context, l *LabResult) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_result (id, patient_id, test_name, value, unit, collected_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.ID, l.PatientID, l.TestName, l.Value, l.Unit, l.CollectedAt)
	return err
}

func (r *labRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+labCols+` FROM lab_result WHERE patient_id = $1 ORDER BY collected_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*LabResult
	for rows.Next() {
		var l LabResult
		if err := rows.Scan(&l.ID, &l.PatientID, &l.TestName, &l.Value, &l.Unit, &l.CollectedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// =========== Checklist Repository ===========

type checklistRepoPG struct{ pool *pgxpool.Pool }

func NewChecklistRepoPG(pool *pgxpool.Pool) ChecklistRepository { return &checklistRepoPG{pool: pool} }

func (r *checklistRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const checklistCols = `id, visit_id, item_type, item_id, label, status,
	unable_to_assess_reason, completed_at, created_at, updated_at`

func (r *checklistRepoPG) scanItem(row pgx.Row) (*ChecklistItem, error) {
	var i ChecklistItem
	err := row.Scan(&i.ID, &i.VisitID, &i.ItemType, &i.ItemID, &i.Label, &i.Status,
		&i.UnableToAssessReason, &i.CompletedAt, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *checklistRepoPG) CreateBatch(ctx context.Context, items []*ChecklistItem) error {
	for _, item := range items {
		item.ID = uuid.New()
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO checklist_item (id, visit_id, item_type, item_id, label, status)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, item.VisitID, item.ItemType, item.ItemID, item.Label, item.Status); err != nil {
			return err
		}
	}
	return nil
}

func (r *checklistRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ChecklistItem, error) {
	i, err := r.scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+checklistCols+` FROM checklist_item WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return i, nil
}

func (r *checklistRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*ChecklistItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+checklistCols+` FROM checklist_item WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ChecklistItem
	for rows.Next() {
		i, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *checklistRepoPG) Update(ctx context.Context, item *ChecklistItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE checklist_item SET status=$2, unable_to_assess_reason=$3, completed_at=$4, updated_at=NOW()
		WHERE id = $1`,
		item.ID, item.Status, item.UnableToAssessReason, item.CompletedAt)
	return err
}

func (r *checklistRepoPG) FindByComponent(ctx context.Context, visitID uuid.UUID, itemType, itemID string) (*ChecklistItem, error) {
	var row pgx.Row
	if itemID == "" {
		row = r.conn(ctx).QueryRow(ctx,
			`SELECT `+checklistCols+` FROM checklist_item WHERE visit_id = $1 AND item_type = $2 AND item_id IS NULL LIMIT 1`,
			visitID, itemType)
	} else {
		row = r.conn(ctx).QueryRow(ctx,
			`SELECT `+checklistCols+` FROM checklist_item WHERE visit_id = $1 AND item_type = $2 AND item_id = $3 LIMIT 1`,
			visitID, itemType, itemID)
	}
	i, err := r.scanItem(row)
	if err != nil {
		return nil, notFound(err)
	}
	return i, nil
}

// =========== Plan Pack Repository ===========

type planPackRepoPG struct{ pool *pgxpool.Pool }

func NewPlanPackRepoPG(pool *pgxpool.Pool) PlanPackRepository { return &planPackRepoPG{pool: pool} }

func (r *planPackRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *planPackRepoPG) Create(ctx context.Context, p *PlanPack) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO plan_pack (id, name, visit_type) VALUES ($1,$2,$3)`,
		p.ID, p.Name, p.VisitType)
	return err
}

func (r *planPackRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PlanPack, error) {
	var p PlanPack
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, visit_type, created_at FROM plan_pack WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.VisitType, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *planPackRepoPG) List(ctx context.Context) ([]*PlanPack, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, visit_type, created_at FROM plan_pack ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*PlanPack
	for rows.Next() {
		var p PlanPack
		if err := rows.Scan(&p.ID, &p.Name, &p.VisitType, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *planPackRepoPG) AddRule(ctx context.Context, rule *CompletenessRule) error {
	rule.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO completeness_rule (id, plan_pack_id, component_type, component_id, label, required, exception_allowed)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rule.ID, rule.PlanPackID, rule.ComponentType, rule.ComponentID, rule.Label, rule.Required, rule.ExceptionAllowed)
	return err
}

func (r *planPackRepoPG) ListRules(ctx context.Context, planPackID uuid.UUID) ([]*CompletenessRule, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, plan_pack_id, component_type, component_id, label, required, exception_allowed
		FROM completeness_rule WHERE plan_pack_id = $1 ORDER BY label`, planPackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*CompletenessRule
	for rows.Next() {
		var cr CompletenessRule
		if err := rows.Scan(&cr.ID, &cr.PlanPackID, &cr.ComponentType, &cr.ComponentID, &cr.Label, &cr.Required, &cr.ExceptionAllowed); err != nil {
			return nil, err
		}
		out = append(out, &cr)
	}
	return out, rows.Err()
}
