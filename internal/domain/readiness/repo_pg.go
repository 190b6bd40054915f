package readiness

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

type readinessRepoPG struct{ pool *pgxpool.Pool }

func NewReadinessRepoPG(pool *pgxpool.Pool) ReadinessRepository {
	return &readinessRepoPG{pool: pool}
}

func (r *readinessRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const readinessCols = `id, visit_id, completeness, diagnosis_support, coding_compliance, overall,
	passed, fail_reasons, overridden, override_reason, overridden_by, computed_at`

func (r *readinessRepoPG) Upsert(ctx context.Context, result *BillingReadinessResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_readiness (id, visit_id, completeness, diagnosis_support, coding_compliance,
			overall, passed, fail_reasons, overridden, override_reason, overridden_by, computed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (visit_id) DO UPDATE
		SET completeness = EXCLUDED.completeness, diagnosis_support = EXCLUDED.diagnosis_support,
			coding_compliance = EXCLUDED.coding_compliance, overall = EXCLUDED.overall,
			passed = EXCLUDED.passed, fail_reasons = EXCLUDED.fail_reasons,
			overridden = EXCLUDED.overridden, override_reason = EXCLUDED.override_reason,
			overridden_by = EXCLUDED.overridden_by, computed_at = EXCLUDED.computed_at`,
		result.ID, result.VisitID, result.Completeness, result.DiagnosisSupport, result.CodingCompliance,
		result.Overall, result.Passed, result.FailReasons, result.Overridden, result.OverrideReason,
		result.OverriddenBy, result.ComputedAt)
	return err
}

func (r *readinessRepoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*BillingReadinessResult, error) {
	var result BillingReadinessResult
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+readinessCols+` FROM billing_readiness WHERE visit_id = $1`, visitID).
		Scan(&result.ID, &result.VisitID, &result.Completeness, &result.DiagnosisSupport,
			&result.CodingCompliance, &result.Overall, &result.Passed, &result.FailReasons,
			&result.Overridden, &result.OverrideReason, &result.OverriddenBy, &result.ComputedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}
