package triggers

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

// =========== Trigger Rule Repository ===========

type triggerRuleRepoPG struct{ pool *pgxpool.Pool }

func NewTriggerRuleRepoPG(pool *pgxpool.Pool) TriggerRuleRepository {
	return &triggerRuleRepoPG{pool: pool}
}

func (r *triggerRuleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const ruleCols = `id, code, name, source, conditions, recommendation, priority, severity,
	active, created_at, updated_at`

func (r *triggerRuleRepoPG) scanRule(row pgx.Row) (*TriggerRule, error) {
	var rule TriggerRule
	err := row.Scan(&rule.ID, &rule.Code, &rule.Name, &rule.Source, &rule.Conditions,
		&rule.Recommendation, &rule.Priority, &rule.Severity, &rule.Active,
		&rule.CreatedAt, &rule.UpdatedAt)
	return &rule, err
}

func (r *triggerRuleRepoPG) Create(ctx context.Context, rule *TriggerRule) error {
	rule.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO trigger_rule (id, code, name, source, conditions, recommendation, priority, severity, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rule.ID, rule.Code, rule.Name, rule.Source, rule.Conditions,
		rule.Recommendation, rule.Priority, rule.Severity, rule.Active)
	return err
}

func (r *triggerRuleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TriggerRule, error) {
	rule, err := r.scanRule(r.conn(ctx).QueryRow(ctx, `SELECT `+ruleCols+` FROM trigger_rule WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return rule, nil
}

func (r *triggerRuleRepoPG) Update(ctx context.Context, rule *TriggerRule) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE trigger_rule SET code=$2, name=$3, source=$4, conditions=$5, recommendation=$6,
			priority=$7, severity=$8, active=$9, updated_at=NOW()
		WHERE id = $1`,
		rule.ID, rule.Code, rule.Name, rule.Source, rule.Conditions,
		rule.Recommendation, rule.Priority, rule.Severity, rule.Active)
	return err
}

func (r *triggerRuleRepoPG) list(ctx context.Context, query string) ([]*TriggerRule, error) {
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*TriggerRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *triggerRuleRepoPG) List(ctx context.Context) ([]*TriggerRule, error) {
	return r.list(ctx, `SELECT `+ruleCols+` FROM trigger_rule ORDER BY code`)
}

func (r *triggerRuleRepoPG) ListActive(ctx context.Context) ([]*TriggerRule, error) {
	return r.list(ctx, `SELECT `+ruleCols+` FROM trigger_rule WHERE active ORDER BY code`)
}

// =========== Recommendation Repository ===========

type recommendationRepoPG struct{ pool *pgxpool.Pool }

func NewRecommendationRepoPG(pool *pgxpool.Pool) RecommendationRepository {
	return &recommendationRepoPG{pool: pool}
}

func (r *recommendationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const recCols = `id, visit_id, rule_id, rule_code, text, priority, severity, status,
	dismiss_reason, created_at, updated_at, resolved_at`

func (r *recommendationRepoPG) scanRec(row pgx.Row) (*Recommendation, error) {
	var rec Recommendation
	err := row.Scan(&rec.ID, &rec.VisitID, &rec.RuleID, &rec.RuleCode, &rec.Text,
		&rec.Priority, &rec.Severity, &rec.Status,
		&rec.DismissReason, &rec.CreatedAt, &rec.UpdatedAt, &rec.ResolvedAt)
	return &rec, err
}

func (r *recommendationRepoPG) Create(ctx context.Context, rec *Recommendation) error {
	rec.ID = uuid.New()
	// The (visit_id, rule_id) unique index makes concurrent evaluation safe:
	// the second insert for the same rule is a no-op.
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO recommendation (id, visit_id, rule_id, rule_code, text, priority, severity, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (visit_id, rule_id) DO NOTHING`,
		rec.ID, rec.VisitID, rec.RuleID, rec.RuleCode, rec.Text, rec.Priority, rec.Severity, rec.Status)
	return err
}

func (r *recommendationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	rec, err := r.scanRec(r.conn(ctx).QueryRow(ctx, `SELECT `+recCols+` FROM recommendation WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

func (r *recommendationRepoPG) Update(ctx context.Context, rec *Recommendation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE recommendation SET status=$2, dismiss_reason=$3, resolved_at=$4, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.Status, rec.DismissReason, rec.ResolvedAt)
	return err
}

func (r *recommendationRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Recommendation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recCols+` FROM recommendation WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Recommendation
	for rows.Next() {
		rec, err := r.scanRec(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
