package evidence

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

type evidenceRuleRepoPG struct{ pool *pgxpool.Pool }

func NewEvidenceRuleRepoPG(pool *pgxpool.Pool) EvidenceRuleRepository {
	return &evidenceRuleRepoPG{pool: pool}
}

func (r *evidenceRuleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const evidenceRuleCols = `id, icd10_code, description, requirements, created_at, updated_at`

func (r *evidenceRuleRepoPG) scanRule(row pgx.Row) (*DiagnosisEvidenceRule, error) {
	var rule DiagnosisEvidenceRule
	err := row.Scan(&rule.ID, &rule.ICD10Code, &rule.Description, &rule.Requirements,
		&rule.CreatedAt, &rule.UpdatedAt)
	return &rule, err
}

func (r *evidenceRuleRepoPG) Create(ctx context.Context, rule *DiagnosisEvidenceRule) error {
	rule.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO diagnosis_evidence_rule (id, icd10_code, description, requirements)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (icd10_code) DO UPDATE
		SET description = EXCLUDED.description, requirements = EXCLUDED.requirements, updated_at = NOW()`,
		rule.ID, rule.ICD10Code, rule.Description, rule.Requirements)
	return err
}

func (r *evidenceRuleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DiagnosisEvidenceRule, error) {
	rule, err := r.scanRule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+evidenceRuleCols+` FROM diagnosis_evidence_rule WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

func (r *evidenceRuleRepoPG) List(ctx context.Context) ([]*DiagnosisEvidenceRule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+evidenceRuleCols+` FROM diagnosis_evidence_rule ORDER BY icd10_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*DiagnosisEvidenceRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
