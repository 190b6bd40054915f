package coding

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

type visitCodeRepoPG struct{ pool *pgxpool.Pool }

func NewVisitCodeRepoPG(pool *pgxpool.Pool) VisitCodeRepository {
	return &visitCodeRepoPG{pool: pool}
}

func (r *visitCodeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const codeCols = `id, visit_id, code_type, code, description, source, verified, verified_by,
	removed, removed_by, swapped_from, created_at, updated_at, verified_at`

func (r *visitCodeRepoPG) scanCode(row pgx.Row) (*VisitCode, error) {
	var c VisitCode
	err := row.Scan(&c.ID, &c.VisitID, &c.CodeType, &c.Code, &c.Description, &c.Source, &c.Verified, &c.VerifiedBy,
		&c.Removed, &c.RemovedBy, &c.SwappedFrom, &c.CreatedAt, &c.UpdatedAt, &c.VerifiedAt)
	return &c, err
}

func (r *visitCodeRepoPG) Create(ctx context.Context, c *VisitCode) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit_code (id, visit_id, code_type, code, description, source, swapped_from)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.VisitID, c.CodeType, c.Code, c.Description, c.Source, c.SwappedFrom)
	return err
}

func (r *visitCodeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*VisitCode, error) {
	c, err := r.scanCode(r.conn(ctx).QueryRow(ctx, `SELECT `+codeCols+` FROM visit_code WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *visitCodeRepoPG) Update(ctx context.Context, c *VisitCode) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit_code SET description=$2, verified=$3, verified_by=$4, removed=$5, removed_by=$6,
			verified_at=$7, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Description, c.Verified, c.VerifiedBy, c.Removed, c.RemovedBy, c.VerifiedAt)
	return err
}

func (r *visitCodeRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*VisitCode, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+codeCols+` FROM visit_code WHERE visit_id = $1 ORDER BY code_type, code`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*VisitCode
	for rows.Next() {
		c, err := r.scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *visitCodeRepoPG) DeleteAutoAssigned(ctx context.Context, visitID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM visit_code WHERE visit_id = $1 AND source = $2 AND NOT removed`,
		visitID, SourceAuto)
	return err
}

func (r *visitCodeRepoPG) CountActiveDiagnoses(ctx context.Context, visitID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM visit_code WHERE visit_id = $1 AND code_type = $2 AND NOT removed`,
		visitID, TypeICD10).Scan(&count)
	return count, err
}
