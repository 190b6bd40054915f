package coding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/visitengine/internal/domain/visit"
	"github.com/carebridge/visitengine/internal/platform/db"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateCode = errors.New("code already active on visit")
	ErrCodeRemoved   = errors.New("code has been removed")
)

var validCodeTypes = map[string]bool{
	TypeCPT: true, TypeHCPCS: true, TypeICD10: true,
}

// SnapshotProvider supplies the visit aggregate the generator reads.
// Satisfied by the visit service.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, visitID uuid.UUID) (*visit.Snapshot, error)
}

type Service struct {
	codes     VisitCodeRepository
	snapshots SnapshotProvider
	pool      *pgxpool.Pool
}

// NewService builds the coding service. pool may be nil in tests; then
// regeneration runs without a wrapping transaction.
func NewService(codes VisitCodeRepository, snapshots SnapshotProvider, pool *pgxpool.Pool) *Service {
	return &Service{codes: codes, snapshots: snapshots, pool: pool}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

// Regenerate replaces the visit's auto-assigned codes with a fresh
// generation pass. Manual codes survive, and a generated code whose key
// matches an active manual code or a previously removed row is suppressed.
// The whole replace happens in one transaction so readers never observe a
// half-regenerated code set.
func (s *Service) Regenerate(ctx context.Context, visitID uuid.UUID) ([]*VisitCode, error) {
	snap, err := s.snapshots.Snapshot(ctx, visitID)
	if err != nil {
		return nil, err
	}
	generated := Generate(snap)

	err = s.inTx(ctx, func(ctx context.Context) error {
		existing, err := s.codes.ListByVisit(ctx, visitID)
		if err != nil {
			return err
		}
		blocked := make(map[CodeKey]bool)
		for _, c := range existing {
			if c.Source == SourceManual && c.Active() {
				blocked[c.Key()] = true
			}
			if c.Removed {
				blocked[c.Key()] = true
			}
		}

		if err := s.codes.DeleteAutoAssigned(ctx, visitID); err != nil {
			return err
		}
		for _, c := range generated {
			if blocked[c.Key()] {
				continue
			}
			if err := s.codes.Create(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ListByVisit(ctx, visitID)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*VisitCode, error) {
	return s.codes.ListByVisit(ctx, visitID)
}

// AddCode attaches a manual code. Duplicate keys against active codes are
// rejected; the uniqueness rule holds no matter how a code arrived.
func (s *Service) AddCode(ctx context.Context, c *VisitCode) error {
	if !validCodeTypes[c.CodeType] {
		return fmt.Errorf("invalid code_type: %s", c.CodeType)
	}
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	existing, err := s.codes.ListByVisit(ctx, c.VisitID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Active() && e.Key() == c.Key() {
			return ErrDuplicateCode
		}
	}
	c.Source = SourceManual
	return s.codes.Create(ctx, c)
}

// RemoveCode marks a code removed. The row stays so regeneration will not
// re-add it.
func (s *Service) RemoveCode(ctx context.Context, codeID uuid.UUID, actor string) (*VisitCode, error) {
	c, err := s.codes.GetByID(ctx, codeID)
	if err != nil {
		return nil, err
	}
	if c.Removed {
		return nil, ErrCodeRemoved
	}
	c.Removed = true
	c.RemovedBy = &actor
	if err := s.codes.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SwapCode removes a code and adds a manual replacement in one step,
// recording what it replaced.
func (s *Service) SwapCode(ctx context.Context, codeID uuid.UUID, replacement *VisitCode, actor string) (*VisitCode, error) {
	old, err := s.codes.GetByID(ctx, codeID)
	if err != nil {
		return nil, err
	}
	if old.Removed {
		return nil, ErrCodeRemoved
	}

	replacement.VisitID = old.VisitID
	if replacement.CodeType == "" {
		replacement.CodeType = old.CodeType
	}
	swapped := old.Code
	replacement.SwappedFrom = &swapped

	err = s.inTx(ctx, func(ctx context.Context) error {
		old.Removed = true
		old.RemovedBy = &actor
		if err := s.codes.Update(ctx, old); err != nil {
			return err
		}
		return s.AddCode(ctx, replacement)
	})
	if err != nil {
		return nil, err
	}
	return replacement, nil
}

// VerifyCode records coder sign-off on a code.
func (s *Service) VerifyCode(ctx context.Context, codeID uuid.UUID, actor string) (*VisitCode, error) {
	c, err := s.codes.GetByID(ctx, codeID)
	if err != nil {
		return nil, err
	}
	if c.Removed {
		return nil, ErrCodeRemoved
	}
	c.Verified = true
	c.VerifiedBy = &actor
	now := time.Now()
	c.VerifiedAt = &now
	if err := s.codes.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CountActiveDiagnoses satisfies the visit gate's diagnosis requirement.
func (s *Service) CountActiveDiagnoses(ctx context.Context, visitID uuid.UUID) (int, error) {
	return s.codes.CountActiveDiagnoses(ctx, visitID)
}
