package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/kapsula/internal/domain"
)

type CapsuleRepo struct {
	pool *pgxpool.Pool
}

func NewCapsuleRepo(pool *pgxpool.Pool) *CapsuleRepo {
	return &CapsuleRepo{pool: pool}
}

const capsuleColumns = `id, title, description, owner_id, status, is_locked, open_date, created_at, updated_at`

func (r *CapsuleRepo) Create(ctx context.Context, c *domain.Capsule) error {
	query := `
		INSERT INTO capsules (id, title, description, owner_id, status, is_locked, open_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Description, c.OwnerID, c.Status, c.IsLocked, c.OpenDate, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *CapsuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules WHERE id = $1`

	var c domain.Capsule
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Title, &c.Description, &c.OwnerID, &c.Status, &c.IsLocked, &c.OpenDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &c, err
}

func (r *CapsuleRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *CapsuleRepo) ListByStatus(ctx context.Context, status domain.CapsuleStatus) ([]domain.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules WHERE status = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, status)
}

func (r *CapsuleRepo) ListAccessible(ctx context.Context, userID uuid.UUID) ([]domain.Capsule, error) {
	query := `
		SELECT DISTINCT c.id, c.title, c.description, c.owner_id, c.status, c.is_locked, c.open_date, c.created_at, c.updated_at
		FROM capsules c
		LEFT JOIN access_grants g ON c.id = g.capsule_id
		WHERE c.owner_id = $1 OR g.user_id = $1
		ORDER BY c.created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *CapsuleRepo) UpdateMetadata(ctx context.Context, c *domain.Capsule) error {
	query := `UPDATE capsules SET title = $1, description = $2, updated_at = $3 WHERE id = $4`
	_, err := r.pool.Exec(ctx, query, c.Title, c.Description, c.UpdatedAt, c.ID)
	return err
}

// TransitionStatus is the single write path for lifecycle changes. The
// status predicate in the WHERE clause makes the update a compare-and-
// set: when two writers race on the same capsule, exactly one sees a
// row updated and the other gets false.
func (r *CapsuleRepo) TransitionStatus(ctx context.Context, id uuid.UUID, expected, next domain.CapsuleStatus, isLocked bool, openDate *time.Time) (bool, error) {
	query := `
		UPDATE capsules
		SET status = $1, is_locked = $2, open_date = $3, updated_at = now()
		WHERE id = $4 AND status = $5`

	tag, err := r.pool.Exec(ctx, query, next, isLocked, openDate, id, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CapsuleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	// access_grants rows go with it via ON DELETE CASCADE.
	_, err := r.pool.Exec(ctx, `DELETE FROM capsules WHERE id = $1`, id)
	return err
}

func (r *CapsuleRepo) list(ctx context.Context, query string, arg any) ([]domain.Capsule, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var capsules []domain.Capsule
	for rows.Next() {
		var c domain.Capsule
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.OwnerID, &c.Status, &c.IsLocked, &c.OpenDate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		capsules = append(capsules, c)
	}
	return capsules, rows.Err()
}
