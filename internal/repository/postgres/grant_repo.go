package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/kapsula/internal/domain"
)

type GrantRepo struct {
	pool *pgxpool.Pool
}

func NewGrantRepo(pool *pgxpool.Pool) *GrantRepo {
	return &GrantRepo{pool: pool}
}

func (r *GrantRepo) Create(ctx context.Context, g *domain.AccessGrant) error {
	query := `
		INSERT INTO access_grants (id, capsule_id, user_id, granted_by, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		g.ID, g.CapsuleID, g.UserID, g.GrantedBy, g.Role, g.CreatedAt,
	)
	return err
}

func (r *GrantRepo) GetByCapsuleAndUser(ctx context.Context, capsuleID, userID uuid.UUID) (*domain.AccessGrant, error) {
	query := `
		SELECT id, capsule_id, user_id, granted_by, role, created_at
		FROM access_grants
		WHERE capsule_id = $1 AND user_id = $2`

	var g domain.AccessGrant
	err := r.pool.QueryRow(ctx, query, capsuleID, userID).Scan(
		&g.ID, &g.CapsuleID, &g.UserID, &g.GrantedBy, &g.Role, &g.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &g, err
}

func (r *GrantRepo) ListByCapsule(ctx context.Context, capsuleID uuid.UUID) ([]domain.AccessGrant, error) {
	query := `
		SELECT g.id, g.capsule_id, g.user_id, g.granted_by, g.role, g.created_at, u.username, u.display_name
		FROM access_grants g
		JOIN users u ON g.user_id = u.id
		WHERE g.capsule_id = $1
		ORDER BY g.created_at`

	rows, err := r.pool.Query(ctx, query, capsuleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []domain.AccessGrant
	for rows.Next() {
		var g domain.AccessGrant
		if err := rows.Scan(&g.ID, &g.CapsuleID, &g.UserID, &g.GrantedBy, &g.Role, &g.CreatedAt, &g.Username, &g.DisplayName); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *GrantRepo) UpdateRole(ctx context.Context, id uuid.UUID, role domain.GrantRole) error {
	_, err := r.pool.Exec(ctx, `UPDATE access_grants SET role = $1 WHERE id = $2`, role, id)
	return err
}

func (r *GrantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM access_grants WHERE id = $1`, id)
	return err
}
