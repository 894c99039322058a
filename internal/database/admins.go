package database

import (
	"context"

	"github.com/google/uuid"
)

const adminColumns = `id, username, password_hash, role, is_active, created_at`

const getAdminByUsername = `-- name: GetAdminByUsername :one
SELECT ` + adminColumns + ` FROM admins
WHERE username = $1 AND is_active = true`

func (q *Queries) GetAdminByUsername(ctx context.Context, username string) (Admin, error) {
	row := q.db.QueryRow(ctx, getAdminByUsername, username)
	var i Admin
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const getAdminByID = `-- name: GetAdminByID :one
SELECT ` + adminColumns + ` FROM admins
WHERE id = $1 AND is_active = true`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	row := q.db.QueryRow(ctx, getAdminByID, id)
	var i Admin
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const upsertAdmin = `-- name: UpsertAdmin :one
INSERT INTO admins (username, password_hash, role)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO UPDATE
SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, is_active = true
RETURNING ` + adminColumns

type UpsertAdminParams struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
}

func (q *Queries) UpsertAdmin(ctx context.Context, arg UpsertAdminParams) (Admin, error) {
	row := q.db.QueryRow(ctx, upsertAdmin, arg.Username, arg.PasswordHash, arg.Role)
	var i Admin
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

func scanAdmin(row interface{ Scan(dest ...any) error }) (Admin, error) {
	var i Admin
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listAdmins = `-- name: ListAdmins :many
SELECT ` + adminColumns + ` FROM admins
WHERE is_active = true
ORDER BY username`

func (q *Queries) ListAdmins(ctx context.Context) ([]Admin, error) {
	rows, err := q.db.Query(ctx, listAdmins)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Admin
	for rows.Next() {
		i, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createAdmin = `-- name: CreateAdmin :one
INSERT INTO admins (username, password_hash, role)
VALUES ($1, $2, $3)
RETURNING ` + adminColumns

type CreateAdminParams struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
}

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, createAdmin, arg.Username, arg.PasswordHash, arg.Role))
}

const updateAdmin = `-- name: UpdateAdmin :one
UPDATE admins
SET role = $2,
    password_hash = COALESCE(NULLIF($3, ''), password_hash)
WHERE id = $1 AND is_active = true
RETURNING ` + adminColumns

type UpdateAdminParams struct {
	ID           uuid.UUID `json:"id"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
}

// UpdateAdmin changes the role and, when PasswordHash is set, the password.
func (q *Queries) UpdateAdmin(ctx context.Context, arg UpdateAdminParams) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, updateAdmin, arg.ID, arg.Role, arg.PasswordHash))
}

const deactivateAdmin = `-- name: DeactivateAdmin :one
UPDATE admins SET is_active = false
WHERE id = $1 AND is_active = true
RETURNING id`

func (q *Queries) DeactivateAdmin(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deactivateAdmin, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
