package database

import (
	"context"

	"github.com/google/uuid"
)

const adminColumns = `id, email, hashed_password, full_name, role, is_active, created_at, updated_at`

func scanAdmin(row interface{ Scan(...any) error }) (Admin, error) {
	var i Admin
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAdminByEmail = `-- name: GetAdminByEmail :one
SELECT ` + adminColumns + ` FROM admins
WHERE email = $1 AND is_active = true`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByEmail, email))
}

const getAdminByID = `-- name: GetAdminByID :one
SELECT ` + adminColumns + ` FROM admins
WHERE id = $1 AND is_active = true`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByID, id))
}

const createAdmin = `-- name: CreateAdmin :one
INSERT INTO admins (email, hashed_password, full_name, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + adminColumns

type CreateAdminParams struct {
	Email          string
	HashedPassword string
	FullName       string
	Role           string
}

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, createAdmin, arg.Email, arg.HashedPassword, arg.FullName, arg.Role))
}
