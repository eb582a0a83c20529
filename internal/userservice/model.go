package userservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sushihentaime/blogcms/internal/common"
)

var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrNotFound          = common.ErrRecordNotFound
)

func newUserModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

// insertUser inserts the account row. It runs inside the registration transaction.
func (m *DBModel) insertUser(ctx context.Context, tx *sql.Tx, u *User) error {
	query := `
		INSERT INTO users (username, email, password, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version`

	args := []any{
		u.Username,
		u.Email,
		u.Password.hash,
		u.FirstName,
		u.LastName,
	}

	err := tx.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.CreatedAt, &u.Version)
	if err != nil {
		switch {
		case common.UniqueViolation(err, "users_username_key"):
			return ErrDuplicateUsername
		case common.UniqueViolation(err, "users_email_key"):
			return ErrDuplicateEmail
		default:
			return err
		}
	}

	return nil
}

func (m *DBModel) usernameExists(ctx context.Context, tx *sql.Tx, username string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (m *DBModel) emailExists(ctx context.Context, tx *sql.Tx, email string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email <> '' AND lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

func (m *DBModel) getUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, password, first_name, last_name, created_at, version
		FROM users
		WHERE username = $1`

	var u User

	err := m.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Email, &u.Password.hash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

// getUserByID loads a user with their permissions.
func (m *DBModel) getUserByID(ctx context.Context, id int) (*User, error) {
	query := `
		SELECT id, username, email, first_name, last_name, created_at, version
		FROM users
		WHERE id = $1`

	var u User

	err := m.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.CreatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	u.Permissions, err = m.getUserPermissions(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (m *DBModel) updateUserNames(ctx context.Context, tx *sql.Tx, id int, firstName, lastName *string) error {
	query := `
		UPDATE users
		SET first_name = COALESCE($1, first_name), last_name = COALESCE($2, last_name), version = version + 1
		WHERE id = $3`

	res, err := tx.ExecContext(ctx, query, firstName, lastName, id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func (m *DBModel) deleteUser(ctx context.Context, id int) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	switch {
	case rows == 0:
		return ErrNotFound
	case rows > 1:
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}

	return nil
}
