package userservice

import (
	"context"
	"database/sql"
	"errors"
)

// insertProfile creates an empty profile for userID. Existing profiles are left alone.
func (m *DBModel) insertProfile(ctx context.Context, tx *sql.Tx, userID int) error {
	query := `
		INSERT INTO profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	_, err := tx.ExecContext(ctx, query, userID)
	return err
}

// ensureProfile heals accounts created before profiles were written at registration.
func (m *DBModel) ensureProfile(ctx context.Context, userID int) error {
	query := `
		INSERT INTO profiles (user_id)
		SELECT id FROM users WHERE id = $1
		ON CONFLICT (user_id) DO NOTHING`

	_, err := m.db.ExecContext(ctx, query, userID)
	return err
}

func (m *DBModel) getProfile(ctx context.Context, userID int) (*Profile, error) {
	query := `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.created_at, p.bio, p.avatar,
			(SELECT COUNT(*) FROM posts WHERE posts.author_id = u.id)
		FROM users u
		JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1`

	var p Profile
	var avatar sql.NullString

	err := m.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.Username, &p.Email, &p.FirstName, &p.LastName, &p.DateJoined, &p.Bio, &avatar, &p.PostCount)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	if avatar.Valid && avatar.String != "" {
		p.Avatar = &avatar.String
	}

	return &p, nil
}

func (m *DBModel) updateProfile(ctx context.Context, tx *sql.Tx, userID int, bio, avatar *string) error {
	query := `
		UPDATE profiles
		SET bio = COALESCE($1, bio), avatar = COALESCE($2, avatar), updated_at = NOW()
		WHERE user_id = $3`

	res, err := tx.ExecContext(ctx, query, bio, avatar, userID)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}
