package userservice

import (
	"context"
	"database/sql"
)

func (m *DBModel) addUserPermission(ctx context.Context, tx *sql.Tx, id int, permissions ...Permission) error {
	for _, p := range permissions {
		_, err := tx.ExecContext(ctx, "INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING", id, p)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *DBModel) removeUserPermission(ctx context.Context, id int, permission Permission) error {
	_, err := m.db.ExecContext(ctx, "DELETE FROM user_permissions WHERE user_id = $1 AND permission = $2", id, permission)
	return err
}

func (m *DBModel) getUserPermissions(ctx context.Context, id int) (Permissions, error) {
	query := `
		SELECT permission
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY permission`

	rows, err := m.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions Permissions
	for rows.Next() {
		var permission Permission

		err := rows.Scan(&permission)
		if err != nil {
			return nil, err
		}

		permissions = append(permissions, permission)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return permissions, nil
}
