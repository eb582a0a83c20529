package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sushihentaime/blogcms/internal/common"
)

var (
	ErrDuplicateCategoryName = errors.New("duplicate category name")
)

func categorySlugExists(tx *sql.Tx) common.SlugExistsFunc {
	return func(ctx context.Context, slug string) (bool, error) {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`, slug).Scan(&exists)
		return exists, err
	}
}

func (m *BlogModel) categoryNameExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

// insertCategory checks the name, allocates a slug and inserts in one transaction, retrying on slug races.
func (m *BlogModel) insertCategory(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	var err error
	for attempt := 0; attempt < maxPersistAttempts; attempt++ {
		err = common.WithTx(ctx, m.db, func(tx *sql.Tx) error {
			exists, err := m.categoryNameExists(ctx, tx, c.Name)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateCategoryName
			}

			slug, err := common.UniqueSlug(ctx, c.Name, categorySlugMaxLen, categorySlugExists(tx))
			if err != nil {
				return err
			}

			err = tx.QueryRowContext(ctx, query, c.Name, slug, c.Description).Scan(&c.ID, &c.CreatedAt)
			if err != nil {
				return err
			}

			c.Slug = slug
			return nil
		})

		switch {
		case err == nil:
			return nil
		case common.UniqueViolation(err, "categories_slug_key"):
			continue
		case common.UniqueViolation(err, "categories_name_key"):
			return ErrDuplicateCategoryName
		default:
			return err
		}
	}

	return fmt.Errorf("could not allocate a unique slug after %d attempts: %w", maxPersistAttempts, err)
}

// listCategories returns every category with the number of published posts in it.
func (m *BlogModel) listCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT c.id, c.name, c.slug, c.description, c.created_at, COUNT(p.id)
		FROM categories c
		LEFT JOIN posts p ON p.category_id = c.id AND p.published
		GROUP BY c.id
		ORDER BY c.name`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		var description sql.NullString

		err := rows.Scan(&c.ID, &c.Name, &c.Slug, &description, &c.CreatedAt, &c.PostCount)
		if err != nil {
			return nil, err
		}

		if description.Valid {
			c.Description = &description.String
		}

		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

// deleteCategory removes the category. Its posts survive with category_id set to NULL.
func (m *BlogModel) deleteCategory(ctx context.Context, id int) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}
