package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sushihentaime/blogcms/internal/common"
)

var (
	ErrCategoryNotFound = errors.New("category does not exist")
	ErrAuthorNotFound   = errors.New("author does not exist")
)

const postColumns = `
		p.id, p.title, p.slug, p.author_id, u.username, c.id, c.name, c.slug,
		p.content, p.excerpt, p.image, p.published, p.featured, p.views,
		p.created_at, p.updated_at, p.version
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN categories c ON c.id = p.category_id`

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	var categoryID sql.NullInt64
	var categoryName, categorySlug, image sql.NullString

	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Author.ID, &p.Author.Username, &categoryID, &categoryName, &categorySlug,
		&p.Content, &p.Excerpt, &image, &p.Published, &p.Featured, &p.Views,
		&p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		p.Category = &CategoryRef{ID: int(categoryID.Int64), Name: categoryName.String, Slug: categorySlug.String}
	}

	if image.Valid && image.String != "" {
		p.Image = &image.String
	}

	return &p, nil
}

func categoryParam(c *CategoryRef) any {
	if c == nil {
		return nil
	}

	return c.ID
}

func postSlugExists(tx *sql.Tx) common.SlugExistsFunc {
	return func(ctx context.Context, slug string) (bool, error) {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, slug).Scan(&exists)
		return exists, err
	}
}

// insertPost allocates a slug from the title and inserts the post in the same transaction.
// Losing a slug race to a concurrent writer restarts the transaction with a new slug.
func (m *BlogModel) insertPost(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO posts (title, slug, author_id, category_id, content, excerpt, image, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, featured, views, created_at, updated_at, version`

	var err error
	for attempt := 0; attempt < maxPersistAttempts; attempt++ {
		err = common.WithTx(ctx, m.db, func(tx *sql.Tx) error {
			slug, err := common.UniqueSlug(ctx, p.Title, postSlugMaxLen, postSlugExists(tx))
			if err != nil {
				return err
			}

			args := []any{p.Title, slug, p.Author.ID, categoryParam(p.Category), p.Content, p.Excerpt, p.Image, p.Published}

			err = tx.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Featured, &p.Views, &p.CreatedAt, &p.UpdatedAt, &p.Version)
			if err != nil {
				return err
			}

			p.Slug = slug
			return nil
		})

		switch {
		case err == nil:
			return nil
		case common.UniqueViolation(err, "posts_slug_key"):
			continue
		case common.ForeignKeyViolation(err, "posts_category_id_fkey"):
			return ErrCategoryNotFound
		case common.ForeignKeyViolation(err, "posts_author_id_fkey"):
			return ErrAuthorNotFound
		default:
			return err
		}
	}

	return fmt.Errorf("could not allocate a unique slug after %d attempts: %w", maxPersistAttempts, err)
}

func (m *BlogModel) getPostByID(ctx context.Context, id int) (*Post, error) {
	query := `SELECT` + postColumns + `
	WHERE p.id = $1`

	p, err := scanPost(m.db.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return p, nil
}

// getPublishedPostBySlug hides unpublished posts behind the same not found error as missing ones.
func (m *BlogModel) getPublishedPostBySlug(ctx context.Context, slug string) (*Post, error) {
	query := `SELECT` + postColumns + `
	WHERE p.slug = $1 AND p.published`

	p, err := scanPost(m.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return p, nil
}

// updatePost writes the mutable columns. The slug and author are never touched. A stale version
// or a changed owner yields ErrEditConflict.
func (m *BlogModel) updatePost(ctx context.Context, p *Post) error {
	query := `
		UPDATE posts
		SET title = $1, content = $2, excerpt = $3, category_id = $4, image = $5, published = $6,
			updated_at = NOW(), version = version + 1
		WHERE id = $7 AND author_id = $8 AND version = $9
		RETURNING updated_at, version`

	args := []any{p.Title, p.Content, p.Excerpt, categoryParam(p.Category), p.Image, p.Published, p.ID, p.Author.ID, p.Version}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&p.UpdatedAt, &p.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrEditConflict
		case common.ForeignKeyViolation(err, "posts_category_id_fkey"):
			return ErrCategoryNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) deletePost(ctx context.Context, id, authorID int) error {
	query := `
		DELETE FROM posts
		WHERE id = $1 AND author_id = $2`

	res, err := m.db.ExecContext(ctx, query, id, authorID)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

// incrementViews bumps the counter of a published post and nothing else.
func (m *BlogModel) incrementViews(ctx context.Context, id int) (int64, error) {
	query := `
		UPDATE posts
		SET views = views + 1
		WHERE id = $1 AND published
		RETURNING views`

	return m.scanViews(m.db.QueryRowContext(ctx, query, id))
}

func (m *BlogModel) incrementViewsBySlug(ctx context.Context, slug string) (int64, error) {
	query := `
		UPDATE posts
		SET views = views + 1
		WHERE slug = $1 AND published
		RETURNING views`

	return m.scanViews(m.db.QueryRowContext(ctx, query, slug))
}

func (m *BlogModel) scanViews(row *sql.Row) (int64, error) {
	var views int64

	err := row.Scan(&views)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return 0, common.ErrRecordNotFound
		default:
			return 0, err
		}
	}

	return views, nil
}

func (m *BlogModel) setFeatured(ctx context.Context, id int, featured bool) error {
	res, err := m.db.ExecContext(ctx, `UPDATE posts SET featured = $1 WHERE id = $2`, featured, id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

// listPosts returns posts newest first. See ListFilter for the visibility rules.
func (m *BlogModel) listPosts(ctx context.Context, f ListFilter) ([]Post, error) {
	query := `SELECT` + postColumns + `
	WHERE ($1::bigint IS NULL OR p.author_id = $1)
		AND ($1::bigint IS NOT NULL OR p.published)
		AND ($2::bigint IS NULL OR p.category_id = $2)
	ORDER BY p.created_at DESC, p.id DESC
	LIMIT $3 OFFSET $4`

	author := sql.NullInt64{Int64: int64(f.AuthorID), Valid: f.AuthorID > 0}
	category := sql.NullInt64{Int64: int64(f.CategoryID), Valid: f.CategoryID > 0}

	rows, err := m.db.QueryContext(ctx, query, author, category, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	switch {
	case rows == 0:
		return common.ErrRecordNotFound
	case rows > 1:
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}

	return nil
}
