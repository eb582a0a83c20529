package blogservice

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogcms/internal/common"
)

var (
	postSlugExistsQuery     = regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`)
	categorySlugExistsQuery = regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`)
	categoryNameExistsQuery = regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM categories WHERE name = $1)`)
)

func setupMockModel(t *testing.T) (*BlogModel, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return newBlogModel(db), mock
}

func existsRows(exists bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(exists)
}

func TestInsertPostRetriesSlugRace(t *testing.T) {
	m, mock := setupMockModel(t)
	now := time.Now()

	// First attempt: the slug looks free but a concurrent insert wins the unique index.
	mock.ExpectBegin()
	mock.ExpectQuery(postSlugExistsQuery).WithArgs("hello-world").WillReturnRows(existsRows(false))
	mock.ExpectQuery("INSERT INTO posts").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "posts_slug_key"})
	mock.ExpectRollback()

	// Second attempt sees the committed row and moves on to the next suffix.
	mock.ExpectBegin()
	mock.ExpectQuery(postSlugExistsQuery).WithArgs("hello-world").WillReturnRows(existsRows(true))
	mock.ExpectQuery(postSlugExistsQuery).WithArgs("hello-world-1").WillReturnRows(existsRows(false))
	mock.ExpectQuery("INSERT INTO posts").
		WithArgs("Hello World", "hello-world-1", 1, nil, "content", "content", nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "featured", "views", "created_at", "updated_at", "version"}).
			AddRow(2, false, 0, now, now, 1))
	mock.ExpectCommit()

	p := Post{
		Title:     "Hello World",
		Author:    AuthorRef{ID: 1},
		Content:   "content",
		Excerpt:   "content",
		Published: true,
	}

	err := m.insertPost(context.Background(), &p)
	require.NoError(t, err)
	assert.Equal(t, "hello-world-1", p.Slug)
	assert.Equal(t, 2, p.ID)
	assert.Equal(t, 1, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPostGivesUpAfterRepeatedRaces(t *testing.T) {
	m, mock := setupMockModel(t)

	for i := 0; i < maxPersistAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(postSlugExistsQuery).WithArgs("busy").WillReturnRows(existsRows(false))
		mock.ExpectQuery("INSERT INTO posts").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "posts_slug_key"})
		mock.ExpectRollback()
	}

	p := Post{Title: "Busy", Author: AuthorRef{ID: 1}, Content: "c", Excerpt: "c", Published: true}

	err := m.insertPost(context.Background(), &p)
	require.Error(t, err)
	assert.True(t, common.UniqueViolation(err, "posts_slug_key"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPostUnknownCategory(t *testing.T) {
	m, mock := setupMockModel(t)

	mock.ExpectBegin()
	mock.ExpectQuery(postSlugExistsQuery).WithArgs("hello").WillReturnRows(existsRows(false))
	mock.ExpectQuery("INSERT INTO posts").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "posts_category_id_fkey"})
	mock.ExpectRollback()

	p := Post{Title: "Hello", Author: AuthorRef{ID: 1}, Category: &CategoryRef{ID: 42}, Content: "c", Excerpt: "c"}

	err := m.insertPost(context.Background(), &p)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCategoryNameBackstop(t *testing.T) {
	m, mock := setupMockModel(t)

	mock.ExpectBegin()
	mock.ExpectQuery(categoryNameExistsQuery).WithArgs("Go").WillReturnRows(existsRows(false))
	mock.ExpectQuery(categorySlugExistsQuery).WithArgs("go").WillReturnRows(existsRows(false))
	mock.ExpectQuery("INSERT INTO categories").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "categories_name_key"})
	mock.ExpectRollback()

	c := Category{Name: "Go"}

	err := m.insertCategory(context.Background(), &c)
	assert.ErrorIs(t, err, ErrDuplicateCategoryName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePostStaleVersion(t *testing.T) {
	m, mock := setupMockModel(t)

	mock.ExpectQuery("UPDATE posts").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))

	p := Post{ID: 1, Title: "t", Author: AuthorRef{ID: 1}, Content: "c", Version: 3}

	err := m.updatePost(context.Background(), &p)
	assert.ErrorIs(t, err, common.ErrEditConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementViewsOnlyTouchesCounter(t *testing.T) {
	m, mock := setupMockModel(t)

	mock.ExpectQuery(regexp.QuoteMeta("SET views = views + 1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"views"}).AddRow(int64(8)))
	mock.ExpectQuery(regexp.QuoteMeta("SET views = views + 1")).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"views"}))

	views, err := m.incrementViews(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(8), views)

	_, err = m.incrementViews(context.Background(), 6)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
