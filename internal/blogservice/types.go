package blogservice

import (
	"database/sql"
	"time"
)

const (
	DefaultImageURL = "/static/images/default-post.png"

	DefaultListLimit = 50
	MaxListLimit     = 100

	// maxPersistAttempts bounds how often an insert is retried after losing a slug race.
	maxPersistAttempts = 5

	// Column widths of posts.slug and categories.slug.
	postSlugMaxLen     = 255
	categorySlugMaxLen = 120
)

// MediaResolver turns a stored file reference into a public URL.
type MediaResolver interface {
	URL(key string) string
}

type AuthorRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type CategoryRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Post is the full representation of a post. Category is nil for uncategorized posts.
type Post struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Author      AuthorRef    `json:"author"`
	Category    *CategoryRef `json:"category"`
	Content     string       `json:"content"`
	Excerpt     string       `json:"excerpt"`
	Image       *string      `json:"-"`
	ImageURL    string       `json:"image_url"`
	Published   bool         `json:"published"`
	Featured    bool         `json:"featured"`
	Views       int64        `json:"views"`
	ReadingTime int          `json:"reading_time"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Version     int          `json:"version"`
}

type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	PostCount   int       `json:"post_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreatePostRequest struct {
	Title   string
	Content string
	Excerpt string
	// CategoryID of nil or zero leaves the post uncategorized.
	CategoryID *int
	Published  *bool
	Image      *string
	AuthorID   int
}

// UpdatePostRequest is a partial update. Nil fields keep their stored value.
type UpdatePostRequest struct {
	Title   *string
	Content *string
	// Excerpt set to "" asks for a fresh excerpt derived from the content.
	Excerpt    *string
	CategoryID *int
	Published  *bool
	Image      *string
	Version    *int
}

type CreateCategoryRequest struct {
	Name        string
	Description *string
}

// ListFilter selects posts for the list endpoint. A non-zero AuthorID lists that author's posts in
// every published state; otherwise only published posts are returned.
type ListFilter struct {
	AuthorID   int
	CategoryID int
	Limit      int
	Offset     int
}

type BlogModel struct {
	db *sql.DB
}

type PostService struct {
	m     *BlogModel
	media MediaResolver
}

type CategoryService struct {
	m *BlogModel
}
