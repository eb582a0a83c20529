package blogservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sushihentaime/blogcms/internal/common"
)

func NewPostService(db *sql.DB, media MediaResolver) *PostService {
	return &PostService{m: newBlogModel(db), media: media}
}

// CreatePost stores a new post authored by req.AuthorID. The slug comes from the title and the
// excerpt is derived from the content when none is given.
func (s *PostService) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	content := sanitizeMarkdown(req.Content)

	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateContent(v, content)
	validateExcerpt(v, req.Excerpt)
	validateCategoryID(v, req.CategoryID)
	validateInt(v, req.AuthorID, "author_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	p := Post{
		Title:     req.Title,
		Author:    AuthorRef{ID: req.AuthorID},
		Category:  categoryRef(req.CategoryID),
		Content:   content,
		Excerpt:   common.DeriveExcerpt(content, req.Excerpt),
		Image:     req.Image,
		Published: true,
	}

	if req.Published != nil {
		p.Published = *req.Published
	}

	err := s.m.insertPost(ctx, &p)
	if err != nil {
		return nil, mapPostError(err)
	}

	return s.GetPostByID(ctx, p.ID)
}

// GetPostByID returns a post in any published state.
func (s *PostService) GetPostByID(ctx context.Context, id int) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	p, err := s.m.getPostByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.present(p), nil
}

// GetPublishedPostBySlug is the public read path.
func (s *PostService) GetPublishedPostBySlug(ctx context.Context, slug string) (*Post, error) {
	if slug == "" {
		return nil, common.ErrRecordNotFound
	}

	p, err := s.m.getPublishedPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	return s.present(p), nil
}

// UpdatePost applies req to post id on behalf of userID. Only the author may update. When
// req.Version is set it must match the stored version.
func (s *PostService) UpdatePost(ctx context.Context, id, userID int, req UpdatePostRequest) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	p, err := s.m.getPostByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !IsOwner(p, userID) {
		return nil, common.ErrForbidden
	}

	if req.Version != nil && *req.Version != p.Version {
		return nil, common.ErrEditConflict
	}

	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Content != nil {
		p.Content = sanitizeMarkdown(*req.Content)
	}
	if req.Excerpt != nil {
		p.Excerpt = common.DeriveExcerpt(p.Content, *req.Excerpt)
	}
	if req.CategoryID != nil {
		p.Category = categoryRef(req.CategoryID)
	}
	if req.Published != nil {
		p.Published = *req.Published
	}
	if req.Image != nil {
		p.Image = req.Image
	}

	validateTitle(v, p.Title)
	validateContent(v, p.Content)
	validateExcerpt(v, p.Excerpt)
	validateCategoryID(v, req.CategoryID)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	err = s.m.updatePost(ctx, p)
	if err != nil {
		return nil, mapPostError(err)
	}

	return s.GetPostByID(ctx, p.ID)
}

// DeletePost removes post id. Only the author may delete.
func (s *PostService) DeletePost(ctx context.Context, id, userID int) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	p, err := s.m.getPostByID(ctx, id)
	if err != nil {
		return err
	}

	if !IsOwner(p, userID) {
		return common.ErrForbidden
	}

	return s.m.deletePost(ctx, id, userID)
}

// IncrementViews adds exactly one view to a published post and returns the new count.
func (s *PostService) IncrementViews(ctx context.Context, id int) (int64, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return 0, v.ValidationError()
	}

	return s.m.incrementViews(ctx, id)
}

func (s *PostService) IncrementViewsBySlug(ctx context.Context, slug string) (int64, error) {
	if slug == "" {
		return 0, common.ErrRecordNotFound
	}

	return s.m.incrementViewsBySlug(ctx, slug)
}

// SetFeatured is reserved for administrators; callers check the permission.
func (s *PostService) SetFeatured(ctx context.Context, id int, featured bool) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	err := s.m.setFeatured(ctx, id, featured)
	if err != nil {
		return nil, err
	}

	return s.GetPostByID(ctx, id)
}

// ListPosts returns a page of posts. Limit defaults to DefaultListLimit and is capped at MaxListLimit.
func (s *PostService) ListPosts(ctx context.Context, f ListFilter) ([]Post, error) {
	if f.Limit < 1 {
		f.Limit = DefaultListLimit
	}

	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}

	if f.Offset < 0 {
		f.Offset = 0
	}

	posts, err := s.m.listPosts(ctx, f)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		s.present(&posts[i])
	}

	return posts, nil
}

// present fills the derived fields of p.
func (s *PostService) present(p *Post) *Post {
	p.ReadingTime = common.ReadingTime(p.Content)

	p.ImageURL = DefaultImageURL
	if p.Image != nil && s.media != nil {
		p.ImageURL = s.media.URL(*p.Image)
	}

	return p
}

func categoryRef(id *int) *CategoryRef {
	if id == nil || *id == 0 {
		return nil
	}

	return &CategoryRef{ID: *id}
}

func mapPostError(err error) error {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		return common.NewFieldError("category_id", "invalid category")
	case errors.Is(err, ErrAuthorNotFound):
		return common.ErrRecordNotFound
	default:
		return err
	}
}
