package main

import (
	"mime/multipart"
	"net/http"

	"github.com/sushihentaime/blogcms/internal/blogservice"
	"github.com/sushihentaime/blogcms/internal/storage"
)

// postInput is the writable part of a post shared by create and update.
type postInput struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	Excerpt    *string `json:"excerpt"`
	CategoryID *int    `json:"category_id"`
	Published  *bool   `json:"published"`
	Version    *int    `json:"version"`

	image multipart.File
}

// readPostInput decodes a JSON body or a multipart form carrying an optional image file.
func (app *application) readPostInput(w http.ResponseWriter, r *http.Request) (*postInput, error) {
	var input postInput

	if !isMultipart(r) {
		err := app.parseJSON(w, r, &input)
		if err != nil {
			return nil, err
		}
		return &input, nil
	}

	file, err := app.parseMultipart(w, r, "image")
	if err != nil {
		return nil, err
	}

	input.image = file
	input.Title = formString(r, "title")
	input.Content = formString(r, "content")
	input.Excerpt = formString(r, "excerpt")

	if input.CategoryID, err = formInt(r, "category_id"); err != nil {
		return nil, err
	}
	if input.Published, err = formBool(r, "published"); err != nil {
		return nil, err
	}
	if input.Version, err = formInt(r, "version"); err != nil {
		return nil, err
	}

	return &input, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (app *application) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	var filter blogservice.ListFilter
	var err error

	filter.CategoryID, err = app.readIntQuery(r, "category")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	filter.Limit, filter.Offset, err = app.readLimitOffsetParams(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	if app.readBoolQuery(r, "mine") {
		user := app.getUserContext(r)
		if user.IsAnonymous() {
			app.authenticationRequiredResponse(w, r)
			return
		}
		filter.AuthorID = user.ID
	}

	posts, err := app.postService.ListPosts(r.Context(), filter)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if posts == nil {
		posts = []blogservice.Post{}
	}

	err = app.writeJSON(w, http.StatusOK, posts, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	input, err := app.readPostInput(w, r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	image, err := app.saveUpload(input.image, storage.PostImagesDir, "image")
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	post, err := app.postService.CreatePost(r.Context(), blogservice.CreatePostRequest{
		Title:      deref(input.Title),
		Content:    deref(input.Content),
		Excerpt:    deref(input.Excerpt),
		CategoryID: input.CategoryID,
		Published:  input.Published,
		Image:      image,
		AuthorID:   user.ID,
	})
	if err != nil {
		app.discardUpload(image)
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, post, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showPostHandler serves a numeric ref to authenticated callers in any published state and a slug
// ref to anyone, published posts only.
func (app *application) showPostHandler(w http.ResponseWriter, r *http.Request) {
	id, slug := app.readRefParam(r)

	var (
		post *blogservice.Post
		err  error
	)

	if slug != "" {
		post, err = app.postService.GetPublishedPostBySlug(r.Context(), slug)
	} else {
		if app.getUserContext(r).IsAnonymous() {
			app.authenticationRequiredResponse(w, r)
			return
		}
		if id < 1 {
			app.notFoundErrorResponse(w, r)
			return
		}
		post, err = app.postService.GetPostByID(r.Context(), id)
	}
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, post, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// readPostIDRef returns the numeric ref of a mutation route. Slug refs only support reads.
func (app *application) readPostIDRef(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, slug := app.readRefParam(r)
	if slug != "" {
		app.methodNotAllowedErrorResponse(w, r)
		return 0, false
	}
	if id < 1 {
		app.notFoundErrorResponse(w, r)
		return 0, false
	}

	return id, true
}

func (app *application) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.readPostIDRef(w, r)
	if !ok {
		return
	}

	user := app.getUserContext(r)

	current, err := app.postService.GetPostByID(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if !blogservice.IsOwner(current, user.ID) {
		app.forbiddenResponse(w, r)
		return
	}

	input, err := app.readPostInput(w, r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	image, err := app.saveUpload(input.image, storage.PostImagesDir, "image")
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	post, err := app.postService.UpdatePost(r.Context(), id, user.ID, blogservice.UpdatePostRequest{
		Title:      input.Title,
		Content:    input.Content,
		Excerpt:    input.Excerpt,
		CategoryID: input.CategoryID,
		Published:  input.Published,
		Image:      image,
		Version:    input.Version,
	})
	if err != nil {
		app.discardUpload(image)
		app.serviceErrorResponse(w, r, err)
		return
	}

	if image != nil {
		app.discardUpload(current.Image)
	}

	err = app.writeJSON(w, http.StatusOK, post, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.readPostIDRef(w, r)
	if !ok {
		return
	}

	user := app.getUserContext(r)

	current, err := app.postService.GetPostByID(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.postService.DeletePost(r.Context(), id, user.ID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.discardUpload(current.Image)

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) viewPostHandler(w http.ResponseWriter, r *http.Request) {
	id, slug := app.readRefParam(r)

	var (
		views int64
		err   error
	)

	switch {
	case slug != "":
		views, err = app.postService.IncrementViewsBySlug(r.Context(), slug)
	case id < 1:
		app.notFoundErrorResponse(w, r)
		return
	default:
		views, err = app.postService.IncrementViews(r.Context(), id)
	}
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"views": views}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) featurePostHandler(w http.ResponseWriter, r *http.Request) {
	id, slug := app.readRefParam(r)
	if slug != "" || id < 1 {
		app.notFoundErrorResponse(w, r)
		return
	}

	var input struct {
		Featured *bool `json:"featured"`
	}

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	if input.Featured == nil {
		app.failedValidationErrorResponse(w, r, map[string]string{"featured": "must be provided"})
		return
	}

	post, err := app.postService.SetFeatured(r.Context(), id, *input.Featured)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, post, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
