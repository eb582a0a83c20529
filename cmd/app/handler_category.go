package main

import (
	"net/http"

	"github.com/sushihentaime/blogcms/internal/blogservice"
)

func (app *application) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := app.categoryService.ListCategories(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if categories == nil {
		categories = []blogservice.Category{}
	}

	err = app.writeJSON(w, http.StatusOK, categories, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	category, err := app.categoryService.CreateCategory(r.Context(), blogservice.CreateCategoryRequest{
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, category, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundErrorResponse(w, r)
		return
	}

	err = app.categoryService.DeleteCategory(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
