package blogservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sushihentaime/blogcms/internal/common"
)

func NewCategoryService(db *sql.DB) *CategoryService {
	return &CategoryService{m: newBlogModel(db)}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]Category, error) {
	return s.m.listCategories(ctx)
}

// CreateCategory stores a category with a unique name. A taken name is reported on the name field.
func (s *CategoryService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	v := common.NewValidator()
	validateCategoryName(v, req.Name)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	c := Category{
		Name:        req.Name,
		Description: req.Description,
	}

	err := s.m.insertCategory(ctx, &c)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateCategoryName):
			return nil, common.NewFieldError("name", "category with this name already exists")
		default:
			return nil, err
		}
	}

	return &c, nil
}

// DeleteCategory removes a category; posts filed under it become uncategorized.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteCategory(ctx, id)
}
