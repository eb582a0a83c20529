package blogservice

import (
	"github.com/sushihentaime/blogcms/internal/common"
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.MaxChars(title, 200), "title", "must not be more than 200 characters long")
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
}

func validateExcerpt(v *common.Validator, excerpt string) {
	v.Check(v.MaxChars(excerpt, common.ExcerptMaxChars), "excerpt", "must not be more than 300 characters long")
}

func validateCategoryID(v *common.Validator, id *int) {
	if id != nil {
		v.Check(*id >= 0, "category_id", "must not be negative")
	}
}

func validateCategoryName(v *common.Validator, name string) {
	v.Check(name != "", "name", "must be provided")
	v.Check(v.MaxChars(name, 100), "name", "must not be more than 100 characters long")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
