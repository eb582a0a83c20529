package main

import (
	"errors"
	"mime/multipart"

	"github.com/sushihentaime/blogcms/internal/common"
	"github.com/sushihentaime/blogcms/internal/storage"
)

// saveUpload stores file below dir and closes it. Rejected images become a validation error on field.
func (app *application) saveUpload(file multipart.File, dir, field string) (*string, error) {
	if file == nil {
		return nil, nil
	}
	defer file.Close()

	key, err := app.storage.SaveImage(dir, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrImageTooLarge), errors.Is(err, storage.ErrUnsupportedImage):
			return nil, common.NewFieldError(field, err.Error())
		default:
			return nil, err
		}
	}

	return &key, nil
}

// discardUpload removes a stored file. Failures are only logged.
func (app *application) discardUpload(key *string) {
	if key == nil {
		return
	}

	err := app.storage.Delete(*key)
	if err != nil {
		app.logger.Error("could not delete upload", "key", *key, "error", err)
	}
}
