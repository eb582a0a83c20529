package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/sushihentaime/blogcms/internal/storage"
)

const (
	maxJSONBytes      = 1_048_576
	maxMultipartBytes = storage.MaxImageSize + maxJSONBytes
)

type envelope map[string]any

func (app *application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	json, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}

	json = append(json, '\n')

	for key, values := range headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(json)

	return nil
}

func (app *application) parseJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxJSONBytes))

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("request body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("request body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("request body contains an invalid value for the %q field", unmarshalTypeError.Field)
			}
			return fmt.Errorf("request body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("request body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("request body contains unknown field %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("request body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = decoder.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("request body must only contain a single JSON value")
	}

	return nil
}

// isMultipart reports whether the request carries a multipart/form-data body.
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart reads a form body and returns the uploaded file stored under fileField, if any.
// The caller must close the file.
func (app *application) parseMultipart(w http.ResponseWriter, r *http.Request, fileField string) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxMultipartBytes))

	err := r.ParseMultipartForm(maxMultipartBytes)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return nil, fmt.Errorf("request body must not be larger than %d bytes", maxBytesError.Limit)
		}
		return nil, errors.New("request body contains a malformed multipart form")
	}

	file, _, err := r.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}

	return file, nil
}

// formString returns a pointer to the form value for key, or nil when the key was not sent.
func formString(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}

	return &values[0]
}

func formInt(r *http.Request, key string) (*int, error) {
	s := formString(r, key)
	if s == nil || *s == "" {
		return nil, nil
	}

	i, err := strconv.Atoi(*s)
	if err != nil {
		return nil, fmt.Errorf("form field %q must be an integer", key)
	}

	return &i, nil
}

func formBool(r *http.Request, key string) (*bool, error) {
	s := formString(r, key)
	if s == nil || *s == "" {
		return nil, nil
	}

	switch strings.ToLower(*s) {
	case "true", "1", "on", "yes":
		b := true
		return &b, nil
	case "false", "0", "off", "no":
		b := false
		return &b, nil
	}

	return nil, fmt.Errorf("form field %q must be a boolean", key)
}

func (app *application) readIDParam(r *http.Request, key string) (int, error) {
	params := httprouter.ParamsFromContext(r.Context())

	id, err := strconv.Atoi(params.ByName(key))
	if err != nil || id < 1 {
		return 0, errors.New("invalid ID parameter")
	}

	return id, nil
}

// readRefParam splits a post reference into a numeric id or a slug.
func (app *application) readRefParam(r *http.Request) (id int, slug string) {
	ref := httprouter.ParamsFromContext(r.Context()).ByName("ref")

	id, err := strconv.Atoi(ref)
	if err != nil {
		return 0, ref
	}

	return id, ""
}

func (app *application) readLimitOffsetParams(r *http.Request) (int, int, error) {
	params := r.URL.Query()

	var limit, offset int

	if params.Get("limit") != "" {
		l, err := strconv.Atoi(params.Get("limit"))
		if err != nil || l < 1 {
			return 0, 0, errors.New("invalid limit parameter")
		}
		limit = l
	}

	if params.Get("offset") != "" {
		o, err := strconv.Atoi(params.Get("offset"))
		if err != nil || o < 0 {
			return 0, 0, errors.New("invalid offset parameter")
		}
		offset = o
	}

	return limit, offset, nil
}

func (app *application) readIntQuery(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}

	i, err := strconv.Atoi(s)
	if err != nil || i < 1 {
		return 0, fmt.Errorf("invalid %s parameter", key)
	}

	return i, nil
}

func (app *application) readBoolQuery(r *http.Request, key string) bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
