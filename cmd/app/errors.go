package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sushihentaime/blogcms/internal/common"
	"github.com/sushihentaime/blogcms/internal/userservice"
)

func (app *application) logError(r *http.Request, err error) {
	var (
		method  = r.Method
		url     = r.URL.RequestURI()
		message = err.Error()
	)

	app.logger.Error(message, slog.String("method", method), slog.String("url", url))
}

func (app *application) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeErrorEnvelope(w, r, status, envelope{"detail": message})
}

func (app *application) writeErrorEnvelope(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

// serverErrorResponse always logs err. Only administrators get to see it in the response.
func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "the server encountered a problem and could not process your request"
	if app.getUserContext(r).HasPermission(userservice.PermissionAdmin) {
		message = fmt.Sprintf("%s: %s", message, err.Error())
	}

	app.writeErrorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *application) badRequestErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusNotFound, "resource not found")
}

func (app *application) failedValidationErrorResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.writeErrorEnvelope(w, r, http.StatusBadRequest, envelope{"detail": "invalid input", "errors": errors})
}

func (app *application) invalidCredentialsErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "no active account found with the given credentials")
}

func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "invalid or expired authentication token")
}

func (app *application) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "authentication credentials were not provided")
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusForbidden, "you do not have permission to perform this action")
}

func (app *application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusConflict, "unable to update the record due to an edit conflict, please try again")
}

func (app *application) methodNotAllowedErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// serviceErrorResponse maps the errors shared by the services onto responses.
func (app *application) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr common.ValidationError

	switch {
	case errors.As(err, &validationErr):
		app.failedValidationErrorResponse(w, r, validationErr.Errors)
	case errors.Is(err, common.ErrRecordNotFound):
		app.notFoundErrorResponse(w, r)
	case errors.Is(err, common.ErrForbidden):
		app.forbiddenResponse(w, r)
	case errors.Is(err, common.ErrEditConflict):
		app.editConflictResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
