package main

import (
	"errors"
	"net/http"

	"github.com/sushihentaime/blogcms/internal/userservice"
)

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, err := app.userService.CreateUser(r.Context(), userservice.RegisterRequest{
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		Password2: input.Password2,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	env := envelope{
		"message": "User created successfully",
		"user": envelope{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	}

	err = app.writeJSON(w, http.StatusCreated, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	pair, err := app.userService.LoginUser(r.Context(), input.Username, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrAuthenticationFailure):
			app.invalidCredentialsErrorResponse(w, r)
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, pair, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Refresh string `json:"refresh"`
	}

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	access, err := app.userService.RefreshAccessToken(r.Context(), input.Refresh)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrInvalidToken):
			app.invalidAuthenticationTokenResponse(w, r)
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"access": access}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	err := app.writeJSON(w, http.StatusOK, user, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
