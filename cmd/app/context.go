package main

import (
	"context"
	"net/http"

	"github.com/sushihentaime/blogcms/internal/userservice"
)

type contextKey string

const userContextKey = contextKey("user")

func (app *application) createUserContext(r *http.Request, user *userservice.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

// getUserContext returns the user set by authenticate. Requests that never went through it are
// treated as anonymous.
func (app *application) getUserContext(r *http.Request) *userservice.User {
	user, ok := r.Context().Value(userContextKey).(*userservice.User)
	if !ok || user == nil {
		return &userservice.AnonymousUser
	}

	return user
}
