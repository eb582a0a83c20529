package main

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/sushihentaime/blogcms/internal/userservice"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/api/healthcheck/", app.healthCheckHandler)
	router.Handler(http.MethodGet, "/metrics", app.metricsHandler())

	// identity
	router.Handler(http.MethodPost, "/api/register/", app.rateLimit(http.HandlerFunc(app.registerUserHandler)))
	router.Handler(http.MethodPost, "/api/token/", app.rateLimit(http.HandlerFunc(app.createTokenHandler)))
	router.HandlerFunc(http.MethodPost, "/api/token/refresh/", app.refreshTokenHandler)
	router.HandlerFunc(http.MethodGet, "/api/user/me/", app.requireAuthUser(app.currentUserHandler))
	router.HandlerFunc(http.MethodGet, "/api/users/me/", app.requireAuthUser(app.showProfileHandler))
	router.HandlerFunc(http.MethodPut, "/api/users/me/", app.requireAuthUser(app.updateProfileHandler))

	// categories
	router.HandlerFunc(http.MethodGet, "/api/categories/", app.listCategoriesHandler)
	router.HandlerFunc(http.MethodPost, "/api/categories/", app.requireAuthUser(app.createCategoryHandler))
	router.HandlerFunc(http.MethodDelete, "/api/categories/:id/", app.requireAuthUser(app.deleteCategoryHandler))
	router.HandlerFunc(http.MethodDelete, "/api/categories/:id/delete/", app.requireAuthUser(app.deleteCategoryHandler))

	// posts; :ref is a numeric id or a slug
	router.HandlerFunc(http.MethodGet, "/api/posts/", app.listPostsHandler)
	router.HandlerFunc(http.MethodPost, "/api/posts/", app.requireAuthUser(app.createPostHandler))
	router.HandlerFunc(http.MethodGet, "/api/posts/:ref/", app.showPostHandler)
	router.HandlerFunc(http.MethodPut, "/api/posts/:ref/", app.requireAuthUser(app.updatePostHandler))
	router.HandlerFunc(http.MethodDelete, "/api/posts/:ref/", app.requireAuthUser(app.deletePostHandler))
	router.HandlerFunc(http.MethodPost, "/api/posts/:ref/view/", app.viewPostHandler)
	router.HandlerFunc(http.MethodPut, "/api/posts/:ref/feature/", app.requirePermission(app.featurePostHandler, userservice.PermissionAdmin))

	if strings.HasPrefix(app.config.Media.URL, "/") {
		router.ServeFiles(strings.TrimSuffix(app.config.Media.URL, "/")+"/*filepath", http.Dir(app.storage.Root()))
	}

	return app.instrument(app.recoverPanic(app.logRequest(app.authenticate(router))))
}
