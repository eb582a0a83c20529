package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogcms/internal/userservice"
)

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func (ts *testServer) multipart(t *testing.T, method, path, token string, fields map[string]string, fileField string, file []byte) (int, envelope) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if file != nil {
		fw, err := mw.CreateFormFile(fileField, "upload.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(method, ts.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := ts.Client().Do(req)
	require.NoError(t, err)

	status, _, env, _ := readResponse(t, res)
	return status, env
}

func TestRegisterUserHandler(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	testCases := []struct {
		name       string
		payload    any
		wantStatus int
		wantErrors map[string]any
	}{
		{
			name: "valid request",
			payload: map[string]any{
				"username":  "testuser",
				"email":     "testuser@example.com",
				"password":  testPassword,
				"password2": testPassword,
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate username",
			payload: map[string]any{
				"username":  "testuser",
				"email":     "other@example.com",
				"password":  testPassword,
				"password2": testPassword,
			},
			wantStatus: http.StatusBadRequest,
			wantErrors: map[string]any{"username": "a user with that username already exists"},
		},
		{
			name: "duplicate email",
			payload: map[string]any{
				"username":  "otheruser",
				"email":     "TestUser@example.com",
				"password":  testPassword,
				"password2": testPassword,
			},
			wantStatus: http.StatusBadRequest,
			wantErrors: map[string]any{"email": "a user with that email already exists"},
		},
		{
			name: "password mismatch",
			payload: map[string]any{
				"username":  "thirduser",
				"password":  testPassword,
				"password2": testPassword + "x",
			},
			wantStatus: http.StatusBadRequest,
			wantErrors: map[string]any{"password2": "password fields didn't match"},
		},
		{
			name:       "unknown field",
			payload:    map[string]any{"username": "fourthuser", "is_staff": true},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := ts.post(t, "/api/register/", nil, tc.payload)

			assert.Equal(t, tc.wantStatus, status)

			if tc.wantStatus == http.StatusCreated {
				assert.Equal(t, "User created successfully", body["message"])
				user := body["user"].(map[string]any)
				assert.Equal(t, "testuser", user["username"])
				assert.Equal(t, "testuser@example.com", user["email"])
				assert.NotZero(t, user["id"])
			}

			if tc.wantErrors != nil {
				assert.Equal(t, tc.wantErrors, body["errors"])
			}
		})
	}
}

func TestTokenHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	createTestUser(t, app, "testuser")

	status, body := ts.post(t, "/api/token/", nil, map[string]string{"username": "testuser", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "no active account found with the given credentials", body["detail"])

	status, body = ts.post(t, "/api/token/", nil, map[string]string{"username": "testuser", "password": testPassword})
	require.Equal(t, http.StatusOK, status)

	access, _ := body["access"].(string)
	refresh, _ := body["refresh"].(string)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	status, body = ts.post(t, "/api/token/refresh/", nil, map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["access"])

	status, _ = ts.post(t, "/api/token/refresh/", nil, map[string]string{"refresh": access})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = ts.get(t, "/api/user/me/", &access)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "testuser", body["username"])
	assert.Equal(t, "testuser@example.com", body["email"])

	status, _ = ts.get(t, "/api/user/me/", &refresh)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.get(t, "/api/user/me/", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfileHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, token := createTestUser(t, app, "testuser")

	status, body := ts.get(t, "/api/users/me/", &token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "testuser", body["username"])
	assert.Equal(t, userservice.DefaultAvatarURL, body["avatar_url"])
	assert.Equal(t, userservice.DefaultAvatarURL, body["profile_picture_url"])
	assert.Equal(t, float64(0), body["post_count"])

	// A profile echoed back unchanged is accepted; read-only fields are ignored.
	status, body = ts.put(t, "/api/users/me/", &token, map[string]any{
		"bio":                 "",
		"avatar_url":          "/elsewhere.png",
		"profile_picture_url": "/elsewhere.png",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, userservice.DefaultAvatarURL, body["profile_picture_url"])

	status, body = ts.put(t, "/api/users/me/", &token, map[string]any{
		"first_name": "Test",
		"bio":        "Writes about Go.",
		"username":   "renamed",
		"email":      "renamed@example.com",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Test", body["first_name"])
	assert.Equal(t, "Writes about Go.", body["bio"])
	assert.Equal(t, "testuser", body["username"])
	assert.Equal(t, "testuser@example.com", body["email"])

	status, body = ts.put(t, "/api/users/me/", &token, map[string]any{"bio": strings.Repeat("a", 501)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "bio")

	status, body = ts.multipart(t, http.MethodPut, "/api/users/me/", token, map[string]string{"last_name": "User"}, "profile_picture", pngBytes(t))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User", body["last_name"])
	assert.Equal(t, "Writes about Go.", body["bio"])

	avatarURL, _ := body["avatar_url"].(string)
	assert.True(t, strings.HasPrefix(avatarURL, "/media/profile_pictures/"), avatarURL)
	assert.Equal(t, avatarURL, body["profile_picture_url"])

	res, err := ts.Client().Get(ts.URL + avatarURL)
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, pngBytes(t), data)

	status, body = ts.multipart(t, http.MethodPut, "/api/users/me/", token, nil, "profile_picture", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "profile_picture")
}

func TestCategoryHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, token := createTestUser(t, app, "testuser")

	status, _ := ts.post(t, "/api/categories/", nil, map[string]string{"name": "Go"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := ts.post(t, "/api/categories/", &token, map[string]string{"name": "Go Tips"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "go-tips", body["slug"])
	categoryID := int(body["id"].(float64))

	status, body = ts.post(t, "/api/categories/", &token, map[string]string{"name": "Go Tips"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "name")

	status, body = ts.post(t, "/api/posts/", &token, map[string]any{"title": "Hello", "content": "World", "category_id": categoryID})
	require.Equal(t, http.StatusCreated, status)
	postID := int(body["id"].(float64))

	status, list := ts.getList(t, "/api/categories/", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list, 1)
	assert.Equal(t, float64(1), list[0]["post_count"])

	status, raw := ts.delete(t, fmt.Sprintf("/api/categories/%d/", categoryID), &token)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, raw)

	status, _ = ts.delete(t, fmt.Sprintf("/api/categories/%d/delete/", categoryID), &token)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ts.get(t, fmt.Sprintf("/api/posts/%d/", postID), &token)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["category"])
}

func TestPostHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, owner := createTestUser(t, app, "owner")
	_, other := createTestUser(t, app, "other")

	status, _ := ts.post(t, "/api/posts/", nil, map[string]any{"title": "Anonymous", "content": "Nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := ts.post(t, "/api/posts/", &owner, map[string]any{"title": "Hello World", "content": "Some content"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "hello-world", body["slug"])
	assert.Equal(t, true, body["published"])
	assert.Equal(t, false, body["featured"])
	assert.Equal(t, "Some content", body["excerpt"])
	assert.Equal(t, float64(1), body["reading_time"])
	assert.Equal(t, "owner", body["author"].(map[string]any)["username"])
	postID := int(body["id"].(float64))
	version := body["version"].(float64)
	updatedAt := body["updated_at"]

	status, body = ts.post(t, "/api/posts/", &owner, map[string]any{"title": "Hello World", "content": "Draft", "published": false})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "hello-world-1", body["slug"])
	draftID := int(body["id"].(float64))

	status, _ = ts.post(t, "/api/posts/", &owner, map[string]any{"title": "Featured", "content": "x", "featured": true})
	assert.Equal(t, http.StatusBadRequest, status)

	t.Run("read by slug", func(t *testing.T) {
		status, body := ts.get(t, "/api/posts/hello-world/", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(postID), body["id"])

		status, _ = ts.get(t, "/api/posts/hello-world-1/", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("read by id", func(t *testing.T) {
		status, _ := ts.get(t, fmt.Sprintf("/api/posts/%d/", draftID), nil)
		assert.Equal(t, http.StatusUnauthorized, status)

		status, body := ts.get(t, fmt.Sprintf("/api/posts/%d/", draftID), &other)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["published"])

		status, _ = ts.get(t, "/api/posts/999999/", &other)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("list", func(t *testing.T) {
		status, list := ts.getList(t, "/api/posts/", nil)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, list, 1)
		assert.Equal(t, float64(postID), list[0]["id"])

		status, list = ts.getList(t, "/api/posts/?mine=true", &owner)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, list, 2)
		assert.Equal(t, float64(draftID), list[0]["id"])

		status, list = ts.getList(t, "/api/posts/?mine=true", &other)
		require.Equal(t, http.StatusOK, status)
		assert.Empty(t, list)

		status, _ = ts.getList(t, "/api/posts/?mine=true", nil)
		assert.Equal(t, http.StatusUnauthorized, status)

		status, _ = ts.getList(t, "/api/posts/?category=abc", nil)
		assert.Equal(t, http.StatusBadRequest, status)

		status, list = ts.getList(t, "/api/posts/?mine=true&limit=1&offset=1", &owner)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, list, 1)
		assert.Equal(t, float64(postID), list[0]["id"])
	})

	t.Run("non-owner update", func(t *testing.T) {
		status, _ := ts.put(t, fmt.Sprintf("/api/posts/%d/", postID), &other, map[string]any{"title": "Hijacked"})
		assert.Equal(t, http.StatusForbidden, status)

		_, body := ts.get(t, fmt.Sprintf("/api/posts/%d/", postID), &owner)
		assert.Equal(t, "Hello World", body["title"])
		assert.Equal(t, version, body["version"])
	})

	t.Run("views", func(t *testing.T) {
		status, body := ts.post(t, fmt.Sprintf("/api/posts/%d/view/", postID), nil, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(1), body["views"])

		status, body = ts.post(t, "/api/posts/hello-world/view/", nil, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(2), body["views"])

		_, body = ts.get(t, fmt.Sprintf("/api/posts/%d/", postID), &owner)
		assert.Equal(t, float64(2), body["views"])
		assert.Equal(t, updatedAt, body["updated_at"])
		assert.Equal(t, version, body["version"])

		status, _ = ts.post(t, fmt.Sprintf("/api/posts/%d/view/", draftID), nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("owner update", func(t *testing.T) {
		status, body := ts.put(t, fmt.Sprintf("/api/posts/%d/", postID), &owner, map[string]any{"title": "Hello Again", "version": version})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Hello Again", body["title"])
		assert.Equal(t, "hello-world", body["slug"])
		assert.Equal(t, version+1, body["version"])

		status, _ = ts.put(t, fmt.Sprintf("/api/posts/%d/", postID), &owner, map[string]any{"title": "Stale", "version": version})
		assert.Equal(t, http.StatusConflict, status)

		status, _ = ts.put(t, "/api/posts/hello-world/", &owner, map[string]any{"title": "By slug"})
		assert.Equal(t, http.StatusMethodNotAllowed, status)

		status, body = ts.multipart(t, http.MethodPut, fmt.Sprintf("/api/posts/%d/", postID), owner, map[string]string{"published": "false"}, "image", pngBytes(t))
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["published"])
		imageURL, _ := body["image_url"].(string)
		assert.True(t, strings.HasPrefix(imageURL, "/media/post_images/"), imageURL)
	})

	t.Run("feature", func(t *testing.T) {
		path := fmt.Sprintf("/api/posts/%d/feature/", postID)

		status, _ := ts.put(t, path, &owner, map[string]any{"featured": true})
		assert.Equal(t, http.StatusForbidden, status)

		adminID, admin := createTestUser(t, app, "admin")
		require.NoError(t, app.userService.GrantPermission(context.Background(), adminID, userservice.PermissionAdmin))

		status, body := ts.put(t, path, &admin, map[string]any{"featured": true})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["featured"])

		status, _ = ts.put(t, path, &admin, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("delete", func(t *testing.T) {
		path := fmt.Sprintf("/api/posts/%d/", draftID)

		status, _ := ts.delete(t, path, &other)
		assert.Equal(t, http.StatusForbidden, status)

		status, raw := ts.delete(t, path, &owner)
		assert.Equal(t, http.StatusNoContent, status)
		assert.Empty(t, raw)

		status, _ = ts.delete(t, path, &owner)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestHealthcheckAndMetrics(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	status, body := ts.get(t, "/api/healthcheck/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "available", body["status"])

	status, _ = ts.get(t, "/api/does-not-exist/", nil)
	assert.Equal(t, http.StatusNotFound, status)

	res, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(data), `blogcms_http_requests_total{code="404",method="GET"} 1`)
}
