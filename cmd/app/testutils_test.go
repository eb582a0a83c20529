package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogcms/internal/common"
	"github.com/sushihentaime/blogcms/internal/userservice"
)

const testPassword = "TestPassword123!"

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func strptr(s string) *string {
	return &s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(t *testing.T) *Config {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	cfg.Media.Root = t.TempDir()
	cfg.RateLimit.Enabled = false

	return cfg
}

func newTestApplication(t *testing.T) (*application, *sql.DB) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := common.TestDB(t)

	app, err := newApplication(newTestConfig(t), discardLogger(), db, nil)
	require.NoError(t, err)

	return app, db
}

// createTestUser registers username and returns its id together with a fresh access token.
func createTestUser(t *testing.T, app *application, username string) (int, string) {
	ctx := context.Background()

	user, err := app.userService.CreateUser(ctx, userservice.RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  testPassword,
		Password2: testPassword,
	})
	require.NoError(t, err)

	pair, err := app.userService.LoginUser(ctx, username, testPassword)
	require.NoError(t, err)

	return user.ID, pair.Access
}

// readResponse returns the raw body. Object bodies are also decoded into an envelope.
func readResponse(t *testing.T, res *http.Response) (int, http.Header, envelope, []byte) {
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}

	var env envelope
	if len(bytes.TrimSpace(body)) > 0 && bytes.TrimSpace(body)[0] == '{' {
		err = json.Unmarshal(body, &env)
		if err != nil {
			t.Fatal(err)
		}
	}

	return res.StatusCode, res.Header, env, body
}

func (ts *testServer) do(t *testing.T, method, path string, token *string, payload any) (int, http.Header, envelope, []byte) {
	var body io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *token))
	}

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}

func (ts *testServer) post(t *testing.T, path string, token *string, payload any) (int, envelope) {
	status, _, env, _ := ts.do(t, http.MethodPost, path, token, payload)
	return status, env
}

func (ts *testServer) get(t *testing.T, path string, token *string) (int, envelope) {
	status, _, env, _ := ts.do(t, http.MethodGet, path, token, nil)
	return status, env
}

func (ts *testServer) put(t *testing.T, path string, token *string, payload any) (int, envelope) {
	status, _, env, _ := ts.do(t, http.MethodPut, path, token, payload)
	return status, env
}

func (ts *testServer) delete(t *testing.T, path string, token *string) (int, []byte) {
	status, _, _, body := ts.do(t, http.MethodDelete, path, token, nil)
	return status, body
}

// getList decodes an array response into a slice of envelopes.
func (ts *testServer) getList(t *testing.T, path string, token *string) (int, []envelope) {
	status, _, _, body := ts.do(t, http.MethodGet, path, token, nil)

	var list []envelope
	if status == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, &list))
	}

	return status, list
}
