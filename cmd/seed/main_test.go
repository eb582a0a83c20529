package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogcms/internal/blogservice"
	"github.com/sushihentaime/blogcms/internal/common"
	"github.com/sushihentaime/blogcms/internal/userservice"
)

func TestAlnum(t *testing.T) {
	assert.Equal(t, "OKeefe42", alnum("O'Keefe42"))
	assert.Equal(t, "", alnum("-_."))
}

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := common.TestDB(t)
	ctx := context.Background()

	sum, err := run(ctx, db, options{users: 3, categories: 2, posts: 5, seed: 42})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.users)
	assert.Equal(t, 5, sum.posts)
	assert.GreaterOrEqual(t, sum.categories, 1)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*) FROM posts").Scan(&count))
	assert.Equal(t, 5, count)

	require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*) FROM profiles").Scan(&count))
	assert.Equal(t, 3, count)

	var username string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT username FROM users ORDER BY id LIMIT 1").Scan(&username))

	tokens := userservice.NewTokenManager("test-secret", userservice.DefaultAccessTokenTTL, userservice.DefaultRefreshTokenTTL)
	users := userservice.NewUserService(db, nil, nil, tokens, nil, nil)

	_, err = users.LoginUser(ctx, username, SeedPassword)
	assert.NoError(t, err)

	posts, err := blogservice.NewPostService(db, nil).ListPosts(ctx, blogservice.ListFilter{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(posts), 5)
}
