// Command admin runs maintenance tasks that have no HTTP endpoint.
package main

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/sushihentaime/blogcms/internal/blogservice"
	"github.com/sushihentaime/blogcms/internal/common"
	"github.com/sushihentaime/blogcms/internal/userservice"
)

type services struct {
	db    *sql.DB
	users *userservice.UserService
	posts *blogservice.PostService
}

func newServices(db *sql.DB) *services {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return &services{
		db:    db,
		users: userservice.NewUserService(db, nil, nil, nil, nil, logger),
		posts: blogservice.NewPostService(db, nil),
	}
}

// connect opens the database named by configFile. Tests swap it for a container-backed handle.
var connect = func(configFile string) (*services, func(), error) {
	db, err := common.OpenDBFromConfig(configFile)
	if err != nil {
		return nil, nil, err
	}

	return newServices(db), func() { common.CloseDB(db) }, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
