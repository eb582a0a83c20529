// Command seed fills the database with demo users, categories and posts.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sushihentaime/blogcms/internal/blogservice"
	"github.com/sushihentaime/blogcms/internal/common"
	"github.com/sushihentaime/blogcms/internal/userservice"
)

// SeedPassword is shared by every generated account.
const SeedPassword = "SeedPassword123!"

type options struct {
	users      int
	categories int
	posts      int
	seed       int64
}

type summary struct {
	users      int
	categories int
	posts      int
}

func main() {
	var (
		configFile string
		opts       options
	)

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Populate the database with demo content",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := common.OpenDBFromConfig(configFile)
			if err != nil {
				return err
			}
			defer common.CloseDB(db)

			sum, err := run(cmd.Context(), db, opts)
			if err != nil {
				return err
			}

			cmd.Printf("created %d users, %d categories and %d posts; password for every user: %s\n", sum.users, sum.categories, sum.posts, SeedPassword)
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", ".env", "path to the dotenv config file")
	cmd.Flags().IntVar(&opts.users, "users", 10, "number of users to create")
	cmd.Flags().IntVar(&opts.categories, "categories", 5, "number of categories to create")
	cmd.Flags().IntVar(&opts.posts, "posts", 50, "number of posts to create")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed, 0 picks one")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run creates the demo content through the services so every invariant of the write paths holds.
// Generated names that collide with existing rows are skipped.
func run(ctx context.Context, db *sql.DB, opts options) (summary, error) {
	var sum summary

	f := gofakeit.New(opts.seed)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := userservice.NewUserService(db, nil, nil, nil, nil, logger)
	categories := blogservice.NewCategoryService(db)
	posts := blogservice.NewPostService(db, nil)

	var authorIDs []int
	for i := 0; i < opts.users; i++ {
		username := fmt.Sprintf("%s%d", alnum(f.Username()), f.Number(100, 999))

		u, err := users.CreateUser(ctx, userservice.RegisterRequest{
			Username:  username,
			Email:     strings.ToLower(username) + "@example.com",
			Password:  SeedPassword,
			Password2: SeedPassword,
			FirstName: f.FirstName(),
			LastName:  f.LastName(),
		})
		if err != nil {
			if isValidation(err) {
				continue
			}
			return sum, fmt.Errorf("create user: %w", err)
		}

		bio := f.Sentence(12)
		_, err = users.UpdateProfile(ctx, u.ID, userservice.UpdateProfileRequest{Bio: &bio})
		if err != nil {
			return sum, fmt.Errorf("update profile: %w", err)
		}

		authorIDs = append(authorIDs, u.ID)
		sum.users++
	}

	title := cases.Title(language.English)

	var categoryIDs []int
	for i := 0; i < opts.categories; i++ {
		description := f.Sentence(8)
		c, err := categories.CreateCategory(ctx, blogservice.CreateCategoryRequest{
			Name:        title.String(f.Adjective() + " " + f.Noun()),
			Description: &description,
		})
		if err != nil {
			if isValidation(err) {
				continue
			}
			return sum, fmt.Errorf("create category: %w", err)
		}

		categoryIDs = append(categoryIDs, c.ID)
		sum.categories++
	}

	if len(authorIDs) == 0 {
		return sum, nil
	}

	for i := 0; i < opts.posts; i++ {
		req := blogservice.CreatePostRequest{
			Title:    strings.TrimSuffix(f.Sentence(f.Number(3, 8)), "."),
			Content:  f.Paragraph(f.Number(2, 6), 5, 14, "\n\n"),
			AuthorID: authorIDs[f.Number(0, len(authorIDs)-1)],
		}

		published := f.Number(1, 10) > 2
		req.Published = &published

		if len(categoryIDs) > 0 && f.Bool() {
			id := categoryIDs[f.Number(0, len(categoryIDs)-1)]
			req.CategoryID = &id
		}

		_, err := posts.CreatePost(ctx, req)
		if err != nil {
			return sum, fmt.Errorf("create post: %w", err)
		}

		sum.posts++
	}

	return sum, nil
}

// alnum drops everything but letters and digits, e.g. the apostrophe in generated last names.
func alnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func isValidation(err error) bool {
	var validationErr common.ValidationError
	return errors.As(err, &validationErr)
}
