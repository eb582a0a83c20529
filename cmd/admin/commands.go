package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sushihentaime/blogcms/internal/common"
	"github.com/sushihentaime/blogcms/internal/userservice"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "admin",
		Short:        "Maintenance tasks for the blog backend",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", ".env", "path to the dotenv config file")

	withServices := func(run func(cmd *cobra.Command, s *services, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := connect(configFile)
			if err != nil {
				return err
			}
			defer closeFn()

			return run(cmd, s, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "grant <username> [permission]",
			Short: "Grant a permission, admin by default",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  withServices(setPermission(true)),
		},
		&cobra.Command{
			Use:   "revoke <username> [permission]",
			Short: "Revoke a permission, admin by default",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  withServices(setPermission(false)),
		},
		&cobra.Command{
			Use:   "delete-user <username>",
			Short: "Delete an account together with its posts",
			Args:  cobra.ExactArgs(1),
			RunE:  withServices(deleteUser),
		},
		&cobra.Command{
			Use:   "feature <post-id>",
			Short: "Mark a post as featured",
			Args:  cobra.ExactArgs(1),
			RunE:  withServices(setFeatured(true)),
		},
		&cobra.Command{
			Use:   "unfeature <post-id>",
			Short: "Remove the featured mark from a post",
			Args:  cobra.ExactArgs(1),
			RunE:  withServices(setFeatured(false)),
		},
	)

	return root
}

func lookupUser(cmd *cobra.Command, s *services, username string) (*userservice.User, error) {
	user, err := s.users.GetUserByUsername(cmd.Context(), username)
	if err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q not found", username)
		}
		return nil, err
	}

	return user, nil
}

func setPermission(grant bool) func(*cobra.Command, *services, []string) error {
	return func(cmd *cobra.Command, s *services, args []string) error {
		permission := userservice.PermissionAdmin
		if len(args) == 2 {
			permission = userservice.Permission(args[1])
		}

		user, err := lookupUser(cmd, s, args[0])
		if err != nil {
			return err
		}

		if grant {
			err = s.users.GrantPermission(cmd.Context(), user.ID, permission)
		} else {
			err = s.users.RevokePermission(cmd.Context(), user.ID, permission)
		}
		if err != nil {
			return err
		}

		verb := "granted"
		if !grant {
			verb = "revoked"
		}
		cmd.Printf("%s %q for %s (id %d)\n", verb, permission, user.Username, user.ID)

		return nil
	}
}

func deleteUser(cmd *cobra.Command, s *services, args []string) error {
	user, err := lookupUser(cmd, s, args[0])
	if err != nil {
		return err
	}

	err = s.users.DeleteUser(cmd.Context(), user.ID)
	if err != nil {
		return err
	}

	cmd.Printf("deleted %s (id %d)\n", user.Username, user.ID)

	return nil
}

func setFeatured(featured bool) func(*cobra.Command, *services, []string) error {
	return func(cmd *cobra.Command, s *services, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id < 1 {
			return fmt.Errorf("invalid post id %q", args[0])
		}

		post, err := s.posts.SetFeatured(cmd.Context(), id, featured)
		if err != nil {
			if errors.Is(err, common.ErrRecordNotFound) {
				return fmt.Errorf("post %d not found", id)
			}
			return err
		}

		cmd.Printf("post %d %q featured=%t\n", post.ID, post.Title, post.Featured)

		return nil
	}
}
