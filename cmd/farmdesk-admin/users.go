package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/agrovia/farmdesk/internal/data"
	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

const defaultUserCommandTimeout = 30 * time.Second

type createUserOptions struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
	Password  string
	Timeout   time.Duration
}

type setUserRoleOptions struct {
	Email   string
	Role    string
	Timeout time.Duration
}

type listUsersOptions struct {
	Role     string
	Inactive bool
	Limit    int
	Timeout  time.Duration
}

func runCreateUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateUserFlags(args)
	if err != nil {
		return err
	}

	role, err := parseRoleFlag(opts.Role)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		users := data.NewUserRepo(db)
		profile, createErr := users.Create(ctx, &model.CreateUserRequest{
			Email:     opts.Email,
			FirstName: opts.FirstName,
			LastName:  opts.LastName,
			Role:      role,
			Password:  opts.Password,
		})
		if createErr != nil {
			return fmt.Errorf("create user: %w", createErr)
		}

		cmdCtx.Logger.Info("user created",
			"id", profile.ID,
			"email", profile.Email,
			"role", profile.Role,
		)
		return nil
	})
}

func runSetUserRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetUserRoleFlags(args)
	if err != nil {
		return err
	}

	role, err := parseRoleFlag(opts.Role)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		users := data.NewUserRepo(db)
		profile, getErr := users.GetByEmail(ctx, opts.Email)
		if getErr != nil {
			return fmt.Errorf("look up user %q: %w", opts.Email, getErr)
		}

		if profile.Role == role {
			cmdCtx.Logger.Info("user already has requested role",
				"email", profile.Email,
				"role", profile.Role,
			)
			return nil
		}

		updated, updateErr := users.Update(ctx, profile.ID, model.UpdateUserRequest{Role: &role})
		if updateErr != nil {
			return fmt.Errorf("update user role: %w", updateErr)
		}

		cmdCtx.Logger.Info("user role updated",
			"email", updated.Email,
			"previous_role", profile.Role,
			"role", updated.Role,
		)
		return nil
	})
}

func runListUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseListUsersFlags(args)
	if err != nil {
		return err
	}

	listOpts := model.UsersListOptions{Limit: opts.Limit}
	if opts.Role != "" {
		role, roleErr := parseRoleFlag(opts.Role)
		if roleErr != nil {
			return roleErr
		}
		listOpts.Role = &role
	}
	if !opts.Inactive {
		active := true
		listOpts.IsActive = &active
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		users := data.NewUserRepo(db)
		profiles, listErr := users.ListWithOptions(ctx, listOpts)
		if listErr != nil {
			return fmt.Errorf("list users: %w", listErr)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if _, writeErr := fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE\tCREATED"); writeErr != nil {
			return fmt.Errorf("write user listing header: %w", writeErr)
		}
		for _, p := range profiles {
			_, rowErr := fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%t\t%s\n",
				p.ID,
				p.Email,
				p.FirstName,
				p.LastName,
				p.Role,
				p.IsActive,
				p.CreatedAt.Format(time.RFC3339),
			)
			if rowErr != nil {
				return fmt.Errorf("write user listing row: %w", rowErr)
			}
		}
		if flushErr := tw.Flush(); flushErr != nil {
			return fmt.Errorf("flush user listing: %w", flushErr)
		}
		return nil
	})
}

func parseCreateUserFlags(args []string) (createUserOptions, error) {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := createUserOptions{Timeout: defaultUserCommandTimeout}
	fs.StringVar(&opts.Email, "email", "", "Email address for the new account (required)")
	fs.StringVar(&opts.FirstName, "first-name", "", "First name (required)")
	fs.StringVar(&opts.LastName, "last-name", "", "Last name")
	fs.StringVar(&opts.Role, "role", string(domainauth.RoleFarmOwner), "Account role")
	fs.StringVar(&opts.Password, "password", "", "Initial password (required, minimum 8 characters)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultUserCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return createUserOptions{}, err
	}
	if strings.TrimSpace(opts.Email) == "" {
		return createUserOptions{}, errors.New("--email is required")
	}
	if strings.TrimSpace(opts.FirstName) == "" {
		return createUserOptions{}, errors.New("--first-name is required")
	}
	if opts.Password == "" {
		return createUserOptions{}, errors.New("--password is required")
	}
	return opts, nil
}

func parseSetUserRoleFlags(args []string) (setUserRoleOptions, error) {
	fs := flag.NewFlagSet("set-user-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := setUserRoleOptions{Timeout: defaultUserCommandTimeout}
	fs.StringVar(&opts.Email, "email", "", "Email of the account to change (required)")
	fs.StringVar(&opts.Role, "role", "", "New role (required)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultUserCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return setUserRoleOptions{}, err
	}
	if strings.TrimSpace(opts.Email) == "" {
		return setUserRoleOptions{}, errors.New("--email is required")
	}
	if strings.TrimSpace(opts.Role) == "" {
		return setUserRoleOptions{}, errors.New("--role is required")
	}
	return opts, nil
}

func parseListUsersFlags(args []string) (listUsersOptions, error) {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listUsersOptions{Timeout: defaultUserCommandTimeout}
	fs.StringVar(&opts.Role, "role", "", "Only list accounts with this role")
	fs.BoolVar(&opts.Inactive, "include-inactive", false, "Include deactivated accounts")
	fs.IntVar(&opts.Limit, "limit", 100, "Maximum number of accounts to list")
	fs.DurationVar(&opts.Timeout, "timeout", defaultUserCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return listUsersOptions{}, err
	}
	if opts.Limit <= 0 {
		return listUsersOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func parseRoleFlag(value string) (domainauth.Role, error) {
	role := domainauth.Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf(
			"invalid role %q: valid roles are %s, %s, %s, %s",
			value,
			domainauth.RoleAdmin,
			domainauth.RoleFarmOwner,
			domainauth.RoleFarmManager,
			domainauth.RoleCollaborator,
		)
	}
	return role, nil
}
