package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgerrcode"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrovia/farmdesk/internal/data/database"
	"github.com/agrovia/farmdesk/internal/data/pgxutil"
	"github.com/agrovia/farmdesk/internal/domain/model"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
)

// UserRepo provides database operations for user profiles. Password hashes
// live in the same row but are never returned on profile reads; the
// authenticator fetches them through CredentialHash.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Create inserts a new user with bcrypt-hashed credentials.
func (r *UserRepo) Create(ctx context.Context, req *model.CreateUserRequest) (*model.UserProfile, error) {
	if req == nil {
		return nil, errors.New("create user request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.UserProfile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO users (email, first_name, last_name, role, password_hash,
				is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
			RETURNING `+userColumnList,
			strings.ToLower(strings.TrimSpace(req.Email)),
			strings.TrimSpace(req.FirstName),
			strings.TrimSpace(req.LastName),
			req.Role,
			hash,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.UserProfile])
		return err
	}); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrUserEmailExists
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID retrieves a user profile by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail retrieves a user profile by email. Emails are stored lowercased.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return r.getBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (*model.UserProfile, error) {
	var out model.UserProfile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+userColumnList+` FROM users WHERE `+column+` = $1`, value)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.UserProfile])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &out, nil
}

// CredentialHash returns the stored password hash for an email. Callers
// compare with bcrypt; an inactive user is reported as not found.
func (r *UserRepo) CredentialHash(ctx context.Context, email string) (string, []byte, error) {
	var (
		userID string
		hash   []byte
	)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT id, password_hash FROM users WHERE email = $1 AND is_active`,
			strings.ToLower(strings.TrimSpace(email)),
		).Scan(&userID, &hash)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, fmt.Errorf("failed to get credential hash: %w", err)
	}
	return userID, hash, nil
}

// ListWithOptions retrieves users with optional filters.
func (r *UserRepo) ListWithOptions(
	ctx context.Context,
	opts model.UsersListOptions,
) ([]*model.UserProfile, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(userColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("email", "asc"),
	}
	if opts.Role != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("role", database.Equal, string(*opts.Role)),
		))
	}
	if opts.IsActive != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("is_active", database.Equal, *opts.IsActive),
		))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("users", queryOpts...))

	var rowsOut []model.UserProfile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.UserProfile])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return collectPtrs(rowsOut), nil
}

// Update updates fields of a user profile.
func (r *UserRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateUserRequest,
) (*model.UserProfile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setParts := make([]string, 0, 4)
	args := make([]any, 0, 5)
	nextIdx := func() int { return len(args) + 1 }

	if req.FirstName != nil {
		setParts = append(setParts, fmt.Sprintf("first_name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.FirstName))
	}
	if req.LastName != nil {
		setParts = append(setParts, fmt.Sprintf("last_name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.LastName))
	}
	if req.Role != nil {
		setParts = append(setParts, fmt.Sprintf("role = $%d", nextIdx()))
		args = append(args, *req.Role)
	}
	if req.IsActive != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", nextIdx()))
		args = append(args, *req.IsActive)
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())

	args = append(args, id)
	query := "UPDATE users SET " + strings.Join(setParts, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + userColumnList

	var out model.UserProfile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.UserProfile])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// SoftDelete deactivates a user. The row stays so ownership references and
// audit trails resolve.
func (r *UserRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx,
			`UPDATE users SET is_active = FALSE, updated_at = $1 WHERE id = $2 AND is_active`,
			r.timeProvider.Now().UTC(), id,
		)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to soft delete user: %w", err)
	}
	return rows > 0, nil
}

const userColumnList = `id, email, first_name, last_name, role, is_active, created_at, updated_at`

func userColumns() []string {
	return []string{"id", "email", "first_name", "last_name", "role", "is_active", "created_at", "updated_at"}
}
