package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/agrovia/farmdesk/internal/data/database"
	"github.com/agrovia/farmdesk/internal/data/pgxutil"
	"github.com/agrovia/farmdesk/internal/domain/model"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
)

// CollaboratorRepo provides database operations for collaborators.
// Collaborators are never physically deleted; past activities reference them.
type CollaboratorRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCollaboratorRepo creates a new CollaboratorRepo with real time provider.
func NewCollaboratorRepo(db *sql.DB) *CollaboratorRepo {
	return &CollaboratorRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Create inserts a new collaborator.
func (r *CollaboratorRepo) Create(
	ctx context.Context,
	req *model.CreateCollaboratorRequest,
) (*model.Collaborator, error) {
	if req == nil {
		return nil, errors.New("create collaborator request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Collaborator
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO collaborators (farm_id, name, email, role, daily_rate, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
			RETURNING `+collaboratorColumnList,
			req.FarmID,
			strings.TrimSpace(req.Name),
			req.Email,
			req.Role,
			req.DailyRate,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Collaborator])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID retrieves a collaborator by ID.
func (r *CollaboratorRepo) GetByID(ctx context.Context, id string) (*model.Collaborator, error) {
	var out model.Collaborator
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+collaboratorColumnList+` FROM collaborators WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Collaborator])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCollaboratorNotFound
		}
		return nil, fmt.Errorf("failed to get collaborator by ID: %w", err)
	}
	return &out, nil
}

// ListWithOptions retrieves collaborators with optional filters.
func (r *CollaboratorRepo) ListWithOptions(
	ctx context.Context,
	opts model.CollaboratorsListOptions,
) ([]*model.Collaborator, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(collaboratorColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("name", "asc"),
		database.WithCondition(database.WhereCond("farm_id", database.Equal, opts.FarmID)),
	}
	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("name", database.ILike, "%"+strings.TrimSpace(*opts.Q)+"%"),
		))
	}
	if opts.IsActive != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("is_active", database.Equal, *opts.IsActive),
		))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("collaborators", queryOpts...))

	var rowsOut []model.Collaborator
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Collaborator])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}
	return collectPtrs(rowsOut), nil
}

// Update updates fields of a collaborator.
func (r *CollaboratorRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateCollaboratorRequest,
) (*model.Collaborator, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setParts := make([]string, 0, 6)
	args := make([]any, 0, 7)
	nextIdx := func() int { return len(args) + 1 }

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Name))
	}
	if req.Email != nil {
		setParts = append(setParts, fmt.Sprintf("email = $%d", nextIdx()))
		args = append(args, *req.Email)
	}
	if req.Role != nil {
		setParts = append(setParts, fmt.Sprintf("role = $%d", nextIdx()))
		args = append(args, *req.Role)
	}
	if req.DailyRate != nil {
		setParts = append(setParts, fmt.Sprintf("daily_rate = $%d", nextIdx()))
		args = append(args, *req.DailyRate)
	}
	if req.IsActive != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", nextIdx()))
		args = append(args, *req.IsActive)
	}
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())

	args = append(args, id)
	query := "UPDATE collaborators SET " + strings.Join(setParts, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + collaboratorColumnList

	var out model.Collaborator
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Collaborator])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCollaboratorNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// SoftDelete marks a collaborator inactive.
func (r *CollaboratorRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx,
			`UPDATE collaborators SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active`,
			id, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete collaborator: %w", err)
	}
	return rows > 0, nil
}

const collaboratorColumnList = `id, farm_id, name, email, role, daily_rate, is_active, created_at, updated_at`

func collaboratorColumns() []string {
	return []string{"id", "farm_id", "name", "email", "role", "daily_rate", "is_active", "created_at", "updated_at"}
}
