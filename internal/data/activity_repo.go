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

// ActivityRepo provides database operations for farm activities.
// total_cost is recomputed on every write so the stored value always matches
// its components.
type ActivityRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewActivityRepo creates a new ActivityRepo with real time provider.
func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Create inserts a new activity.
func (r *ActivityRepo) Create(ctx context.Context, req *model.CreateActivityRequest) (*model.Activity, error) {
	if req == nil {
		return nil, errors.New("create activity request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Activity
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO activities (
				farm_id, plot_id, type, date, labor_count, hours_worked,
				hourly_rate, supplies_cost, total_cost, notes, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
			RETURNING `+activityColumnList,
			req.FarmID,
			req.PlotID,
			req.Type,
			req.Date.UTC(),
			req.LaborCount,
			req.HoursWorked,
			req.HourlyRate,
			req.SuppliesCost,
			req.TotalCost(),
			req.Notes,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Activity])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID retrieves an activity by ID.
func (r *ActivityRepo) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	var out model.Activity
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+activityColumnList+` FROM activities WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Activity])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity by ID: %w", err)
	}
	return &out, nil
}

// ListWithOptions retrieves activities with optional filters.
func (r *ActivityRepo) ListWithOptions(
	ctx context.Context,
	opts model.ActivitiesListOptions,
) ([]*model.Activity, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(activityColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("date", "desc"),
		database.WithCondition(database.WhereCond("farm_id", database.Equal, opts.FarmID)),
	}
	if opts.PlotID != nil && strings.TrimSpace(*opts.PlotID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("plot_id", database.Equal, strings.TrimSpace(*opts.PlotID)),
		))
	}
	if opts.Type != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("type", database.Equal, *opts.Type),
		))
	}
	if opts.From != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("date", database.GreaterThanOrEqual, opts.From.UTC()),
		))
	}
	if opts.To != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("date", database.LessThanOrEqual, opts.To.UTC()),
		))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("activities", queryOpts...))

	var rowsOut []model.Activity
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Activity])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return collectPtrs(rowsOut), nil
}

// Update updates fields of an activity and recomputes total_cost from the
// merged row.
func (r *ActivityRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateActivityRequest,
) (*model.Activity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setParts := make([]string, 0, 8)
	args := make([]any, 0, 9)
	nextIdx := func() int { return len(args) + 1 }

	if req.PlotID != nil {
		if strings.TrimSpace(*req.PlotID) == "" {
			setParts = append(setParts, "plot_id = NULL")
		} else {
			setParts = append(setParts, fmt.Sprintf("plot_id = $%d", nextIdx()))
			args = append(args, *req.PlotID)
		}
	}
	if req.Type != nil {
		setParts = append(setParts, fmt.Sprintf("type = $%d", nextIdx()))
		args = append(args, *req.Type)
	}
	if req.Date != nil {
		setParts = append(setParts, fmt.Sprintf("date = $%d", nextIdx()))
		args = append(args, req.Date.UTC())
	}
	if req.LaborCount != nil {
		setParts = append(setParts, fmt.Sprintf("labor_count = $%d", nextIdx()))
		args = append(args, *req.LaborCount)
	}
	if req.HoursWorked != nil {
		setParts = append(setParts, fmt.Sprintf("hours_worked = $%d", nextIdx()))
		args = append(args, *req.HoursWorked)
	}
	if req.HourlyRate != nil {
		setParts = append(setParts, fmt.Sprintf("hourly_rate = $%d", nextIdx()))
		args = append(args, *req.HourlyRate)
	}
	if req.SuppliesCost != nil {
		setParts = append(setParts, fmt.Sprintf("supplies_cost = $%d", nextIdx()))
		args = append(args, *req.SuppliesCost)
	}
	if req.Notes != nil {
		setParts = append(setParts, fmt.Sprintf("notes = $%d", nextIdx()))
		args = append(args, *req.Notes)
	}

	// Recompute the derived total from the post-update component values.
	setParts = append(setParts, "total_cost = labor_count * hours_worked * hourly_rate + supplies_cost")

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())

	args = append(args, id)
	query := "UPDATE activities SET " + strings.Join(setParts, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + activityColumnList

	var out model.Activity
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Activity])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Delete physically removes an activity. Activities carry no dependents.
func (r *ActivityRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete activity: %w", err)
	}
	return rows > 0, nil
}

const activityColumnList = `id, farm_id, plot_id, type, date, labor_count, hours_worked,
		hourly_rate, supplies_cost, total_cost, notes, created_at, updated_at`

func activityColumns() []string {
	return []string{
		"id", "farm_id", "plot_id", "type", "date", "labor_count", "hours_worked",
		"hourly_rate", "supplies_cost", "total_cost", "notes", "created_at", "updated_at",
	}
}
