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

// PlotRepo provides database operations for plots.
type PlotRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewPlotRepo creates a new PlotRepo with real time provider.
func NewPlotRepo(db *sql.DB) *PlotRepo {
	return &PlotRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Create inserts a new plot.
func (r *PlotRepo) Create(ctx context.Context, req *model.CreatePlotRequest) (*model.Plot, error) {
	if req == nil {
		return nil, errors.New("create plot request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Plot
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO plots (farm_id, name, area_hectares, crop, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, $5, $5)
			RETURNING `+plotColumnList,
			req.FarmID,
			strings.TrimSpace(req.Name),
			req.AreaHectares,
			req.Crop,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Plot])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID retrieves a plot by ID.
func (r *PlotRepo) GetByID(ctx context.Context, id string) (*model.Plot, error) {
	var out model.Plot
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+plotColumnList+` FROM plots WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Plot])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlotNotFound
		}
		return nil, fmt.Errorf("failed to get plot by ID: %w", err)
	}
	return &out, nil
}

// ListWithOptions retrieves plots with optional filters.
func (r *PlotRepo) ListWithOptions(ctx context.Context, opts model.PlotsListOptions) ([]*model.Plot, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(plotColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("created_at", "asc"),
		database.WithCondition(database.WhereCond("farm_id", database.Equal, opts.FarmID)),
	}
	if opts.Crop != nil && strings.TrimSpace(*opts.Crop) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("crop", database.Equal, strings.TrimSpace(*opts.Crop)),
		))
	}
	if opts.IsActive != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("is_active", database.Equal, *opts.IsActive),
		))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("plots", queryOpts...))

	var rowsOut []model.Plot
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Plot])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list plots: %w", err)
	}
	return collectPtrs(rowsOut), nil
}

// Update updates fields of a plot.
func (r *PlotRepo) Update(ctx context.Context, id string, req model.UpdatePlotRequest) (*model.Plot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setParts := make([]string, 0, 5)
	args := make([]any, 0, 6)
	nextIdx := func() int { return len(args) + 1 }

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Name))
	}
	if req.AreaHectares != nil {
		setParts = append(setParts, fmt.Sprintf("area_hectares = $%d", nextIdx()))
		args = append(args, *req.AreaHectares)
	}
	if req.Crop != nil {
		setParts = append(setParts, fmt.Sprintf("crop = $%d", nextIdx()))
		args = append(args, *req.Crop)
	}
	if req.IsActive != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", nextIdx()))
		args = append(args, *req.IsActive)
	}
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())

	args = append(args, id)
	query := "UPDATE plots SET " + strings.Join(setParts, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + plotColumnList

	var out model.Plot
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Plot])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlotNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// SoftDelete marks a plot inactive.
func (r *PlotRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx,
			`UPDATE plots SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active`,
			id, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete plot: %w", err)
	}
	return rows > 0, nil
}

const plotColumnList = `id, farm_id, name, area_hectares, crop, is_active, created_at, updated_at`

func plotColumns() []string {
	return []string{"id", "farm_id", "name", "area_hectares", "crop", "is_active", "created_at", "updated_at"}
}
