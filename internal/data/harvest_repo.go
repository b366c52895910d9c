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

// HarvestRepo provides database operations for harvests. total_value is
// recomputed on every write.
type HarvestRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewHarvestRepo creates a new HarvestRepo with real time provider.
func NewHarvestRepo(db *sql.DB) *HarvestRepo {
	return &HarvestRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Create inserts a new harvest.
func (r *HarvestRepo) Create(ctx context.Context, req *model.CreateHarvestRequest) (*model.Harvest, error) {
	if req == nil {
		return nil, errors.New("create harvest request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Harvest
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO harvests (
				farm_id, plot_id, date, product, quantity_kg, price_per_kg,
				total_value, notes, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			RETURNING `+harvestColumnList,
			req.FarmID,
			req.PlotID,
			req.Date.UTC(),
			strings.TrimSpace(req.Product),
			req.QuantityKg,
			req.PricePerKg,
			req.TotalValue(),
			req.Notes,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Harvest])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID retrieves a harvest by ID.
func (r *HarvestRepo) GetByID(ctx context.Context, id string) (*model.Harvest, error) {
	var out model.Harvest
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+harvestColumnList+` FROM harvests WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Harvest])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHarvestNotFound
		}
		return nil, fmt.Errorf("failed to get harvest by ID: %w", err)
	}
	return &out, nil
}

// ListWithOptions retrieves harvests with optional filters.
func (r *HarvestRepo) ListWithOptions(
	ctx context.Context,
	opts model.HarvestsListOptions,
) ([]*model.Harvest, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(harvestColumns()...),
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
	if opts.Product != nil && strings.TrimSpace(*opts.Product) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("product", database.ILike, "%"+strings.TrimSpace(*opts.Product)+"%"),
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
	query, args := database.BuildListQuery(database.NewListQueryOptions("harvests", queryOpts...))

	var rowsOut []model.Harvest
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Harvest])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list harvests: %w", err)
	}
	return collectPtrs(rowsOut), nil
}

// Update updates fields of a harvest and recomputes total_value.
func (r *HarvestRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateHarvestRequest,
) (*model.Harvest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setParts := make([]string, 0, 6)
	args := make([]any, 0, 7)
	nextIdx := func() int { return len(args) + 1 }

	if req.PlotID != nil {
		if strings.TrimSpace(*req.PlotID) == "" {
			setParts = append(setParts, "plot_id = NULL")
		} else {
			setParts = append(setParts, fmt.Sprintf("plot_id = $%d", nextIdx()))
			args = append(args, *req.PlotID)
		}
	}
	if req.Date != nil {
		setParts = append(setParts, fmt.Sprintf("date = $%d", nextIdx()))
		args = append(args, req.Date.UTC())
	}
	if req.Product != nil {
		setParts = append(setParts, fmt.Sprintf("product = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Product))
	}
	if req.QuantityKg != nil {
		setParts = append(setParts, fmt.Sprintf("quantity_kg = $%d", nextIdx()))
		args = append(args, *req.QuantityKg)
	}
	if req.PricePerKg != nil {
		setParts = append(setParts, fmt.Sprintf("price_per_kg = $%d", nextIdx()))
		args = append(args, *req.PricePerKg)
	}
	if req.Notes != nil {
		setParts = append(setParts, fmt.Sprintf("notes = $%d", nextIdx()))
		args = append(args, *req.Notes)
	}

	setParts = append(setParts, "total_value = quantity_kg * price_per_kg")

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())

	args = append(args, id)
	query := "UPDATE harvests SET " + strings.Join(setParts, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + harvestColumnList

	var out model.Harvest
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Harvest])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHarvestNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Delete physically removes a harvest. Harvests carry no dependents.
func (r *HarvestRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM harvests WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete harvest: %w", err)
	}
	return rows > 0, nil
}

const harvestColumnList = `id, farm_id, plot_id, date, product, quantity_kg, price_per_kg,
		total_value, notes, created_at, updated_at`

func harvestColumns() []string {
	return []string{
		"id", "farm_id", "plot_id", "date", "product", "quantity_kg", "price_per_kg",
		"total_value", "notes", "created_at", "updated_at",
	}
}
