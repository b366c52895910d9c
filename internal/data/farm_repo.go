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

// FarmRepo provides database operations for farms.
type FarmRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewFarmRepo creates a new FarmRepo with real time provider.
func NewFarmRepo(db *sql.DB) *FarmRepo {
	return &FarmRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewFarmRepoWithTimeProvider creates a new FarmRepo with a custom time provider (useful for tests).
func NewFarmRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *FarmRepo {
	return &FarmRepo{DB: db, timeProvider: tp}
}

// Create inserts a new farm.
func (r *FarmRepo) Create(ctx context.Context, req *model.CreateFarmRequest) (*model.Farm, error) {
	if req == nil {
		return nil, errors.New("create farm request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	certs := req.Certifications
	if certs == nil {
		certs = model.Certifications{}
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Farm
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO farms (
				owner_id, name, municipality, department, area_hectares,
				altitude_min_m, altitude_max_m, latitude, longitude,
				certifications, is_active, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $11
			) RETURNING `+farmColumnList,
			req.OwnerID,
			strings.TrimSpace(req.Name),
			req.Municipality,
			req.Department,
			req.AreaHectares,
			req.AltitudeMinM,
			req.AltitudeMaxM,
			req.Latitude,
			req.Longitude,
			certs,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Farm])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID retrieves a farm by ID.
func (r *FarmRepo) GetByID(ctx context.Context, id string) (*model.Farm, error) {
	var out model.Farm
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, farmGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Farm])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFarmNotFound
		}
		return nil, fmt.Errorf("failed to get farm by ID: %w", err)
	}
	return &out, nil
}

// ListByOwner retrieves all active farms owned by a user, in creation order as
// stored. Callers rely on this order for default selection; it is not
// re-sorted elsewhere.
func (r *FarmRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Farm, error) {
	var rowsOut []model.Farm
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, farmListByOwnerQuery, ownerID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Farm])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list farms by owner: %w", err)
	}
	return collectPtrs(rowsOut), nil
}

// ListWithOptions retrieves farms with optional filters.
func (r *FarmRepo) ListWithOptions(ctx context.Context, opts model.FarmsListOptions) ([]*model.Farm, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	query, args := database.BuildListQuery(r.buildFarmQueryOptions(opts, limit, offset))

	var rowsOut []model.Farm
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Farm])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list farms with options: %w", err)
	}
	return collectPtrs(rowsOut), nil
}

// Update updates fields of a farm.
func (r *FarmRepo) Update(ctx context.Context, id string, req model.UpdateFarmRequest) (*model.Farm, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setClause, args := r.buildUpdateClause(req)
	args = append(args, id)
	query := "UPDATE farms SET " + setClause + " WHERE id = $" + strconv.Itoa(len(args)) +
		" RETURNING " + farmColumnList

	var out model.Farm
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Farm])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFarmNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// HasDependents reports whether any dependent record references the farm.
// Dependents keep the farm from being physically removed.
func (r *FarmRepo) HasDependents(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM plots WHERE farm_id = $1)
			    OR EXISTS (SELECT 1 FROM collaborators WHERE farm_id = $1)
			    OR EXISTS (SELECT 1 FROM activities WHERE farm_id = $1)
			    OR EXISTS (SELECT 1 FROM harvests WHERE farm_id = $1)
			    OR EXISTS (SELECT 1 FROM settings WHERE farm_id = $1)`, id).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check farm dependents: %w", err)
	}
	return exists, nil
}

// SoftDelete marks a farm inactive, preserving referential history.
func (r *FarmRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `UPDATE farms SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active`,
		id, r.timeProvider.Now().UTC())
}

// HardDelete physically removes a farm row. Fails with a foreign-key error
// when dependents still exist; callers should check HasDependents first.
func (r *FarmRepo) HardDelete(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `DELETE FROM farms WHERE id = $1`, id)
}

func (r *FarmRepo) exec(ctx context.Context, query string, args ...any) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return rows > 0, nil
}

// buildUpdateClause builds the SQL SET clause and args for updating a farm based on the request.
func (r *FarmRepo) buildUpdateClause(req model.UpdateFarmRequest) (string, []any) {
	setParts := make([]string, 0, 10)
	args := make([]any, 0, 10)
	nextIdx := func() int { return len(args) + 1 }

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Name))
	}
	if req.Municipality != nil {
		setParts = append(setParts, fmt.Sprintf("municipality = $%d", nextIdx()))
		args = append(args, *req.Municipality)
	}
	if req.Department != nil {
		setParts = append(setParts, fmt.Sprintf("department = $%d", nextIdx()))
		args = append(args, *req.Department)
	}
	if req.AreaHectares != nil {
		setParts = append(setParts, fmt.Sprintf("area_hectares = $%d", nextIdx()))
		args = append(args, *req.AreaHectares)
	}
	if req.AltitudeMinM != nil {
		setParts = append(setParts, fmt.Sprintf("altitude_min_m = $%d", nextIdx()))
		args = append(args, *req.AltitudeMinM)
	}
	if req.AltitudeMaxM != nil {
		setParts = append(setParts, fmt.Sprintf("altitude_max_m = $%d", nextIdx()))
		args = append(args, *req.AltitudeMaxM)
	}
	if req.Latitude != nil {
		setParts = append(setParts, fmt.Sprintf("latitude = $%d", nextIdx()))
		args = append(args, *req.Latitude)
	}
	if req.Longitude != nil {
		setParts = append(setParts, fmt.Sprintf("longitude = $%d", nextIdx()))
		args = append(args, *req.Longitude)
	}
	if req.Certifications != nil {
		setParts = append(setParts, fmt.Sprintf("certifications = $%d", nextIdx()))
		args = append(args, req.Certifications)
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())

	return strings.Join(setParts, ", "), args
}

// buildFarmQueryOptions builds query options for farm listing with filters.
func (r *FarmRepo) buildFarmQueryOptions(opts model.FarmsListOptions, limit, offset int) *database.ListQueryOptions {
	queryOpts := []database.ListQueryOption{
		database.WithColumns(farmColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("created_at", "desc"),
	}

	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("name", database.ILike, "%"+strings.TrimSpace(*opts.Q)+"%"),
		))
	}
	if opts.OwnerID != nil && strings.TrimSpace(*opts.OwnerID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("owner_id", database.Equal, strings.TrimSpace(*opts.OwnerID)),
		))
	}
	if opts.IsActive != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("is_active", database.Equal, *opts.IsActive),
		))
	}

	return database.NewListQueryOptions("farms", queryOpts...)
}

// --- helpers ---

const farmColumnList = `id, owner_id, name, municipality, department, area_hectares,
		altitude_min_m, altitude_max_m, latitude, longitude, certifications,
		is_active, created_at, updated_at`

// SQL query constants for static queries (no dynamic WHERE/ORDER BY).
const (
	farmGetByIDQuery = `
		SELECT ` + farmColumnList + `
		FROM farms
		WHERE id = $1`

	farmListByOwnerQuery = `
		SELECT ` + farmColumnList + `
		FROM farms
		WHERE owner_id = $1 AND is_active
		ORDER BY created_at ASC`
)

// farmColumns returns the standard column list for dynamic farm queries.
func farmColumns() []string {
	return []string{
		"id", "owner_id", "name", "municipality", "department", "area_hectares",
		"altitude_min_m", "altitude_max_m", "latitude", "longitude",
		"certifications", "is_active", "created_at", "updated_at",
	}
}

// collectPtrs converts a row slice into the pointer slice repositories return.
func collectPtrs[T any](rows []T) []*T {
	out := make([]*T, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
