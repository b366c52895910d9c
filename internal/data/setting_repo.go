package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/agrovia/farmdesk/internal/data/database"
	"github.com/agrovia/farmdesk/internal/data/pgxutil"
	"github.com/agrovia/farmdesk/internal/domain/model"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
)

// SettingRepo provides database operations for per-farm settings. A setting
// is keyed by (farm_id, key); writes go through an upsert so callers never
// need to distinguish create from replace.
type SettingRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSettingRepo creates a new SettingRepo with real time provider.
func NewSettingRepo(db *sql.DB) *SettingRepo {
	return &SettingRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Upsert creates the setting, or replaces its value if the farm already
// holds the key. Replacing a soft-deleted setting reactivates it.
func (r *SettingRepo) Upsert(ctx context.Context, req *model.UpsertSettingRequest) (*model.Setting, error) {
	if req == nil {
		return nil, errors.New("upsert setting request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	var out model.Setting
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO settings (farm_id, key, value, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, $4, $4)
			ON CONFLICT (farm_id, key) DO UPDATE SET
				value = EXCLUDED.value,
				is_active = TRUE,
				updated_at = EXCLUDED.updated_at
			RETURNING `+settingColumnList,
			req.FarmID,
			strings.TrimSpace(req.Key),
			req.Value,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Setting])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByKey retrieves an active setting by farm and key.
func (r *SettingRepo) GetByKey(ctx context.Context, farmID, key string) (*model.Setting, error) {
	var out model.Setting
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+settingColumnList+` FROM settings WHERE farm_id = $1 AND key = $2 AND is_active`,
			farmID, key,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Setting])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to get setting by key: %w", err)
	}
	return &out, nil
}

// ListWithOptions retrieves settings for a farm with optional filters.
func (r *SettingRepo) ListWithOptions(
	ctx context.Context,
	opts model.SettingsListOptions,
) ([]*model.Setting, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(settingColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("key", "asc"),
		database.WithCondition(database.WhereCond("farm_id", database.Equal, opts.FarmID)),
	}
	if opts.IsActive != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("is_active", database.Equal, *opts.IsActive),
		))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("settings", queryOpts...))

	var rowsOut []model.Setting
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Setting])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return collectPtrs(rowsOut), nil
}

// SoftDelete deactivates a setting. The row stays so past cost calculations
// remain reproducible.
func (r *SettingRepo) SoftDelete(ctx context.Context, farmID, key string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx,
			`UPDATE settings SET is_active = FALSE, updated_at = $1 WHERE farm_id = $2 AND key = $3 AND is_active`,
			r.timeProvider.Now().UTC(), farmID, key,
		)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to soft delete setting: %w", err)
	}
	return rows > 0, nil
}

const settingColumnList = `id, farm_id, key, value, is_active, created_at, updated_at`

func settingColumns() []string {
	return []string{"id", "farm_id", "key", "value", "is_active", "created_at", "updated_at"}
}
