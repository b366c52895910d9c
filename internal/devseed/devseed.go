// Package devseed populates a development database with a working set of
// demo data: two users, a farm with plots, collaborators, a season of
// activities and harvests, and the pricing settings the cost views need.
package devseed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrovia/farmdesk/internal/data"
	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// Services bundles the repositories needed for development seeding.
type Services struct {
	DB            *sql.DB
	users         *data.UserRepo
	farms         *data.FarmRepo
	plots         *data.PlotRepo
	collaborators *data.CollaboratorRepo
	activities    *data.ActivityRepo
	harvests      *data.HarvestRepo
	settings      *data.SettingRepo
}

// NewServices constructs all required repositories for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:            db,
		users:         data.NewUserRepo(db),
		farms:         data.NewFarmRepo(db),
		plots:         data.NewPlotRepo(db),
		collaborators: data.NewCollaboratorRepo(db),
		activities:    data.NewActivityRepo(db),
		harvests:      data.NewHarvestRepo(db),
		settings:      data.NewSettingRepo(db),
	}
}

// Run seeds the database. Seeding is not idempotent: it refuses to run when
// the demo owner already exists, so a reset is required between runs.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	const ownerEmail = "maria@demo.farmdesk.dev"
	if existing, err := svcs.users.GetByEmail(ctx, ownerEmail); err == nil && existing != nil {
		return fmt.Errorf("demo user %s already exists; run db-reset first", ownerEmail)
	} else if err != nil && !errors.Is(err, data.ErrUserNotFound) {
		return fmt.Errorf("check demo user: %w", err)
	}

	if _, err := svcs.users.Create(ctx, &model.CreateUserRequest{
		Email:     "admin@demo.farmdesk.dev",
		FirstName: "Demo",
		LastName:  "Admin",
		Role:      domainauth.RoleAdmin,
		Password:  "admin-dev-password",
	}); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	owner, err := svcs.users.Create(ctx, &model.CreateUserRequest{
		Email:     ownerEmail,
		FirstName: "Maria",
		LastName:  "Vega",
		Role:      domainauth.RoleFarmOwner,
		Password:  "owner-dev-password",
	})
	if err != nil {
		return fmt.Errorf("seed owner user: %w", err)
	}

	farm, err := seedFarm(ctx, svcs, owner.ID)
	if err != nil {
		return err
	}

	plotIDs, err := seedPlots(ctx, svcs, farm.ID)
	if err != nil {
		return err
	}

	if err := seedCollaborators(ctx, svcs, farm.ID); err != nil {
		return err
	}
	if err := seedSeason(ctx, svcs, farm.ID, plotIDs); err != nil {
		return err
	}
	if err := seedSettings(ctx, svcs, farm.ID); err != nil {
		return err
	}

	logger.InfoContext(ctx, "development data seeded",
		"owner_email", ownerEmail,
		"farm_id", farm.ID,
		"plots", len(plotIDs))
	return nil
}

func seedFarm(ctx context.Context, svcs Services, ownerID string) (*model.Farm, error) {
	area := 4.5
	altMin := 1450
	altMax := 1700
	municipality := "Jardin"
	department := "Antioquia"

	farm, err := svcs.farms.Create(ctx, &model.CreateFarmRequest{
		OwnerID:        ownerID,
		Name:           "Finca La Esperanza",
		Municipality:   &municipality,
		Department:     &department,
		AreaHectares:   &area,
		AltitudeMinM:   &altMin,
		AltitudeMaxM:   &altMax,
		Certifications: model.Certifications{"organic": true},
	})
	if err != nil {
		return nil, fmt.Errorf("seed farm: %w", err)
	}
	return farm, nil
}

func seedPlots(ctx context.Context, svcs Services, farmID string) ([]string, error) {
	coffee := "coffee"
	plantain := "plantain"
	lotArea := 1.8
	upperArea := 1.2

	specs := []model.CreatePlotRequest{
		{FarmID: farmID, Name: "Lote Principal", AreaHectares: &lotArea, Crop: &coffee},
		{FarmID: farmID, Name: "Lote Alto", AreaHectares: &upperArea, Crop: &coffee},
		{FarmID: farmID, Name: "Sombra", Crop: &plantain},
	}

	ids := make([]string, 0, len(specs))
	for i := range specs {
		plot, err := svcs.plots.Create(ctx, &specs[i])
		if err != nil {
			return nil, fmt.Errorf("seed plot %q: %w", specs[i].Name, err)
		}
		ids = append(ids, plot.ID)
	}
	return ids, nil
}

func seedCollaborators(ctx context.Context, svcs Services, farmID string) error {
	picker := "picker"
	allRounder := "all-rounder"
	pickerRate := 60000.0
	allRounderRate := 75000.0

	specs := []model.CreateCollaboratorRequest{
		{FarmID: farmID, Name: "Jose Restrepo", Role: &picker, DailyRate: &pickerRate},
		{FarmID: farmID, Name: "Carmen Lopez", Role: &allRounder, DailyRate: &allRounderRate},
	}
	for i := range specs {
		if _, err := svcs.collaborators.Create(ctx, &specs[i]); err != nil {
			return fmt.Errorf("seed collaborator %q: %w", specs[i].Name, err)
		}
	}
	return nil
}

// seedSeason writes a few months of work log and harvest history so list
// views and exports have something to show.
func seedSeason(ctx context.Context, svcs Services, farmID string, plotIDs []string) error {
	if len(plotIDs) == 0 {
		return errors.New("seed season: no plots")
	}
	mainPlot := plotIDs[0]
	now := time.Now().UTC().Truncate(24 * time.Hour)

	activities := []model.CreateActivityRequest{
		{
			FarmID:       farmID,
			PlotID:       &mainPlot,
			Type:         model.ActivityFertilizing,
			Date:         now.AddDate(0, -3, 0),
			LaborCount:   2,
			HoursWorked:  16,
			HourlyRate:   9000,
			SuppliesCost: 320000,
		},
		{
			FarmID:      farmID,
			PlotID:      &mainPlot,
			Type:        model.ActivityWeeding,
			Date:        now.AddDate(0, -2, 0),
			LaborCount:  3,
			HoursWorked: 24,
			HourlyRate:  8500,
		},
		{
			FarmID:      farmID,
			PlotID:      &mainPlot,
			Type:        model.ActivityHarvesting,
			Date:        now.AddDate(0, -1, 0),
			LaborCount:  5,
			HoursWorked: 40,
			HourlyRate:  10000,
		},
	}
	for i := range activities {
		if _, err := svcs.activities.Create(ctx, &activities[i]); err != nil {
			return fmt.Errorf("seed activity %s: %w", activities[i].Type, err)
		}
	}

	harvests := []model.CreateHarvestRequest{
		{
			FarmID:     farmID,
			PlotID:     &mainPlot,
			Date:       now.AddDate(0, -1, 0),
			Product:    "coffee cherry",
			QuantityKg: 850,
			PricePerKg: 3200,
		},
		{
			FarmID:     farmID,
			PlotID:     &mainPlot,
			Date:       now.AddDate(0, 0, -14),
			Product:    "coffee cherry",
			QuantityKg: 1120,
			PricePerKg: 3350,
		},
	}
	for i := range harvests {
		if _, err := svcs.harvests.Create(ctx, &harvests[i]); err != nil {
			return fmt.Errorf("seed harvest: %w", err)
		}
	}
	return nil
}

func seedSettings(ctx context.Context, svcs Services, farmID string) error {
	settings := map[string]any{
		"daily_wage":         60000,
		"coffee_price_kg":    3200,
		"default_work_hours": 8,
	}
	for key, value := range settings {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode setting %q: %w", key, err)
		}
		if _, err := svcs.settings.Upsert(ctx, &model.UpsertSettingRequest{
			FarmID: farmID,
			Key:    key,
			Value:  raw,
		}); err != nil {
			return fmt.Errorf("seed setting %q: %w", key, err)
		}
	}
	return nil
}
