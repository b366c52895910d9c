package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/agrovia/farmdesk/internal/domain/model"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
)

// harvestRepoStub is a hand-rolled double for core.HarvestRepository.
type harvestRepoStub struct {
	createFunc func(ctx context.Context, req *model.CreateHarvestRequest) (*model.Harvest, error)
	listFunc   func(ctx context.Context, opts model.HarvestsListOptions) ([]*model.Harvest, error)
	deleteFunc func(ctx context.Context, id string) (bool, error)
}

func (h *harvestRepoStub) Create(ctx context.Context, req *model.CreateHarvestRequest) (*model.Harvest, error) {
	if h.createFunc != nil {
		return h.createFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (h *harvestRepoStub) GetByID(_ context.Context, _ string) (*model.Harvest, error) {
	return nil, errors.New("not implemented")
}

func (h *harvestRepoStub) ListWithOptions(ctx context.Context, opts model.HarvestsListOptions) ([]*model.Harvest, error) {
	if h.listFunc != nil {
		return h.listFunc(ctx, opts)
	}
	return nil, errors.New("not implemented")
}

func (h *harvestRepoStub) Update(_ context.Context, _ string, _ model.UpdateHarvestRequest) (*model.Harvest, error) {
	return nil, errors.New("not implemented")
}

func (h *harvestRepoStub) Delete(ctx context.Context, id string) (bool, error) {
	if h.deleteFunc != nil {
		return h.deleteFunc(ctx, id)
	}
	return false, errors.New("not implemented")
}

// selectorWithCurrentFarm builds a selector whose user already has farm f1
// selected.
func selectorWithCurrentFarm(t *testing.T, userID string) *CurrentFarmService {
	t.Helper()
	repo := &fakeFarmRepo{
		listByOwnerFunc: func(context.Context, string) ([]*model.Farm, error) {
			return []*model.Farm{farm("f1", "La Esperanza")}, nil
		},
	}
	selector := NewCurrentFarmService(CurrentFarmServiceOptions{
		Farms:      repo,
		Selections: newMemorySelectionStore(),
		Time:       fixedClock{now: time.Now()},
	})
	snap, err := selector.LoadFarms(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, snap.CurrentFarm)
	return selector
}

func sampleHarvest(id string) *model.Harvest {
	notes := "primera pasada"
	return &model.Harvest{
		ID:         id,
		FarmID:     "f1",
		Date:       time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		Product:    "coffee cherry",
		QuantityKg: 850,
		PricePerKg: 3200,
		TotalValue: 2720000,
		Notes:      &notes,
	}
}

func TestHarvestCreate_UsesCurrentFarm(t *testing.T) {
	selector := selectorWithCurrentFarm(t, "user-1")
	repo := &harvestRepoStub{
		createFunc: func(_ context.Context, req *model.CreateHarvestRequest) (*model.Harvest, error) {
			assert.Equal(t, "f1", req.FarmID)
			return sampleHarvest("h1"), nil
		},
	}
	svc := NewHarvestService(HarvestServiceOptions{Harvests: repo, Selector: selector})

	harvest, err := svc.Create(context.Background(), "user-1", &model.CreateHarvestRequest{
		Date:       time.Now(),
		Product:    "coffee cherry",
		QuantityKg: 850,
		PricePerKg: 3200,
	})

	require.NoError(t, err)
	assert.Equal(t, "h1", harvest.ID)
}

func TestHarvestCreate_NoFarmSelected(t *testing.T) {
	selector := NewCurrentFarmService(CurrentFarmServiceOptions{
		Farms:      &fakeFarmRepo{},
		Selections: newMemorySelectionStore(),
		Time:       fixedClock{now: time.Now()},
	})
	svc := NewHarvestService(HarvestServiceOptions{Harvests: &harvestRepoStub{}, Selector: selector})

	_, err := svc.Create(context.Background(), "user-1", &model.CreateHarvestRequest{Product: "coffee cherry"})

	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestHarvestList_ScopesToCurrentFarm(t *testing.T) {
	selector := selectorWithCurrentFarm(t, "user-1")
	repo := &harvestRepoStub{
		listFunc: func(_ context.Context, opts model.HarvestsListOptions) ([]*model.Harvest, error) {
			assert.Equal(t, "f1", opts.FarmID)
			return []*model.Harvest{sampleHarvest("h1")}, nil
		},
	}
	svc := NewHarvestService(HarvestServiceOptions{Harvests: repo, Selector: selector})

	harvests, err := svc.List(context.Background(), "user-1", model.HarvestsListOptions{})

	require.NoError(t, err)
	require.Len(t, harvests, 1)
}

func TestHarvestExport_ProducesReadableWorkbook(t *testing.T) {
	selector := selectorWithCurrentFarm(t, "user-1")
	repo := &harvestRepoStub{
		listFunc: func(_ context.Context, opts model.HarvestsListOptions) ([]*model.Harvest, error) {
			// Export lifts the default page size to its cap.
			assert.Equal(t, 10000, opts.Limit)
			return []*model.Harvest{sampleHarvest("h1"), sampleHarvest("h2")}, nil
		},
	}
	svc := NewHarvestService(HarvestServiceOptions{Harvests: repo, Selector: selector})

	data, err := svc.Export(context.Background(), "user-1", model.HarvestsListOptions{})

	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Harvests")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "2026-05-10", rows[1][0])
	assert.Equal(t, "coffee cherry", rows[1][1])
}

func TestHarvestExport_ListFailure(t *testing.T) {
	selector := selectorWithCurrentFarm(t, "user-1")
	listErr := errors.New("query failed")
	repo := &harvestRepoStub{
		listFunc: func(context.Context, model.HarvestsListOptions) ([]*model.Harvest, error) {
			return nil, listErr
		},
	}
	svc := NewHarvestService(HarvestServiceOptions{Harvests: repo, Selector: selector})

	_, err := svc.Export(context.Background(), "user-1", model.HarvestsListOptions{})
	require.ErrorIs(t, err, listErr)
}
