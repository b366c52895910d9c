package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// HarvestServiceOptions groups dependencies for HarvestService.
type HarvestServiceOptions struct {
	Harvests core.HarvestRepository
	Selector *CurrentFarmService
}

// HarvestService orchestrates harvest records and their spreadsheet export.
// Total value is derived in the data layer; deletes are physical.
type HarvestService struct {
	harvests core.HarvestRepository
	selector *CurrentFarmService
}

// NewHarvestService constructs a new HarvestService.
func NewHarvestService(opts HarvestServiceOptions) *HarvestService {
	return &HarvestService{harvests: opts.Harvests, selector: opts.Selector}
}

// Create records a harvest on the user's current farm.
func (s *HarvestService) Create(
	ctx context.Context,
	userID string,
	req *model.CreateHarvestRequest,
) (*model.Harvest, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	req.FarmID = farmID
	return s.harvests.Create(ctx, req)
}

// GetByID retrieves a harvest by ID.
func (s *HarvestService) GetByID(ctx context.Context, id string) (*model.Harvest, error) {
	return s.harvests.GetByID(ctx, id)
}

// List returns harvests for the user's current farm.
func (s *HarvestService) List(
	ctx context.Context,
	userID string,
	opts model.HarvestsListOptions,
) ([]*model.Harvest, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	opts.FarmID = farmID
	return s.harvests.ListWithOptions(ctx, opts)
}

// Update updates a harvest.
func (s *HarvestService) Update(
	ctx context.Context,
	id string,
	req model.UpdateHarvestRequest,
) (*model.Harvest, error) {
	return s.harvests.Update(ctx, id, req)
}

// Delete removes a harvest.
func (s *HarvestService) Delete(ctx context.Context, id string) (bool, error) {
	return s.harvests.Delete(ctx, id)
}

// exportSheet is the sheet name used by Export.
const exportSheet = "Harvests"

// Export renders the current farm's harvests as an XLSX workbook. Filters on
// opts apply the same way they do for List; pagination defaults are lifted
// to the export cap.
func (s *HarvestService) Export(ctx context.Context, userID string, opts model.HarvestsListOptions) ([]byte, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10000
	}
	harvests, err := s.List(ctx, userID, opts)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []any{"Date", "Product", "Plot", "Quantity (kg)", "Price per kg", "Total value", "Notes"}
	if err := f.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i, h := range harvests {
		plotID := ""
		if h.PlotID != nil {
			plotID = *h.PlotID
		}
		notes := ""
		if h.Notes != nil {
			notes = *h.Notes
		}
		row := []any{
			h.Date.Format("2006-01-02"),
			h.Product,
			plotID,
			h.QuantityKg,
			h.PricePerKg,
			h.TotalValue,
			notes,
		}
		cell, cellErr := excelize.CoordinatesToCellName(1, i+2)
		if cellErr != nil {
			return nil, fmt.Errorf("compute cell name: %w", cellErr)
		}
		if rowErr := f.SetSheetRow(exportSheet, cell, &row); rowErr != nil {
			return nil, fmt.Errorf("write harvest row: %w", rowErr)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
