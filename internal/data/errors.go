package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrFarmNotFound         = errors.New("farm not found")
	ErrPlotNotFound         = errors.New("plot not found")
	ErrCollaboratorNotFound = errors.New("collaborator not found")
	ErrActivityNotFound     = errors.New("activity not found")
	ErrHarvestNotFound      = errors.New("harvest not found")
	ErrSettingNotFound      = errors.New("setting not found")
	ErrUserNotFound         = errors.New("user not found")

	ErrUserEmailExists = errors.New("user email already exists")
)
