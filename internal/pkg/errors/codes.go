package errors

import "net/http"

// Pipeline failures that abort a run.
var (
	ErrInvalidConfig = New(
		"INVALID_CONFIG",
		"Invalid pipeline configuration",
		http.StatusInternalServerError,
	)

	ErrNoElevationTiles = New(
		"NO_ELEVATION_TILES",
		"No elevation tiles could be loaded",
		http.StatusInternalServerError,
	)

	ErrNoKnownSites = New(
		"NO_KNOWN_SITES",
		"No known sites could be loaded",
		http.StatusInternalServerError,
	)

	ErrNoTilesSelected = New(
		"NO_TILES_SELECTED",
		"No elevation tile overlaps the known sites",
		http.StatusInternalServerError,
	)

	ErrInsufficientTraining = New(
		"INSUFFICIENT_TRAINING_DATA",
		"Training data must contain both classes",
		http.StatusInternalServerError,
	)
)

// API errors.
var (
	ErrRunNotFound = New(
		"RUN_NOT_FOUND",
		"Discovery run not found",
		http.StatusNotFound,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
