package handler

import (
	"errors"
	"os"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	apperrors "github.com/earthwork-discovery/internal/pkg/errors"
	"github.com/earthwork-discovery/internal/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRunsLimit = 20

// ResultsHandler serves stored discovery runs.
type ResultsHandler struct {
	results repository.ResultsRepository
	logger  *zap.Logger
}

func NewResultsHandler(results repository.ResultsRepository, logger *zap.Logger) *ResultsHandler {
	return &ResultsHandler{
		results: results,
		logger:  logger,
	}
}

// ListRuns godoc
// @Summary List discovery runs
// @Description Returns the most recent runs first
// @Tags Runs
// @Produce json
// @Param limit query int false "Maximum number of runs" default(20)
// @Success 200 {object} utils.SuccessResponse{data=[]domain.RunSummary}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/runs [get]
func (h *ResultsHandler) ListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultRunsLimit)
	if limit < 1 {
		return utils.SendError(c, apperrors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"limit": "must be positive",
		}))
	}

	runs, err := h.results.ListRuns(c.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		return utils.SendError(c, apperrors.ErrDatabaseError.Wrap(err))
	}

	return utils.SendSuccess(c, runs, &utils.Meta{Total: len(runs), Limit: limit})
}

// GetRun godoc
// @Summary Get a discovery run
// @Description Returns the checkpoint of one run
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} utils.SuccessResponse{data=domain.Checkpoint}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/runs/{id} [get]
func (h *ResultsHandler) GetRun(c *fiber.Ctx) error {
	cp, err := h.checkpoint(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, cp, nil)
}

// GetHotspots godoc
// @Summary Get run hotspots
// @Description Returns the ranked hotspots of one run
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} utils.SuccessResponse{data=[]domain.Hotspot}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/runs/{id}/hotspots [get]
func (h *ResultsHandler) GetHotspots(c *fiber.Ctx) error {
	id, err := parseRunID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	hotspots, err := h.results.GetHotspots(c.Context(), id)
	if err != nil {
		return utils.SendError(c, h.storeError("Failed to get hotspots", id, err))
	}
	return utils.SendSuccess(c, hotspots, &utils.Meta{Total: len(hotspots)})
}

// GetMap godoc
// @Summary Get the run map
// @Description Serves the interactive HTML map written by the run
// @Tags Runs
// @Produce html
// @Param id path string true "Run ID"
// @Success 200 {string} string "HTML map"
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/runs/{id}/map [get]
func (h *ResultsHandler) GetMap(c *fiber.Ctx) error {
	cp, err := h.checkpoint(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	path, ok := cp.Outputs[domain.OutputMap]
	if !ok {
		return utils.SendError(c, apperrors.ErrRunNotFound.WithDetails(map[string]interface{}{
			"output": domain.OutputMap,
		}))
	}
	if _, err := os.Stat(path); err != nil {
		h.logger.Warn("Map file unavailable", zap.String("path", path), zap.Error(err))
		return utils.SendError(c, apperrors.ErrRunNotFound.WithDetails(map[string]interface{}{
			"output": domain.OutputMap,
		}))
	}

	c.Type("html")
	return c.SendFile(path)
}

func (h *ResultsHandler) checkpoint(c *fiber.Ctx) (*domain.Checkpoint, error) {
	id, err := parseRunID(c)
	if err != nil {
		return nil, err
	}
	cp, err := h.results.GetRun(c.Context(), id)
	if err != nil {
		return nil, h.storeError("Failed to get run", id, err)
	}
	return cp, nil
}

// storeError passes not-found through and hides everything else behind a
// database error.
func (h *ResultsHandler) storeError(msg string, id uuid.UUID, err error) error {
	if errors.Is(err, apperrors.ErrRunNotFound) {
		return err
	}
	h.logger.Error(msg, zap.Stringer("run_id", id), zap.Error(err))
	return apperrors.ErrDatabaseError.Wrap(err)
}

func parseRunID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"id": "must be a UUID",
		})
	}
	return id, nil
}
