package merge

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/emr/integrator/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/merges", h.Merge)
	api.POST("/merges/unmerge", h.Unmerge)
	api.GET("/merges/:parentId", h.MergedChildren)
}

type mergeRequest struct {
	ParentID int   `json:"parent_id"`
	ChildIDs []int `json:"child_ids"`
}

func (h *Handler) Merge(c echo.Context) error {
	ctx := c.Request().Context()

	var req mergeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ParentID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid parent id")
	}

	err := h.svc.Merge(ctx, auth.FacilityFromContext(ctx), req.ParentID, req.ChildIDs,
		auth.ProviderFromContext(ctx))
	switch {
	case errors.Is(err, ErrSelfMerge), errors.Is(err, ErrAlreadyMerged), errors.Is(err, ErrMergeChain):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Unmerge(c echo.Context) error {
	ctx := c.Request().Context()

	var req mergeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ParentID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid parent id")
	}

	err := h.svc.Unmerge(ctx, auth.FacilityFromContext(ctx), req.ParentID, req.ChildIDs,
		auth.ProviderFromContext(ctx))
	switch {
	case errors.Is(err, ErrNoSuchMerge):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MergedChildren(c echo.Context) error {
	ctx := c.Request().Context()

	parentID, err := strconv.Atoi(c.Param("parentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid parent id")
	}

	items, err := h.svc.MergedChildren(ctx, auth.FacilityFromContext(ctx), parentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*DemographicMerged{}
	}
	return c.JSON(http.StatusOK, items)
}
