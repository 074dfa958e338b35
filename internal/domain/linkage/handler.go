package linkage

import (
	"errors"
	"net/http"

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
	api.POST("/links", h.Link)
	api.DELETE("/links", h.Unlink)
}

type linkRequest struct {
	LocalDemographicID  int `json:"local_demographic_id"`
	RemoteFacilityID    int `json:"remote_facility_id"`
	RemoteDemographicID int `json:"remote_demographic_id"`
}

// Link asserts identity between a demographic at the calling facility and one
// at a remote facility. The local side of the pair is always the caller.
func (h *Handler) Link(c echo.Context) error {
	ctx := c.Request().Context()

	var req linkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	local := Node{FacilityID: auth.FacilityFromContext(ctx), DemographicID: req.LocalDemographicID}
	remote := Node{FacilityID: req.RemoteFacilityID, DemographicID: req.RemoteDemographicID}

	l, err := h.svc.Link(ctx, auth.ProviderFromContext(ctx), local, remote)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) Unlink(c echo.Context) error {
	ctx := c.Request().Context()

	var req linkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	local := Node{FacilityID: auth.FacilityFromContext(ctx), DemographicID: req.LocalDemographicID}
	remote := Node{FacilityID: req.RemoteFacilityID, DemographicID: req.RemoteDemographicID}

	if err := h.svc.Unlink(ctx, local, remote); err != nil {
		if errors.Is(err, ErrNoActiveLink) {
			return echo.NewHTTPError(http.StatusNotFound, "no active link for pair")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
