package consent

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
	api.GET("/consent/:facilityId/:demographicId", h.GetConsentState)
	api.POST("/consent", h.SetConsent)
}

func (h *Handler) GetConsentState(c echo.Context) error {
	facilityID, err := strconv.Atoi(c.Param("facilityId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
	}
	demographicID, err := strconv.Atoi(c.Param("demographicId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid demographic id")
	}

	state, err := h.svc.GetConsentState(c.Request().Context(), facilityID, demographicID)
	if err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, "consent type not seeded")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// SetConsent records a consent decision for a demographic at the calling
// facility.
func (h *Handler) SetConsent(c echo.Context) error {
	ctx := c.Request().Context()

	var t SetConsentTransfer
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.SetConsent(ctx, auth.FacilityFromContext(ctx), &t); err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown consent type")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
