package demographic

import (
	"errors"
	"net/http"
	"strconv"
	"time"

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
	api.POST("/demographics", h.SetDemographic)
	api.GET("/demographics/pushed-after", h.PushedAfter)
	api.GET("/demographics/pushed-after/ids", h.IDsPushedAfter)
	api.POST("/demographics/exact-match", h.ExactMatch)
	api.POST("/demographics/matches", h.Matches)
	api.GET("/demographics/linked/:demographicId", h.Linked)
	api.GET("/demographics/:facilityId/:demographicId", h.GetByKey)
}

// SetDemographic caches the demographic pushed by the calling facility.
func (h *Handler) SetDemographic(c echo.Context) error {
	ctx := c.Request().Context()

	var d Demographic
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetDemographic(ctx, auth.FacilityFromContext(ctx), &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetByKey(c echo.Context) error {
	facilityID, err := strconv.Atoi(c.Param("facilityId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
	}
	demographicID, err := strconv.Atoi(c.Param("demographicId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid demographic id")
	}

	d, err := h.svc.GetByKey(c.Request().Context(), facilityID, demographicID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "demographic not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

// ExactMatch returns the single candidate matching all provided attributes,
// or 404 when the search is empty-handed or ambiguous.
func (h *Handler) ExactMatch(c echo.Context) error {
	var p MatchParameters
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	d, err := h.svc.FindExactMatch(c.Request().Context(), &p)
	if errors.Is(err, ErrEmptySearch) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if d == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no unambiguous match")
	}
	return c.JSON(http.StatusOK, d)
}

// Matches runs the scored fuzzy search.
func (h *Handler) Matches(c echo.Context) error {
	var p MatchParameters
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	scores, err := h.svc.GetMatching(c.Request().Context(), &p)
	if errors.Is(err, ErrLastNameRequired) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, scores)
}

func (h *Handler) PushedAfter(c echo.Context) error {
	since, err := parseSince(c.QueryParam("since"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items, err := h.svc.PushedAfter(c.Request().Context(), since)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Demographic{}
	}
	return c.JSON(http.StatusOK, items)
}

// IDsPushedAfter maps recent pushes anywhere in the network back to the
// calling facility's own demographic ids.
func (h *Handler) IDsPushedAfter(c echo.Context) error {
	ctx := c.Request().Context()

	since, err := parseSince(c.QueryParam("since"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ids, err := h.svc.IDsPushedAfterForFacility(ctx, auth.FacilityFromContext(ctx), since)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ids)
}

// Linked returns the consent-filtered demographics linked to the caller's
// patient. ?direct=true restricts the result to one hop.
func (h *Handler) Linked(c echo.Context) error {
	ctx := c.Request().Context()

	demographicID, err := strconv.Atoi(c.Param("demographicId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid demographic id")
	}
	direct, _ := strconv.ParseBool(c.QueryParam("direct"))

	items, err := h.svc.GetLinkedDemographics(ctx, auth.FacilityFromContext(ctx), demographicID, direct)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Demographic{}
	}
	return c.JSON(http.StatusOK, items)
}

func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("since query parameter is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("since must be RFC 3339")
	}
	return t, nil
}
