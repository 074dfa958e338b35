package records

import (
	"context"
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
	g := api.Group("/records")

	g.POST("/allergies", pushBatch(h.svc.SetAllergies))
	g.GET("/allergies/:demographicId", linkedList(h.svc.LinkedAllergies))

	g.POST("/drugs", pushBatch(h.svc.SetDrugs))
	g.GET("/drugs/:demographicId", linkedList(h.svc.LinkedDrugs))

	g.POST("/notes", pushBatch(h.svc.SetNotes))
	g.GET("/notes/:demographicId", linkedList(h.svc.LinkedNotes))
	g.GET("/notes/metadata/:demographicId", linkedList(h.svc.LinkedNoteMetadata))

	g.POST("/lab-results", pushBatch(h.svc.SetLabResults))
	g.GET("/lab-results/:demographicId", linkedList(h.svc.LinkedLabResults))
	g.GET("/lab-results/record/:facilityId/:recordId", singleRecord(h.svc.GetLabResult))

	g.POST("/preventions", pushBatch(h.svc.SetPreventions))
	g.GET("/preventions/:demographicId", linkedList(h.svc.LinkedPreventions))
	g.GET("/preventions/record/:facilityId/:recordId", singleRecord(h.svc.GetPrevention))
	g.DELETE("/preventions", deleteByIDs(h.svc.DeletePreventions))

	g.POST("/documents", pushBatch(h.svc.SetDocuments))
	g.GET("/documents/:demographicId", linkedList(h.svc.LinkedDocuments))
	g.GET("/documents/record/:facilityId/:recordId", singleRecord(h.svc.GetDocument))
	g.DELETE("/documents", deleteByIDs(h.svc.DeleteDocuments))
	g.PUT("/documents/contents/:documentId", h.SetDocumentContents)
	g.GET("/documents/contents/:facilityId/:documentId", h.GetDocumentContents)

	g.POST("/appointments", pushBatch(h.svc.SetAppointments))
	g.GET("/appointments/:demographicId", linkedList(h.svc.LinkedAppointments))

	g.POST("/forms", pushBatch(h.svc.SetForms))
	g.GET("/forms/:demographicId", linkedList(h.svc.LinkedForms))
	g.GET("/forms/record/:facilityId/:recordId", singleRecord(h.svc.GetForm))

	g.POST("/admissions", pushBatch(h.svc.SetAdmissions))
	g.GET("/admissions/:demographicId", linkedList(h.svc.LinkedAdmissions))

	g.POST("/measurements", pushBatch(h.svc.SetMeasurements))
	g.GET("/measurements/:demographicId", linkedList(h.svc.LinkedMeasurements))

	g.POST("/billing-items", pushBatch(h.svc.SetBillingItems))
	g.GET("/billing-items/:demographicId", linkedList(h.svc.LinkedBillingItems))

	g.POST("/eform-data", pushBatch(h.svc.SetEformData))
	g.GET("/eform-data/:demographicId", linkedList(h.svc.LinkedEformData))

	g.POST("/eform-values", pushBatch(h.svc.SetEformValues))
	g.GET("/eform-values/:demographicId", linkedList(h.svc.LinkedEformValues))

	g.POST("/issues", pushBatch(h.svc.SetIssues))
	g.GET("/issues/:demographicId", linkedList(h.svc.LinkedIssues))
	g.DELETE("/issues", deleteByIDs(h.svc.DeleteIssues))
}

// pushBatch builds the handler for a batch push of one record type. The
// owning facility comes from the caller's token, never the payload.
func pushBatch[T any](set func(context.Context, int, []*T) (*BatchResult, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var items []*T
		if err := c.Bind(&items); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		res, err := set(ctx, auth.FacilityFromContext(ctx), items)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, res)
	}
}

// linkedList builds the handler for the consent-filtered linked read of one
// record type.
func linkedList[T any](list func(context.Context, int, int) ([]T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		demographicID, err := strconv.Atoi(c.Param("demographicId"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid demographic id")
		}

		items, err := list(ctx, auth.FacilityFromContext(ctx), demographicID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if items == nil {
			items = []T{}
		}
		return c.JSON(http.StatusOK, items)
	}
}

type deleteIDsRequest struct {
	IDs []int `json:"ids"`
}

// deleteByIDs builds the handler for a per-id delete of the caller's own
// cached records. Absent ids are skipped, so re-sending a delete is safe.
func deleteByIDs(del func(context.Context, int, []int) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req deleteIDsRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if err := del(ctx, auth.FacilityFromContext(ctx), req.IDs); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// singleRecord builds the handler for a composite-key fetch of one record.
// Consent denials and misses both come back as 404.
func singleRecord[T any](get func(context.Context, int, int, int) (*T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		facilityID, err := strconv.Atoi(c.Param("facilityId"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
		}
		recordID, err := strconv.Atoi(c.Param("recordId"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
		}

		rec, err := get(ctx, auth.FacilityFromContext(ctx), facilityID, recordID)
		if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrDocumentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, rec)
	}
}

type documentContentsRequest struct {
	Contents []byte `json:"contents"`
}

func (h *Handler) SetDocumentContents(c echo.Context) error {
	ctx := c.Request().Context()

	documentID, err := strconv.Atoi(c.Param("documentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}

	var req documentContentsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Contents) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "contents are required")
	}

	err = h.svc.SetDocumentContents(ctx, auth.FacilityFromContext(ctx), documentID, req.Contents)
	if errors.Is(err, ErrDocumentNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetDocumentContents(c echo.Context) error {
	ctx := c.Request().Context()

	facilityID, err := strconv.Atoi(c.Param("facilityId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
	}
	documentID, err := strconv.Atoi(c.Param("documentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}

	contents, err := h.svc.GetDocumentContents(ctx, auth.FacilityFromContext(ctx), facilityID, documentID)
	if errors.Is(err, ErrDocumentNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, documentContentsRequest{Contents: contents})
}
