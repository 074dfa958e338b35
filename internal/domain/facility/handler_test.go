package facility

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/emr/integrator/internal/platform/auth"
)

func TestTouchConnectedMiddleware(t *testing.T) {
	repo := newMockFacilityRepo()
	svc := NewService(repo)
	ctx := context.Background()

	f := &Facility{Name: "North Clinic", Enabled: true}
	if err := svc.Register(ctx, f); err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	g := e.Group("/api/v1")
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqCtx := context.WithValue(c.Request().Context(), auth.FacilityIDKey, f.ID)
			c.SetRequest(c.Request().WithContext(reqCtx))
			return next(c)
		}
	})
	g.Use(TouchConnectedMiddleware(svc, zerolog.Nop()))
	g.GET("/facilities", NewHandler(svc).ListFacilities)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got, err := svc.Get(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastConnected == nil {
		t.Error("calling a routed handler must stamp last_connected")
	}
}

func TestTouchConnectedMiddlewareSkipsAnonymous(t *testing.T) {
	repo := newMockFacilityRepo()
	svc := NewService(repo)

	e := echo.New()
	e.Use(TouchConnectedMiddleware(svc, zerolog.Nop()))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("request without a facility must pass through, status = %d", rec.Code)
	}
}
