package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContextDefaultsAndClamps(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("defaults = %+v", p)
	}

	p = paramsFor(t, "limit=5000&offset=-3")
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want clamped to %d", p.Limit, MaxLimit)
	}
	if p.Offset != 0 {
		t.Errorf("negative offset should clamp to 0, got %d", p.Offset)
	}

	p = paramsFor(t, "limit=25&offset=50")
	if p.Limit != 25 || p.Offset != 50 {
		t.Errorf("params = %+v", p)
	}
}

func TestResponseHasMore(t *testing.T) {
	r := NewResponse(nil, 100, 20, 60)
	if !r.HasMore {
		t.Error("60+20 < 100, expected more pages")
	}
	r = NewResponse(nil, 100, 20, 80)
	if r.HasMore {
		t.Error("80+20 == 100, expected no more pages")
	}
}
