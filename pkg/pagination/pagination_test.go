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
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"explicit", "limit=50&offset=10", 50, 10},
		{"capped at max", "limit=5000", MaxLimit, 0},
		{"negative limit", "limit=-5", DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(t, tt.query)
			if p.Limit != tt.wantLimit {
				t.Errorf("limit: expected %d, got %d", tt.wantLimit, p.Limit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("offset: expected %d, got %d", tt.wantOffset, p.Offset)
			}
		})
	}
}

func TestResponseHasMore(t *testing.T) {
	r := NewResponse(nil, 100, 20, 60)
	if !r.HasMore {
		t.Error("expected has_more at offset 60 of 100")
	}
	r = NewResponse(nil, 100, 20, 80)
	if r.HasMore {
		t.Error("expected no more at offset 80 of 100")
	}
}

func TestParamsSQL(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if got := p.SQL(); got != "LIMIT 20 OFFSET 40" {
		t.Errorf("unexpected SQL clause: %s", got)
	}
}
