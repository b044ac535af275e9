package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/config"
)

func postJSON(t *testing.T, h echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

// Validation failures are rejected before any repository access, so these
// run against a handler with no database behind it.
func TestAuthHandler_Register_Validation(t *testing.T) {
	h := NewAuthHandler(config.Config{}, nil, nil)

	cases := map[string]string{
		"empty body":     `{}`,
		"missing name":   `{"email":"a@b.c","password":"pw","role":"staff"}`,
		"missing email":  `{"name":"A","password":"pw","role":"staff"}`,
		"unknown role":   `{"name":"A","email":"a@b.c","password":"pw","role":"admin"}`,
		"uppercase junk": `{"name":"A","email":"a@b.c","password":"pw","role":"SUPERUSER"}`,
	}
	for name, body := range cases {
		if rec := postJSON(t, h.Register, "/v1/auth/register", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestAuthHandler_Login_Validation(t *testing.T) {
	h := NewAuthHandler(config.Config{}, nil, nil)
	if rec := postJSON(t, h.Login, "/v1/auth/login", `{"email":"a@b.c"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthHandler_Logout_RequiresToken(t *testing.T) {
	h := NewAuthHandler(config.Config{}, nil, nil)
	if rec := postJSON(t, h.Logout, "/v1/auth/logout", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
