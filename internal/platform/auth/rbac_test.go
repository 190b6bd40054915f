package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func roleRequest(e *echo.Echo, roles []string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	rec := httptest.NewRecorder()
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestRequireRole_AllowsMatchingRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole(RoleCoder)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if err := handler(roleRequest(e, []string{RoleCoder})); err != nil {
		t.Fatalf("coder should reach a coder route, got %v", err)
	}
}

func TestRequireRole_AdminBypassesEveryCheck(t *testing.T) {
	e := echo.New()
	handler := RequireRole(RoleNP)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if err := handler(roleRequest(e, []string{RoleAdmin})); err != nil {
		t.Fatalf("admin should pass an np-only route, got %v", err)
	}
}

func TestRequireRole_RejectsMissingRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole(RoleCoder)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	err := handler(roleRequest(e, []string{RoleNP}))
	if err == nil {
		t.Fatal("np must not reach a coder route")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
