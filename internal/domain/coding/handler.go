package coding

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebridge/visitengine/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleNP, auth.RoleCoder, auth.RoleAdmin))
	readGroup.GET("/visits/:id/codes", h.ListCodes)

	npGroup := api.Group("", auth.RequireRole(auth.RoleNP, auth.RoleAdmin))
	npGroup.POST("/visits/:id/codes/generate", h.Regenerate)
	npGroup.POST("/visits/:id/codes", h.AddCode)
	npGroup.POST("/codes/:id/remove", h.RemoveCode)
	npGroup.POST("/codes/:id/swap", h.SwapCode)

	coderGroup := api.Group("", auth.RequireRole(auth.RoleCoder, auth.RoleAdmin))
	coderGroup.POST("/codes/:id/verify", h.VerifyCode)
}

func (h *Handler) Regenerate(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	codes, err := h.svc.Regenerate(c.Request().Context(), visitID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, codes)
}

func (h *Handler) ListCodes(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	codes, err := h.svc.ListByVisit(c.Request().Context(), visitID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, codes)
}

func (h *Handler) AddCode(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var code VisitCode
	if err := c.Bind(&code); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code.VisitID = visitID
	if err := h.svc.AddCode(c.Request().Context(), &code); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, code)
}

func (h *Handler) RemoveCode(c echo.Context) error {
	codeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	code, err := h.svc.RemoveCode(c.Request().Context(), codeID, actor)
	if err != nil {
		return codeOpError(err)
	}
	return c.JSON(http.StatusOK, code)
}

func (h *Handler) SwapCode(c echo.Context) error {
	codeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var replacement VisitCode
	if err := c.Bind(&replacement); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	code, err := h.svc.SwapCode(c.Request().Context(), codeID, &replacement, actor)
	if err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return codeOpError(err)
	}
	return c.JSON(http.StatusOK, code)
}

func (h *Handler) VerifyCode(c echo.Context) error {
	codeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	code, err := h.svc.VerifyCode(c.Request().Context(), codeID, actor)
	if err != nil {
		return codeOpError(err)
	}
	return c.JSON(http.StatusOK, code)
}

func codeOpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "code not found")
	case errors.Is(err, ErrCodeRemoved):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
