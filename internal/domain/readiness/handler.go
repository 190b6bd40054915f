package readiness

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
	readGroup.GET("/visits/:id/readiness", h.Get)

	scoreGroup := api.Group("", auth.RequireRole(auth.RoleNP, auth.RoleCoder, auth.RoleAdmin))
	scoreGroup.POST("/visits/:id/readiness/score", h.Score)

	coderGroup := api.Group("", auth.RequireRole(auth.RoleCoder, auth.RoleAdmin))
	coderGroup.POST("/visits/:id/readiness/override", h.Override)
}

func (h *Handler) Score(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.Score(c.Request().Context(), visitID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Get(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.Get(c.Request().Context(), visitID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "visit has not been scored")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type overrideRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Override(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req overrideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	result, err := h.svc.Override(c.Request().Context(), visitID, actor, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrNeverScored):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrReasonRequired), errors.Is(err, ErrNotFailed):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, result)
}
