package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rbxgroups/ranking-system/internal/core/ports"
)

// MemberHandler handles HTTP requests targeting individual group members.
// The :identifier path segment is ambiguous (numeric user ID or username)
// and resolved by the service layer. Domain errors propagate to the central
// error handler for status mapping.
type MemberHandler struct {
	service ports.RankingService
}

func NewMemberHandler(service ports.RankingService) *MemberHandler {
	return &MemberHandler{service: service}
}

// GetRank handles GET /v1/members/:identifier/rank.
//
// @Summary      Get a member's current rank
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        identifier  path      string  true  "User ID or username"
// @Success      200         {object}  memberRankResponse
// @Failure      404         {object}  map[string]string
// @Failure      502         {object}  map[string]string
// @Router       /v1/members/{identifier}/rank [get]
func (h *MemberHandler) GetRank(c echo.Context) error {
	res, err := h.service.MemberRank(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMemberRankResponse(res))
}

// SetRank handles PUT /v1/members/:identifier/rank.
//
// @Summary      Assign a role to a member
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        identifier  path      string          true  "User ID or username"
// @Param        body        body      setRankRequest  true  "Target role"
// @Success      200         {object}  rankChangeResponse
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Failure      409         {object}  map[string]string
// @Failure      502         {object}  map[string]string
// @Router       /v1/members/{identifier}/rank [put]
func (h *MemberHandler) SetRank(c echo.Context) error {
	var req setRankRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.SetMemberRank(c.Request().Context(), c.Param("identifier"), req.RoleID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toRankChangeResponse(res))
}

// Ban handles POST /v1/members/:identifier/ban.
//
// @Summary      Issue a time-bound rank ban
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        identifier  path      string          true  "User ID or username"
// @Param        body        body      penaltyRequest  true  "Ban duration, e.g. 7d"
// @Success      201         {object}  banResponse
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Failure      500         {object}  map[string]string
// @Router       /v1/members/{identifier}/ban [post]
func (h *MemberHandler) Ban(c echo.Context) error {
	var req penaltyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.IssueBan(c.Request().Context(), c.Param("identifier"), req.Duration)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toBanResponse(res))
}

// Suspend handles POST /v1/members/:identifier/suspension.
//
// @Summary      Suspend a member
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        identifier  path      string          true  "User ID or username"
// @Param        body        body      penaltyRequest  true  "Suspension duration, e.g. 12h"
// @Success      201         {object}  suspensionResponse
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Failure      422         {object}  map[string]string
// @Failure      502         {object}  map[string]string
// @Router       /v1/members/{identifier}/suspension [post]
func (h *MemberHandler) Suspend(c echo.Context) error {
	var req penaltyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.IssueSuspension(c.Request().Context(), c.Param("identifier"), req.Duration)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toSuspensionResponse(res))
}
