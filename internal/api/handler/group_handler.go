package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rbxgroups/ranking-system/internal/core/ports"
)

// GroupHandler handles group-scoped operations: the role catalog and the
// group shout.
type GroupHandler struct {
	service ports.RankingService
}

func NewGroupHandler(service ports.RankingService) *GroupHandler {
	return &GroupHandler{service: service}
}

type rolesResponse struct {
	Roles []roleResponse `json:"roles"`
}

type shoutRequest struct {
	Message string `json:"message" validate:"required,max=255"`
}

// Roles handles GET /v1/group/roles.
//
// @Summary      List the group's rank roles
// @Tags         group
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  rolesResponse
// @Failure      503  {object}  map[string]string
// @Router       /v1/group/roles [get]
func (h *GroupHandler) Roles(c echo.Context) error {
	roles := h.service.GroupRoles()
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleResponse(r))
	}
	return c.JSON(http.StatusOK, rolesResponse{Roles: out})
}

// SetShout handles PUT /v1/group/shout.
//
// @Summary      Post the group shout
// @Tags         group
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      shoutRequest  true  "Shout message"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /v1/group/shout [put]
func (h *GroupHandler) SetShout(c echo.Context) error {
	var req shoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.SetShout(c.Request().Context(), req.Message); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearShout handles DELETE /v1/group/shout.
//
// @Summary      Clear the group shout
// @Tags         group
// @Produce      json
// @Security     BearerAuth
// @Success      204
// @Failure      502  {object}  map[string]string
// @Router       /v1/group/shout [delete]
func (h *GroupHandler) ClearShout(c echo.Context) error {
	if err := h.service.ClearShout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
