package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rbxgroups/ranking-system/internal/core/ports"
)

// SessionHandler controls the upstream Roblox session lifecycle.
type SessionHandler struct {
	service ports.RankingService
	log     zerolog.Logger
}

func NewSessionHandler(service ports.RankingService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{service: service, log: log}
}

type sessionResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Reset handles POST /v1/session/reset. It drops the current upstream
// session and authenticates from scratch, returning the bot identity the
// fresh session resolved to.
//
// @Summary      Re-authenticate the upstream session
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      502  {object}  map[string]string
// @Router       /v1/session/reset [post]
func (h *SessionHandler) Reset(c echo.Context) error {
	username, _, err := ctxOperator(c)
	if err != nil {
		return err
	}

	identity, err := h.service.ResetSession(c.Request().Context())
	if err != nil {
		return err
	}

	h.log.Info().
		Str("operator", username).
		Int64("bot_user_id", identity.UserID).
		Msg("session reset")

	return c.JSON(http.StatusOK, sessionResponse{
		UserID:   identity.UserID,
		Username: identity.Username,
	})
}
