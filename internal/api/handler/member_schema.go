package handler

import (
	"time"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
	"github.com/rbxgroups/ranking-system/internal/core/ports"
)

// --- Request / Response types ---

type roleResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type memberRankResponse struct {
	UserID   int64        `json:"user_id"`
	Username string       `json:"username"`
	Role     roleResponse `json:"role"`
}

type setRankRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

type rankChangeResponse struct {
	UserID       int64        `json:"user_id"`
	Username     string       `json:"username"`
	PreviousRole roleResponse `json:"previous_role"`
	NewRole      roleResponse `json:"new_role"`
}

type penaltyRequest struct {
	Duration string `json:"duration" validate:"required"`
}

type banResponse struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at"`
}

type suspensionResponse struct {
	UserID         int64        `json:"user_id"`
	Username       string       `json:"username"`
	PreviousRole   roleResponse `json:"previous_role"`
	SuspensionRole roleResponse `json:"suspension_role"`
	ExpiresAt      string       `json:"expires_at"`
}

// --- Mapping helpers ---

func toRoleResponse(r domain.RankRole) roleResponse {
	return roleResponse{ID: r.ID, Name: r.Name, Level: r.Level}
}

func toMemberRankResponse(res *ports.MemberRankResult) memberRankResponse {
	return memberRankResponse{
		UserID:   res.Subject.ID,
		Username: res.Subject.Username,
		Role:     toRoleResponse(res.Role),
	}
}

func toRankChangeResponse(res *ports.RankChangeResult) rankChangeResponse {
	return rankChangeResponse{
		UserID:       res.Subject.ID,
		Username:     res.Subject.Username,
		PreviousRole: toRoleResponse(res.Previous),
		NewRole:      toRoleResponse(res.New),
	}
}

func toBanResponse(res *ports.BanResult) banResponse {
	return banResponse{
		UserID:    res.Subject.ID,
		Username:  res.Subject.Username,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func toSuspensionResponse(res *ports.SuspensionResult) suspensionResponse {
	return suspensionResponse{
		UserID:         res.Subject.ID,
		Username:       res.Subject.Username,
		PreviousRole:   toRoleResponse(res.PreviousRole),
		SuspensionRole: toRoleResponse(res.SuspensionRole),
		ExpiresAt:      res.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
