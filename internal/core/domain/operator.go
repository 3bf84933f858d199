package domain

import (
	"errors"
	"time"
)

// Operator permission roles. They mirror the group's moderation hierarchy:
// rankers change ranks, moderators issue suspensions, developers do
// everything (including rank bans, shouts and session resets).
const (
	RoleRanker    = "ranker"
	RoleModerator = "moderator"
	RoleDeveloper = "developer"
)

// ValidOperatorRole reports whether role is one of the known permission roles.
func ValidOperatorRole(role string) bool {
	return role == RoleRanker || role == RoleModerator || role == RoleDeveloper
}

// Operator models an authenticated human actor issuing commands.
type Operator struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOperatorExists     = errors.New("operator already exists")
	ErrOperatorNotFound   = errors.New("operator not found")
)
