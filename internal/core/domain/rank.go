package domain

import (
	"errors"
	"time"
)

// RankRole is a named tier within the Roblox group. Level is the numeric
// seniority ordering (0-255 upstream); it is distinct from the role ID and is
// the comparison key for suspension eligibility.
type RankRole struct {
	ID    int64  `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	Level int    `json:"level" bson:"level"`
}

// Subject is a group member resolved to their canonical numeric identifier.
// Persisted records key on ID only; usernames are mutable upstream.
type Subject struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Identity is the authenticated session's own resolved user.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// BanRecord blocks rank changes for a subject until ExpiresAt. A ban is a
// purely local restriction; it has no upstream counterpart.
type BanRecord struct {
	SubjectID int64     `json:"subject_id" bson:"subject_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// SuspensionRecord tracks a temporary demotion. OriginalRoleID is the role to
// restore when the suspension lapses.
type SuspensionRecord struct {
	SubjectID      int64     `json:"subject_id" bson:"subject_id"`
	ExpiresAt      time.Time `json:"expires_at" bson:"expires_at"`
	OriginalRoleID int64     `json:"original_role_id" bson:"original_role_id"`
	OriginalRole   string    `json:"original_role" bson:"original_role"`
}

// Expired reports whether the record's expiry instant is at or before now.
func (b BanRecord) Expired(now time.Time) bool { return !b.ExpiresAt.After(now) }

// Expired reports whether the record's expiry instant is at or before now.
func (s SuspensionRecord) Expired(now time.Time) bool { return !s.ExpiresAt.After(now) }

// MembershipState is the single durable record holding every active ban and
// suspension, keyed by canonical subject ID. It is written as a whole so a
// reader reopening the store sees either the old state or the new one.
type MembershipState struct {
	GroupID     int64
	Bans        map[int64]BanRecord
	Suspensions map[int64]SuspensionRecord
}

// NewMembershipState returns an empty state for the given group.
func NewMembershipState(groupID int64) *MembershipState {
	return &MembershipState{
		GroupID:     groupID,
		Bans:        make(map[int64]BanRecord),
		Suspensions: make(map[int64]SuspensionRecord),
	}
}

var (
	// ErrAuthFailed means the long-lived credential or anti-forgery token was
	// rejected upstream. The session is unusable until re-initialized.
	ErrAuthFailed = errors.New("roblox authentication failed")
	// ErrNoSession means a call was attempted before Initialize succeeded.
	ErrNoSession = errors.New("roblox session not initialized")

	ErrSubjectNotFound = errors.New("subject not found")
	ErrNotInGroup      = errors.New("subject is not a group member")
	ErrRoleNotFound    = errors.New("rank role not found")

	ErrRankBanned      = errors.New("subject is rank banned")
	ErrIneligibleRank  = errors.New("subject is already at or below the suspension rank")
	ErrInvalidDuration = errors.New("invalid duration")
)
