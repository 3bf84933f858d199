package ports

import (
	"context"
	"time"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

// MemberRankResult is the current standing of a subject in the group.
type MemberRankResult struct {
	Subject domain.Subject
	Role    domain.RankRole
}

// RankChangeResult reports a completed rank mutation.
type RankChangeResult struct {
	Subject  domain.Subject
	Previous domain.RankRole
	New      domain.RankRole
}

// BanResult reports a recorded rank ban.
type BanResult struct {
	Subject   domain.Subject
	ExpiresAt time.Time
}

// SuspensionResult reports a completed suspension.
type SuspensionResult struct {
	Subject        domain.Subject
	PreviousRole   domain.RankRole
	SuspensionRole domain.RankRole
	ExpiresAt      time.Time
}

// RankingService defines the operator-facing use cases. Identifiers are
// accepted ambiguously (numeric ID or username) and resolved to a canonical
// numeric ID before any state is touched; durations are the string forms
// accepted by duration.Parse.
type RankingService interface {
	ResolveSubject(ctx context.Context, identifier string) (domain.Subject, error)
	MemberRank(ctx context.Context, identifier string) (*MemberRankResult, error)

	// SetMemberRank assigns a role directly. Rejected with domain.ErrRankBanned
	// while an active ban record exists for the subject.
	SetMemberRank(ctx context.Context, identifier string, roleID int64) (*RankChangeResult, error)

	// IssueBan records a time-bound rank ban. An existing active ban is
	// overwritten (extend/override semantics).
	IssueBan(ctx context.Context, identifier, durationStr string) (*BanResult, error)

	// IssueSuspension demotes the subject to the configured suspension rank
	// and records the original role for later restoration. Fails when the
	// subject is not a member, the suspension rank is missing from the
	// catalog, or the subject is already at or below it.
	IssueSuspension(ctx context.Context, identifier, durationStr string) (*SuspensionResult, error)

	// GroupRoles returns the cached catalog sorted by ascending rank level.
	GroupRoles() []domain.RankRole

	SetShout(ctx context.Context, message string) error
	ClearShout(ctx context.Context) error

	// ResetSession discards the upstream session and builds a fresh one.
	ResetSession(ctx context.Context) (domain.Identity, error)
}
