package ports

import (
	"context"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

// GroupClient is the authenticated session against the external group
// management service. One instance is shared by the command path and the
// reconciliation loop; Initialize replaces the whole session (token, identity
// and role catalog together) and may be called again to recover from an
// expired credential.
type GroupClient interface {
	// Initialize negotiates an anti-forgery token, resolves the session's own
	// identity and loads the group's role catalog. A rejected credential
	// yields an error wrapping domain.ErrAuthFailed.
	Initialize(ctx context.Context) (domain.Identity, error)

	// ResolveSubject turns a numeric ID or an exact username into a canonical
	// subject. Returns domain.ErrSubjectNotFound when no such member exists.
	ResolveSubject(ctx context.Context, identifier string) (domain.Subject, error)

	// MemberRank returns the subject's current role within the configured
	// group, or domain.ErrNotInGroup when they are not a member.
	MemberRank(ctx context.Context, subjectID int64) (domain.RankRole, error)

	// SetRank assigns roleID to the subject. Non-2xx responses surface as
	// errors; the caller decides whether to retry.
	SetRank(ctx context.Context, subjectID, roleID int64) error

	// SetShout replaces the group's public status message. An empty message
	// clears it.
	SetShout(ctx context.Context, message string) error

	// Roles returns the cached role catalog keyed by display name.
	Roles() map[string]domain.RankRole

	// Identity returns the authenticated session's own user, or the zero
	// value before Initialize has succeeded.
	Identity() domain.Identity
}
