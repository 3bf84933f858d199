package ports

import (
	"context"
	"time"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

// MembershipStore is the durable collection of ban and suspension records.
// Every mutating operation persists before returning; a failed persist rolls
// the in-memory change back and returns the error, so a committed operation
// is always durable.
type MembershipStore interface {
	// PutBan records a ban, overwriting any existing ban for the subject.
	PutBan(ctx context.Context, subjectID int64, expiresAt time.Time) error

	// PutSuspension records a suspension, overwriting any existing one.
	PutSuspension(ctx context.Context, rec domain.SuspensionRecord) error

	RemoveBan(ctx context.Context, subjectID int64) error
	RemoveSuspension(ctx context.Context, subjectID int64) error

	// ActiveBan returns the subject's ban record, if any. Pure read.
	ActiveBan(subjectID int64) (domain.BanRecord, bool)

	// ActiveSuspension returns the subject's suspension record, if any.
	ActiveSuspension(subjectID int64) (domain.SuspensionRecord, bool)

	// ListExpired returns every record whose expiry is at or before now.
	// Pure read, no side effects.
	ListExpired(now time.Time) ([]domain.BanRecord, []domain.SuspensionRecord)

	// RemoveExpired deletes the given records and persists once for the whole
	// batch. Used by the reconciliation loop.
	RemoveExpired(ctx context.Context, banIDs, suspensionIDs []int64) error
}

// StateRepository stores the membership state as one durable record. Save is
// all-or-nothing: a reader that reloads afterward sees either the previous
// state or the given one, never a mix.
type StateRepository interface {
	// Load returns the persisted state, or an empty state when none has been
	// written yet.
	Load(ctx context.Context, groupID int64) (*domain.MembershipState, error)
	Save(ctx context.Context, state *domain.MembershipState) error
}
