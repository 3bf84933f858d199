package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

func newTestReconciler(store *stubMembershipStore, client *stubGroupClient, now time.Time) *Reconciler {
	r := NewReconciler(store, client, time.Minute, zerolog.Nop())
	r.now = func() time.Time { return now }
	return r
}

func TestRunOnce_RemovesExpiredBanWithoutUpstreamCall(t *testing.T) {
	client := newStubGroupClient()
	store := newStubMembershipStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = store.PutBan(context.Background(), 2002, now.Add(-time.Second))
	r := newTestReconciler(store, client, now)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, ok := store.ActiveBan(2002); ok {
		t.Fatalf("expired ban should be removed")
	}
	if len(client.setCalls) != 0 {
		t.Fatalf("ban expiry must not call upstream, got %v", client.setCalls)
	}
}

func TestRunOnce_RestoresExpiredSuspension(t *testing.T) {
	client := newStubGroupClient()
	client.ranks[1001] = client.roles["Customer"] // currently demoted
	store := newStubMembershipStore()
	now := time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC)

	_ = store.PutSuspension(context.Background(), domain.SuspensionRecord{
		SubjectID:      1001,
		ExpiresAt:      now.Add(-time.Second),
		OriginalRoleID: 12,
		OriginalRole:   "Member",
	})
	r := newTestReconciler(store, client, now)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(client.setCalls) != 1 || client.setCalls[0] != (setRankCall{subjectID: 1001, roleID: 12}) {
		t.Fatalf("expected restore call to role 12, got %v", client.setCalls)
	}
	if client.ranks[1001].Name != "Member" {
		t.Fatalf("expected Alice restored to Member, got %+v", client.ranks[1001])
	}
	if _, ok := store.ActiveSuspension(1001); ok {
		t.Fatalf("restored suspension should be removed")
	}
}

func TestRunOnce_FailedRestoreKeepsRecord(t *testing.T) {
	client := newStubGroupClient()
	client.setErr = errors.New("roblox 503")
	store := newStubMembershipStore()
	now := time.Now().UTC()

	rec := domain.SuspensionRecord{
		SubjectID:      1001,
		ExpiresAt:      now.Add(-time.Minute),
		OriginalRoleID: 12,
		OriginalRole:   "Member",
	}
	_ = store.PutSuspension(context.Background(), rec)
	r := newTestReconciler(store, client, now)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce should not fail the pass for a single restore failure: %v", err)
	}

	kept, ok := store.ActiveSuspension(1001)
	if !ok {
		t.Fatalf("record must survive a failed restore")
	}
	if kept != rec {
		t.Fatalf("record must be unchanged after a failed pass: %+v", kept)
	}

	// The next pass retries and succeeds.
	client.setErr = nil
	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry pass: %v", err)
	}
	if _, ok := store.ActiveSuspension(1001); ok {
		t.Fatalf("record should be removed once the restore succeeds")
	}
}

func TestRunOnce_UnexpiredRecordsUntouched(t *testing.T) {
	client := newStubGroupClient()
	store := newStubMembershipStore()
	now := time.Now().UTC()

	_ = store.PutBan(context.Background(), 2002, now.Add(time.Hour))
	_ = store.PutSuspension(context.Background(), domain.SuspensionRecord{
		SubjectID:      1001,
		ExpiresAt:      now.Add(time.Hour),
		OriginalRoleID: 12,
	})
	r := newTestReconciler(store, client, now)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, ok := store.ActiveBan(2002); !ok {
		t.Fatalf("unexpired ban must remain")
	}
	if _, ok := store.ActiveSuspension(1001); !ok {
		t.Fatalf("unexpired suspension must remain")
	}
}

func TestRunOnce_IdempotentWhenNothingExpires(t *testing.T) {
	client := newStubGroupClient()
	store := newStubMembershipStore()
	now := time.Now().UTC()

	_ = store.PutBan(context.Background(), 2002, now.Add(-time.Second))
	r := newTestReconciler(store, client, now)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	persists := store.persists

	// Nothing newly expired: no further mutation, no additional persist.
	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if store.persists != persists {
		t.Fatalf("idle pass must not persist, got %d extra", store.persists-persists)
	}
	if len(client.setCalls) != 0 {
		t.Fatalf("idle pass must not call upstream")
	}
}

func TestRunOnce_BatchesOnePersistForMixedExpiries(t *testing.T) {
	client := newStubGroupClient()
	client.ranks[1001] = client.roles["Customer"]
	store := newStubMembershipStore()
	now := time.Now().UTC()

	_ = store.PutBan(context.Background(), 2002, now.Add(-time.Second))
	_ = store.PutBan(context.Background(), 3003, now.Add(-time.Minute))
	_ = store.PutSuspension(context.Background(), domain.SuspensionRecord{
		SubjectID:      1001,
		ExpiresAt:      now.Add(-time.Second),
		OriginalRoleID: 12,
	})
	persistsBefore := store.persists
	r := newTestReconciler(store, client, now)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := store.persists - persistsBefore; got != 1 {
		t.Fatalf("expected one batched persist per pass, got %d", got)
	}
	if len(store.bans) != 0 || len(store.suspensions) != 0 {
		t.Fatalf("all expired records should be gone")
	}
}

func TestRunOnce_SkipsWhenPassInFlight(t *testing.T) {
	client := newStubGroupClient()
	store := newStubMembershipStore()
	now := time.Now().UTC()

	_ = store.PutBan(context.Background(), 2002, now.Add(-time.Second))
	r := newTestReconciler(store, client, now)
	r.inPass.Store(true) // simulate a pass still running

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("overlapping RunOnce must return nil, got %v", err)
	}
	if _, ok := store.ActiveBan(2002); !ok {
		t.Fatalf("skipped pass must not touch the store")
	}
}
