package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type setRankCall struct {
	subjectID int64
	roleID    int64
}

type stubGroupClient struct {
	identity domain.Identity
	roles    map[string]domain.RankRole
	subjects map[string]domain.Subject // keyed by username
	ranks    map[int64]domain.RankRole // current role per member

	resolveCalls int
	setCalls     []setRankCall
	setErr       error
	initCalls    int
	initErr      error
	shout        string
}

func newStubGroupClient() *stubGroupClient {
	return &stubGroupClient{
		identity: domain.Identity{UserID: 555, Username: "GroupBot"},
		roles: map[string]domain.RankRole{
			"Guest":    {ID: 10, Name: "Guest", Level: 0},
			"Customer": {ID: 11, Name: "Customer", Level: 10},
			"Member":   {ID: 12, Name: "Member", Level: 50},
			"Owner":    {ID: 13, Name: "Owner", Level: 255},
		},
		subjects: map[string]domain.Subject{
			"Alice": {ID: 1001, Username: "Alice"},
			"Bob":   {ID: 2002, Username: "Bob"},
		},
		ranks: map[int64]domain.RankRole{
			1001: {ID: 12, Name: "Member", Level: 50},
		},
	}
}

func (c *stubGroupClient) Initialize(context.Context) (domain.Identity, error) {
	c.initCalls++
	if c.initErr != nil {
		return domain.Identity{}, c.initErr
	}
	return c.identity, nil
}

func (c *stubGroupClient) ResolveSubject(_ context.Context, identifier string) (domain.Subject, error) {
	c.resolveCalls++
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		for _, sub := range c.subjects {
			if sub.ID == id {
				return sub, nil
			}
		}
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	if sub, ok := c.subjects[identifier]; ok {
		return sub, nil
	}
	return domain.Subject{}, domain.ErrSubjectNotFound
}

func (c *stubGroupClient) MemberRank(_ context.Context, subjectID int64) (domain.RankRole, error) {
	role, ok := c.ranks[subjectID]
	if !ok {
		return domain.RankRole{}, domain.ErrNotInGroup
	}
	return role, nil
}

func (c *stubGroupClient) SetRank(_ context.Context, subjectID, roleID int64) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.setCalls = append(c.setCalls, setRankCall{subjectID: subjectID, roleID: roleID})
	for _, role := range c.roles {
		if role.ID == roleID {
			c.ranks[subjectID] = role
			return nil
		}
	}
	return nil
}

func (c *stubGroupClient) SetShout(_ context.Context, message string) error {
	c.shout = message
	return nil
}

func (c *stubGroupClient) Roles() map[string]domain.RankRole { return c.roles }
func (c *stubGroupClient) Identity() domain.Identity         { return c.identity }

type stubMembershipStore struct {
	bans        map[int64]domain.BanRecord
	suspensions map[int64]domain.SuspensionRecord
	persists    int
	putErr      error
}

func newStubMembershipStore() *stubMembershipStore {
	return &stubMembershipStore{
		bans:        make(map[int64]domain.BanRecord),
		suspensions: make(map[int64]domain.SuspensionRecord),
	}
}

func (s *stubMembershipStore) PutBan(_ context.Context, subjectID int64, expiresAt time.Time) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.bans[subjectID] = domain.BanRecord{SubjectID: subjectID, ExpiresAt: expiresAt}
	s.persists++
	return nil
}

func (s *stubMembershipStore) PutSuspension(_ context.Context, rec domain.SuspensionRecord) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.suspensions[rec.SubjectID] = rec
	s.persists++
	return nil
}

func (s *stubMembershipStore) RemoveBan(_ context.Context, subjectID int64) error {
	delete(s.bans, subjectID)
	s.persists++
	return nil
}

func (s *stubMembershipStore) RemoveSuspension(_ context.Context, subjectID int64) error {
	delete(s.suspensions, subjectID)
	s.persists++
	return nil
}

func (s *stubMembershipStore) ActiveBan(subjectID int64) (domain.BanRecord, bool) {
	rec, ok := s.bans[subjectID]
	return rec, ok
}

func (s *stubMembershipStore) ActiveSuspension(subjectID int64) (domain.SuspensionRecord, bool) {
	rec, ok := s.suspensions[subjectID]
	return rec, ok
}

func (s *stubMembershipStore) ListExpired(now time.Time) ([]domain.BanRecord, []domain.SuspensionRecord) {
	var bans []domain.BanRecord
	for _, rec := range s.bans {
		if rec.Expired(now) {
			bans = append(bans, rec)
		}
	}
	var suspensions []domain.SuspensionRecord
	for _, rec := range s.suspensions {
		if rec.Expired(now) {
			suspensions = append(suspensions, rec)
		}
	}
	return bans, suspensions
}

func (s *stubMembershipStore) RemoveExpired(_ context.Context, banIDs, suspensionIDs []int64) error {
	if len(banIDs) == 0 && len(suspensionIDs) == 0 {
		return nil
	}
	for _, id := range banIDs {
		delete(s.bans, id)
	}
	for _, id := range suspensionIDs {
		delete(s.suspensions, id)
	}
	s.persists++
	return nil
}

type stubNameCache struct {
	entries map[string]int64
	getErr  error
}

func newStubNameCache() *stubNameCache {
	return &stubNameCache{entries: make(map[string]int64)}
}

func (c *stubNameCache) Get(_ context.Context, username string) (int64, bool, error) {
	if c.getErr != nil {
		return 0, false, c.getErr
	}
	id, ok := c.entries[username]
	return id, ok, nil
}

func (c *stubNameCache) Put(_ context.Context, username string, id int64) error {
	c.entries[username] = id
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newRankingSvc(client *stubGroupClient, store *stubMembershipStore, names *stubNameCache) *RankingService {
	return NewRankingService(client, store, names, "Customer", zerolog.Nop())
}

// ---------------------------------------------------------------------------
// ResolveSubject
// ---------------------------------------------------------------------------

func TestResolveSubject_CacheHitSkipsUpstream(t *testing.T) {
	client := newStubGroupClient()
	names := newStubNameCache()
	names.entries["Alice"] = 1001
	svc := newRankingSvc(client, newStubMembershipStore(), names)

	sub, err := svc.ResolveSubject(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("ResolveSubject: %v", err)
	}
	if sub.ID != 1001 {
		t.Fatalf("unexpected subject: %+v", sub)
	}
	if client.resolveCalls != 0 {
		t.Fatalf("expected no upstream calls on cache hit, got %d", client.resolveCalls)
	}
}

func TestResolveSubject_MissPopulatesCache(t *testing.T) {
	client := newStubGroupClient()
	names := newStubNameCache()
	svc := newRankingSvc(client, newStubMembershipStore(), names)

	if _, err := svc.ResolveSubject(context.Background(), "Alice"); err != nil {
		t.Fatalf("ResolveSubject: %v", err)
	}
	if names.entries["Alice"] != 1001 {
		t.Fatalf("expected resolution cached, got %v", names.entries)
	}
}

func TestResolveSubject_CacheFailureFallsBack(t *testing.T) {
	client := newStubGroupClient()
	names := newStubNameCache()
	names.getErr = errors.New("redis down")
	svc := newRankingSvc(client, newStubMembershipStore(), names)

	sub, err := svc.ResolveSubject(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("ResolveSubject: %v", err)
	}
	if sub.ID != 1001 || client.resolveCalls != 1 {
		t.Fatalf("expected upstream fallback, subject=%+v calls=%d", sub, client.resolveCalls)
	}
}

func TestResolveSubject_NumericBypassesCache(t *testing.T) {
	client := newStubGroupClient()
	svc := newRankingSvc(client, newStubMembershipStore(), newStubNameCache())

	sub, err := svc.ResolveSubject(context.Background(), "1001")
	if err != nil {
		t.Fatalf("ResolveSubject: %v", err)
	}
	if sub.Username != "Alice" {
		t.Fatalf("expected numeric id validated upstream, got %+v", sub)
	}
}

// ---------------------------------------------------------------------------
// SetMemberRank
// ---------------------------------------------------------------------------

func TestSetMemberRank_RejectedWhileBanned(t *testing.T) {
	client := newStubGroupClient()
	store := newStubMembershipStore()
	svc := newRankingSvc(client, store, newStubNameCache())

	_ = store.PutBan(context.Background(), 1001, time.Now().Add(time.Hour))

	_, err := svc.SetMemberRank(context.Background(), "Alice", 13)
	if !errors.Is(err, domain.ErrRankBanned) {
		t.Fatalf("expected ErrRankBanned, got %v", err)
	}
	if len(client.setCalls) != 0 {
		t.Fatalf("no mutation should reach upstream while banned")
	}
}

func TestSetMemberRank_ExpiredBanDoesNotBlock(t *testing.T) {
	client := newStubGroupClient()
	store := newStubMembershipStore()
	svc := newRankingSvc(client, store, newStubNameCache())

	// Expired but not yet reaped by the loop.
	_ = store.PutBan(context.Background(), 1001, time.Now().Add(-time.Minute))

	result, err := svc.SetMemberRank(context.Background(), "Alice", 13)
	if err != nil {
		t.Fatalf("SetMemberRank: %v", err)
	}
	if result.New.Name != "Owner" || result.Previous.Name != "Member" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSetMemberRank_UnknownRole(t *testing.T) {
	svc := newRankingSvc(newStubGroupClient(), newStubMembershipStore(), newStubNameCache())

	_, err := svc.SetMemberRank(context.Background(), "Alice", 9999)
	if !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// IssueBan
// ---------------------------------------------------------------------------

func TestIssueBan_RecordsExpiry(t *testing.T) {
	client := newStubGroupClient()
	store := newStubMembershipStore()
	svc := newRankingSvc(client, store, newStubNameCache())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	result, err := svc.IssueBan(context.Background(), "Bob", "1d")
	if err != nil {
		t.Fatalf("IssueBan: %v", err)
	}
	want := base.Add(24 * time.Hour)
	if !result.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, result.ExpiresAt)
	}

	rec, ok := store.ActiveBan(2002)
	if !ok || !rec.ExpiresAt.Equal(want) {
		t.Fatalf("expected persisted ban %v, got %+v (ok=%v)", want, rec, ok)
	}
}

func TestIssueBan_InvalidDuration(t *testing.T) {
	store := newStubMembershipStore()
	svc := newRankingSvc(newStubGroupClient(), store, newStubNameCache())

	for _, dur := range []string{"", "0s", "-1h", "week"} {
		if _, err := svc.IssueBan(context.Background(), "Bob", dur); !errors.Is(err, domain.ErrInvalidDuration) {
			t.Fatalf("duration %q: expected ErrInvalidDuration, got %v", dur, err)
		}
	}
	if len(store.bans) != 0 {
		t.Fatalf("invalid durations must not create records")
	}
}

func TestIssueBan_OverwritesActiveBan(t *testing.T) {
	store := newStubMembershipStore()
	svc := newRankingSvc(newStubGroupClient(), store, newStubNameCache())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.IssueBan(context.Background(), "Bob", "1h"); err != nil {
		t.Fatalf("first ban: %v", err)
	}
	if _, err := svc.IssueBan(context.Background(), "Bob", "1d"); err != nil {
		t.Fatalf("second ban: %v", err)
	}

	rec, _ := store.ActiveBan(2002)
	if !rec.ExpiresAt.Equal(base.Add(24 * time.Hour)) {
		t.Fatalf("expected the later expiry to win, got %v", rec.ExpiresAt)
	}
	if len(store.bans) != 1 {
		t.Fatalf("at most one active ban per subject, got %d", len(store.bans))
	}
}

func TestIssueBan_UnknownSubject(t *testing.T) {
	svc := newRankingSvc(newStubGroupClient(), newStubMembershipStore(), newStubNameCache())

	if _, err := svc.IssueBan(context.Background(), "Nobody", "1h"); !errors.Is(err, domain.ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// IssueSuspension
// ---------------------------------------------------------------------------

func TestIssueSuspension_DemotesAndRecordsOriginal(t *testing.T) {
	client := newStubGroupClient()
	store := newStubMembershipStore()
	svc := newRankingSvc(client, store, newStubNameCache())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	result, err := svc.IssueSuspension(context.Background(), "Alice", "30m")
	if err != nil {
		t.Fatalf("IssueSuspension: %v", err)
	}
	if result.PreviousRole.Name != "Member" || result.SuspensionRole.Name != "Customer" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.ExpiresAt.Equal(base.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", result.ExpiresAt)
	}

	// Upstream rank reflects the suspension immediately.
	if client.ranks[1001].Name != "Customer" {
		t.Fatalf("expected Alice demoted upstream, got %+v", client.ranks[1001])
	}

	rec, ok := store.ActiveSuspension(1001)
	if !ok {
		t.Fatalf("expected suspension record")
	}
	if rec.OriginalRoleID != 12 || rec.OriginalRole != "Member" {
		t.Fatalf("expected original rank recorded, got %+v", rec)
	}
}

func TestIssueSuspension_IneligibleRank(t *testing.T) {
	client := newStubGroupClient()
	client.ranks[1001] = client.roles["Customer"] // already at the suspension rank
	store := newStubMembershipStore()
	svc := newRankingSvc(client, store, newStubNameCache())

	_, err := svc.IssueSuspension(context.Background(), "Alice", "30m")
	if !errors.Is(err, domain.ErrIneligibleRank) {
		t.Fatalf("expected ErrIneligibleRank, got %v", err)
	}
	if len(client.setCalls) != 0 || len(store.suspensions) != 0 {
		t.Fatalf("rejection must produce no state change")
	}
}

func TestIssueSuspension_NotAMember(t *testing.T) {
	svc := newRankingSvc(newStubGroupClient(), newStubMembershipStore(), newStubNameCache())

	// Bob resolves but holds no role in the group.
	if _, err := svc.IssueSuspension(context.Background(), "Bob", "30m"); !errors.Is(err, domain.ErrNotInGroup) {
		t.Fatalf("expected ErrNotInGroup, got %v", err)
	}
}

func TestIssueSuspension_SuspensionRankMissing(t *testing.T) {
	client := newStubGroupClient()
	delete(client.roles, "Customer")
	svc := newRankingSvc(client, newStubMembershipStore(), newStubNameCache())

	if _, err := svc.IssueSuspension(context.Background(), "Alice", "30m"); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestIssueSuspension_UpstreamFailureLeavesNoRecord(t *testing.T) {
	client := newStubGroupClient()
	client.setErr = errors.New("roblox 500")
	store := newStubMembershipStore()
	svc := newRankingSvc(client, store, newStubNameCache())

	if _, err := svc.IssueSuspension(context.Background(), "Alice", "30m"); err == nil {
		t.Fatalf("expected error when demotion fails upstream")
	}
	if len(store.suspensions) != 0 {
		t.Fatalf("no record may exist when the demotion never happened")
	}
}

// ---------------------------------------------------------------------------
// Misc
// ---------------------------------------------------------------------------

func TestGroupRoles_SortedByLevel(t *testing.T) {
	svc := newRankingSvc(newStubGroupClient(), newStubMembershipStore(), newStubNameCache())

	roles := svc.GroupRoles()
	if len(roles) != 4 {
		t.Fatalf("expected 4 roles, got %d", len(roles))
	}
	for i := 1; i < len(roles); i++ {
		if roles[i-1].Level > roles[i].Level {
			t.Fatalf("roles not sorted by level: %+v", roles)
		}
	}
}

func TestClearShout(t *testing.T) {
	client := newStubGroupClient()
	svc := newRankingSvc(client, newStubMembershipStore(), newStubNameCache())

	_ = svc.SetShout(context.Background(), "hello")
	if client.shout != "hello" {
		t.Fatalf("shout not set")
	}
	_ = svc.ClearShout(context.Background())
	if client.shout != "" {
		t.Fatalf("shout not cleared")
	}
}

func TestResetSession(t *testing.T) {
	client := newStubGroupClient()
	svc := newRankingSvc(client, newStubMembershipStore(), newStubNameCache())

	identity, err := svc.ResetSession(context.Background())
	if err != nil {
		t.Fatalf("ResetSession: %v", err)
	}
	if identity.Username != "GroupBot" || client.initCalls != 1 {
		t.Fatalf("expected re-initialization, identity=%+v calls=%d", identity, client.initCalls)
	}

	client.initErr = domain.ErrAuthFailed
	if _, err := svc.ResetSession(context.Background()); !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}
