package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
	"github.com/rbxgroups/ranking-system/internal/core/ports"
	"github.com/rbxgroups/ranking-system/internal/pkg/duration"
	"github.com/rbxgroups/ranking-system/internal/pkg/metrics"
)

// SubjectCache abstracts the username resolution cache (Redis).
type SubjectCache interface {
	Get(ctx context.Context, username string) (int64, bool, error)
	Put(ctx context.Context, username string, id int64) error
}

// RankingService implements the operator-facing use cases.
type RankingService struct {
	client         ports.GroupClient
	store          ports.MembershipStore
	names          SubjectCache
	suspensionRank string
	now            func() time.Time
	log            zerolog.Logger
}

// NewRankingService wires the use cases. suspensionRank is the display name
// of the role suspended members are demoted to.
func NewRankingService(
	client ports.GroupClient,
	store ports.MembershipStore,
	names SubjectCache,
	suspensionRank string,
	log zerolog.Logger,
) *RankingService {
	return &RankingService{
		client:         client,
		store:          store,
		names:          names,
		suspensionRank: suspensionRank,
		now:            time.Now,
		log:            log,
	}
}

// ResolveSubject turns an ambiguous identifier (numeric ID or username) into
// a canonical subject. Username resolutions go through the cache; cache
// failures fall back to the upstream lookup.
func (s *RankingService) ResolveSubject(ctx context.Context, identifier string) (domain.Subject, error) {
	if isNumeric(identifier) {
		return s.client.ResolveSubject(ctx, identifier)
	}

	if id, ok, err := s.names.Get(ctx, identifier); err != nil {
		s.log.Warn().Err(err).Str("username", identifier).Msg("name cache lookup failed, resolving upstream")
	} else if ok {
		return domain.Subject{ID: id, Username: identifier}, nil
	}

	subject, err := s.client.ResolveSubject(ctx, identifier)
	if err != nil {
		return domain.Subject{}, err
	}
	if err := s.names.Put(ctx, subject.Username, subject.ID); err != nil {
		s.log.Warn().Err(err).Str("username", subject.Username).Msg("failed to cache name resolution")
	}
	return subject, nil
}

// MemberRank returns the subject's current role in the group.
func (s *RankingService) MemberRank(ctx context.Context, identifier string) (*ports.MemberRankResult, error) {
	subject, err := s.ResolveSubject(ctx, identifier)
	if err != nil {
		return nil, err
	}

	role, err := s.client.MemberRank(ctx, subject.ID)
	if err != nil {
		return nil, err
	}
	return &ports.MemberRankResult{Subject: subject, Role: role}, nil
}

// SetMemberRank assigns a role directly. An active ban record blocks the
// mutation before anything is sent upstream.
func (s *RankingService) SetMemberRank(ctx context.Context, identifier string, roleID int64) (*ports.RankChangeResult, error) {
	subject, err := s.ResolveSubject(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if ban, ok := s.store.ActiveBan(subject.ID); ok && !ban.Expired(s.now()) {
		return nil, fmt.Errorf("%w until %s", domain.ErrRankBanned, ban.ExpiresAt.UTC().Format(time.RFC3339))
	}

	previous, err := s.client.MemberRank(ctx, subject.ID)
	if err != nil {
		return nil, err
	}

	target, ok := s.roleByID(roleID)
	if !ok {
		return nil, fmt.Errorf("role %d: %w", roleID, domain.ErrRoleNotFound)
	}

	if err := s.client.SetRank(ctx, subject.ID, roleID); err != nil {
		metrics.RankMutationsTotal.WithLabelValues("set", "error").Inc()
		return nil, err
	}
	metrics.RankMutationsTotal.WithLabelValues("set", "ok").Inc()

	s.log.Info().
		Int64("subject_id", subject.ID).
		Str("from", previous.Name).
		Str("to", target.Name).
		Msg("rank changed")

	return &ports.RankChangeResult{Subject: subject, Previous: previous, New: target}, nil
}

// IssueBan records a time-bound rank ban. A ban is purely local state: it
// blocks future rank-change commands but needs no upstream call, and an
// existing ban is overwritten (extend/override semantics).
func (s *RankingService) IssueBan(ctx context.Context, identifier, durationStr string) (*ports.BanResult, error) {
	subject, err := s.ResolveSubject(ctx, identifier)
	if err != nil {
		return nil, err
	}

	d, err := duration.Parse(durationStr)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(d).UTC()
	if err := s.store.PutBan(ctx, subject.ID, expiresAt); err != nil {
		return nil, err
	}
	metrics.PenaltiesIssuedTotal.WithLabelValues("ban").Inc()

	s.log.Info().
		Int64("subject_id", subject.ID).
		Time("expires_at", expiresAt).
		Msg("rank ban recorded")

	return &ports.BanResult{Subject: subject, ExpiresAt: expiresAt}, nil
}

// IssueSuspension demotes the subject to the configured suspension rank and
// records the original role so the reconciliation loop can restore it.
func (s *RankingService) IssueSuspension(ctx context.Context, identifier, durationStr string) (*ports.SuspensionResult, error) {
	subject, err := s.ResolveSubject(ctx, identifier)
	if err != nil {
		return nil, err
	}

	d, err := duration.Parse(durationStr)
	if err != nil {
		return nil, err
	}

	// 1. The subject must be a member, and the suspension rank must exist.
	current, err := s.client.MemberRank(ctx, subject.ID)
	if err != nil {
		return nil, err
	}
	suspRole, ok := s.client.Roles()[s.suspensionRank]
	if !ok {
		return nil, fmt.Errorf("suspension rank %q: %w", s.suspensionRank, domain.ErrRoleNotFound)
	}

	// 2. Suspending someone at or below the suspension rank would be a no-op
	// or a promotion; reject before any mutation.
	if current.Level <= suspRole.Level {
		return nil, domain.ErrIneligibleRank
	}

	// 3. Demote upstream first; the record is committed only once the
	// external mutation is known to have succeeded.
	if err := s.client.SetRank(ctx, subject.ID, suspRole.ID); err != nil {
		metrics.RankMutationsTotal.WithLabelValues("suspend", "error").Inc()
		return nil, err
	}
	metrics.RankMutationsTotal.WithLabelValues("suspend", "ok").Inc()

	expiresAt := s.now().Add(d).UTC()
	rec := domain.SuspensionRecord{
		SubjectID:      subject.ID,
		ExpiresAt:      expiresAt,
		OriginalRoleID: current.ID,
		OriginalRole:   current.Name,
	}
	if err := s.store.PutSuspension(ctx, rec); err != nil {
		// The demotion already happened upstream. Without a durable record
		// the loop cannot restore the subject, so surface this loudly.
		s.log.Error().Err(err).
			Int64("subject_id", subject.ID).
			Int64("original_role_id", current.ID).
			Msg("suspension applied upstream but record not persisted; manual restore required")
		return nil, err
	}
	metrics.PenaltiesIssuedTotal.WithLabelValues("suspension").Inc()

	s.log.Info().
		Int64("subject_id", subject.ID).
		Str("from", current.Name).
		Str("to", suspRole.Name).
		Time("expires_at", expiresAt).
		Msg("subject suspended")

	return &ports.SuspensionResult{
		Subject:        subject,
		PreviousRole:   current,
		SuspensionRole: suspRole,
		ExpiresAt:      expiresAt,
	}, nil
}

// GroupRoles returns the cached catalog sorted by ascending rank level.
func (s *RankingService) GroupRoles() []domain.RankRole {
	catalog := s.client.Roles()
	roles := make([]domain.RankRole, 0, len(catalog))
	for _, role := range catalog {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Level < roles[j].Level })
	return roles
}

// SetShout replaces the group's public status message.
func (s *RankingService) SetShout(ctx context.Context, message string) error {
	return s.client.SetShout(ctx, message)
}

// ClearShout clears the group's public status message.
func (s *RankingService) ClearShout(ctx context.Context) error {
	return s.client.SetShout(ctx, "")
}

// ResetSession discards the upstream session and builds a fresh one.
func (s *RankingService) ResetSession(ctx context.Context) (domain.Identity, error) {
	identity, err := s.client.Initialize(ctx)
	if err != nil {
		metrics.SessionResetsTotal.WithLabelValues("error").Inc()
		return domain.Identity{}, err
	}
	metrics.SessionResetsTotal.WithLabelValues("ok").Inc()
	return identity, nil
}

func (s *RankingService) roleByID(roleID int64) (domain.RankRole, bool) {
	for _, role := range s.client.Roles() {
		if role.ID == roleID {
			return role, true
		}
	}
	return domain.RankRole{}, false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
