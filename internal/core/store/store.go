// Package store implements the durable membership state store: an in-memory
// record set guarded by a single mutex, written through to a StateRepository
// after every mutation. Slow external calls never happen under the lock;
// services commit records only after the upstream outcome is known.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
	"github.com/rbxgroups/ranking-system/internal/core/ports"
)

// MembershipStore implements ports.MembershipStore.
type MembershipStore struct {
	mu    sync.Mutex
	state *domain.MembershipState
	repo  ports.StateRepository
	log   zerolog.Logger
}

// New returns an empty store for the given group. Call Load to restore
// persisted records before serving traffic.
func New(groupID int64, repo ports.StateRepository, log zerolog.Logger) *MembershipStore {
	return &MembershipStore{
		state: domain.NewMembershipState(groupID),
		repo:  repo,
		log:   log,
	}
}

// Load replaces the in-memory state with the persisted one.
func (s *MembershipStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.Load(ctx, s.state.GroupID)
	if err != nil {
		return fmt.Errorf("load membership state: %w", err)
	}
	if state.Bans == nil {
		state.Bans = make(map[int64]domain.BanRecord)
	}
	if state.Suspensions == nil {
		state.Suspensions = make(map[int64]domain.SuspensionRecord)
	}
	s.state = state

	s.log.Info().
		Int("bans", len(state.Bans)).
		Int("suspensions", len(state.Suspensions)).
		Msg("membership state loaded")
	return nil
}

// PutBan records a ban, overwriting any existing ban for the subject.
func (s *MembershipStore) PutBan(ctx context.Context, subjectID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.state.Bans[subjectID]
	s.state.Bans[subjectID] = domain.BanRecord{SubjectID: subjectID, ExpiresAt: expiresAt}

	if err := s.persistLocked(ctx); err != nil {
		if existed {
			s.state.Bans[subjectID] = prev
		} else {
			delete(s.state.Bans, subjectID)
		}
		return err
	}
	return nil
}

// PutSuspension records a suspension, overwriting any existing one.
func (s *MembershipStore) PutSuspension(ctx context.Context, rec domain.SuspensionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.state.Suspensions[rec.SubjectID]
	s.state.Suspensions[rec.SubjectID] = rec

	if err := s.persistLocked(ctx); err != nil {
		if existed {
			s.state.Suspensions[rec.SubjectID] = prev
		} else {
			delete(s.state.Suspensions, rec.SubjectID)
		}
		return err
	}
	return nil
}

// RemoveBan deletes the subject's ban record, if any.
func (s *MembershipStore) RemoveBan(ctx context.Context, subjectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.state.Bans[subjectID]
	if !existed {
		return nil
	}
	delete(s.state.Bans, subjectID)

	if err := s.persistLocked(ctx); err != nil {
		s.state.Bans[subjectID] = prev
		return err
	}
	return nil
}

// RemoveSuspension deletes the subject's suspension record, if any.
func (s *MembershipStore) RemoveSuspension(ctx context.Context, subjectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.state.Suspensions[subjectID]
	if !existed {
		return nil
	}
	delete(s.state.Suspensions, subjectID)

	if err := s.persistLocked(ctx); err != nil {
		s.state.Suspensions[subjectID] = prev
		return err
	}
	return nil
}

// ActiveBan returns the subject's ban record, if any.
func (s *MembershipStore) ActiveBan(subjectID int64) (domain.BanRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.Bans[subjectID]
	return rec, ok
}

// ActiveSuspension returns the subject's suspension record, if any.
func (s *MembershipStore) ActiveSuspension(subjectID int64) (domain.SuspensionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.Suspensions[subjectID]
	return rec, ok
}

// ListExpired returns every record whose expiry is at or before now.
func (s *MembershipStore) ListExpired(now time.Time) ([]domain.BanRecord, []domain.SuspensionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bans []domain.BanRecord
	for _, rec := range s.state.Bans {
		if rec.Expired(now) {
			bans = append(bans, rec)
		}
	}

	var suspensions []domain.SuspensionRecord
	for _, rec := range s.state.Suspensions {
		if rec.Expired(now) {
			suspensions = append(suspensions, rec)
		}
	}
	return bans, suspensions
}

// RemoveExpired deletes the given records and persists once for the batch.
// Nothing is persisted when both slices are empty.
func (s *MembershipStore) RemoveExpired(ctx context.Context, banIDs, suspensionIDs []int64) error {
	if len(banIDs) == 0 && len(suspensionIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removedBans := make(map[int64]domain.BanRecord, len(banIDs))
	for _, id := range banIDs {
		if rec, ok := s.state.Bans[id]; ok {
			removedBans[id] = rec
			delete(s.state.Bans, id)
		}
	}
	removedSuspensions := make(map[int64]domain.SuspensionRecord, len(suspensionIDs))
	for _, id := range suspensionIDs {
		if rec, ok := s.state.Suspensions[id]; ok {
			removedSuspensions[id] = rec
			delete(s.state.Suspensions, id)
		}
	}
	if len(removedBans) == 0 && len(removedSuspensions) == 0 {
		return nil
	}

	if err := s.persistLocked(ctx); err != nil {
		for id, rec := range removedBans {
			s.state.Bans[id] = rec
		}
		for id, rec := range removedSuspensions {
			s.state.Suspensions[id] = rec
		}
		return err
	}
	return nil
}

// persistLocked snapshots the state and hands it to the repository. The
// caller holds s.mu and rolls back on error.
func (s *MembershipStore) persistLocked(ctx context.Context) error {
	snapshot := domain.NewMembershipState(s.state.GroupID)
	for id, rec := range s.state.Bans {
		snapshot.Bans[id] = rec
	}
	for id, rec := range s.state.Suspensions {
		snapshot.Suspensions[id] = rec
	}

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.log.Error().Err(err).Msg("failed to persist membership state")
		return fmt.Errorf("persist membership state: %w", err)
	}
	return nil
}
