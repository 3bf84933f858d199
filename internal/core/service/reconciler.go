package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbxgroups/ranking-system/internal/core/ports"
	"github.com/rbxgroups/ranking-system/internal/pkg/metrics"
)

const defaultReconcileInterval = 5 * time.Minute

// Reconciler is the system's only autonomous actor: a periodic pass over the
// membership store that turns expired records into corrective actions.
// Expired bans are simply removed (a ban has no upstream counterpart);
// expired suspensions trigger a rank restoration upstream and are removed
// only when that call succeeds. A failed restoration leaves the record in
// place for the next pass — leaving the subject suspended is the safe
// degraded state.
type Reconciler struct {
	store    ports.MembershipStore
	client   ports.GroupClient
	interval time.Duration
	now      func() time.Time
	inPass   atomic.Bool
	log      zerolog.Logger
}

// NewReconciler creates a Reconciler. If interval <= 0 the default of five
// minutes is used; record durations are human-scale, so coarse ticks are
// fine.
func NewReconciler(store ports.MembershipStore, client ports.GroupClient, interval time.Duration, log zerolog.Logger) *Reconciler {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	return &Reconciler{
		store:    store,
		client:   client,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Start launches the periodic loop. It stops when ctx is cancelled. Ticks
// that fire while a pass is still running are skipped, never queued.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.RunOnce(ctx); err != nil {
					r.log.Error().Err(err).Msg("reconciliation pass failed")
				}
			}
		}
	}()
}

// RunOnce executes a single reconciliation pass. Safe to call concurrently
// with the loop; an overlapping call returns immediately.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if !r.inPass.CompareAndSwap(false, true) {
		metrics.ReconcilePassesTotal.WithLabelValues("skipped").Inc()
		r.log.Debug().Msg("previous reconciliation pass still running, skipping")
		return nil
	}
	defer r.inPass.Store(false)

	now := r.now()
	expiredBans, expiredSuspensions := r.store.ListExpired(now)

	banIDs := make([]int64, 0, len(expiredBans))
	for _, rec := range expiredBans {
		banIDs = append(banIDs, rec.SubjectID)
		r.log.Info().Int64("subject_id", rec.SubjectID).Msg("rank ban expired")
	}

	restored := make([]int64, 0, len(expiredSuspensions))
	for _, rec := range expiredSuspensions {
		if err := r.client.SetRank(ctx, rec.SubjectID, rec.OriginalRoleID); err != nil {
			metrics.RankMutationsTotal.WithLabelValues("restore", "error").Inc()
			metrics.ReconcileRestoreFailuresTotal.Inc()
			r.log.Error().Err(err).
				Int64("subject_id", rec.SubjectID).
				Int64("original_role_id", rec.OriginalRoleID).
				Msg("failed to restore rank, will retry next pass")
			continue
		}
		metrics.RankMutationsTotal.WithLabelValues("restore", "ok").Inc()
		restored = append(restored, rec.SubjectID)
		r.log.Info().
			Int64("subject_id", rec.SubjectID).
			Str("original_role", rec.OriginalRole).
			Msg("suspension expired, rank restored")
	}

	if len(banIDs) == 0 && len(restored) == 0 {
		metrics.ReconcilePassesTotal.WithLabelValues("ok").Inc()
		return nil
	}

	// One persist for the whole batch.
	if err := r.store.RemoveExpired(ctx, banIDs, restored); err != nil {
		metrics.ReconcilePassesTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.ReconcileExpiredTotal.WithLabelValues("ban").Add(float64(len(banIDs)))
	metrics.ReconcileExpiredTotal.WithLabelValues("suspension").Add(float64(len(restored)))
	metrics.ReconcilePassesTotal.WithLabelValues("ok").Inc()

	r.log.Info().
		Int("bans", len(banIDs)).
		Int("suspensions", len(restored)).
		Msg("reconciliation pass committed")
	return nil
}
