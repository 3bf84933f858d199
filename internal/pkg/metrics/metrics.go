// Package metrics defines and registers all custom Prometheus metrics for
// the ranking system. It is the single source of truth for metric names,
// labels, and help strings. Registration happens at import time via
// promauto; the HTTP layer exposes the default registry on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "grouprank"

// ── Command metrics ───────────────────────────────────────────────────────────

// RankMutationsTotal counts upstream rank mutations.
// Labels:
//   - action: "set", "suspend", "restore"
//   - result: "ok" or "error"
var RankMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rank_mutations_total",
		Help:      "Total number of rank mutations sent to the group service.",
	},
	[]string{"action", "result"},
)

// PenaltiesIssuedTotal counts recorded penalties.
// Label:
//   - kind: "ban" or "suspension"
var PenaltiesIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "penalties_issued_total",
		Help:      "Total number of rank bans and suspensions recorded.",
	},
	[]string{"kind"},
)

// SessionResetsTotal counts full session re-initializations.
// Label:
//   - result: "ok" or "error"
var SessionResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_resets_total",
		Help:      "Total number of upstream session re-initializations.",
	},
	[]string{"result"},
)

// ── Reconciliation metrics ────────────────────────────────────────────────────

// ReconcilePassesTotal counts reconciliation passes.
// Label:
//   - result: "ok", "error", or "skipped" (previous pass still running)
var ReconcilePassesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_passes_total",
		Help:      "Total number of reconciliation passes, by outcome.",
	},
	[]string{"result"},
)

// ReconcileExpiredTotal counts records reaped by the reconciliation loop.
// Label:
//   - kind: "ban" or "suspension"
var ReconcileExpiredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_expired_total",
		Help:      "Total number of expired records removed by reconciliation.",
	},
	[]string{"kind"},
)

// ReconcileRestoreFailuresTotal counts failed rank restorations. The record
// stays in place and is retried on the next pass; alert on sustained growth.
var ReconcileRestoreFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_restore_failures_total",
		Help:      "Total number of failed suspension restorations (retried next pass).",
	},
)
