// Package metrics provides Prometheus metrics for WattQuest: counters,
// gauges, and histograms for telemetry ingestion, quest lifecycle, rewards,
// and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Telemetry ──────────────────────────────────────────────────────────────

// ReadingsIngested tracks readings accepted into progress tracking.
var ReadingsIngested = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "wattquest",
	Name:      "readings_ingested_total",
	Help:      "Total telemetry readings accepted.",
})

// ReadingsThrottled tracks readings buffered by the per-quest throttle.
var ReadingsThrottled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "wattquest",
	Name:      "readings_throttled_total",
	Help:      "Total telemetry readings buffered by the throttle window.",
})

// ─── Quests ─────────────────────────────────────────────────────────────────

// QuestsGenerated tracks instantiated quests by duration class.
var QuestsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wattquest",
	Name:      "quests_generated_total",
	Help:      "Total quests instantiated.",
}, []string{"type"})

// QuestsCompleted tracks completed quests by duration class.
var QuestsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wattquest",
	Name:      "quests_completed_total",
	Help:      "Total quests completed.",
}, []string{"type"})

// QuestsExpired tracks quests that ran out their validity window.
var QuestsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "wattquest",
	Name:      "quests_expired_total",
	Help:      "Total quests expired without completion.",
})

// QuestsActive tracks currently active quests across all users.
var QuestsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "wattquest",
	Name:      "quests_active",
	Help:      "Number of currently active quests.",
})

// ─── Rewards ────────────────────────────────────────────────────────────────

// PointsAwarded tracks points credited by action kind.
var PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wattquest",
	Name:      "points_awarded_total",
	Help:      "Total points credited.",
}, []string{"action"})

// LevelUps tracks level increases.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "wattquest",
	Name:      "level_ups_total",
	Help:      "Total user level increases.",
})

// ─── Engine ─────────────────────────────────────────────────────────────────

// ProgressTickDuration tracks the duration of a progress tick.
var ProgressTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "wattquest",
	Name:      "progress_tick_seconds",
	Help:      "Duration of one progress tick.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
})

// GenerationDuration tracks the duration of a generation cycle per user.
var GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "wattquest",
	Name:      "generation_cycle_seconds",
	Help:      "Duration of one per-user generation cycle.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "wattquest",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
