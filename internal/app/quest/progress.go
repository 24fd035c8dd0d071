package quest

import (
	"math"
	"sort"

	"github.com/wattquest/wattquest/internal/domain"
)

// ─── Progress Functions ─────────────────────────────────────────────────────
// Each objective kind maps a telemetry reading to a 0–100 percentage. The
// tracker takes the max of the stored and computed value, so these functions
// may freely return lower numbers for off readings.

// computeProgress returns the progress percentage implied by the reading
// and records the observed value on the primary objective. Streak-style
// objectives additionally mutate q's day-counting bookkeeping.
func computeProgress(q *domain.Quest, r domain.Reading) float64 {
	switch q.ObjectiveKind() {
	case domain.ObjectiveReduceConsumption, domain.ObjectiveDeviceUsageThreshold:
		observed := dailyKWh(q, r)
		setObjectiveCurrent(q, observed)
		return gapProgress(q.Baseline, q.Target, observed, false)
	case domain.ObjectiveEfficiencyThreshold:
		observed := r.EfficiencyScore()
		setObjectiveCurrent(q, observed)
		return gapProgress(q.Baseline, q.Target, observed, true)
	case domain.ObjectiveStreak, domain.ObjectiveTimeWindowCompliance:
		pct := streakProgress(q, r)
		setObjectiveCurrent(q, float64(q.StreakDays))
		return pct
	}
	return q.Percentage
}

// setObjectiveCurrent stores the latest observed value on the primary
// objective. Infinite values (quest device absent from the reading) are
// skipped; they cannot round-trip through JSON.
func setObjectiveCurrent(q *domain.Quest, v float64) {
	if len(q.Objectives) == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return
	}
	q.Objectives[0].Current = v
}

// dailyKWh projects the reading's instantaneous draw to a daily figure,
// scoped to the quest's device when one is attached.
func dailyKWh(q *domain.Quest, r domain.Reading) float64 {
	power := r.PowerW
	if q.DeviceID != "" {
		d, ok := r.Device(q.DeviceID)
		if !ok {
			return math.Inf(1) // device absent, no credit
		}
		power = d.PowerW
	}
	return power * 24 / 1000
}

// gapProgress measures how far observed has moved from baseline toward
// target. With increasing=false the target sits below the baseline
// (consumption cuts); with increasing=true it sits above (efficiency).
func gapProgress(baseline, target, observed float64, increasing bool) float64 {
	if increasing {
		if target <= baseline {
			if observed >= target {
				return 100
			}
			return 0
		}
		return clampPct((observed - baseline) / (target - baseline) * 100)
	}
	if target >= baseline {
		if observed <= target {
			return 100
		}
		return 0
	}
	return clampPct((baseline - observed) / (baseline - target) * 100)
}

// streakProgress counts distinct qualifying days. A day qualifies once all
// quest conditions hold for a reading on that day; progress is
// floor(days/target*100) so a 3-day quest steps 33 → 66 → 100. Counted days
// are kept as a set so a delayed reading from an already-credited day
// cannot count it twice.
func streakProgress(q *domain.Quest, r domain.Reading) float64 {
	if conditionsMet(q, r) {
		day := r.Timestamp.UTC().Format("2006-01-02")
		if !q.DayCounted(day) {
			q.QualifyingDays = append(q.QualifyingDays, day)
			sort.Strings(q.QualifyingDays)
			q.StreakDays = len(q.QualifyingDays)
		}
	}
	target := q.Target
	if target <= 0 {
		target = 1
	}
	return clampPct(math.Floor(float64(q.StreakDays) / target * 100))
}

// conditionsMet reports whether the reading satisfies every quest condition.
// A condition with a time window only qualifies readings inside the window.
func conditionsMet(q *domain.Quest, r domain.Reading) bool {
	if len(q.Conditions) == 0 {
		return false
	}
	for _, c := range q.Conditions {
		if c.Window != nil && !c.Window.Contains(r.Timestamp) {
			return false
		}
		observed, ok := observe(q, c, r)
		if !ok || !c.Operator.Compare(observed, c.Threshold) {
			return false
		}
	}
	return true
}

// observe resolves the metric a condition inspects from the reading.
func observe(q *domain.Quest, c domain.Condition, r domain.Reading) (float64, bool) {
	switch c.Kind {
	case domain.CondTotalPower:
		return r.PowerW, true
	case domain.CondPowerFactor:
		return r.PowerFactor, true
	case domain.CondDevicePower, domain.CondDeviceSetpoint:
		d, ok := conditionDevice(q, c, r)
		if !ok {
			return 0, false
		}
		if c.Kind == domain.CondDeviceSetpoint {
			return d.SetpointC, true
		}
		return d.PowerW, true
	}
	return 0, false
}

// conditionDevice picks the device a condition refers to: the quest's own
// device when bound, otherwise the first device matching the condition's
// type filter.
func conditionDevice(q *domain.Quest, c domain.Condition, r domain.Reading) (domain.DeviceReading, bool) {
	if q.DeviceID != "" {
		return r.Device(q.DeviceID)
	}
	for _, d := range r.Devices {
		if c.DeviceType == "" || d.DeviceType == c.DeviceType {
			return d, true
		}
	}
	return domain.DeviceReading{}, false
}

// crossedMilestones returns the milestone thresholds passed when moving
// from oldPct to newPct, excluding ones the quest already paid.
func crossedMilestones(q *domain.Quest, oldPct, newPct float64) []int {
	var crossed []int
	for _, m := range domain.Milestones {
		if oldPct < float64(m) && newPct >= float64(m) && !q.MilestoneAwarded(m) {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// clampPct bounds v to [0, 100] and snaps it to two decimal places so a
// reading sitting exactly on a milestone boundary does not land at
// 49.999999999999964 and miss it.
func clampPct(v float64) float64 {
	v = math.Round(v*100) / 100
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
