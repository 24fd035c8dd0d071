package quest

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/wattquest/wattquest/internal/domain"
)

func reduceQuest(baseline, target float64) *domain.Quest {
	return &domain.Quest{
		ID:       "q1",
		Baseline: baseline,
		Target:   target,
		Objectives: []domain.Objective{
			{Kind: domain.ObjectiveReduceConsumption, Target: target, Unit: "kwh"},
		},
	}
}

func TestGapProgress(t *testing.T) {
	tests := []struct {
		name       string
		baseline   float64
		target     float64
		observed   float64
		increasing bool
		want       float64
	}{
		{"no movement", 10, 8, 10, false, 0},
		{"halfway", 10, 8, 9, false, 50},
		{"at target", 10, 8, 8, false, 100},
		{"beyond target clamps", 10, 8, 5, false, 100},
		{"regression clamps to zero", 10, 8, 12, false, 0},
		{"degenerate target above baseline met", 8, 10, 9, false, 100},
		{"degenerate target above baseline unmet", 8, 10, 11, false, 0},
		{"efficiency halfway", 6, 8, 7, true, 50},
		{"efficiency at target", 6, 8, 8, true, 100},
		{"efficiency below baseline", 6, 8, 5, true, 0},
		{"degenerate efficiency target met", 8, 7, 7.5, true, 100},
		{"boundary value snaps to milestone", 12, 9.6, 10.8, false, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gapProgress(tt.baseline, tt.target, tt.observed, tt.increasing)
			if got != tt.want {
				t.Errorf("gapProgress(%v, %v, %v, %v) = %v, want %v",
					tt.baseline, tt.target, tt.observed, tt.increasing, got, tt.want)
			}
		})
	}
}

func TestComputeProgress_ReduceConsumption(t *testing.T) {
	q := reduceQuest(12, 9.6) // daily kWh
	// 450 W sustained projects to 10.8 kWh/day: half the 12 → 9.6 gap.
	r := domain.Reading{Timestamp: time.Now(), PowerW: 450}
	if got := computeProgress(q, r); got != 50 {
		t.Errorf("computeProgress() = %v, want 50", got)
	}
	if got := q.Objectives[0].Current; got != 10.8 {
		t.Errorf("Objectives[0].Current = %v, want 10.8", got)
	}
}

func TestDailyKWh_DeviceScoped(t *testing.T) {
	q := reduceQuest(12, 9.6)
	q.DeviceID = "hvac-1"

	r := domain.Reading{
		PowerW: 2000,
		Devices: []domain.DeviceReading{
			{DeviceID: "hvac-1", DeviceType: "ac", PowerW: 500},
		},
	}
	if got := dailyKWh(q, r); got != 12 {
		t.Errorf("dailyKWh() = %v, want 12 (device draw, not household)", got)
	}

	// Device missing from the breakdown: no credit.
	r.Devices = nil
	if got := dailyKWh(q, r); !math.IsInf(got, 1) {
		t.Errorf("dailyKWh() with absent device = %v, want +Inf", got)
	}
	if got := computeProgress(q, r); got != 0 {
		t.Errorf("computeProgress() with absent device = %v, want 0", got)
	}
	if got := q.Objectives[0].Current; got != 0 {
		t.Errorf("Objectives[0].Current after absent device = %v, want untouched 0", got)
	}
}

func TestStreakProgress_CountsDistinctDays(t *testing.T) {
	q := &domain.Quest{
		ID:     "q1",
		Target: 3,
		Objectives: []domain.Objective{
			{Kind: domain.ObjectiveStreak, Target: 3, Unit: "days"},
		},
		Conditions: []domain.Condition{
			{Kind: domain.CondDeviceSetpoint, Operator: domain.OpGTE, Threshold: 24, DeviceType: "ac"},
		},
	}
	day := func(d int) time.Time {
		return time.Date(2026, 3, d, 20, 0, 0, 0, time.UTC)
	}
	qualifying := func(d int) domain.Reading {
		return domain.Reading{
			Timestamp: day(d),
			Devices: []domain.DeviceReading{
				{DeviceID: "hvac-1", DeviceType: "ac", PowerW: 900, SetpointC: 25},
			},
		}
	}

	if got := computeProgress(q, qualifying(1)); got != 33 {
		t.Errorf("day 1: progress = %v, want 33", got)
	}
	// Same day again: dedup, no extra credit.
	if got := computeProgress(q, qualifying(1)); got != 33 {
		t.Errorf("day 1 repeat: progress = %v, want 33", got)
	}
	if got := computeProgress(q, qualifying(2)); got != 66 {
		t.Errorf("day 2: progress = %v, want 66", got)
	}
	if got := computeProgress(q, qualifying(3)); got != 100 {
		t.Errorf("day 3: progress = %v, want 100", got)
	}
	if q.StreakDays != 3 {
		t.Errorf("StreakDays = %d, want 3", q.StreakDays)
	}

	// A setpoint below 24 never counts.
	cold := qualifying(4)
	cold.Devices[0].SetpointC = 21
	if got := computeProgress(q, cold); got != 100 {
		t.Errorf("non-qualifying day: progress = %v, want unchanged 100", got)
	}
	if q.StreakDays != 3 {
		t.Errorf("StreakDays after non-qualifying reading = %d, want 3", q.StreakDays)
	}
}

func TestStreakProgress_OutOfOrderDays(t *testing.T) {
	q := &domain.Quest{
		ID:     "q1",
		Target: 3,
		Objectives: []domain.Objective{
			{Kind: domain.ObjectiveStreak, Target: 3, Unit: "days"},
		},
		Conditions: []domain.Condition{
			{Kind: domain.CondDeviceSetpoint, Operator: domain.OpGTE, Threshold: 24, DeviceType: "ac"},
		},
	}
	qualifying := func(d int) domain.Reading {
		return domain.Reading{
			Timestamp: time.Date(2026, 3, d, 20, 0, 0, 0, time.UTC),
			Devices: []domain.DeviceReading{
				{DeviceID: "hvac-1", DeviceType: "ac", PowerW: 900, SetpointC: 25},
			},
		}
	}

	// Delayed delivery interleaves days: 3, then 2, then 3 again. The
	// repeat of day 3 must not count as a third distinct day.
	computeProgress(q, qualifying(3))
	computeProgress(q, qualifying(2))
	got := computeProgress(q, qualifying(3))

	if q.StreakDays != 2 {
		t.Errorf("StreakDays = %d, want 2", q.StreakDays)
	}
	if got != 66 {
		t.Errorf("progress = %v, want 66", got)
	}
	if !reflect.DeepEqual(q.QualifyingDays, []string{"2026-03-02", "2026-03-03"}) {
		t.Errorf("QualifyingDays = %v, want sorted pair", q.QualifyingDays)
	}
}

func TestConditionsMet_TimeWindow(t *testing.T) {
	q := &domain.Quest{
		ID:     "q1",
		Target: 1,
		Objectives: []domain.Objective{
			{Kind: domain.ObjectiveTimeWindowCompliance, Target: 1, Unit: "days"},
		},
		Conditions: []domain.Condition{
			{
				Kind: domain.CondTotalPower, Operator: domain.OpLTE, Threshold: 1500,
				Window: &domain.TimeWindow{StartHour: 18, EndHour: 22},
			},
		},
	}
	at := func(hour int) domain.Reading {
		return domain.Reading{
			Timestamp: time.Date(2026, 3, 1, hour, 30, 0, 0, time.UTC),
			PowerW:    1200,
		}
	}

	if conditionsMet(q, at(14)) {
		t.Error("reading outside the window should not qualify")
	}
	if !conditionsMet(q, at(19)) {
		t.Error("compliant reading inside the window should qualify")
	}

	heavy := at(19)
	heavy.PowerW = 2400
	if conditionsMet(q, heavy) {
		t.Error("over-threshold reading should not qualify")
	}
}

func TestConditionsMet_NoConditions(t *testing.T) {
	q := &domain.Quest{ID: "q1"}
	if conditionsMet(q, domain.Reading{PowerW: 100}) {
		t.Error("a quest with no conditions has nothing to satisfy")
	}
}

func TestCrossedMilestones(t *testing.T) {
	tests := []struct {
		name    string
		awarded []int
		oldPct  float64
		newPct  float64
		want    []int
	}{
		{"none crossed", nil, 0, 20, nil},
		{"first", nil, 0, 30, []int{25}},
		{"jump across two", nil, 20, 60, []int{25, 50}},
		{"all at once", nil, 0, 100, []int{25, 50, 75}},
		{"already paid excluded", []int{25}, 20, 60, []int{50}},
		{"exact boundary counts", nil, 24, 25, []int{25}},
		{"no regression credit", nil, 80, 80, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &domain.Quest{Milestones: tt.awarded}
			got := crossedMilestones(q, tt.oldPct, tt.newPct)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("crossedMilestones(%v → %v) = %v, want %v", tt.oldPct, tt.newPct, got, tt.want)
			}
		})
	}
}
