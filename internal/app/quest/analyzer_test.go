package quest

import (
	"reflect"
	"testing"

	"github.com/wattquest/wattquest/internal/domain"
)

func heavySnapshot() domain.UsageSnapshot {
	return domain.UsageSnapshot{
		UserID: "alice",
		Devices: []domain.DeviceUsage{
			{DeviceID: "hvac-1", DeviceType: "ac", AvgDailyKWh: 12},
			{DeviceID: "fridge-1", DeviceType: "fridge", AvgDailyKWh: 2},
		},
		PeakHour:        19,
		TotalDailyKWh:   35,
		EfficiencyScore: 6.0,
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	r := NewRegistry()
	a := NewAnalyzer(r)
	eligible := r.EligibleFor(10, nil)

	first := a.Analyze(heavySnapshot(), eligible)
	if len(first) == 0 {
		t.Fatal("Analyze() produced no opportunities for a heavy snapshot")
	}
	for i := 0; i < 10; i++ {
		again := a.Analyze(heavySnapshot(), eligible)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: Analyze() output differs from first run", i)
		}
	}
}

func TestAnalyze_RankedByScore(t *testing.T) {
	r := NewRegistry()
	a := NewAnalyzer(r)

	opps := a.Analyze(heavySnapshot(), r.EligibleFor(10, nil))
	for i := 1; i < len(opps); i++ {
		if opps[i-1].Score() < opps[i].Score() {
			t.Fatalf("opportunities not sorted: %v before %v", opps[i-1].Score(), opps[i].Score())
		}
	}

	// Evening peak with a heavy total outranks everything else.
	if opps[0].Priority != prioPeakShaving {
		t.Errorf("top opportunity priority = %d, want %d (peak shaving)", opps[0].Priority, prioPeakShaving)
	}
}

func TestAnalyze_TiesKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	a := NewAnalyzer(r)

	// Both peak_shaving templates emit identically scored opportunities.
	opps := a.Analyze(heavySnapshot(), r.EligibleFor(10, nil))

	var peakTemplates []string
	for _, o := range opps {
		if o.Priority == prioPeakShaving {
			peakTemplates = append(peakTemplates, o.TemplateID)
		}
	}
	if len(peakTemplates) < 2 {
		t.Fatalf("want 2 peak-shaving opportunities, got %v", peakTemplates)
	}
	if r.RegistrationIndex(peakTemplates[0]) > r.RegistrationIndex(peakTemplates[1]) {
		t.Errorf("tied opportunities out of registration order: %v", peakTemplates)
	}
}

func TestAnalyze_QuietSnapshotYieldsNothing(t *testing.T) {
	r := NewRegistry()
	a := NewAnalyzer(r)

	quiet := domain.UsageSnapshot{
		UserID: "bob",
		Devices: []domain.DeviceUsage{
			{DeviceID: "fridge-1", DeviceType: "fridge", AvgDailyKWh: 1.5},
		},
		PeakHour:        10,
		TotalDailyKWh:   5,
		EfficiencyScore: 9.0,
	}
	if opps := a.Analyze(quiet, r.EligibleFor(10, nil)); len(opps) != 0 {
		t.Errorf("Analyze(quiet) = %v, want none", opps)
	}
}

func TestAnalyze_EfficiencyGap(t *testing.T) {
	r := NewRegistry()
	a := NewAnalyzer(r)

	s := heavySnapshot()
	s.EfficiencyScore = 5.0

	var found bool
	for _, o := range a.Analyze(s, r.EligibleFor(10, nil)) {
		if o.Priority == prioEfficiency {
			found = true
			if o.Potential != 3.0 {
				t.Errorf("efficiency potential = %v, want 3.0", o.Potential)
			}
		}
	}
	if !found {
		t.Error("no efficiency opportunity for a low score")
	}
}
