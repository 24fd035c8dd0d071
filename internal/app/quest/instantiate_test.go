package quest

import (
	"strings"
	"testing"
	"time"

	"github.com/wattquest/wattquest/internal/domain"
)

func TestInstantiate_ReduceConsumption(t *testing.T) {
	r := NewRegistry()
	in := NewInstantiator(r)
	now := time.Now()

	tmpl, _ := r.Template("weekly-consumption-cut")
	opp := domain.Opportunity{
		TemplateID: tmpl.ID,
		Priority:   prioHeavyDevice,
		Potential:  7,
		Context: domain.OpportunityContext{
			DeviceID: "hvac-1", DeviceType: "ac", Metric: "avg_daily_kwh", Value: 12,
		},
	}

	q, err := in.Instantiate("alice", tmpl, opp, now)
	if err != nil {
		t.Fatalf("Instantiate() error: %v", err)
	}
	if q.Status != domain.StatusAvailable {
		t.Errorf("Status = %q, want available", q.Status)
	}
	if q.Baseline != 12 {
		t.Errorf("Baseline = %v, want 12", q.Baseline)
	}
	if q.Target != 9.6 {
		t.Errorf("Target = %v, want 9.6 (20%% cut)", q.Target)
	}
	if !q.ValidUntil.Equal(now.Add(168 * time.Hour)) {
		t.Errorf("ValidUntil = %v, want now+168h", q.ValidUntil)
	}
	if q.DeviceID != "hvac-1" {
		t.Errorf("DeviceID = %q, want hvac-1", q.DeviceID)
	}
	if strings.Contains(q.Title, "{") {
		t.Errorf("Title has unfilled placeholder: %q", q.Title)
	}
	if strings.Contains(q.Description, "{") {
		t.Errorf("Description has unfilled placeholder: %q", q.Description)
	}
}

func TestInstantiate_StreakTargets(t *testing.T) {
	r := NewRegistry()
	in := NewInstantiator(r)

	tests := []struct {
		templateID string
		wantTarget float64
	}{
		{"ac-temperature-optimization", 3}, // weekly
		{"daily-peak-dodger", 1},           // daily
		{"challenge-night-owl", 5},         // challenge
	}
	for _, tt := range tests {
		tmpl, err := r.Template(tt.templateID)
		if err != nil {
			t.Fatalf("Template(%s) error: %v", tt.templateID, err)
		}
		q, err := in.Instantiate("alice", tmpl, domain.Opportunity{TemplateID: tmpl.ID}, time.Now())
		if err != nil {
			t.Fatalf("Instantiate(%s) error: %v", tt.templateID, err)
		}
		if q.Target != tt.wantTarget {
			t.Errorf("%s: Target = %v, want %v days", tt.templateID, q.Target, tt.wantTarget)
		}
		if len(q.Conditions) == 0 {
			t.Errorf("%s: conditions should carry over from the template", tt.templateID)
		}
	}
}

func TestRewardFor(t *testing.T) {
	tests := []struct {
		name       string
		base       int
		difficulty domain.Difficulty
		potential  float64
		want       int
	}{
		{"no potential, medium", 100, domain.DifficultyMedium, 0, 100},
		{"potential scales", 100, domain.DifficultyMedium, 10, 150}, // 1 + 10/20 = 1.5
		{"potential capped at 2x", 100, domain.DifficultyMedium, 100, 200},
		{"easy discount", 100, domain.DifficultyEasy, 0, 80},
		{"hard premium", 100, domain.DifficultyHard, 0, 120},
		{"combined", 150, domain.DifficultyHard, 10, 270}, // 150 * 1.5 * 1.2
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := domain.QuestTemplate{BaseReward: tt.base, Difficulty: tt.difficulty}
			opp := domain.Opportunity{Potential: tt.potential}
			if got := RewardFor(tmpl, opp); got != tt.want {
				t.Errorf("RewardFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInstantiate_EfficiencyTarget(t *testing.T) {
	r := NewRegistry()
	in := NewInstantiator(r)

	tmpl, _ := r.Template("weekly-efficiency-push")

	q, err := in.Instantiate("alice", tmpl, domain.Opportunity{
		TemplateID: tmpl.ID,
		Context:    domain.OpportunityContext{Metric: "efficiency_score", Value: 6.0},
	}, time.Now())
	if err != nil {
		t.Fatalf("Instantiate() error: %v", err)
	}
	if q.Target != 8.0 {
		t.Errorf("Target = %v, want 8.0", q.Target)
	}

	// Already past the standard target: nudge half a point higher.
	q, _ = in.Instantiate("alice", tmpl, domain.Opportunity{
		TemplateID: tmpl.ID,
		Context:    domain.OpportunityContext{Metric: "efficiency_score", Value: 8.4},
	}, time.Now())
	if q.Target != 8.9 {
		t.Errorf("Target = %v, want 8.9", q.Target)
	}
}
