package quest

import (
	"sort"

	"github.com/wattquest/wattquest/internal/domain"
)

// Analyzer scores a user's usage snapshot against the template catalogue
// and emits ranked opportunities. Pure computation: the same snapshot always
// produces the same ordered list.
type Analyzer struct {
	registry *Registry
}

// NewAnalyzer creates an analyzer over the given registry.
func NewAnalyzer(registry *Registry) *Analyzer {
	return &Analyzer{registry: registry}
}

// Heuristic rule thresholds and priority weights (1–10), domain-tuned.
const (
	heavyDeviceKWh   = 5.0  // a device averaging more than this is a reduction candidate
	targetEfficiency = 8.0  // efficiency score users are nudged toward
	peakTotalKWh     = 10.0 // daily total above this makes peak shaving worthwhile
	highTotalKWh     = 30.0 // whole-home reduction threshold
	coolingHeavyKWh  = 3.0  // AC averaging more than this drives cooling quests

	prioPeakShaving = 9
	prioHeavyDevice = 8
	prioEfficiency  = 7
	prioHighTotal   = 6
	prioCooling     = 5
)

// Analyze emits opportunities for the eligible templates, ranked by
// priority*10 + potential descending. Ties are broken by template
// registration order.
func (a *Analyzer) Analyze(snapshot domain.UsageSnapshot, eligible []domain.QuestTemplate) []domain.Opportunity {
	var opps []domain.Opportunity

	for _, tmpl := range eligible {
		switch tmpl.Category {
		case "device_usage", "reduction":
			for _, dev := range snapshot.Devices {
				if dev.AvgDailyKWh > heavyDeviceKWh {
					opps = append(opps, domain.Opportunity{
						TemplateID: tmpl.ID,
						Priority:   prioHeavyDevice,
						Potential:  dev.AvgDailyKWh - heavyDeviceKWh,
						Context: domain.OpportunityContext{
							DeviceID:   dev.DeviceID,
							DeviceType: dev.DeviceType,
							Metric:     "avg_daily_kwh",
							Value:      dev.AvgDailyKWh,
						},
					})
				}
			}
			// Whole-home reduction when the aggregate runs high.
			if tmpl.Category == "reduction" && snapshot.TotalDailyKWh > highTotalKWh {
				opps = append(opps, domain.Opportunity{
					TemplateID: tmpl.ID,
					Priority:   prioHighTotal,
					Potential:  snapshot.TotalDailyKWh - highTotalKWh,
					Context: domain.OpportunityContext{
						Metric: "total_daily_kwh",
						Value:  snapshot.TotalDailyKWh,
					},
				})
			}

		case "efficiency":
			if snapshot.EfficiencyScore < targetEfficiency {
				opps = append(opps, domain.Opportunity{
					TemplateID: tmpl.ID,
					Priority:   prioEfficiency,
					Potential:  targetEfficiency - snapshot.EfficiencyScore,
					Context: domain.OpportunityContext{
						Metric: "efficiency_score",
						Value:  snapshot.EfficiencyScore,
					},
				})
			}

		case "peak_shaving":
			if snapshot.PeakHour >= 18 && snapshot.PeakHour < 22 && snapshot.TotalDailyKWh > peakTotalKWh {
				opps = append(opps, domain.Opportunity{
					TemplateID: tmpl.ID,
					Priority:   prioPeakShaving,
					Potential:  snapshot.TotalDailyKWh - peakTotalKWh,
					Context: domain.OpportunityContext{
						Metric: "peak_hour",
						Value:  float64(snapshot.PeakHour),
					},
				})
			}

		case "cooling":
			for _, dev := range snapshot.Devices {
				if dev.DeviceType == "ac" && dev.AvgDailyKWh > coolingHeavyKWh {
					opps = append(opps, domain.Opportunity{
						TemplateID: tmpl.ID,
						Priority:   prioCooling,
						Potential:  dev.AvgDailyKWh - coolingHeavyKWh,
						Context: domain.OpportunityContext{
							DeviceID:   dev.DeviceID,
							DeviceType: dev.DeviceType,
							Metric:     "avg_daily_kwh",
							Value:      dev.AvgDailyKWh,
						},
					})
				}
			}
		}
	}

	// Stable sort keeps registration order for equal scores: the eligible
	// slice is already in registration order, so ties stay deterministic.
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].Score() > opps[j].Score()
	})
	return opps
}
