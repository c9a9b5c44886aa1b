package analytics

import (
	"sort"
	"time"
)

const (
	DimensionAttorney   = "attorney"
	DimensionStaffClass = "staffClass"
	DimensionFirm       = "firm"
)

// TrendEntry is one historical rate observation.
type TrendEntry struct {
	AttorneyID   string    `json:"attorney_id"`
	StaffClassID string    `json:"staff_class_id"`
	FirmID       string    `json:"firm_id"`
	Amount       float64   `json:"amount"`
	EffectiveAt  time.Time `json:"effective_at"`
}

type TrendPoint struct {
	Year        int     `json:"year"`
	Amount      float64 `json:"amount"`
	IncreasePct float64 `json:"increase_pct"`
}

type TrendSeries struct {
	Points          []TrendPoint `json:"points"`
	AverageIncrease float64      `json:"average_increase"`
	CAGR            float64      `json:"cagr"`
}

// HistoricalTrends groups rate history by the chosen dimension, sorts each
// group chronologically, and computes the year-over-year increase series,
// average increase, and CAGR per group. Unknown dimensions yield an empty map.
func HistoricalTrends(entries []TrendEntry, dimension string) map[string]TrendSeries {
	keyFn := trendKey(dimension)
	if keyFn == nil {
		return map[string]TrendSeries{}
	}
	groups := map[string][]TrendEntry{}
	for _, e := range entries {
		key := keyFn(e)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], e)
	}
	out := make(map[string]TrendSeries, len(groups))
	for key, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].EffectiveAt.Before(group[j].EffectiveAt)
		})
		out[key] = buildSeries(group)
	}
	return out
}

func trendKey(dimension string) func(TrendEntry) string {
	switch dimension {
	case DimensionAttorney:
		return func(e TrendEntry) string { return e.AttorneyID }
	case DimensionStaffClass:
		return func(e TrendEntry) string { return e.StaffClassID }
	case DimensionFirm:
		return func(e TrendEntry) string { return e.FirmID }
	default:
		return nil
	}
}

func buildSeries(group []TrendEntry) TrendSeries {
	series := TrendSeries{}
	var increases []float64
	for i, e := range group {
		point := TrendPoint{Year: e.EffectiveAt.Year(), Amount: e.Amount}
		if i > 0 {
			point.IncreasePct = Increase(group[i-1].Amount, e.Amount) * 100
			increases = append(increases, point.IncreasePct)
		}
		series.Points = append(series.Points, point)
	}
	series.AverageIncrease = Mean(increases)
	if len(group) >= 2 {
		first, last := group[0], group[len(group)-1]
		series.CAGR = CAGR(first.Amount, last.Amount, first.EffectiveAt, last.EffectiveAt)
	}
	return series
}

// Increase mirrors the rule validator's fractional increase: current <= 0 is
// reported as a 100% increase.
func Increase(current, proposed float64) float64 {
	if current <= 0 {
		return 1.0
	}
	return (proposed - current) / current
}
