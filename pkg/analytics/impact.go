package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

type ImpactBreakdown struct {
	CurrentCost  float64 `json:"current_cost"`
	ProposedCost float64 `json:"proposed_cost"`
	Impact       float64 `json:"impact"`
	Hours        float64 `json:"hours"`
}

type ImpactResult struct {
	TotalCurrentCost  float64                    `json:"total_current_cost"`
	TotalProposedCost float64                    `json:"total_proposed_cost"`
	TotalImpact       float64                    `json:"total_impact"`
	PercentageImpact  float64                    `json:"percentage_impact"`
	ByAttorney        map[string]ImpactBreakdown `json:"by_attorney"`
	ByStaffClass      map[string]ImpactBreakdown `json:"by_staff_class"`
}

// ComputeImpact estimates the cost impact of proposed rates against current
// rates using historical billed hours per attorney. Attorneys lacking both a
// current and a proposed rate are skipped entirely.
func ComputeImpact(current, proposed []models.Rate, billing []models.BillingRecord) ImpactResult {
	hours := map[string]float64{}
	for _, b := range billing {
		hours[b.AttorneyID] += b.Hours
	}
	currentBy := map[string]models.Rate{}
	for _, r := range current {
		currentBy[r.AttorneyID] = r
	}
	proposedBy := map[string]models.Rate{}
	for _, r := range proposed {
		proposedBy[r.AttorneyID] = r
	}

	res := ImpactResult{
		ByAttorney:   map[string]ImpactBreakdown{},
		ByStaffClass: map[string]ImpactBreakdown{},
	}
	seen := map[string]struct{}{}
	for _, r := range current {
		seen[r.AttorneyID] = struct{}{}
	}
	for _, r := range proposed {
		seen[r.AttorneyID] = struct{}{}
	}
	for attorney := range seen {
		cur, hasCur := currentBy[attorney]
		prop, hasProp := proposedBy[attorney]
		if !hasCur && !hasProp {
			continue
		}
		h := hours[attorney]
		curCost := h * cur.Amount
		propCost := h * prop.Amount
		if !hasProp {
			propCost = curCost
		}
		if !hasCur {
			curCost = 0
		}
		entry := ImpactBreakdown{
			CurrentCost:  curCost,
			ProposedCost: propCost,
			Impact:       propCost - curCost,
			Hours:        h,
		}
		res.ByAttorney[attorney] = entry
		staffClass := cur.StaffClassID
		if staffClass == "" {
			staffClass = prop.StaffClassID
		}
		if staffClass != "" {
			agg := res.ByStaffClass[staffClass]
			agg.CurrentCost += entry.CurrentCost
			agg.ProposedCost += entry.ProposedCost
			agg.Impact += entry.Impact
			agg.Hours += entry.Hours
			res.ByStaffClass[staffClass] = agg
		}
		res.TotalCurrentCost += entry.CurrentCost
		res.TotalProposedCost += entry.ProposedCost
	}
	res.TotalImpact = res.TotalProposedCost - res.TotalCurrentCost
	if res.TotalCurrentCost != 0 {
		res.PercentageImpact = res.TotalImpact / res.TotalCurrentCost
	}
	return res
}

// CAGR computes compound annual growth between two dated values using a
// 365.25-day year. Degenerate input returns 0.
func CAGR(start, end float64, startDate, endDate time.Time) float64 {
	if start <= 0 {
		return 0
	}
	years := endDate.Sub(startDate).Hours() / 24 / 365.25
	if years <= 0 {
		return 0
	}
	return math.Pow(end/start, 1/years) - 1
}

type PeerComparison struct {
	PeerMean   float64 `json:"peer_mean"`
	PeerMedian float64 `json:"peer_median"`
	PeerMin    float64 `json:"peer_min"`
	PeerMax    float64 `json:"peer_max"`
	Percentile float64 `json:"percentile"`
}

// ComparePeers positions the target group's mean within a peer distribution.
// Percentile counts peers strictly below the target mean.
func ComparePeers(target, peers []float64) PeerComparison {
	if len(peers) == 0 {
		return PeerComparison{}
	}
	sorted := append([]float64(nil), peers...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	targetMean := Mean(target)
	below := 0
	for _, v := range sorted {
		if v < targetMean {
			below++
		}
	}
	return PeerComparison{
		PeerMean:   mean,
		PeerMedian: median,
		PeerMin:    sorted[0],
		PeerMax:    sorted[len(sorted)-1],
		Percentile: float64(below) / float64(len(sorted)) * 100,
	}
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// RatePeriod is one rate amount in force over a date span. A zero To means
// the rate is still in force.
type RatePeriod struct {
	Amount float64
	From   time.Time
	To     time.Time
}

// EffectiveRate weights each overlapping rate by the fraction of days it was
// in force within [start, end]. A single period returns its amount directly.
func EffectiveRate(periods []RatePeriod, start, end time.Time) float64 {
	if len(periods) == 0 || !end.After(start) {
		return 0
	}
	if len(periods) == 1 {
		return periods[0].Amount
	}
	var weighted, totalDays float64
	for _, p := range periods {
		from := p.From
		if from.Before(start) {
			from = start
		}
		to := p.To
		if to.IsZero() || to.After(end) {
			to = end
		}
		if !to.After(from) {
			continue
		}
		days := to.Sub(from).Hours() / 24
		weighted += p.Amount * days
		totalDays += days
	}
	if totalDays == 0 {
		return 0
	}
	return weighted / totalDays
}
