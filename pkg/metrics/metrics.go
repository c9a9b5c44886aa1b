package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type Registry struct {
	mu                sync.RWMutex
	endpoint          map[string]*EndpointStat
	actionOutcome     map[string]int64
	violationRule     map[string]int64
	negotiationStatus map[string]int64
	ocgRejections     int64
	eventsPublished   int64
	gauges            map[string]float64
	validateLatency   ValidateLatencyStat
	Histograms        *HistogramRegistry
}

type EndpointStat struct {
	Count          int64   `json:"count"`
	ErrorCount     int64   `json:"error_count"`
	TotalMillis    int64   `json:"total_millis"`
	MaxMillis      int64   `json:"max_millis"`
	AverageMillis  float64 `json:"average_millis"`
	LastStatusCode int     `json:"last_status_code"`
}

type ValidateLatencyStat struct {
	Count   int64   `json:"count"`
	TotalMS int64   `json:"total_ms"`
	MaxMS   int64   `json:"max_ms"`
	LastMS  int64   `json:"last_ms"`
	AvgMS   float64 `json:"avg_ms"`
}

type Snapshot struct {
	GeneratedAt       string                  `json:"generated_at"`
	Endpoints         map[string]EndpointStat `json:"endpoints"`
	ActionOutcomes    map[string]int64        `json:"action_outcomes"`
	ViolationRules    map[string]int64        `json:"violation_rules"`
	NegotiationStatus map[string]int64        `json:"negotiation_status_totals"`
	OCGRejections     int64                   `json:"ocg_budget_rejections_total"`
	EventsPublished   int64                   `json:"events_published_total"`
	Gauges            map[string]float64      `json:"gauges"`
	ValidateLatencyMS ValidateLatencyStat     `json:"validate_latency_ms"`
	Histograms        []HistogramSnapshot     `json:"histograms,omitempty"`
}

func NewRegistry() *Registry {
	return &Registry{
		endpoint:          map[string]*EndpointStat{},
		actionOutcome:     map[string]int64{},
		violationRule:     map[string]int64{},
		negotiationStatus: map[string]int64{},
		gauges:            map[string]float64{},
		Histograms:        NewHistogramRegistry(),
	}
}

func (r *Registry) ObserveLatency(endpoint string, d time.Duration) {
	r.Histograms.ObserveDuration(endpoint, d)
}

func (r *Registry) Observe(path string, status int, d time.Duration) {
	millis := d.Milliseconds()
	r.mu.Lock()
	defer r.mu.Unlock()
	stat, ok := r.endpoint[path]
	if !ok {
		stat = &EndpointStat{}
		r.endpoint[path] = stat
	}
	stat.Count++
	if status >= 400 {
		stat.ErrorCount++
	}
	stat.TotalMillis += millis
	if millis > stat.MaxMillis {
		stat.MaxMillis = millis
	}
	stat.LastStatusCode = status
	stat.AverageMillis = float64(stat.TotalMillis) / float64(stat.Count)
}

// IncActionOutcome counts one negotiation action keyed by action and outcome,
// e.g. "APPROVE|applied" or "SUBMIT|rejected".
func (r *Registry) IncActionOutcome(action, outcome string) {
	action = strings.TrimSpace(action)
	outcome = strings.TrimSpace(outcome)
	if action == "" {
		return
	}
	if outcome == "" {
		outcome = "UNKNOWN"
	}
	key := action + "|" + outcome
	r.mu.Lock()
	r.actionOutcome[key]++
	r.mu.Unlock()
}

// IncViolation counts a failed business rule by rule name.
func (r *Registry) IncViolation(rule string) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return
	}
	r.mu.Lock()
	r.violationRule[rule]++
	r.mu.Unlock()
}

func (r *Registry) AddNegotiationStatus(status string, delta int64) {
	status = strings.TrimSpace(strings.ToUpper(status))
	if status == "" || delta <= 0 {
		return
	}
	r.mu.Lock()
	r.negotiationStatus[status] += delta
	r.mu.Unlock()
}

func (r *Registry) IncNegotiationStatus(status string) {
	r.AddNegotiationStatus(status, 1)
}

func (r *Registry) IncOCGRejection() {
	r.mu.Lock()
	r.ocgRejections++
	r.mu.Unlock()
}

func (r *Registry) IncEventsPublished() {
	r.mu.Lock()
	r.eventsPublished++
	r.mu.Unlock()
}

func (r *Registry) ObserveValidateLatency(d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validateLatency.Count++
	r.validateLatency.TotalMS += ms
	r.validateLatency.LastMS = ms
	if ms > r.validateLatency.MaxMS {
		r.validateLatency.MaxMS = ms
	}
	r.validateLatency.AvgMS = float64(r.validateLatency.TotalMS) / float64(r.validateLatency.Count)
}

func (r *Registry) SetGauge(name string, value float64) {
	if name == "" {
		return
	}
	r.mu.Lock()
	r.gauges[name] = value
	r.mu.Unlock()
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := Snapshot{
		GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
		Endpoints:         make(map[string]EndpointStat, len(r.endpoint)),
		ActionOutcomes:    make(map[string]int64, len(r.actionOutcome)),
		ViolationRules:    make(map[string]int64, len(r.violationRule)),
		NegotiationStatus: make(map[string]int64, len(r.negotiationStatus)),
		OCGRejections:     r.ocgRejections,
		EventsPublished:   r.eventsPublished,
		Gauges:            make(map[string]float64, len(r.gauges)),
		ValidateLatencyMS: ValidateLatencyStat{
			Count:   r.validateLatency.Count,
			TotalMS: r.validateLatency.TotalMS,
			MaxMS:   r.validateLatency.MaxMS,
			LastMS:  r.validateLatency.LastMS,
			AvgMS:   r.validateLatency.AvgMS,
		},
	}
	for k, v := range r.endpoint {
		out.Endpoints[k] = *v
	}
	for k, v := range r.actionOutcome {
		out.ActionOutcomes[k] = v
	}
	for k, v := range r.violationRule {
		out.ViolationRules[k] = v
	}
	for k, v := range r.negotiationStatus {
		out.NegotiationStatus[k] = v
	}
	for k, v := range r.gauges {
		out.Gauges[k] = v
	}
	out.Histograms = r.Histograms.Snapshots()
	return out
}

func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		snap := r.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(snap)
	}
}

func (r *Registry) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		snap := r.Snapshot()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		b := &strings.Builder{}
		b.WriteString("# HELP ratereview_endpoint_count total requests by endpoint\n")
		b.WriteString("# TYPE ratereview_endpoint_count counter\n")
		for _, ep := range SortedKeys(snap.Endpoints) {
			stat := snap.Endpoints[ep]
			fmt.Fprintf(b, "ratereview_endpoint_count{endpoint=%q} %d\n", ep, stat.Count)
		}
		b.WriteString("# HELP ratereview_endpoint_error_count total endpoint errors\n")
		b.WriteString("# TYPE ratereview_endpoint_error_count counter\n")
		for _, ep := range SortedKeys(snap.Endpoints) {
			stat := snap.Endpoints[ep]
			fmt.Fprintf(b, "ratereview_endpoint_error_count{endpoint=%q} %d\n", ep, stat.ErrorCount)
		}
		b.WriteString("# HELP ratereview_endpoint_avg_millis endpoint average latency in milliseconds\n")
		b.WriteString("# TYPE ratereview_endpoint_avg_millis gauge\n")
		for _, ep := range SortedKeys(snap.Endpoints) {
			stat := snap.Endpoints[ep]
			fmt.Fprintf(b, "ratereview_endpoint_avg_millis{endpoint=%q} %.3f\n", ep, stat.AverageMillis)
		}
		b.WriteString("# HELP ratereview_endpoint_max_millis endpoint max latency in milliseconds\n")
		b.WriteString("# TYPE ratereview_endpoint_max_millis gauge\n")
		for _, ep := range SortedKeys(snap.Endpoints) {
			stat := snap.Endpoints[ep]
			fmt.Fprintf(b, "ratereview_endpoint_max_millis{endpoint=%q} %d\n", ep, stat.MaxMillis)
		}
		b.WriteString("# HELP ratereview_action_total negotiation actions by action and outcome\n")
		b.WriteString("# TYPE ratereview_action_total counter\n")
		for _, key := range SortedKeys(snap.ActionOutcomes) {
			parts := strings.SplitN(key, "|", 2)
			action := parts[0]
			outcome := "UNKNOWN"
			if len(parts) == 2 {
				outcome = parts[1]
			}
			fmt.Fprintf(b, "ratereview_action_total{action=%q,outcome=%q} %d\n", action, outcome, snap.ActionOutcomes[key])
		}
		b.WriteString("# HELP ratereview_violation_total rule violations by rule name\n")
		b.WriteString("# TYPE ratereview_violation_total counter\n")
		for _, rule := range SortedKeys(snap.ViolationRules) {
			fmt.Fprintf(b, "ratereview_violation_total{rule=%q} %d\n", rule, snap.ViolationRules[rule])
		}
		b.WriteString("# HELP ratereview_negotiation_status_total negotiation transitions by resulting status\n")
		b.WriteString("# TYPE ratereview_negotiation_status_total counter\n")
		for _, status := range SortedKeys(snap.NegotiationStatus) {
			fmt.Fprintf(b, "ratereview_negotiation_status_total{status=%q} %d\n", status, snap.NegotiationStatus[status])
		}
		b.WriteString("# HELP ratereview_ocg_budget_rejections_total OCG selections rejected by the point budget\n")
		b.WriteString("# TYPE ratereview_ocg_budget_rejections_total counter\n")
		fmt.Fprintf(b, "ratereview_ocg_budget_rejections_total %d\n", snap.OCGRejections)
		b.WriteString("# HELP ratereview_events_published_total events published to the state bus\n")
		b.WriteString("# TYPE ratereview_events_published_total counter\n")
		fmt.Fprintf(b, "ratereview_events_published_total %d\n", snap.EventsPublished)
		b.WriteString("# HELP ratereview_gauge operational gauge metrics\n")
		b.WriteString("# TYPE ratereview_gauge gauge\n")
		for _, name := range SortedKeys(snap.Gauges) {
			fmt.Fprintf(b, "ratereview_gauge{name=%q} %.3f\n", name, snap.Gauges[name])
		}
		for _, h := range snap.Histograms {
			b.WriteString("# HELP ratereview_latency_seconds latency histogram\n")
			b.WriteString("# TYPE ratereview_latency_seconds histogram\n")
			for _, bucket := range h.Buckets {
				fmt.Fprintf(b, "ratereview_latency_seconds_bucket{endpoint=%q,le=\"%.3f\"} %d\n", h.Name, bucket.Le, bucket.Count)
			}
			fmt.Fprintf(b, "ratereview_latency_seconds_bucket{endpoint=%q,le=\"+Inf\"} %d\n", h.Name, h.Count)
			fmt.Fprintf(b, "ratereview_latency_seconds_sum{endpoint=%q} %.6f\n", h.Name, h.Sum)
			fmt.Fprintf(b, "ratereview_latency_seconds_count{endpoint=%q} %d\n", h.Name, h.Count)
			fmt.Fprintf(b, "ratereview_latency_p50_seconds{endpoint=%q} %.6f\n", h.Name, h.P50)
			fmt.Fprintf(b, "ratereview_latency_p95_seconds{endpoint=%q} %.6f\n", h.Name, h.P95)
			fmt.Fprintf(b, "ratereview_latency_p99_seconds{endpoint=%q} %.6f\n", h.Name, h.P99)
		}

		b.WriteString("# HELP ratereview_validate_latency_ms rule validation latency in ms\n")
		b.WriteString("# TYPE ratereview_validate_latency_ms gauge\n")
		fmt.Fprintf(b, "ratereview_validate_latency_ms{stat=%q} %d\n", "last", snap.ValidateLatencyMS.LastMS)
		fmt.Fprintf(b, "ratereview_validate_latency_ms{stat=%q} %.3f\n", "avg", snap.ValidateLatencyMS.AvgMS)
		fmt.Fprintf(b, "ratereview_validate_latency_ms{stat=%q} %d\n", "max", snap.ValidateLatencyMS.MaxMS)

		_, _ = w.Write([]byte(b.String()))
	}
}

func SortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
