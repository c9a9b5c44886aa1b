package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/analytics"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/httpx"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/negotiation"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/stream"
)

// writeDomainError maps the error taxonomy onto HTTP statuses. Validation
// violations never come through here; they are 200 responses with payload.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrVersionConflict),
		errors.Is(err, models.ErrConfirmRequired):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	default:
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
			httpx.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func (s *Server) validateRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Candidate models.RateSubmission `json:"candidate"`
		Rules     models.RateRule       `json:"rules"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	start := time.Now()
	res := s.Core.ValidateRate(req.Candidate, req.Rules)
	s.Metrics.ObserveValidateLatency(time.Since(start))
	for _, v := range res.Violations {
		s.Metrics.IncViolation(v.Rule)
	}
	httpx.WriteJSON(w, 200, res)
}

const submitIdempotencyTTL = 24 * time.Hour

func submitIdempotencyKey(negotiationID, key string) string {
	return "ratereview:idem:" + strings.TrimSpace(negotiationID) + ":" + strings.TrimSpace(key)
}

func (s *Server) submitRates(w http.ResponseWriter, r *http.Request) {
	negotiationID := chi.URLParam(r, "negotiation_id")
	var req struct {
		Rates []models.Rate `json:"rates"`
		Actor string        `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && s.Cache != nil {
		cacheKey := submitIdempotencyKey(negotiationID, idemKey)
		fresh, err := s.Cache.SetNX(r.Context(), cacheKey, "pending", submitIdempotencyTTL)
		if err == nil && !fresh {
			stored, getErr := s.Cache.Get(r.Context(), cacheKey)
			if getErr == nil && stored != "" && stored != "pending" {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotent-Replay", "true")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(stored))
				return
			}
			httpx.Error(w, http.StatusConflict, "duplicate submission in flight")
			return
		}
	}
	res, err := s.Core.SubmitRates(r.Context(), negotiationID, req.Rates, req.Actor)
	if err != nil {
		if idemKey != "" && s.Cache != nil {
			_ = s.Cache.Del(r.Context(), submitIdempotencyKey(negotiationID, idemKey))
		}
		s.Metrics.IncActionOutcome("SUBMIT", "refused")
		writeDomainError(w, err)
		return
	}
	if idemKey != "" && s.Cache != nil {
		if body, marshalErr := json.Marshal(res); marshalErr == nil {
			_ = s.Cache.Set(r.Context(), submitIdempotencyKey(negotiationID, idemKey), string(body), submitIdempotencyTTL)
		}
	}
	if len(res.Violations) > 0 {
		s.Metrics.IncActionOutcome("SUBMIT", "rejected")
		for _, v := range res.Violations {
			s.Metrics.IncViolation(v.Rule)
		}
	} else {
		s.Metrics.IncActionOutcome("SUBMIT", "applied")
		s.Metrics.IncNegotiationStatus(res.Negotiation.Status)
	}
	httpx.WriteJSON(w, 200, res)
}

func (s *Server) flushBatch(w http.ResponseWriter, r *http.Request) {
	negotiationID := chi.URLParam(r, "negotiation_id")
	n, err := s.Core.FlushBatch(r.Context(), negotiationID)
	if err != nil {
		httpx.Error(w, http.StatusBadGateway, "event publish failed")
		return
	}
	httpx.WriteJSON(w, 200, map[string]int{"flushed": n})
}

func (s *Server) bulkAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NegotiationID  string             `json:"negotiation_id"`
		RateIDs        []string           `json:"rate_ids"`
		Action         string             `json:"action"`
		Role           string             `json:"role"`
		Actor          string             `json:"actor"`
		CounterAmounts map[string]float64 `json:"counter_amounts,omitempty"`
		Message        string             `json:"message,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Core.ApplyBulkAction(r.Context(), req.NegotiationID, req.RateIDs, req.Action, req.Role, req.Actor,
		negotiation.BulkPayload{CounterAmounts: req.CounterAmounts, Message: req.Message})
	if err != nil {
		s.Metrics.IncActionOutcome(req.Action, "refused")
		writeDomainError(w, err)
		return
	}
	s.Metrics.IncActionOutcome(req.Action, "applied")
	s.Metrics.IncNegotiationStatus(res.Negotiation.Status)
	httpx.WriteJSON(w, 200, res)
}

func (s *Server) acceptRate(w http.ResponseWriter, r *http.Request) {
	rateID := chi.URLParam(r, "rate_id")
	var req struct {
		NegotiationID string `json:"negotiation_id"`
		Actor         string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Core.AcceptRate(r.Context(), req.NegotiationID, rateID, req.Actor)
	if err != nil {
		s.Metrics.IncActionOutcome(negotiation.ActionAccept, "refused")
		writeDomainError(w, err)
		return
	}
	s.Metrics.IncActionOutcome(negotiation.ActionAccept, "applied")
	httpx.WriteJSON(w, 200, res)
}

func (s *Server) counterRate(w http.ResponseWriter, r *http.Request) {
	rateID := chi.URLParam(r, "rate_id")
	var req struct {
		NegotiationID string  `json:"negotiation_id"`
		Role          string  `json:"role"`
		Amount        float64 `json:"amount"`
		Actor         string  `json:"actor"`
		Message       string  `json:"message,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Core.CounterRate(r.Context(), req.NegotiationID, rateID, req.Role, req.Amount, req.Actor, req.Message)
	if err != nil {
		s.Metrics.IncActionOutcome(negotiation.ActionCounterPropose, "refused")
		writeDomainError(w, err)
		return
	}
	s.Metrics.IncActionOutcome(negotiation.ActionCounterPropose, "applied")
	s.Metrics.IncNegotiationStatus(res.Negotiation.Status)
	httpx.WriteJSON(w, 200, res)
}

func (s *Server) publishOCGDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	var req struct {
		Actor string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := s.Core.PublishOCGDocument(r.Context(), docID, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, doc)
}

func (s *Server) selectOCGAlternative(w http.ResponseWriter, r *http.Request) {
	ocgNegotiationID := chi.URLParam(r, "ocg_negotiation_id")
	var req struct {
		SectionID     string `json:"section_id"`
		AlternativeID string `json:"alternative_id"`
		Actor         string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Core.SelectOCGAlternative(r.Context(), ocgNegotiationID, req.SectionID, req.AlternativeID, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !res.OK {
		s.Metrics.IncOCGRejection()
	}
	httpx.WriteJSON(w, 200, res)
}

func (s *Server) submitOCG(w http.ResponseWriter, r *http.Request) {
	ocgNegotiationID := chi.URLParam(r, "ocg_negotiation_id")
	var req struct {
		Actor string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Core.SubmitOCG(r.Context(), ocgNegotiationID, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, res)
}

func (s *Server) openOCGNegotiation(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	var req struct {
		FirmID      string `json:"firm_id"`
		PointBudget int    `json:"point_budget"`
		Actor       string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	neg, err := s.Core.OpenOCGNegotiation(r.Context(), docID, req.FirmID, req.PointBudget, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, neg)
}

func (s *Server) respondOCG(w http.ResponseWriter, r *http.Request) {
	ocgNegotiationID := chi.URLParam(r, "ocg_negotiation_id")
	var req struct {
		Decision string `json:"decision"`
		Actor    string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	neg, err := s.Core.RespondOCG(r.Context(), ocgNegotiationID, req.Decision, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, neg)
}

func (s *Server) reopenOCG(w http.ResponseWriter, r *http.Request) {
	ocgNegotiationID := chi.URLParam(r, "ocg_negotiation_id")
	var req struct {
		Actor string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	neg, err := s.Core.ReopenOCG(r.Context(), ocgNegotiationID, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, neg)
}

func (s *Server) completeOCG(w http.ResponseWriter, r *http.Request) {
	ocgNegotiationID := chi.URLParam(r, "ocg_negotiation_id")
	var req struct {
		Actor string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	neg, err := s.Core.CompleteOCG(r.Context(), ocgNegotiationID, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, neg)
}

func (s *Server) signOCGDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	var req struct {
		Actor string `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := s.Core.SignOCGDocument(r.Context(), docID, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, doc)
}

func (s *Server) addOCGSection(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	var req struct {
		Section models.OCGSection `json:"section"`
		Actor   string            `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := s.Core.AddOCGSection(r.Context(), docID, req.Section, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, doc)
}

func (s *Server) updateOCGSection(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	var req struct {
		Section            models.OCGSection `json:"section"`
		ConfirmDestructive bool              `json:"confirm_destructive"`
		Actor              string            `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Section.ID = chi.URLParam(r, "section_id")
	doc, err := s.Core.UpdateOCGSection(r.Context(), docID, req.Section, req.ConfirmDestructive, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, doc)
}

func (s *Server) removeOCGSection(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	sectionID := chi.URLParam(r, "section_id")
	doc, err := s.Core.RemoveOCGSection(r.Context(), docID, sectionID, r.URL.Query().Get("actor"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, doc)
}

func (s *Server) addOCGAlternative(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	sectionID := chi.URLParam(r, "section_id")
	var req struct {
		Alternative models.OCGAlternative `json:"alternative"`
		Actor       string                `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := s.Core.AddOCGAlternative(r.Context(), docID, sectionID, req.Alternative, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, doc)
}

func (s *Server) updateOCGAlternative(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	sectionID := chi.URLParam(r, "section_id")
	var req struct {
		Alternative models.OCGAlternative `json:"alternative"`
		Actor       string                `json:"actor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Alternative.ID = chi.URLParam(r, "alternative_id")
	doc, err := s.Core.UpdateOCGAlternative(r.Context(), docID, sectionID, req.Alternative, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, doc)
}

func (s *Server) removeOCGAlternative(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "ocg_id")
	sectionID := chi.URLParam(r, "section_id")
	altID := chi.URLParam(r, "alternative_id")
	doc, err := s.Core.RemoveOCGAlternative(r.Context(), docID, sectionID, altID, r.URL.Query().Get("actor"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, doc)
}

func (s *Server) analyticsImpact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current  []models.Rate          `json:"current"`
		Proposed []models.Rate          `json:"proposed"`
		Billing  []models.BillingRecord `json:"billing"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	httpx.WriteJSON(w, 200, s.Core.ComputeImpact(req.Current, req.Proposed, req.Billing))
}

func (s *Server) analyticsTrends(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries   []analytics.TrendEntry `json:"entries"`
		Dimension string                 `json:"dimension"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Dimension == "" {
		req.Dimension = analytics.DimensionAttorney
	}
	httpx.WriteJSON(w, 200, analytics.HistoricalTrends(req.Entries, req.Dimension))
}

func (s *Server) analyticsPeers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target []float64 `json:"target"`
		Peers  []float64 `json:"peers"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	httpx.WriteJSON(w, 200, analytics.ComparePeers(req.Target, req.Peers))
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		httpx.Error(w, 503, "stream unavailable")
		return
	}
	opts := &websocket.AcceptOptions{}
	if origins := wsOriginPatterns(env("WS_ALLOWED_ORIGINS", "")); len(origins) > 0 {
		opts.OriginPatterns = origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub := s.Events.Subscribe(64)
	defer s.Events.Unsubscribe(sub)

	_ = wsjson.Write(ctx, conn, stream.NewEvent("ready", "", nil))
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()
	filter := strings.TrimSpace(r.URL.Query().Get("negotiation_id"))
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			if filter != "" && evt.NegotiationID != filter {
				continue
			}
			if err := wsjson.Write(ctx, conn, evt); err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
		}
	}
}

func wsOriginPatterns(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
