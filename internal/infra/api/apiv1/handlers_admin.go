package apiv1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/infra/logging"
)

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (s *Server) handleRefundSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.SummaryForPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type initiateRefundRequest struct {
	PaymentID string            `json:"paymentId"`
	Amount    *int64            `json:"amount,omitempty"` // omitted: refund what remains
	Speed     model.RefundSpeed `json:"speed,omitempty"`
}

func (s *Server) handleInitiateRefund(w http.ResponseWriter, r *http.Request) {
	var in initiateRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}
	ctx := r.Context()
	rf, err := s.ledger.Initiate(ctx, in.PaymentID, in.Amount, in.Speed, AdminSubject(ctx))
	if err != nil {
		writeError(w, logging.With(ctx, s.log), err)
		return
	}
	writeJSON(w, http.StatusCreated, rf)
}

func (s *Server) handleListRefunds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.RefundFilter{
		Status:    model.RefundStatus(q.Get("status")),
		PaymentID: q.Get("paymentId"),
		UserEmail: q.Get("email"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeProblem(w, http.StatusBadRequest, "validation_failed", "unknown refund status")
		return
	}
	page := model.Page{}
	page.Number, _ = strconv.Atoi(q.Get("page"))
	page.Size, _ = strconv.Atoi(q.Get("size"))
	page = page.Normalize()

	items, total, err := s.ledger.ListRefunds(r.Context(), filter, page)
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	if items == nil {
		items = []*model.Refund{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
		"page":  page.Number,
		"size":  page.Size,
	})
}

func (s *Server) handleGetRefund(w http.ResponseWriter, r *http.Request) {
	rf, err := s.ledger.GetRefund(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, rf)
}

func (s *Server) handleFinanceSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.finance.Summary(r.Context(), s.clock.Now())
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	report, err := s.subscriptions.Sweep(r.Context())
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type offeringRequest struct {
	Name         string `json:"name"`
	DurationDays int    `json:"durationDays"`
	PriceMinor   int64  `json:"priceMinor"`
	Currency     string `json:"currency"`
	Active       *bool  `json:"active,omitempty"`
}

func (s *Server) handleSaveOffering(w http.ResponseWriter, r *http.Request) {
	var in offeringRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}
	o, err := model.NewServiceOffering(chi.URLParam(r, "code"), in.Name, in.DurationDays, in.PriceMinor, in.Currency)
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	if in.Active != nil {
		o.Active = *in.Active
	}
	if err := s.catalog.Save(r.Context(), o); err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
