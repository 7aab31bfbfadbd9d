package apiv1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/infra/logging"
	"subscription-commerce/internal/infra/metrics"
	"subscription-commerce/internal/usecase"
)

type paymentResponse struct {
	ID        string              `json:"id"`
	OrderID   string              `json:"orderId"`
	PaymentID string              `json:"paymentId"`
	Amount    int64               `json:"amount"`
	Currency  string              `json:"currency"`
	Status    model.PaymentStatus `json:"status"`
	UserEmail string              `json:"userEmail"`
	Service   model.ServiceCode   `json:"service"`
	CreatedAt time.Time           `json:"createdAt"`

	// AccessToken lets the payer manage their subscription afterwards.
	AccessToken string `json:"accessToken,omitempty"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		PaymentID: p.PaymentID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    p.Status,
		UserEmail: p.UserEmail,
		Service:   p.Service,
		CreatedAt: p.CreatedAt,
	}
}

// webhookResult is the metric label for a delivery.
func webhookResult(outcome usecase.Outcome, err error) string {
	if err == nil {
		return string(outcome)
	}
	switch {
	case errors.Is(err, domain.ErrStateReversion):
		return "reversion"
	case errors.Is(err, domain.ErrAuthentication):
		return "auth"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// handleWebhook must see the body byte for byte as sent; the signature
// covers the raw payload.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.ObserveWebhook("validation", time.Since(start).Seconds())
		writeProblem(w, http.StatusBadRequest, "validation_failed", "unreadable body")
		return
	}

	outcome, err := s.recon.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	metrics.ObserveWebhook(webhookResult(outcome, err), time.Since(start).Seconds())
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var in usecase.PaymentConfirmation
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}
	log := logging.With(r.Context(), s.log)
	p, err := s.payments.Confirm(r.Context(), in)
	if err != nil {
		writeError(w, log, err)
		return
	}
	resp := toPaymentResponse(p)
	if resp.AccessToken, err = s.auth.MintCustomer(p.UserEmail); err != nil {
		log.Warn().Err(err).Str("payment", p.ID).Msg("could not issue customer token")
	}
	writeJSON(w, http.StatusCreated, resp)
}

type cancelRequest struct {
	Email string `json:"email"`
}

// handleCancelSubscription cancels for the email in the body, or for the
// token's own email when the body names none.
func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	var in cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}
	email := in.Email
	if email == "" {
		email = CallerEmail(r.Context())
	}
	if email == "" {
		writeProblem(w, http.StatusBadRequest, "validation_failed", "email is required")
		return
	}
	if !CallerMayActFor(r.Context(), email) {
		writeProblem(w, http.StatusForbidden, "forbidden", "token does not cover this account")
		return
	}
	sub, err := s.subscriptions.CancelSubscription(r.Context(), email)
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	metrics.AddSubscriptionTransitions(model.SubscriptionStatusCancelled, 1)
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !CallerMayActFor(r.Context(), email) {
		writeProblem(w, http.StatusForbidden, "forbidden", "token does not cover this account")
		return
	}
	view, err := s.subscriptions.Status(r.Context(), email)
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	if items == nil {
		items = []*model.ServiceOffering{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
