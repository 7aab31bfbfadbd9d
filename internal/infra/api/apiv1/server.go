// Package apiv1 is the versioned HTTP API: public checkout and webhook
// endpoints plus the JWT protected admin surface.
package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/usecase"
)

// SignatureHeader carries the gateway's HMAC of the raw webhook body.
const SignatureHeader = "X-Razorpay-Signature"

type Server struct {
	payments      usecase.PaymentUseCase
	subscriptions usecase.SubscriptionUseCase
	ledger        usecase.RefundLedger
	recon         usecase.ReconciliationEngine
	finance       usecase.FinancialAggregator
	catalog       usecase.CatalogUseCase
	auth          *AuthManager
	clock         adapter.Clock
	log           *zerolog.Logger
}

type Deps struct {
	Payments      usecase.PaymentUseCase
	Subscriptions usecase.SubscriptionUseCase
	Ledger        usecase.RefundLedger
	Recon         usecase.ReconciliationEngine
	Finance       usecase.FinancialAggregator
	Catalog       usecase.CatalogUseCase
	Auth          *AuthManager
	Clock         adapter.Clock
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	clock := d.Clock
	if clock == nil {
		clock = adapter.SystemClock{}
	}
	return &Server{
		payments:      d.Payments,
		subscriptions: d.Subscriptions,
		ledger:        d.Ledger,
		recon:         d.Recon,
		finance:       d.Finance,
		catalog:       d.Catalog,
		auth:          d.Auth,
		clock:         clock,
		log:           &l,
	}
}

// RouteGuards are extra middlewares for individual public routes. Nil
// entries are skipped.
type RouteGuards struct {
	Confirm func(http.Handler) http.Handler
	Cancel  func(http.Handler) http.Handler
}

func guarded(g func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	if g == nil {
		return h
	}
	return g(h)
}

// RegisterAPIV1 mounts every /api/v1 route on r.
func RegisterAPIV1(r chi.Router, s *Server, g RouteGuards) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/gateway", s.handleWebhook)
		r.Method(http.MethodPost, "/payments/confirm", guarded(g.Confirm, s.handleConfirmPayment))
		r.With(s.auth.RequireCaller).Method(http.MethodPost, "/subscriptions/cancel", guarded(g.Cancel, s.handleCancelSubscription))
		r.With(s.auth.RequireCaller).Get("/subscriptions/{email}", s.handleSubscriptionStatus)
		r.Get("/catalog", s.handleListCatalog)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.Get("/payments/{id}", s.handleGetPayment)
			r.Get("/payments/{id}/refunds/summary", s.handleRefundSummary)
			r.Post("/refunds", s.handleInitiateRefund)
			r.Get("/refunds", s.handleListRefunds)
			r.Get("/refunds/{id}", s.handleGetRefund)
			r.Get("/finance/summary", s.handleFinanceSummary)
			r.Post("/lifecycle/sweep", s.handleSweep)
			r.Put("/catalog/{code}", s.handleSaveOffering)
		})
	})
}
