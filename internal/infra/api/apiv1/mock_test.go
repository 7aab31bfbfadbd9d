//go:build !integration

package apiv1_test

import (
	"context"
	"time"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/usecase"
)

type fakePayments struct {
	ConfirmFunc func(ctx context.Context, in usecase.PaymentConfirmation) (*model.Payment, error)
	GetFunc     func(ctx context.Context, id string) (*model.Payment, error)
}

func (f *fakePayments) Confirm(ctx context.Context, in usecase.PaymentConfirmation) (*model.Payment, error) {
	return f.ConfirmFunc(ctx, in)
}
func (f *fakePayments) Get(ctx context.Context, id string) (*model.Payment, error) {
	return f.GetFunc(ctx, id)
}

type fakeSubscriptions struct {
	ActivateFunc func(ctx context.Context, email, name string, service model.ServiceCode, paymentID string) (*model.Subscription, error)
	CancelFunc   func(ctx context.Context, email string) (*model.Subscription, error)
	StatusFunc   func(ctx context.Context, email string) (*usecase.SubscriptionStatusView, error)
	SweepFunc    func(ctx context.Context) (usecase.SweepReport, error)
}

func (f *fakeSubscriptions) Activate(ctx context.Context, email, name string, service model.ServiceCode, paymentID string) (*model.Subscription, error) {
	return f.ActivateFunc(ctx, email, name, service, paymentID)
}
func (f *fakeSubscriptions) CancelSubscription(ctx context.Context, email string) (*model.Subscription, error) {
	return f.CancelFunc(ctx, email)
}
func (f *fakeSubscriptions) Status(ctx context.Context, email string) (*usecase.SubscriptionStatusView, error) {
	return f.StatusFunc(ctx, email)
}
func (f *fakeSubscriptions) Sweep(ctx context.Context) (usecase.SweepReport, error) {
	return f.SweepFunc(ctx)
}

type fakeLedger struct {
	InitiateFunc func(ctx context.Context, paymentID string, amount *int64, speed model.RefundSpeed, initiatedBy string) (*model.Refund, error)
	ApplyFunc    func(ctx context.Context, ev usecase.WebhookRefundEvent) (usecase.ApplyResult, error)
	SummaryFunc  func(ctx context.Context, paymentID string) (model.PaymentRefundSummary, error)
	ListFunc     func(ctx context.Context, filter model.RefundFilter, page model.Page) ([]*model.Refund, int, error)
	GetFunc      func(ctx context.Context, id string) (*model.Refund, error)
}

func (f *fakeLedger) Initiate(ctx context.Context, paymentID string, amount *int64, speed model.RefundSpeed, initiatedBy string) (*model.Refund, error) {
	return f.InitiateFunc(ctx, paymentID, amount, speed, initiatedBy)
}
func (f *fakeLedger) ApplyWebhookEvent(ctx context.Context, ev usecase.WebhookRefundEvent) (usecase.ApplyResult, error) {
	return f.ApplyFunc(ctx, ev)
}
func (f *fakeLedger) SummaryForPayment(ctx context.Context, paymentID string) (model.PaymentRefundSummary, error) {
	return f.SummaryFunc(ctx, paymentID)
}
func (f *fakeLedger) ListRefunds(ctx context.Context, filter model.RefundFilter, page model.Page) ([]*model.Refund, int, error) {
	return f.ListFunc(ctx, filter, page)
}
func (f *fakeLedger) GetRefund(ctx context.Context, id string) (*model.Refund, error) {
	return f.GetFunc(ctx, id)
}

type fakeFinance struct {
	SummaryFunc func(ctx context.Context, now time.Time) (model.FinancialSummary, error)
}

func (f *fakeFinance) Summary(ctx context.Context, now time.Time) (model.FinancialSummary, error) {
	return f.SummaryFunc(ctx, now)
}

type fakeCatalog struct {
	ListFunc func(ctx context.Context) ([]*model.ServiceOffering, error)
	GetFunc  func(ctx context.Context, code model.ServiceCode) (*model.ServiceOffering, error)
	SaveFunc func(ctx context.Context, o *model.ServiceOffering) error
}

func (f *fakeCatalog) List(ctx context.Context) ([]*model.ServiceOffering, error) {
	return f.ListFunc(ctx)
}
func (f *fakeCatalog) Get(ctx context.Context, code model.ServiceCode) (*model.ServiceOffering, error) {
	return f.GetFunc(ctx, code)
}
func (f *fakeCatalog) Save(ctx context.Context, o *model.ServiceOffering) error {
	return f.SaveFunc(ctx, o)
}
