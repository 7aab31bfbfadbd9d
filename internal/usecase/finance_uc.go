package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

// Compile-time check
var _ FinancialAggregator = (*financeUC)(nil)

// FinancialAggregator computes read-only revenue and refund rollups.
type FinancialAggregator interface {
	Summary(ctx context.Context, now time.Time) (model.FinancialSummary, error)
}

type financeUC struct {
	payments repository.PaymentRepository
	refunds  repository.RefundRepository
	currency string
	exponent int32

	log *zerolog.Logger
}

// NewFinancialAggregator reports amounts in currency, whose minor unit is
// 10^-exponent of the major unit (2 for INR and USD). Payments and refunds
// in other currencies are left out of the rollup.
func NewFinancialAggregator(payments repository.PaymentRepository, refunds repository.RefundRepository, currency string, exponent int32, logger *zerolog.Logger) *financeUC {
	l := logger.With().Str("component", "finance_uc").Logger()
	return &financeUC{payments: payments, refunds: refunds, currency: currency, exponent: exponent, log: &l}
}

func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (f *financeUC) Summary(ctx context.Context, now time.Time) (model.FinancialSummary, error) {
	var zero time.Time
	since := monthStart(now)

	revenue, err := f.payments.SumVerified(ctx, repository.NoTX, f.currency, zero)
	if err != nil {
		return model.FinancialSummary{}, err
	}
	monthly, err := f.payments.SumVerified(ctx, repository.NoTX, f.currency, since)
	if err != nil {
		return model.FinancialSummary{}, err
	}
	refunds, err := f.refunds.SumProcessed(ctx, repository.NoTX, f.currency, zero)
	if err != nil {
		return model.FinancialSummary{}, err
	}
	monthlyRefunds, err := f.refunds.SumProcessed(ctx, repository.NoTX, f.currency, since)
	if err != nil {
		return model.FinancialSummary{}, err
	}

	s := model.FinancialSummary{
		Currency:       f.currency,
		TotalRevenue:   revenue,
		MonthlyRevenue: monthly,
		TotalRefunds:   refunds,
		MonthlyRefunds: monthlyRefunds,
		NetRevenue:     revenue - refunds,
	}
	if revenue > 0 {
		rate := decimal.NewFromInt(refunds).Mul(decimal.NewFromInt(100)).DivRound(decimal.NewFromInt(revenue), 2)
		s.RefundRate = rate.InexactFloat64()
	}
	s.TotalRevenueDisplay = f.major(revenue)
	s.TotalRefundsDisplay = f.major(refunds)
	s.NetRevenueDisplay = f.major(s.NetRevenue)
	return s, nil
}

// major renders minor units as a fixed-point major-unit string: 123456 -> "1234.56".
func (f *financeUC) major(minor int64) string {
	return decimal.New(minor, -f.exponent).StringFixed(f.exponent)
}
