package model

// FinancialSummary is a read-only rollup over payments and refunds. Amounts
// are minor units; the *Display fields carry the same values in major units
// for reporting.
type FinancialSummary struct {
	Currency       string  `json:"currency"`
	TotalRevenue   int64   `json:"totalRevenue"`
	MonthlyRevenue int64   `json:"monthlyRevenue"`
	TotalRefunds   int64   `json:"totalRefunds"`
	MonthlyRefunds int64   `json:"monthlyRefunds"`
	NetRevenue     int64   `json:"netRevenue"`
	RefundRate     float64 `json:"refundRate"` // percent of TotalRevenue

	TotalRevenueDisplay string `json:"totalRevenueDisplay"`
	TotalRefundsDisplay string `json:"totalRefundsDisplay"`
	NetRevenueDisplay   string `json:"netRevenueDisplay"`
}
