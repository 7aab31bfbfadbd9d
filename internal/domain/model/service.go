package model

import (
	"strings"
	"time"

	"subscription-commerce/internal/domain"
)

// ServiceCode identifies a purchasable offering.
type ServiceCode string

// ServiceOffering is one entry of the service catalog. PriceMinor is in the
// smallest currency unit.
type ServiceOffering struct {
	Code         ServiceCode `json:"code"`
	Name         string      `json:"name"`
	DurationDays int         `json:"durationDays"`
	PriceMinor   int64       `json:"priceMinor"`
	Currency     string      `json:"currency"`
	Active       bool        `json:"active"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func NewServiceOffering(code, name string, durationDays int, priceMinor int64, currency string) (*ServiceOffering, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(name) == "" || durationDays <= 0 || priceMinor <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "INR"
	}
	return &ServiceOffering{
		Code:         ServiceCode(code),
		Name:         name,
		DurationDays: durationDays,
		PriceMinor:   priceMinor,
		Currency:     strings.ToUpper(currency),
		Active:       true,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// Duration is the entitlement length granted by one purchase.
func (o *ServiceOffering) Duration() time.Duration {
	return time.Duration(o.DurationDays) * 24 * time.Hour
}
