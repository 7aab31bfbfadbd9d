package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subscription-commerce/internal/config"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

// RazorpayGateway talks to the Razorpay REST API with key-id/key-secret basic
// auth. Only the refund call is needed server side; payment capture happens
// in the checkout flow.
type RazorpayGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewRazorpayGateway(cfg config.GatewayConfig) (*RazorpayGateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("razorpay: key id and key secret are required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("razorpay: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

type refundRequest struct {
	Amount *int64            `json:"amount,omitempty"`
	Speed  string            `json:"speed,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RegisterRefund calls POST /payments/{id}/refund. Non-2xx answers come back
// as *adapter.GatewayError carrying the provider's code.
func (g *RazorpayGateway) RegisterRefund(ctx context.Context, gatewayPaymentID string, amount *int64, speed model.RefundSpeed, notes map[string]string) (adapter.RefundRegistration, error) {
	if gatewayPaymentID == "" {
		return adapter.RefundRegistration{}, errors.New("razorpay: empty payment id")
	}
	body, err := json.Marshal(refundRequest{Amount: amount, Speed: string(speed), Notes: notes})
	if err != nil {
		return adapter.RefundRegistration{}, err
	}
	endpoint := fmt.Sprintf("%s/payments/%s/refund", g.baseURL, url.PathEscape(gatewayPaymentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return adapter.RefundRegistration{}, err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.RefundRegistration{}, fmt.Errorf("razorpay: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return adapter.RefundRegistration{}, fmt.Errorf("razorpay: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		desc := e.Error.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return adapter.RefundRegistration{}, &adapter.GatewayError{
			Code:        e.Error.Code,
			Description: desc,
			StatusCode:  resp.StatusCode,
		}
	}

	var out refundResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return adapter.RefundRegistration{}, fmt.Errorf("razorpay: decode refund: %w", err)
	}
	if out.ID == "" {
		return adapter.RefundRegistration{}, errors.New("razorpay: refund response without id")
	}
	return adapter.RefundRegistration{RefundID: out.ID, Status: out.Status, Amount: out.Amount}, nil
}
