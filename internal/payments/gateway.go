package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dcastellanos/marketbay-backend/pkg/config"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

// Card carries the payment details for a single authorization attempt. It is
// never persisted; only Last4 leaves this package.
type Card struct {
	CardholderName string
	Number         string
	ExpiryMonth    int
	ExpiryYear     int
	CVV            string
}

// Last4 returns the trailing digits safe to store and display.
func (c Card) Last4() string {
	digits := strings.TrimSpace(c.Number)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// Gateway is the single operation the checkout saga depends on. The gateway
// accepts no idempotency key and supports no void or refund, so callers must
// never retry one logical charge attempt.
type Gateway interface {
	Authorize(ctx context.Context, card Card, amount decimal.Decimal) (bool, error)
}

// Client talks to the external authorization service over HTTP JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

var (
	errGatewayURLRequired = errors.New("gateway url is required")
	errLoggerRequired     = errors.New("gateway logger is required")
)

// NewClient validates the gateway configuration and builds the client.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errGatewayURLRequired
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		logger:     logg,
	}, nil
}

type authorizeRequest struct {
	CardholderName string `json:"cardholder_name"`
	CardNumber     string `json:"card_number"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
	CVV            string `json:"cvv"`
	Amount         string `json:"amount"`
}

type authorizeResponse struct {
	Approved bool `json:"approved"`
}

// Authorize submits one charge attempt. Network and protocol failures map to
// a dependency error; only an explicit gateway verdict produces a boolean.
func (c *Client) Authorize(ctx context.Context, card Card, amount decimal.Decimal) (bool, error) {
	payload, err := json.Marshal(authorizeRequest{
		CardholderName: card.CardholderName,
		CardNumber:     card.Number,
		ExpiryMonth:    card.ExpiryMonth,
		ExpiryYear:     card.ExpiryYear,
		CVV:            card.CVV,
		Amount:         amount.StringFixed(2),
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode authorize request")
	}

	ctx = c.logger.WithFields(ctx, map[string]any{
		"card_last4": card.Last4(),
		"amount":     amount.StringFixed(2),
	})
	c.logger.Info(ctx, "gateway authorize request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authorize", bytes.NewReader(payload))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build authorize request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "gateway unreachable", err)
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("gateway returned status %d", resp.StatusCode)
		c.logger.Error(ctx, "gateway error response", err)
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment gateway")
	}

	var verdict authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		c.logger.Error(ctx, "gateway response malformed", err)
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}

	ctx = c.logger.WithField(ctx, "approved", verdict.Approved)
	c.logger.Info(ctx, "gateway authorize response")
	return verdict.Approved, nil
}
