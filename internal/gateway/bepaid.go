// internal/gateway/bepaid.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kitshop/backend/internal/config"
)

// Client is the narrow contract the order service depends on. It
// carries no retry logic; retry policy belongs to the caller.
type Client interface {
	CreateIntent(ctx context.Context, req *IntentRequest) (*Intent, error)
	GetStatus(ctx context.Context, transactionID string) (*PaymentStatus, error)
}

// IntentRequest describes a payment to be created. TrackingID is the
// caller-chosen key (the order id) echoed back by the provider.
type IntentRequest struct {
	AmountKopecks int64
	Currency      string
	Description   string
	TrackingID    string
	Email         string
	Phone         string
}

// Intent is the provider's accepted payment: the token identifies the
// transaction, the redirect URL is shown to the buyer.
type Intent struct {
	TransactionID string
	CheckoutURL   string
}

// PaymentStatus is the authoritative provider state for a transaction.
type PaymentStatus struct {
	Status        string
	PaymentMethod string
}

// Outcome is the classification of a provider status string.
type Outcome int

const (
	OutcomeIndeterminate Outcome = iota
	OutcomeSuccessful
	OutcomeFailed
)

// Classify maps bePaid status strings to outcomes. This table is the
// only provider-specific status logic in the codebase; anything
// unrecognized is indeterminate and must leave the order pending.
func Classify(status string) Outcome {
	switch strings.ToLower(status) {
	case "successful", "success", "completed":
		return OutcomeSuccessful
	case "failed", "error", "declined", "cancelled":
		return OutcomeFailed
	default:
		return OutcomeIndeterminate
	}
}

// Method maps the provider's payment_method field to the stored enum.
func Method(raw string) string {
	raw = strings.ToLower(raw)
	switch {
	case strings.Contains(raw, "erip"):
		return "erip"
	case strings.Contains(raw, "card"):
		return "card"
	default:
		return ""
	}
}

// Error is returned for any non-success response from the provider.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("bePaid API error: %d - %s", e.StatusCode, e.Body)
}

// BePaid talks to the bePaid beyag API over HTTP basic auth.
type BePaid struct {
	shopID     string
	secretKey  string
	apiURL     string
	webhookURL string
	testMode   bool
	httpClient *http.Client
}

func NewBePaid(cfg *config.Config) *BePaid {
	return &BePaid{
		shopID:     cfg.Payment.ShopID,
		secretKey:  cfg.Payment.SecretKey,
		apiURL:     strings.TrimRight(cfg.Payment.APIURL, "/"),
		webhookURL: strings.TrimRight(cfg.Server.PublicURL, "/") + "/webhook/bepaid",
		testMode:   cfg.Payment.TestMode,
		httpClient: &http.Client{},
	}
}

type intentPayload struct {
	Request struct {
		Amount          int64                  `json:"amount"`
		Currency        string                 `json:"currency"`
		Description     string                 `json:"description"`
		OrderID         string                 `json:"order_id"`
		TrackingID      string                 `json:"tracking_id"`
		NotificationURL string                 `json:"notification_url"`
		Test            bool                   `json:"test"`
		Customer        map[string]interface{} `json:"customer,omitempty"`
	} `json:"request"`
}

type intentResponse struct {
	Checkout struct {
		Token       string `json:"token"`
		RedirectURL string `json:"redirect_url"`
	} `json:"checkout"`
}

type statusResponse struct {
	Transaction struct {
		UID           string `json:"uid"`
		Status        string `json:"status"`
		PaymentMethod string `json:"payment_method"`
	} `json:"transaction"`
}

func (b *BePaid) CreateIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	payload := intentPayload{}
	payload.Request.Amount = req.AmountKopecks
	payload.Request.Currency = req.Currency
	payload.Request.Description = req.Description
	payload.Request.OrderID = req.TrackingID
	payload.Request.TrackingID = req.TrackingID
	payload.Request.NotificationURL = b.webhookURL
	payload.Request.Test = b.testMode

	if req.Email != "" || req.Phone != "" {
		customer := map[string]interface{}{}
		if req.Email != "" {
			customer["email"] = req.Email
		}
		if req.Phone != "" {
			customer["phone"] = req.Phone
		}
		payload.Request.Customer = customer
	}

	var resp intentResponse
	if err := b.post(ctx, "/beyag/payments", &payload, &resp); err != nil {
		return nil, err
	}

	if resp.Checkout.Token == "" || resp.Checkout.RedirectURL == "" {
		return nil, &Error{StatusCode: http.StatusBadGateway, Body: "missing checkout token or redirect URL"}
	}

	logrus.WithFields(logrus.Fields{
		"tracking_id":    req.TrackingID,
		"transaction_id": resp.Checkout.Token,
	}).Info("Payment intent created")

	return &Intent{
		TransactionID: resp.Checkout.Token,
		CheckoutURL:   resp.Checkout.RedirectURL,
	}, nil
}

func (b *BePaid) GetStatus(ctx context.Context, transactionID string) (*PaymentStatus, error) {
	var resp statusResponse
	if err := b.get(ctx, "/beyag/payments/"+transactionID, &resp); err != nil {
		return nil, err
	}

	return &PaymentStatus{
		Status:        resp.Transaction.Status,
		PaymentMethod: resp.Transaction.PaymentMethod,
	}, nil
}

func (b *BePaid) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return b.do(req, out)
}

func (b *BePaid) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.apiURL+path, nil)
	if err != nil {
		return err
	}

	return b.do(req, out)
}

func (b *BePaid) do(req *http.Request, out interface{}) error {
	req.SetBasicAuth(b.shopID, b.secretKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bePaid request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read bePaid response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   req.URL.Path,
		}).Error("bePaid request rejected")
		return &Error{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode bePaid response: %w", err)
	}

	return nil
}
