// internal/gateway/bepaid_test.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitshop/backend/internal/config"
)

func newTestClient(apiURL string) *BePaid {
	cfg := &config.Config{}
	cfg.Payment.ShopID = "shop_1"
	cfg.Payment.SecretKey = "secret_1"
	cfg.Payment.APIURL = apiURL
	cfg.Payment.TestMode = true
	cfg.Server.PublicURL = "https://shop.example.com"
	return NewBePaid(cfg)
}

func TestCreateIntent(t *testing.T) {
	var captured intentPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/beyag/payments", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "shop_1", user)
		assert.Equal(t, "secret_1", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"checkout":{"token":"tx_1","redirect_url":"https://checkout.bepaid.by/v2/chk_1"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	intent, err := client.CreateIntent(context.Background(), &IntentRequest{
		AmountKopecks: 4900,
		Currency:      "BYN",
		Description:   "Payment: Child Kit",
		TrackingID:    "ord_1",
		Email:         "p@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "tx_1", intent.TransactionID)
	assert.Equal(t, "https://checkout.bepaid.by/v2/chk_1", intent.CheckoutURL)

	assert.Equal(t, int64(4900), captured.Request.Amount)
	assert.Equal(t, "BYN", captured.Request.Currency)
	assert.Equal(t, "ord_1", captured.Request.TrackingID)
	assert.Equal(t, "https://shop.example.com/webhook/bepaid", captured.Request.NotificationURL)
	assert.True(t, captured.Request.Test)
	assert.Equal(t, "p@example.com", captured.Request.Customer["email"])
}

func TestCreateIntentRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"shop is disabled"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreateIntent(context.Background(), &IntentRequest{AmountKopecks: 100, Currency: "BYN"})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "shop is disabled")
}

func TestCreateIntentMissingCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"checkout":{}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreateIntent(context.Background(), &IntentRequest{AmountKopecks: 100, Currency: "BYN"})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "missing checkout token")
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/beyag/payments/tx_1", r.URL.Path)
		w.Write([]byte(`{"transaction":{"uid":"tx_1","status":"successful","payment_method":"credit_card"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	status, err := client.GetStatus(context.Background(), "tx_1")

	require.NoError(t, err)
	assert.Equal(t, "successful", status.Status)
	assert.Equal(t, "credit_card", status.PaymentMethod)
}

func TestGetStatusUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetStatus(context.Background(), "tx_1")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestGetStatusContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	_, err := client.GetStatus(ctx, "tx_1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		status   string
		expected Outcome
	}{
		{"successful", OutcomeSuccessful},
		{"SUCCESS", OutcomeSuccessful},
		{"completed", OutcomeSuccessful},
		{"failed", OutcomeFailed},
		{"error", OutcomeFailed},
		{"declined", OutcomeFailed},
		{"cancelled", OutcomeFailed},
		{"pending", OutcomeIndeterminate},
		{"waiting_for_3ds", OutcomeIndeterminate},
		{"", OutcomeIndeterminate},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, Classify(tc.status), "status %q", tc.status)
	}
}

func TestMethod(t *testing.T) {
	assert.Equal(t, "card", Method("credit_card"))
	assert.Equal(t, "card", Method("CreditCard"))
	assert.Equal(t, "erip", Method("erip"))
	assert.Equal(t, "", Method("wallet"))
	assert.Equal(t, "", Method(""))
}
