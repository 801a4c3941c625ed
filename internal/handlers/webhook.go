// internal/handlers/webhook.go
package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kitshop/backend/internal/models"
	"github.com/kitshop/backend/internal/services"
)

// WebhookHandler is the asynchronous notification ingress. It treats
// the payload as a trigger only: the claimed status is never applied
// directly, the order service re-fetches authoritative state from the
// gateway. Delivery is never started from here; the bot asks for it
// separately.
type WebhookHandler struct {
	db            *gorm.DB
	orderService  *services.OrderService
	webhookSecret string
}

// webhookEnvelope covers both payload shapes bePaid sends: a flat
// event notification and one with a nested transaction object.
type webhookEnvelope struct {
	EventType     string `json:"event_type"`
	TransactionID string `json:"transaction_id"`
	Transaction   struct {
		UID string `json:"uid"`
	} `json:"transaction"`
}

func NewWebhookHandler(db *gorm.DB, orderService *services.OrderService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		db:            db,
		orderService:  orderService,
		webhookSecret: webhookSecret,
	}
}

// POST /webhook/bepaid
func (h *WebhookHandler) HandleBepaid(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read body")
		return
	}

	signatureValid := h.verifySignature(body, c.GetHeader("Content-Signature"))
	if h.webhookSecret != "" && !signatureValid {
		logrus.WithField("ip", c.ClientIP()).Warn("Webhook signature mismatch")
		c.String(http.StatusUnauthorized, "invalid signature")
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		logrus.WithError(err).Warn("Unparseable webhook payload")
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}

	transactionID := envelope.TransactionID
	if transactionID == "" {
		transactionID = envelope.Transaction.UID
	}

	event := &models.WebhookEvent{
		Provider:       "bepaid",
		EventType:      envelope.EventType,
		TransactionID:  transactionID,
		Payload:        string(body),
		SignatureValid: signatureValid,
	}

	switch envelope.EventType {
	case "payment_successful", "payment_failed":
		if err := h.reconcile(c, event, transactionID); err != nil {
			// A non-2xx tells the provider to redeliver; internal
			// failures must not end the retry schedule.
			c.String(http.StatusInternalServerError, "reconciliation failed")
			return
		}
	default:
		// Acknowledge so the gateway stops retrying a notification we
		// intentionally ignore.
		logrus.WithField("event_type", envelope.EventType).Info("Ignoring unknown webhook event type")
		h.record(event, nil)
	}

	c.String(http.StatusOK, "OK")
}

// reconcile returns an error only for internal failures the provider
// should retry. Unknown references and missing ids are recorded and
// acknowledged; redelivery cannot fix them.
func (h *WebhookHandler) reconcile(c *gin.Context, event *models.WebhookEvent, transactionID string) error {
	if transactionID == "" {
		h.record(event, errors.New("missing transaction id"))
		return nil
	}

	order, err := h.orderService.Reconcile(c.Request.Context(), transactionID)
	if err != nil {
		h.record(event, err)
		if errors.Is(err, services.ErrOrderNotFound) {
			// A foreign or unknown reference must not fail the ingress.
			logrus.WithField("transaction_id", transactionID).Warn("Webhook for unknown transaction")
			return nil
		}
		logrus.WithError(err).WithField("transaction_id", transactionID).Error("Webhook reconciliation failed")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"order_id":       order.ID,
		"status":         order.Status,
	}).Info("Webhook processed")
	h.record(event, nil)
	return nil
}

func (h *WebhookHandler) record(event *models.WebhookEvent, processingErr error) {
	now := time.Now()
	event.ProcessedAt = &now
	if processingErr != nil {
		event.ProcessingError = processingErr.Error()
	}

	if err := h.db.Create(event).Error; err != nil {
		logrus.WithError(err).Error("Failed to record webhook event")
	}
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" {
		return false
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
