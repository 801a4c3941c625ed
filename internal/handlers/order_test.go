// internal/handlers/order_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kitshop/backend/internal/config"
	"github.com/kitshop/backend/internal/gateway"
	"github.com/kitshop/backend/internal/models"
	"github.com/kitshop/backend/internal/services"
	"github.com/kitshop/backend/internal/utils"
)

type orderGateway struct {
	createErr error
}

func (g *orderGateway) CreateIntent(ctx context.Context, req *gateway.IntentRequest) (*gateway.Intent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &gateway.Intent{TransactionID: "tx_1", CheckoutURL: "https://checkout.bepaid.by/v2/chk_1"}, nil
}

func (g *orderGateway) GetStatus(ctx context.Context, transactionID string) (*gateway.PaymentStatus, error) {
	return &gateway.PaymentStatus{Status: "successful", PaymentMethod: "credit_card"}, nil
}

type OrderHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	gateway *orderGateway
	router  *gin.Engine
}

func (suite *OrderHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.UserProduct{},
	))
	suite.db = db
	suite.gateway = &orderGateway{}

	cfg := &config.Config{}
	cfg.Payment.Currency = "BYN"
	cfg.Payment.OrderTTLHours = 24

	catalog := services.NewCatalogService(db)
	orderService := services.NewOrderService(db, catalog, suite.gateway, cfg)
	userService := services.NewUserService(db)
	handler := NewOrderHandler(orderService, userService)

	suite.router = gin.New()
	suite.router.POST("/v1/orders", handler.CreateOrder)
	suite.router.POST("/v1/payments/reconcile", handler.Reconcile)
	suite.router.GET("/v1/users/:telegram_id/orders", handler.GetUserOrders)

	product := &models.Product{
		Slug: "kit_child", Name: "Child Kit", PriceKopecks: 4900, Currency: "BYN",
		FileID: "doc_abc", FileType: models.FileTypeDocument, IsActive: true,
	}
	suite.Require().NoError(db.Create(product).Error)
}

func (suite *OrderHandlerTestSuite) postJSON(path, body string) (*httptest.ResponseRecorder, utils.APIResponse) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var resp utils.APIResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func (suite *OrderHandlerTestSuite) TestCreateOrder() {
	w, resp := suite.postJSON("/v1/orders",
		`{"telegram_id":1001,"product_slug":"kit_child","username":"parent_one"}`)

	suite.Equal(http.StatusCreated, w.Code)
	suite.True(resp.Success)

	data := resp.Data.(map[string]interface{})
	suite.Equal("pending", data["status"])
	suite.Equal(float64(4900), data["amount_kopecks"])
	suite.Equal("https://checkout.bepaid.by/v2/chk_1", data["checkout_url"])

	// The user was auto-provisioned from the request
	var user models.User
	suite.Require().NoError(suite.db.First(&user, "telegram_id = ?", 1001).Error)
	suite.Equal("parent_one", user.Username)
}

func (suite *OrderHandlerTestSuite) TestCreateOrderUnknownProduct() {
	w, resp := suite.postJSON("/v1/orders",
		`{"telegram_id":1001,"product_slug":"kit_missing"}`)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("NOT_FOUND", resp.Error.Code)
}

func (suite *OrderHandlerTestSuite) TestCreateOrderAlreadyOwned() {
	_, first := suite.postJSON("/v1/orders", `{"telegram_id":1001,"product_slug":"kit_child"}`)
	suite.True(first.Success)

	// Settle the first order so the grant exists
	_, resp := suite.postJSON("/v1/payments/reconcile", `{"transaction_id":"tx_1"}`)
	suite.True(resp.Success)

	w, resp := suite.postJSON("/v1/orders", `{"telegram_id":1001,"product_slug":"kit_child"}`)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("CONFLICT", resp.Error.Code)
}

func (suite *OrderHandlerTestSuite) TestCreateOrderGatewayDown() {
	suite.gateway.createErr = &gateway.Error{StatusCode: 503, Body: "maintenance"}

	w, resp := suite.postJSON("/v1/orders", `{"telegram_id":1001,"product_slug":"kit_child"}`)

	suite.Equal(http.StatusBadGateway, w.Code)
	suite.Equal("PAYMENT_ERROR", resp.Error.Code)
}

func (suite *OrderHandlerTestSuite) TestCreateOrderValidation() {
	w, resp := suite.postJSON("/v1/orders", `{"product_slug":"kit_child"}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("VALIDATION_ERROR", resp.Error.Code)
}

func (suite *OrderHandlerTestSuite) TestReconcileReturnsSettledState() {
	_, created := suite.postJSON("/v1/orders", `{"telegram_id":1001,"product_slug":"kit_child"}`)
	suite.True(created.Success)

	w, resp := suite.postJSON("/v1/payments/reconcile", `{"transaction_id":"tx_1"}`)

	suite.Equal(http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	suite.Equal("paid", data["status"])
	suite.NotNil(data["paid_at"])
}

func (suite *OrderHandlerTestSuite) TestReconcileUnknownTransaction() {
	w, resp := suite.postJSON("/v1/payments/reconcile", `{"transaction_id":"tx_nope"}`)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("NOT_FOUND", resp.Error.Code)
}

func (suite *OrderHandlerTestSuite) TestGetUserOrders() {
	_, created := suite.postJSON("/v1/orders", `{"telegram_id":1001,"product_slug":"kit_child"}`)
	suite.True(created.Success)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/1001/orders", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var resp utils.APIResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	orders := resp.Data.(map[string]interface{})["orders"].([]interface{})
	suite.Len(orders, 1)
}

func (suite *OrderHandlerTestSuite) TestGetUserOrdersUnknownUser() {
	req := httptest.NewRequest(http.MethodGet, "/v1/users/9999/orders", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
}

func TestOrderHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}
