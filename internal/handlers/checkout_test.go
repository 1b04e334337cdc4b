package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/database"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/handlers"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePayments struct {
	failSession bool
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, in services.CheckoutSessionInput) (*services.PaymentSession, error) {
	if f.failSession {
		return nil, errors.New("provider injoignable")
	}
	return &services.PaymentSession{URL: "https://pay.example/" + in.OrderID, ExpiresAt: in.ExpiresAt}, nil
}

func (f *fakePayments) CreateRefund(_ context.Context, _ string, _ map[string]string) (string, error) {
	return "re_fake", nil
}

// newTestRouter monte les routes panier/checkout sur une base mémoire,
// sans middleware JWT : l'identité passe par le header de test X-User-ID.
func newTestRouter(t *testing.T, payments services.PaymentProvider) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	carts := services.NewCartService(db)
	checkout := services.NewCheckoutService(db, payments)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
	})
	api := r.Group("/api")
	api.POST("/cart", handlers.CreateCartHandler(carts))
	api.GET("/cart/:cartId", handlers.GetCartHandler(carts))
	api.POST("/cart/:cartId/items", handlers.AddCartItemHandler(carts))
	api.POST("/checkout", handlers.CheckoutHandler(checkout))
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func seedDBBook(t *testing.T, db *gorm.DB, price float64, stock int) models.Book {
	t.Helper()
	book := models.Book{ID: uuid.NewString(), Title: "Livre", Author: "A. Auteur", Price: price, Stock: stock}
	require.NoError(t, db.Create(&book).Error)
	return book
}

func TestGuestCartCheckoutFlow(t *testing.T) {
	r, db := newTestRouter(t, &fakePayments{})
	book := seedDBBook(t, db, 15.00, 10)

	// Création du panier invité : le jeton n'est remis qu'ici.
	w, body := doJSON(t, r, http.MethodPost, "/api/cart", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	token, _ := body["guest_token"].(string)
	require.NotEmpty(t, token)
	cart := body["cart"].(map[string]interface{})
	cartID := cart["id"].(string)

	guestHeaders := map[string]string{"X-Guest-Token": token}

	w, _ = doJSON(t, r, http.MethodPost, "/api/cart/"+cartID+"/items",
		gin.H{"book_id": book.ID, "quantity": 2}, guestHeaders)
	require.Equal(t, http.StatusOK, w.Code)

	// Sans jeton, le panier est invisible.
	w, _ = doJSON(t, r, http.MethodGet, "/api/cart/"+cartID, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = doJSON(t, r, http.MethodPost, "/api/checkout",
		gin.H{"cart_id": cartID}, guestHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["payment_url"], "https://pay.example/")

	order := body["order"].(map[string]interface{})
	assert.Equal(t, 30.00, order["total_price"])
	assert.Equal(t, string(models.OrderStatusPending), order["status"])
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	r, _ := newTestRouter(t, &fakePayments{})
	userID := uuid.NewString()
	headers := map[string]string{"X-User-ID": userID}

	w, body := doJSON(t, r, http.MethodPost, "/api/cart", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	cartID := body["cart"].(map[string]interface{})["id"].(string)

	w, body = doJSON(t, r, http.MethodPost, "/api/checkout", gin.H{"cart_id": cartID}, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "vide")
}

func TestCheckoutPaymentProviderDown(t *testing.T) {
	r, db := newTestRouter(t, &fakePayments{failSession: true})
	book := seedDBBook(t, db, 10.00, 5)
	userID := uuid.NewString()
	headers := map[string]string{"X-User-ID": userID}

	w, body := doJSON(t, r, http.MethodPost, "/api/cart", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	cartID := body["cart"].(map[string]interface{})["id"].(string)

	w, _ = doJSON(t, r, http.MethodPost, "/api/cart/"+cartID+"/items",
		gin.H{"book_id": book.ID, "quantity": 1}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	// 502 : la commande est engagée, l'appelant récupère son identifiant.
	w, body = doJSON(t, r, http.MethodPost, "/api/checkout", gin.H{"cart_id": cartID}, headers)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	orderID, _ := body["order_id"].(string)
	require.NotEmpty(t, orderID)

	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", orderID).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestCheckoutBadPayload(t *testing.T) {
	r, _ := newTestRouter(t, &fakePayments{})
	w, _ := doJSON(t, r, http.MethodPost, "/api/checkout", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
