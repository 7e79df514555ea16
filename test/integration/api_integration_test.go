package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestCheckoutFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := SetupTestEnv(t)
	adminToken := env.Login(t, adminUsername, adminPassword)
	aliceToken := env.Register(t, "alice")

	// Admin publishes a product
	w := env.Do(t, http.MethodPost, "/api/products/", adminToken, map[string]interface{}{
		"name":     "Notebook",
		"price":    "19.99",
		"stock":    10,
		"category": "Stationery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode[model.Product](t, w.Body.Bytes())

	var orderID int64

	t.Run("customer cannot change the catalogue", func(t *testing.T) {
		w := env.Do(t, http.MethodPost, "/api/products/", aliceToken, map[string]interface{}{
			"name": "Pen", "price": "1.00", "category": "Stationery",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = env.Do(t, http.MethodPut, fmt.Sprintf("/api/products/%d/", product.ID), aliceToken, map[string]interface{}{
			"name": "Free notebook", "price": "0.00", "category": "Stationery",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = env.Do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", product.ID), aliceToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = env.Do(t, http.MethodGet, fmt.Sprintf("/api/products/%d/", product.ID), "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		unchanged := decode[model.Product](t, w.Body.Bytes())
		assert.Equal(t, "Notebook", unchanged.Name)
		assert.Equal(t, "19.99", unchanged.Price.StringFixed(2))
	})

	t.Run("catalogue is public", func(t *testing.T) {
		w := env.Do(t, http.MethodGet, fmt.Sprintf("/api/products/%d/", product.ID), "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "19.99", decode[model.Product](t, w.Body.Bytes()).Price.StringFixed(2))
	})

	t.Run("ordering a product yields one pending order", func(t *testing.T) {
		w := env.Do(t, http.MethodPost, "/api/order/", aliceToken, map[string]interface{}{"product_id": product.ID})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		item := decode[model.OrderItem](t, w.Body.Bytes())
		assert.Equal(t, 1, item.Quantity)
		assert.True(t, item.Price.Equal(decimal.RequireFromString("19.99")))

		// Adding the same product again updates the line instead of duplicating it
		w = env.Do(t, http.MethodPost, "/api/order/", aliceToken, map[string]interface{}{"product_id": product.ID})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.Do(t, http.MethodGet, "/api/orders/", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		orders := decode[[]model.Order](t, w.Body.Bytes())
		require.Len(t, orders, 1)
		assert.Equal(t, model.OrderStatusPending, orders[0].Status)
		assert.True(t, orders[0].TotalAmount.Equal(decimal.RequireFromString("19.99")), orders[0].TotalAmount.String())
		require.Len(t, orders[0].Items, 1)

		orderID = orders[0].ID
	})

	t.Run("orders are private to their owner", func(t *testing.T) {
		bobToken := env.Register(t, "bob")

		w := env.Do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/", orderID), bobToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.Do(t, http.MethodGet, "/api/orders/", bobToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode[[]model.Order](t, w.Body.Bytes()))
	})

	t.Run("payment intent charges the order total", func(t *testing.T) {
		w := env.Do(t, http.MethodPost, "/api/payment/create-intent/", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "pi_1_secret", decode[model.PaymentIntentResponse](t, w.Body.Bytes()).ClientSecret)

		intents := env.Stripe.Intents()
		require.Len(t, intents, 1)
		assert.Equal(t, "1999", intents[0]["amount"])
		assert.Equal(t, "usd", intents[0]["currency"])
		assert.Equal(t, fmt.Sprint(orderID), intents[0]["order_id"])
	})

	t.Run("invalid webhook signature is rejected", func(t *testing.T) {
		payload := paymentEvent("evt_forged", "payment_intent.succeeded", "pi_1", orderID)
		w := env.Webhook(t, payload, signPayload(payload, "whsec_wrong"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, float64(1), testutil.ToFloat64(env.Metrics.WebhookDeliveries.WithLabelValues("invalid")))
	})

	t.Run("succeeded webhook completes the order once", func(t *testing.T) {
		payload := paymentEvent("evt_1", "payment_intent.succeeded", "pi_1", orderID)

		for i := 0; i < 2; i++ {
			w := env.Webhook(t, payload, signPayload(payload, testWebhookSecret))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.True(t, decode[model.WebhookAck](t, w.Body.Bytes()).Received)
		}

		w := env.Do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/", orderID), aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.OrderStatusSuccessful, decode[model.Order](t, w.Body.Bytes()).Status)

		assert.Equal(t, float64(1), testutil.ToFloat64(env.Metrics.WebhookDeliveries.WithLabelValues("applied")))
		assert.Equal(t, float64(1), testutil.ToFloat64(env.Metrics.WebhookDeliveries.WithLabelValues("duplicate")))

		var paymentStatus string
		require.NoError(t, env.DB.Pool.QueryRow(t.Context(),
			"SELECT payment_status FROM payments WHERE transaction_id = $1", "pi_1").Scan(&paymentStatus))
		assert.Equal(t, string(model.PaymentStatusSucceeded), paymentStatus)
	})

	t.Run("a completed order cannot fail afterwards", func(t *testing.T) {
		payload := paymentEvent("evt_2", "payment_intent.payment_failed", "pi_1", orderID)
		w := env.Webhook(t, payload, signPayload(payload, testWebhookSecret))
		require.Equal(t, http.StatusOK, w.Code)

		w = env.Do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/", orderID), aliceToken, nil)
		assert.Equal(t, model.OrderStatusSuccessful, decode[model.Order](t, w.Body.Bytes()).Status)
	})

	t.Run("nothing left to pay", func(t *testing.T) {
		w := env.Do(t, http.MethodPost, "/api/payment/create-intent/", aliceToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp model.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, model.ErrCodeNoPendingOrder, resp.Code)
		assert.NotEmpty(t, resp.CorrelationID)
	})
}

func TestCartAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := SetupTestEnv(t)
	adminToken := env.Login(t, adminUsername, adminPassword)
	token := env.Register(t, "carol")

	w := env.Do(t, http.MethodPost, "/api/products/", adminToken, map[string]interface{}{
		"name": "Mug", "price": "7.50", "stock": 3, "category": "Kitchen",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	product := decode[model.Product](t, w.Body.Bytes())

	w = env.Do(t, http.MethodPost, "/api/cart/add", token, map[string]interface{}{"product_id": product.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	item := decode[model.CartItem](t, w.Body.Bytes())
	assert.Equal(t, 2, item.Quantity)

	w = env.Do(t, http.MethodPost, "/api/cart/add", token, map[string]interface{}{"product_id": product.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 3, decode[model.CartItem](t, w.Body.Bytes()).Quantity)

	w = env.Do(t, http.MethodPatch, fmt.Sprintf("/api/cart/update/%d/", item.ID), token, map[string]interface{}{"quantity": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decode[model.CartItem](t, w.Body.Bytes()).Quantity)

	w = env.Do(t, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[model.Cart](t, w.Body.Bytes())
	require.Len(t, cart.Items, 1)
	require.NotNil(t, cart.Items[0].Product)
	assert.Equal(t, "Mug", cart.Items[0].Product.Name)

	w = env.Do(t, http.MethodPut, fmt.Sprintf("/api/cart/update/%d", item.ID), token, map[string]interface{}{"quantity": 0})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.Do(t, http.MethodDelete, fmt.Sprintf("/api/cart/update/%d/", item.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.Do(t, http.MethodPost, "/api/cart/add", token, map[string]interface{}{"product_id": 999999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := SetupTestEnv(t)

	w := env.Do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
