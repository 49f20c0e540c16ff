package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func doRequest(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", TestAPIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, userID uuid.UUID) map[string]string {
	t.Helper()
	token, err := middleware.IssueToken(TestJWTSecret, TestJWTIssuer, userID, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestCheckoutAPI_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	app := NewTestApp(t, testDB)
	pool := testDB.Pool

	t.Run("authenticated checkout applies coupon and reconciles points", func(t *testing.T) {
		CleanupDB(t, pool)
		SeedVariant(t, pool, "TEE-S", 5)
		SeedVariant(t, pool, "TEE-M", 5)
		SeedCoupon(t, pool, "SAVE10", "10", 3)
		userID := SeedUser(t, pool, "buyer@example.com")
		SeedLoyalty(t, pool, userID, 100)
		SeedCart(t, pool, CartSpec{
			UserID:      userID,
			CouponCode:  "SAVE10",
			PointsSpent: 40,
			Lines: []CartLine{
				{VariantID: "TEE-S", Quantity: 2, Price: "50"},
				{VariantID: "TEE-M", Quantity: 1, Price: "100"},
			},
		})

		w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", nil, bearer(t, userID))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var result model.CheckoutResult
		require.NoError(t, json.NewDecoder(w.Body).Decode(&result))

		// 200 - 10 - 40
		assert.True(t, decimal.NewFromInt(150).Equal(result.Order.TotalAmount), result.Order.TotalAmount.String())
		assert.Equal(t, model.StatusPending, result.Order.Status)
		assert.Equal(t, "SAVE10", result.Order.CouponCode)
		assert.Equal(t, "1 Vo Van Tan", result.Order.Shipping.AddressDetail)
		assert.Equal(t, 20, result.PointsEarned)
		assert.False(t, result.GuestCreated)
		require.Len(t, result.Items, 2)

		assert.Equal(t, 3, Stock(t, pool, "TEE-S"))
		assert.Equal(t, 4, Stock(t, pool, "TEE-M"))
		assert.Equal(t, 2, CouponQuantity(t, pool, "SAVE10"))
		assert.Equal(t, 100-40+20, LoyaltyBalance(t, pool, userID))
		assert.Zero(t, Count(t, pool, "carts"))
		assert.Zero(t, Count(t, pool, "cart_items"))

		confirmations := app.Gateway.Sent("order_confirmed")
		require.Len(t, confirmations, 1)
		assert.Equal(t, "buyer@example.com", confirmations[0].Email)
		assert.Equal(t, result.Order.ID, confirmations[0].OrderID)

		// The stored order reads back with items and the buyer's name.
		w = doRequest(t, app.Handler, http.MethodGet, "/api/orders/"+result.Order.ID.String(), nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var stored model.OrderResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&stored))
		assert.Equal(t, "Registered User", stored.FullName)
		assert.Len(t, stored.Items, 2)

		w = doRequest(t, app.Handler, http.MethodGet, "/api/orders/"+result.Order.ID.String()+"/status", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var history []model.OrderStatusHistory
		require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
		require.Len(t, history, 1)
		assert.Equal(t, model.StatusPending, history[0].Status)
	})

	t.Run("guest checkout provisions an account", func(t *testing.T) {
		CleanupDB(t, pool)
		SeedVariant(t, pool, "MUG", 2)
		SeedCart(t, pool, CartSpec{
			SessionID: "session-abc",
			Lines:     []CartLine{{VariantID: "MUG", Quantity: 2, Price: "12.50"}},
		})

		body := map[string]any{
			"email":    "Guest@Example.com",
			"fullName": "Lan Nguyen",
			"address":  map[string]string{"district": "District 1", "province": "Ho Chi Minh", "addressDetail": "12 Le Loi"},
		}
		w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", body,
			map[string]string{"X-Session-ID": "session-abc"})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var result model.CheckoutResult
		require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
		assert.True(t, result.GuestCreated)
		assert.True(t, decimal.NewFromInt(25).Equal(result.Order.TotalAmount))
		assert.Equal(t, "12 Le Loi", result.Order.Shipping.AddressDetail)
		assert.Equal(t, 2, result.PointsEarned)
		assert.Zero(t, Stock(t, pool, "MUG"))

		var hash, role string
		require.NoError(t, pool.QueryRow(t.Context(),
			`SELECT u.password_hash, r.role_name FROM users u JOIN user_roles r ON r.user_id = u.id WHERE u.email = $1`,
			"guest@example.com").Scan(&hash, &role))
		assert.Equal(t, model.RoleUser, role)

		accounts := app.Gateway.Sent("account_created")
		require.NotEmpty(t, accounts)
		sent := accounts[len(accounts)-1]
		assert.Equal(t, "guest@example.com", sent.Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(sent.Password)))
		assert.Equal(t, 2, LoyaltyBalance(t, pool, result.Order.UserID))
	})

	t.Run("guest with a registered email is rejected without side effects", func(t *testing.T) {
		CleanupDB(t, pool)
		SeedVariant(t, pool, "MUG", 2)
		SeedUser(t, pool, "taken@example.com")
		SeedCart(t, pool, CartSpec{
			SessionID: "session-taken",
			Lines:     []CartLine{{VariantID: "MUG", Quantity: 1, Price: "12.50"}},
		})

		body := map[string]any{"sessionId": "session-taken", "email": "taken@example.com", "fullName": "Someone"}
		w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeEmailRegistered, decodeError(t, w).Error)
		assert.Equal(t, 1, Count(t, pool, "users"))
		assert.Equal(t, 2, Stock(t, pool, "MUG"))
		assert.Zero(t, Count(t, pool, "orders"))
	})

	t.Run("insufficient stock names the variant and rolls back", func(t *testing.T) {
		CleanupDB(t, pool)
		SeedVariant(t, pool, "HAT", 1)
		SeedVariant(t, pool, "SCARF", 10)
		SeedCoupon(t, pool, "SAVE5", "5", 1)
		userID := SeedUser(t, pool, "buyer@example.com")
		SeedLoyalty(t, pool, userID, 50)
		SeedCart(t, pool, CartSpec{
			UserID:      userID,
			CouponCode:  "SAVE5",
			PointsSpent: 10,
			Lines: []CartLine{
				{VariantID: "SCARF", Quantity: 1, Price: "30"},
				{VariantID: "HAT", Quantity: 2, Price: "20"},
			},
		})

		w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", nil, bearer(t, userID))

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, model.ErrCodeInsufficientStock, resp.Error)
		assert.Equal(t, "HAT", resp.VariantID)

		assert.Equal(t, 1, Stock(t, pool, "HAT"))
		assert.Equal(t, 10, Stock(t, pool, "SCARF"))
		assert.Equal(t, 1, CouponQuantity(t, pool, "SAVE5"))
		assert.Equal(t, 50, LoyaltyBalance(t, pool, userID))
		assert.Equal(t, 1, Count(t, pool, "carts"))
		assert.Zero(t, Count(t, pool, "orders"))
	})

	t.Run("exhausted coupon is a conflict", func(t *testing.T) {
		CleanupDB(t, pool)
		SeedVariant(t, pool, "HAT", 5)
		SeedCoupon(t, pool, "GONE", "5", 0)
		userID := SeedUser(t, pool, "buyer@example.com")
		SeedCart(t, pool, CartSpec{
			UserID:     userID,
			CouponCode: "GONE",
			Lines:      []CartLine{{VariantID: "HAT", Quantity: 1, Price: "20"}},
		})

		w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", nil, bearer(t, userID))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, model.ErrCodeCouponExhausted, decodeError(t, w).Error)
		assert.Equal(t, 5, Stock(t, pool, "HAT"))
		assert.Zero(t, CouponQuantity(t, pool, "GONE"))
	})

	t.Run("overspent points are rejected", func(t *testing.T) {
		CleanupDB(t, pool)
		SeedVariant(t, pool, "HAT", 5)
		userID := SeedUser(t, pool, "buyer@example.com")
		SeedLoyalty(t, pool, userID, 5)
		SeedCart(t, pool, CartSpec{
			UserID:      userID,
			PointsSpent: 10,
			Lines:       []CartLine{{VariantID: "HAT", Quantity: 1, Price: "20"}},
		})

		w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", nil, bearer(t, userID))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, model.ErrCodeInsufficientPoints, decodeError(t, w).Error)
		assert.Equal(t, 5, LoyaltyBalance(t, pool, userID))
		assert.Equal(t, 5, Stock(t, pool, "HAT"))
	})

	t.Run("empty cart changes nothing", func(t *testing.T) {
		CleanupDB(t, pool)
		userID := SeedUser(t, pool, "buyer@example.com")
		SeedCart(t, pool, CartSpec{UserID: userID})

		w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", nil, bearer(t, userID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeEmptyCart, decodeError(t, w).Error)
		assert.Equal(t, 1, Count(t, pool, "carts"))
	})

	t.Run("guest empty cart provisions no account", func(t *testing.T) {
		CleanupDB(t, pool)
		SeedCart(t, pool, CartSpec{SessionID: "session-empty"})
		mailsBefore := len(app.Gateway.Sent("account_created"))

		body := map[string]any{"sessionId": "session-empty", "email": "late@example.com", "fullName": "Late Buyer"}
		w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeEmptyCart, decodeError(t, w).Error)
		assert.Zero(t, Count(t, pool, "users"))
		assert.Zero(t, Count(t, pool, "addresses"))
		assert.Equal(t, 1, Count(t, pool, "carts"))
		assert.Len(t, app.Gateway.Sent("account_created"), mailsBefore)

		SeedVariant(t, pool, "MUG", 1)
		var cartID string
		require.NoError(t, pool.QueryRow(t.Context(), `SELECT id FROM carts WHERE session_id = $1`, "session-empty").Scan(&cartID))
		_, err := pool.Exec(t.Context(),
			`INSERT INTO cart_items (id, cart_id, variant_id, quantity, price) VALUES ($1, $2, 'MUG', 1, 12.50)`,
			uuid.New(), cartID)
		require.NoError(t, err)

		w = doRequest(t, app.Handler, http.MethodPost, "/api/checkout", body, nil)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, 1, Count(t, pool, "users"))
	})

	t.Run("checkout metrics are exported", func(t *testing.T) {
		w := doRequest(t, app.Handler, http.MethodGet, "/metrics", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "checkout_total")
	})
}

func TestOrderAPI_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	app := NewTestApp(t, testDB)
	pool := testDB.Pool

	CleanupDB(t, pool)
	SeedVariant(t, pool, "TEE-S", 10)
	SeedVariant(t, pool, "TEE-M", 10)
	userID := SeedUser(t, pool, "buyer@example.com")
	SeedCart(t, pool, CartSpec{
		UserID: userID,
		Lines:  []CartLine{{VariantID: "TEE-S", Quantity: 1, Price: "50"}},
	})

	w := doRequest(t, app.Handler, http.MethodPost, "/api/checkout", nil, bearer(t, userID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed model.CheckoutResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))
	orderPath := "/api/orders/" + placed.Order.ID.String()

	t.Run("advance status appends history", func(t *testing.T) {
		for _, status := range []string{"Confirmed", "Shipped"} {
			w := doRequest(t, app.Handler, http.MethodPost, orderPath+"/status", map[string]string{"status": status}, nil)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		}

		w := doRequest(t, app.Handler, http.MethodGet, orderPath+"/status", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var history []model.OrderStatusHistory
		require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
		require.Len(t, history, 3)
		assert.Equal(t, "Shipped", history[0].Status)
		assert.Equal(t, model.StatusPending, history[2].Status)

		w = doRequest(t, app.Handler, http.MethodGet, orderPath, nil, nil)
		var order model.OrderResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&order))
		assert.Equal(t, "Shipped", order.Status)
	})

	t.Run("blank status is rejected", func(t *testing.T) {
		w := doRequest(t, app.Handler, http.MethodPost, orderPath+"/status", map[string]string{"status": "  "}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeInvalidStatus, decodeError(t, w).Error)
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		w := doRequest(t, app.Handler, http.MethodGet, "/api/orders/"+uuid.NewString(), nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, model.ErrCodeOrderNotFound, decodeError(t, w).Error)
	})

	t.Run("amend replaces items and records a changed status", func(t *testing.T) {
		patch := map[string]any{
			"userId":       userID,
			"purchaseDate": placed.Order.PurchaseDate,
			"totalAmount":  "300",
			"couponCode":   "",
			"status":       "Amended",
			"items": []map[string]any{
				{"variantId": "TEE-M", "quantity": 3, "price": "100"},
			},
		}
		w := doRequest(t, app.Handler, http.MethodPut, orderPath, patch, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var amended model.OrderResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&amended))
		assert.True(t, decimal.NewFromInt(300).Equal(amended.TotalAmount))
		require.Len(t, amended.Items, 1)
		assert.Equal(t, "TEE-M", amended.Items[0].VariantID)
		assert.Equal(t, "Variant TEE-M", amended.Items[0].VariantName)

		w = doRequest(t, app.Handler, http.MethodGet, orderPath+"/status", nil, nil)
		var history []model.OrderStatusHistory
		require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
		assert.Equal(t, "Amended", history[0].Status)
	})

	t.Run("amend with unknown variant is rejected", func(t *testing.T) {
		patch := map[string]any{
			"userId":       userID,
			"purchaseDate": placed.Order.PurchaseDate,
			"status":       "Amended",
			"items":        []map[string]any{{"variantId": "NOPE", "quantity": 1, "price": "1"}},
		}
		w := doRequest(t, app.Handler, http.MethodPut, orderPath, patch, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, model.ErrCodeVariantNotFound, resp.Error)
		assert.Equal(t, "NOPE", resp.VariantID)
	})

	t.Run("listing, history and timeline", func(t *testing.T) {
		w := doRequest(t, app.Handler, http.MethodGet, "/api/orders?limit=5", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var orders []model.Order
		require.NoError(t, json.NewDecoder(w.Body).Decode(&orders))
		assert.Len(t, orders, 1)

		w = doRequest(t, app.Handler, http.MethodGet, "/api/users/"+userID.String()+"/orders", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.NewDecoder(w.Body).Decode(&orders))
		assert.Len(t, orders, 1)

		w = doRequest(t, app.Handler, http.MethodGet, "/api/orders/timeline?filter=today", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.NewDecoder(w.Body).Decode(&orders))
		assert.Len(t, orders, 1)

		w = doRequest(t, app.Handler, http.MethodGet, "/api/orders/timeline?filter=yesterday", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.NewDecoder(w.Body).Decode(&orders))
		assert.Empty(t, orders)

		w = doRequest(t, app.Handler, http.MethodGet, "/api/users/"+uuid.NewString()+"/orders", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("variant catalogue reflects reserved stock", func(t *testing.T) {
		w := doRequest(t, app.Handler, http.MethodGet, "/api/variants/TEE-S", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var variant model.Variant
		require.NoError(t, json.NewDecoder(w.Body).Decode(&variant))
		assert.Equal(t, 9, variant.Stock)

		w = doRequest(t, app.Handler, http.MethodGet, "/api/variants/NOPE", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
