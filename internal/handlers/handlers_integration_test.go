package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"herbstore/internal/app"
	"herbstore/internal/cache"
	"herbstore/internal/cart"
	"herbstore/internal/checkout"
	"herbstore/internal/config"
	"herbstore/internal/database"
	"herbstore/internal/middleware"
	"herbstore/internal/models"
	"herbstore/internal/repositories"
	"herbstore/pkg/paystack"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakePaystack is an httptest stand-in for the Paystack transaction API.
type fakePaystack struct {
	*httptest.Server
	mu           sync.Mutex
	transactions map[string]*paystack.Transaction
	inits        atomic.Int32
	delay        time.Duration
	// verifyStatus, when set, answers every verify call with that status.
	verifyStatus int
}

func newFakePaystack(t *testing.T) *fakePaystack {
	t.Helper()
	f := &fakePaystack{transactions: make(map[string]*paystack.Transaction)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakePaystack) serve(w http.ResponseWriter, r *http.Request) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/transaction/initialize":
		f.inits.Add(1)
		var req paystack.InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":false,"message":"Invalid body"}`)
			return
		}
		f.mu.Lock()
		f.transactions[req.Reference] = &paystack.Transaction{
			Status:    "pending",
			Reference: req.Reference,
			Amount:    req.Amount,
			Currency:  req.Currency,
			Metadata:  req.Metadata,
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": paystack.InitializeResponse{
				AuthorizationURL: "https://checkout.paystack.test/" + req.Reference,
				AccessCode:       "ac_" + req.Reference,
				Reference:        req.Reference,
			},
		})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/transaction/verify/"):
		ref := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		if f.verifyStatus != 0 {
			w.WriteHeader(f.verifyStatus)
			fmt.Fprint(w, `{"status":false,"message":"Request rejected"}`)
			return
		}
		f.mu.Lock()
		tx, ok := f.transactions[ref]
		var copied paystack.Transaction
		if ok {
			copied = *tx
		}
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"status":false,"message":"Transaction reference not found"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data":    copied,
		})

	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":false,"message":"not found"}`)
	}
}

func (f *fakePaystack) settle(reference, status string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := f.transactions[reference]
	tx.Status = status
	tx.Amount = amount
}

type testEnv struct {
	app     *app.App
	gateway *fakePaystack
	db      *gorm.DB
	cfg     *config.Config
}

// setupApp builds the full application against in-memory SQLite and a
// fake gateway.
func setupApp(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	cfg, err := config.Load(v)
	require.NoError(t, err)

	gateway := newFakePaystack(t)
	cfg.Paystack.BaseURL = gateway.URL
	cfg.Paystack.SecretKey = "sk_test_123"
	cfg.Paystack.Timeout = 2 * time.Second
	cfg.RateLimitMax = 20
	for _, m := range mutate {
		m(cfg)
	}

	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	a := app.New(cfg, app.Deps{
		DB: db,
		Gateway: paystack.NewClient(paystack.Config{
			BaseURL:   cfg.Paystack.BaseURL,
			SecretKey: cfg.Paystack.SecretKey,
			Timeout:   cfg.Paystack.Timeout,
		}),
		References: cache.NewMemoryReferences(cfg.ReferenceTTL),
		Carts:      cart.NewMemoryStore(),
		Flows:      checkout.NewMemoryStore(),
		Quiet:      true,
	})

	seedProductsForTest(t, repositories.NewGORMProductRepository(db))

	return &testEnv{app: a, gateway: gateway, db: db, cfg: cfg}
}

// seedProductsForTest populates the catalog for tests.
func seedProductsForTest(t *testing.T, repo repositories.ProductRepository) {
	t.Helper()
	products := []models.Product{
		{ID: "p1", Name: "Moringa Powder", Description: "Dried moringa leaf", Price: decimal.RequireFromString("7500.00"), Stock: 10},
		{ID: "p2", Name: "Hibiscus Tea", Description: "Zobo leaves", Price: decimal.RequireFromString("1800.00"), Stock: 25},
	}
	for i := range products {
		require.NoError(t, repo.Save(&products[i]))
	}
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type request struct {
	method  string
	path    string
	body    interface{}
	token   string
	session string
}

func (e *testEnv) do(t *testing.T, r request) (*http.Response, map[string]interface{}) {
	t.Helper()
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.session != "" {
		req.Header.Set(middleware.SessionHeader, r.session)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := e.do(t, request{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]string{
		"email":    email,
		"password": password,
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	return body["token"].(string)
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	require.NoError(t, e.app.Auth.EnsureAdmin("Admin", "admin@herbstore.test", "admin-secret"))
	return e.login(t, "admin@herbstore.test", "admin-secret")
}

func (e *testEnv) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func adminRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func scenarioDraft(reference string) map[string]interface{} {
	return map[string]interface{}{
		"customer": map[string]string{
			"first_name": "Ada",
			"last_name":  "Obi",
			"email":      "ada@example.com",
			"phone":      "+2348012345678",
		},
		"shipping": map[string]string{
			"address": "12 Herbal Close",
			"city":    "Lagos",
			"state":   "Lagos",
		},
		"items": []map[string]interface{}{
			{"product_id": "p1", "quantity": 2, "unit_price": "7500.00"},
		},
		"total_amount": "15000.00",
		"reference":    reference,
	}
}

func TestHealth(t *testing.T) {
	env := setupApp(t)
	resp, body := env.do(t, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := setupApp(t)

	register := map[string]interface{}{
		"name":     "Test User",
		"email":    "test@example.com",
		"password": "password123",
		"is_admin": true,
	}
	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/register", body: register})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User registered successfully", body["message"])
	user := body["user"].(map[string]interface{})
	assert.Nil(t, user["password"])
	assert.Equal(t, false, user["is_admin"])

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/register", body: register})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email_taken", body["error"])

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{"email": "bad"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["errors"])

	token := env.login(t, "test@example.com", "password123")
	identity, err := env.app.Auth.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", identity.Email)
	assert.False(t, identity.IsAdmin)

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]string{
		"email":    "test@example.com",
		"password": "wrong-password",
	}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", body["error"])
}

func TestProductEndpoints(t *testing.T) {
	env := setupApp(t)
	admin := env.adminToken(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	resp.Body.Close()
	assert.Len(t, products, 2)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products?q=zobo&in_stock=true", nil), -1)
	require.NoError(t, err)
	products = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	resp.Body.Close()
	require.Len(t, products, 1)
	assert.Equal(t, "p2", products[0].ID)

	newProduct := map[string]interface{}{
		"name":        "Bitter Leaf Extract",
		"description": "Cold pressed",
		"price":       "3200.00",
		"stock":       50,
	}
	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/products", body: newProduct, token: admin})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	id := body["id"].(string)
	assert.NotEmpty(t, id)

	resp, body = env.do(t, request{method: http.MethodGet, path: "/api/v1/products/" + id})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bitter Leaf Extract", body["name"])

	newProduct["name"] = "Bitter Leaf Extract 250ml"
	resp, body = env.do(t, request{method: http.MethodPut, path: "/api/v1/admin/products/" + id, body: newProduct, token: admin})
	assert.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Bitter Leaf Extract 250ml", body["name"])

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/products", body: map[string]interface{}{"name": "X", "price": "0"}, token: admin})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])

	resp, _ = env.do(t, request{method: http.MethodDelete, path: "/api/v1/admin/products/" + id, token: admin})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(t, request{method: http.MethodGet, path: "/api/v1/products/" + id})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])
}

func TestAdminGuard(t *testing.T) {
	env := setupApp(t)

	resp, _ := env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"name": "Shopper", "email": "shopper@example.com", "password": "password123",
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	shopper := env.login(t, "shopper@example.com", "password123")
	admin := env.adminToken(t)

	for _, path := range []string{"/api/v1/admin/orders", "/api/v1/admin/orders/some-id"} {
		resp, _ = env.do(t, request{method: http.MethodGet, path: path})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp, _ = env.do(t, request{method: http.MethodGet, path: path, token: "not-a-token"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp, body := env.do(t, request{method: http.MethodGet, path: path, token: shopper})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
		assert.Equal(t, "forbidden", body["error"])
	}

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/products", token: shopper, body: map[string]interface{}{
		"name": "Sneaky", "price": "1.00",
	}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, body)

	resp, _ = env.do(t, request{method: http.MethodGet, path: "/api/v1/admin/orders", token: admin})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckoutEndToEnd(t *testing.T) {
	env := setupApp(t)
	const session = "sess-e2e-0001"

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/cart/items", session: session, body: map[string]interface{}{
		"productId": "p1", "quantity": 2,
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, session, resp.Header.Get(middleware.SessionHeader))

	// Payment before shipping details is not a valid step.
	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/checkout/pay", session: session})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, body)

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/checkout/shipping", session: session, body: map[string]interface{}{
		"customer": map[string]string{"first_name": "Ada", "last_name": "Obi", "email": "ada@example.com"},
		"shipping": map[string]string{"address": "12 Herbal Close", "city": "Lagos", "state": "Lagos"},
	}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"phone": "required"}, body["errors"])

	draft := scenarioDraft("")
	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/checkout/shipping", session: session, body: map[string]interface{}{
		"customer": draft["customer"],
		"shipping": draft["shipping"],
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "payment", body["state"])

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/checkout/pay", session: session})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	reference := body["reference"].(string)
	assert.Contains(t, body["redirectUrl"], reference)
	assert.Equal(t, int64(0), env.orderCount(t))

	env.gateway.settle(reference, paystack.StatusSuccess, 1500000)

	// Browser comes back through the redirect callback.
	resp, _ = env.do(t, request{method: http.MethodGet, path: "/api/v1/payments/callback?reference=" + reference, session: session})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location.String(), env.cfg.Payment.SuccessURL), location.String())
	orderID := location.Query().Get("orderId")
	assert.NotEmpty(t, orderID)
	assert.Equal(t, reference, location.Query().Get("reference"))

	// The client poll races in afterwards and gets the same order.
	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/verify", session: session, body: map[string]string{"reference": reference}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, orderID, body["orderId"])
	assert.Equal(t, int64(1), env.orderCount(t))

	resp, body = env.do(t, request{method: http.MethodGet, path: "/api/v1/checkout", session: session})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "confirmation", body["state"])
	assert.Equal(t, orderID, body["order_id"])

	resp, body = env.do(t, request{method: http.MethodGet, path: "/api/v1/cart", session: session})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])

	// Admin sees the recorded order with its single line.
	admin := env.adminToken(t)
	resp, body = env.do(t, request{method: http.MethodGet, path: "/api/v1/admin/orders/" + orderID, token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, reference, body["payment_reference"])
	total, err := decimal.NewFromString(fmt.Sprint(body["total_amount"]))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(15000)), "total %s", total)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, float64(2), items[0].(map[string]interface{})["quantity"])

	resp, body = env.do(t, request{method: http.MethodGet, path: "/api/v1/admin/orders/by-reference/" + reference, token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, orderID, body["id"])

	resp, body = env.do(t, request{method: http.MethodPatch, path: "/api/v1/admin/orders/" + orderID + "/status", token: admin, body: map[string]string{"status": "cancelled"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "cancelled", body["order"].(map[string]interface{})["status"])

	resp, err = env.app.Test(adminRequest(http.MethodGet, "/api/v1/admin/orders?status=cancelled&email=ADA@example.com", admin), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []models.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed, 1)
	assert.Equal(t, orderID, listed[0].ID)
	resp, body = env.do(t, request{method: http.MethodPatch, path: "/api/v1/admin/orders/" + orderID + "/status", token: admin, body: map[string]string{"status": "teleported"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])
}

func TestPaymentInitializeEndpoint(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("order_abc123")})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "order_abc123", body["reference"])
	assert.Contains(t, body["redirectUrl"], "order_abc123")

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("order_abc123")})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["error"])

	invalid := scenarioDraft("order_zero01")
	invalid["total_amount"] = "0"
	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: invalid})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])

	empty := scenarioDraft("order_empty1")
	empty["items"] = []interface{}{}
	resp, _ = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: empty})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, int32(1), env.gateway.inits.Load())
	assert.Equal(t, int64(0), env.orderCount(t))
}

func TestPaymentInitializePricesFromCatalog(t *testing.T) {
	env := setupApp(t)

	tampered := scenarioDraft("order_cheap1")
	tampered["items"] = []map[string]interface{}{
		{"product_id": "p1", "quantity": 2, "unit_price": "1.00"},
	}
	tampered["total_amount"] = "2.00"
	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: tampered})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])

	unknown := scenarioDraft("order_ghost1")
	unknown["items"] = []map[string]interface{}{
		{"product_id": "p404", "quantity": 1, "unit_price": "15000.00"},
	}
	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: unknown})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])
	assert.Equal(t, int32(0), env.gateway.inits.Load())

	// Omitted prices are filled in; the total still has to add up.
	unpriced := scenarioDraft("order_fill01")
	unpriced["items"] = []map[string]interface{}{
		{"product_id": "p1", "quantity": 2},
	}
	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: unpriced})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, int32(1), env.gateway.inits.Load())
}

func TestPaymentInitializeRejectsBlankDetails(t *testing.T) {
	env := setupApp(t)

	blank := scenarioDraft("order_blank1")
	blank["customer"] = map[string]string{
		"first_name": "   ",
		"last_name":  "\t",
		"email":      "ada@example.com",
		"phone":      "+2348012345678",
	}
	blank["shipping"] = map[string]string{"address": "12 Herbal Close", "city": " ", "state": "Lagos"}

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: blank})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])
	assert.Equal(t, int32(0), env.gateway.inits.Load())
}

func TestPaymentFailureRoutes(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("order_fail01")})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	env.gateway.settle("order_fail01", "failed", 1500000)

	resp, _ = env.do(t, request{method: http.MethodGet, path: "/api/v1/payments/callback?reference=order_fail01"})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location.String(), env.cfg.Payment.FailureURL), location.String())
	assert.NotEmpty(t, location.Query().Get("error"))
	assert.Empty(t, location.Query().Get("orderId"))

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/verify", body: map[string]string{"reference": "order_fail01"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "payment_not_successful", body["error"])
	assert.Nil(t, body["order"])

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/verify", body: map[string]string{"reference": "order_unknown"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "payment_not_successful", body["error"])

	assert.Equal(t, int64(0), env.orderCount(t))
}

func TestPaymentVerifyRejectedByGateway(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			env := setupApp(t)
			resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("order_rej001")})
			require.Equal(t, http.StatusOK, resp.StatusCode, body)
			env.gateway.verifyStatus = status

			resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/verify", body: map[string]string{"reference": "order_rej001"}})
			assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
			assert.Equal(t, "gateway_error", body["error"])
			assert.NotContains(t, fmt.Sprint(body), "Request rejected")
		})
	}
}

func TestPaymentAmountMismatch(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("order_short1")})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	env.gateway.settle("order_short1", paystack.StatusSuccess, 1499999)

	resp, body = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/verify", body: map[string]string{"reference": "order_short1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "amount_mismatch", body["error"])
	assert.Equal(t, int64(0), env.orderCount(t))
}

func TestPaymentGatewayTimeout(t *testing.T) {
	env := setupApp(t, func(cfg *config.Config) {
		cfg.Paystack.Timeout = 100 * time.Millisecond
	})
	env.gateway.delay = 500 * time.Millisecond

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("order_slow01")})
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "gateway_timeout", body["error"])
	assert.NotContains(t, fmt.Sprint(body), "paystack")
}

func TestPaymentRateLimit(t *testing.T) {
	env := setupApp(t, func(cfg *config.Config) {
		cfg.RateLimitMax = 2
		cfg.RateLimitWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("")})
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
	}

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("")})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["error"])
	assert.Equal(t, int32(2), env.gateway.inits.Load())

	// Reconciliation is not throttled.
	resp, _ = env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/verify", body: map[string]string{"reference": "order_unknown"}})
	assert.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestConcurrentReconcileRecordsOneOrder(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, request{method: http.MethodPost, path: "/api/v1/payments/initialize", body: scenarioDraft("order_xyz")})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	env.gateway.settle("order_xyz", paystack.StatusSuccess, 1500000)

	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := env.app.Payments.Reconcile(context.Background(), "order_xyz")
			errs[i] = err
			if err == nil {
				ids[i] = result.Order.ID
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, int64(1), env.orderCount(t))
}
