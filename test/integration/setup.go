package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/storage"
	"storefront/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testWebhookSecret = "whsec_integration"
	adminUsername     = "root"
	adminPassword     = "r00tpassword"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a migrated PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.Migrate(connStr, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// StripeMock stands in for the payment processor API.
type StripeMock struct {
	Server *httptest.Server

	mu      sync.Mutex
	intents []map[string]string
}

// Intents returns the form fields of every payment intent created so far.
func (s *StripeMock) Intents() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.intents...)
}

func newStripeMock(t *testing.T) *StripeMock {
	t.Helper()

	mock := &StripeMock{}
	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mock.mu.Lock()
		mock.intents = append(mock.intents, map[string]string{
			"amount":   r.PostForm.Get("amount"),
			"currency": r.PostForm.Get("currency"),
			"order_id": r.PostForm.Get("metadata[order_id]"),
		})
		n := len(mock.intents)
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"pi_%d","object":"payment_intent","client_secret":"pi_%d_secret","status":"requires_payment_method"}`, n, n)
	}))
	t.Cleanup(mock.Server.Close)

	return mock
}

// TestEnv is a fully wired API backed by a real database.
type TestEnv struct {
	DB      *TestDB
	Handler http.Handler
	Stripe  *StripeMock
	Metrics *telemetry.Metrics
	Orders  service.OrderService
	Carts   service.CartService
}

// SetupTestEnv wires repositories, services and the router the way the API binary does.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	testDB := SetupTestDB(t)
	stripe := newStripeMock(t)
	logger := zerolog.Nop()
	ctx := context.Background()

	authCfg := config.AuthConfig{
		AccessSecret:  "integration-access",
		RefreshSecret: "integration-refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
	paymentCfg := config.PaymentConfig{
		SecretKey:     "sk_test_integration",
		WebhookSecret: testWebhookSecret,
		Currency:      "usd",
		Timeout:       5 * time.Second,
		APIURL:        stripe.Server.URL,
	}

	tx := repository.NewTransactor(testDB.Pool, logger)
	userRepo := repository.NewUserRepository(testDB.Pool, logger)
	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	paymentRepo := repository.NewPaymentRepository(testDB.Pool, logger)

	tokens := auth.NewTokenManager(authCfg)
	metrics := telemetry.NewMetrics()

	userService := service.NewUserService(userRepo, tokens, logger)
	productService := service.NewProductService(productRepo, storage.NewLocalStore(t.TempDir(), logger), logger)
	cartService := service.NewCartService(tx, userRepo, cartRepo, productRepo, logger)
	orderService := service.NewOrderService(tx, userRepo, cartRepo, orderRepo, productRepo, logger)
	paymentService := service.NewPaymentService(tx, orderRepo, paymentRepo,
		payment.NewStripeProcessor(paymentCfg, logger), events.NewNoopPublisher(logger), metrics,
		paymentCfg.NormalisedCurrency(), logger)

	require.NoError(t, userService.EnsureAdmin(ctx, adminUsername, "root@example.com", adminPassword))

	h := router.New(router.Handlers{
		Health:  handler.NewHealthHandler(testDB.Pool, logger),
		User:    handler.NewUserHandler(userService, logger),
		Product: handler.NewProductHandler(productService, logger),
		Cart:    handler.NewCartHandler(cartService, logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		Payment: handler.NewPaymentHandler(paymentService, logger),
	}, tokens, metrics, logger)

	return &TestEnv{
		DB:      testDB,
		Handler: h,
		Stripe:  stripe,
		Metrics: metrics,
		Orders:  orderService,
		Carts:   cartService,
	}
}

// Do sends a JSON request through the router, authenticated with token when set.
func (e *TestEnv) Do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Handler.ServeHTTP(w, req)
	return w
}

// Login returns an access token for the given credentials.
func (e *TestEnv) Login(t *testing.T, username, password string) string {
	t.Helper()

	w := e.Do(t, http.MethodPost, "/api/login/", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair struct {
		Access string `json:"access"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&pair))
	return pair.Access
}

// Register creates a customer account and returns an access token for it.
func (e *TestEnv) Register(t *testing.T, username string) string {
	t.Helper()

	password := username + "pass1"
	w := e.Do(t, http.MethodPost, "/api/register/", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return e.Login(t, username, password)
}

// Webhook delivers a signed processor event.
func (e *TestEnv) Webhook(t *testing.T, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook/", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)

	w := httptest.NewRecorder()
	e.Handler.ServeHTTP(w, req)
	return w
}

// paymentEvent builds a payment intent event body for orderID.
func paymentEvent(eventID, eventType, intentID string, orderID int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": %q,
		"api_version": "2023-10-16",
		"created": %d,
		"data": {"object": {"id": %q, "object": "payment_intent", "metadata": {"order_id": "%d"}}}
	}`, eventID, eventType, time.Now().Unix(), intentID, orderID))
}

// signPayload produces a Stripe-Signature header value for payload.
func signPayload(payload []byte, secret string) string {
	ts := time.Now()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
