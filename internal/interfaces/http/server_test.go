package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoodskool/hoodskool-backend/internal/config"
	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
	"github.com/hoodskool/hoodskool-backend/internal/domain/cart/carttest"
	"github.com/hoodskool/hoodskool-backend/internal/domain/storefront"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/handlers"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/routes"
	"github.com/hoodskool/hoodskool-backend/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func (g *memoryGuard) Acquire(_ context.Context, sessionID, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := sessionID + ":" + userID
	if g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, sessionID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, sessionID+":"+userID)
	return nil
}

type testServer struct {
	handler  http.Handler
	repo     *carttest.MemoryRepository
	gateway  *carttest.FailingGateway
	jwt      *auth.JWTManager
	mu       sync.Mutex
	storages map[string]*carttest.MemoryStorage
}

func newTestServer(t *testing.T, checks map[string]HealthChecker) *testServer {
	t.Helper()

	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		App:    config.AppConfig{Name: "hoodskool", Version: "test", Environment: "test"},
		Server: config.ServerConfig{Port: "0", RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		Cart:   config.CartConfig{Backend: config.BackendPostgres, GuestTTL: time.Hour},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			CORSAllowedMethods: []string{"GET", "POST"},
			CORSAllowedHeaders: []string{"Content-Type"},
		},
	}

	ts := &testServer{
		repo:     carttest.NewMemoryRepository(),
		jwt:      auth.NewJWTManager("0123456789abcdef0123456789abcdef", "hoodskool", time.Hour),
		storages: map[string]*carttest.MemoryStorage{},
	}

	gateway := carttest.NewFailingGateway(cart.NewService(ts.repo, logger))
	ts.gateway = gateway
	sessions := storefront.NewSessions(gateway, ts.storage, &memoryGuard{held: map[string]bool{}}, time.Minute, logger)
	t.Cleanup(sessions.Close)

	server := NewServer(cfg, logger, nil, routes.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Gateway:   gateway,
		Sessions:  sessions,
		Verifier:  ts.jwt,
		DevIssuer: ts.jwt,
	}, checks)
	ts.handler = server.Handler()
	return ts
}

func (ts *testServer) storage(sessionID string) cart.LocalStorage {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	s, ok := ts.storages[sessionID]
	if !ok {
		s = carttest.NewMemoryStorage()
		ts.storages[sessionID] = s
	}
	return s
}

func (ts *testServer) token(t *testing.T, uid string) string {
	t.Helper()
	token, err := ts.jwt.GenerateToken(uid, uid+"@hoodskool.com")
	require.NoError(t, err)
	return token
}

type request struct {
	method string
	path   string
	body   string
	token  string
	cookie *http.Cookie
}

func (ts *testServer) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if r.body != "" {
		req = httptest.NewRequest(r.method, r.path, strings.NewReader(r.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(r.method, r.path, nil)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Merged  bool            `json:"merged"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) cart.State {
	t.Helper()
	var state cart.State
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &state))
	return state
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == handlers.SessionCookieName {
			return c
		}
	}
	t.Fatalf("response did not set %s", handlers.SessionCookieName)
	return nil
}

const teeJSON = `{"productId":"tee","name":"Boxy Tee","price":45,"quantity":2,"maxQuantity":3,"size":"M","color":{"name":"Black","hex":"#000"}}`

func TestCartAPI_RequiresAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/cart"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartAPI_Lifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, "u1")

	w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/cart/items", body: teeJSON, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var added struct {
		CartItemID string `json:"cartItemId"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &added))
	require.NotEmpty(t, added.CartItemID)

	// Same item again merges and clamps to maxQuantity
	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/cart/items", body: teeJSON, token: token})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/cart", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Items     []cart.CartItem `json:"items"`
		ItemCount int             `json:"itemCount"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.ItemCount)

	w = ts.do(t, request{method: http.MethodPut, path: "/api/v1/cart/items/" + added.CartItemID, body: `{"quantity":1}`, token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.repo.Items("u1")[0].Quantity)

	w = ts.do(t, request{method: http.MethodPut, path: "/api/v1/cart/items/missing", body: `{"quantity":1}`, token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/cart/sync", body: `{"items":[` + teeJSON + `,{"productId":"cap","name":"Cap","price":20,"quantity":1}]}`, token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ts.repo.Items("u1"), 2)

	w = ts.do(t, request{method: http.MethodDelete, path: "/api/v1/cart/items/" + added.CartItemID, token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ts.repo.Items("u1"), 1)

	w = ts.do(t, request{method: http.MethodDelete, path: "/api/v1/cart", token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, ts.repo.Items("u1"))
}

func TestCartAPI_InvalidBody(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, "u1")

	for _, body := range []string{`{`, `{"name":"no product","quantity":1}`, `{"productId":"p","name":"x","quantity":0}`} {
		w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/cart/items", body: body, token: token})
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	w := ts.do(t, request{method: http.MethodPut, path: "/api/v1/cart/items/x", body: `{}`, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorefront_GuestCart(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/storefront/cart"})
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Empty(t, decodeState(t, w).Items)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/storefront/cart/items", body: teeJSON, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	require.Len(t, state.Items, 1)
	assert.True(t, cart.IsTemporaryID(state.Items[0].ID))
	assert.Equal(t, 2, state.ItemCount)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/storefront/cart/items", body: teeJSON, cookie: cookie})
	assert.Equal(t, 3, decodeState(t, w).ItemCount)

	itemID := state.Items[0].ID
	stored := ts.storage(cookie.Value).(*carttest.MemoryStorage)
	assert.Len(t, stored.Stored(), 1)

	w = ts.do(t, request{method: http.MethodPatch, path: "/api/v1/storefront/cart/items/" + itemID, body: `{"quantity":1}`, cookie: cookie})
	assert.Equal(t, 1, decodeState(t, w).ItemCount)

	w = ts.do(t, request{method: http.MethodPatch, path: "/api/v1/storefront/cart/items/" + itemID, body: `{"quantity":0}`, cookie: cookie})
	state = decodeState(t, w)
	assert.Empty(t, state.Items)
	assert.Zero(t, state.ItemCount)
	assert.Empty(t, stored.Stored())
}

func TestStorefront_MergeOnLoginAndLogout(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.repo.Seed("u1", cart.CartItem{ProductID: "cap", Name: "Cap", Price: 20, Quantity: 1, MaxQuantity: 5})
	token := ts.token(t, "u1")

	w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/storefront/cart/items", body: teeJSON})
	cookie := sessionCookie(t, w)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/storefront/cart/sync", cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/storefront/cart/sync", token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode(t, w)
	assert.True(t, env.Merged)

	state := decodeState(t, w)
	assert.Len(t, state.Items, 2)
	assert.Equal(t, 3, state.ItemCount)
	assert.NotNil(t, state.LastSyncedAt)
	assert.Len(t, ts.repo.Items("u1"), 2)

	// Second sync in the same login is a no-op
	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/storefront/cart/sync", token: token, cookie: cookie})
	assert.False(t, decode(t, w).Merged)
	assert.Len(t, ts.repo.Items("u1"), 2)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/storefront/cart/logout", cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeState(t, w).Items)
	assert.Len(t, ts.repo.Items("u1"), 2)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/storefront/cart", token: token, cookie: cookie})
	assert.Len(t, decodeState(t, w).Items, 2)
}

func TestStorefront_FailedMergeKeepsGuestCart(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.repo.Seed("u1", cart.CartItem{ProductID: "cap", Name: "Cap", Price: 20, Quantity: 1, MaxQuantity: 5})
	token := ts.token(t, "u1")

	w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/storefront/cart/items", body: teeJSON})
	cookie := sessionCookie(t, w)

	ts.gateway.SetFailing("SyncCart", true)
	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/storefront/cart", token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "tee", state.Items[0].ProductID)
	assert.Len(t, ts.repo.Items("u1"), 1)
	assert.Len(t, ts.storage(cookie.Value).(*carttest.MemoryStorage).Stored(), 1)

	ts.gateway.SetFailing("SyncCart", false)
	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/storefront/cart", token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeState(t, w).Items, 2)
	assert.Len(t, ts.repo.Items("u1"), 2)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, map[string]HealthChecker{
		"redis":    func(context.Context) error { return nil },
		"database": func(context.Context) error { return errors.New("down") },
	})

	w := ts.do(t, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"unhealthy"`)
	assert.Contains(t, w.Body.String(), `"redis":"healthy"`)

	w = ts.do(t, request{method: http.MethodGet, path: "/ready"})
	assert.Equal(t, http.StatusOK, w.Code)

	ts.do(t, request{method: http.MethodGet, path: "/api/v1/storefront/cart"})
	w = ts.do(t, request{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cart_store_operations_total")
}

func TestDevToken(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/dev/token", body: `{"uid":"dev-user"}`})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		IDToken string `json:"idToken"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/cart", token: data.IDToken})
	assert.Equal(t, http.StatusOK, w.Code)
}
