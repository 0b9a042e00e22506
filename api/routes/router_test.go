package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/api/middleware"
	"github.com/jerseyleague/shop-backend/internal/cart"
	"github.com/jerseyleague/shop-backend/internal/catalog"
	"github.com/jerseyleague/shop-backend/internal/uploads"
	pkgAuth "github.com/jerseyleague/shop-backend/pkg/auth"
	"github.com/jerseyleague/shop-backend/pkg/auth/session"
	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/metrics"
	"github.com/jerseyleague/shop-backend/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubCatalog struct{}

func (stubCatalog) ListProducts(ctx context.Context, input catalog.ListProductsInput) (*pagination.Page[catalog.ProductDTO], error) {
	return &pagination.Page[catalog.ProductDTO]{Items: []catalog.ProductDTO{}}, nil
}

func (stubCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: id}, nil
}

func (stubCatalog) ListCategories(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{}, nil
}

func (stubCatalog) RepairImageURLs(ctx context.Context, dryRun bool) (*catalog.RepairReport, error) {
	return &catalog.RepairReport{}, nil
}

type stubUploads struct{}

func (stubUploads) Upload(ctx context.Context, input uploads.UploadInput) (*uploads.UploadResult, error) {
	return &uploads.UploadResult{Key: "uploads/k.png"}, nil
}

func (stubUploads) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

type countingLimiter struct {
	scopes []string
}

func (c *countingLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	c.scopes = append(c.scopes, scope)
	return true, 1, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:  time.Minute,
			LoginIPLimit: 10,
			ResetWindow:  time.Minute,
			ResetIPLimit: 10,
		},
		Cart:    config.CartConfig{TTL: time.Hour},
		Storage: config.StorageConfig{MaxUploadMB: 1},
	}
}

type testRouter struct {
	http.Handler
	limiter *countingLimiter
}

func newTestRouter(t *testing.T, cfg *config.Config) testRouter {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	registry := cart.NewRegistry(nil, cart.StoreOptions{Logger: logg})
	t.Cleanup(func() { _ = registry.Close(context.Background()) })
	cartSvc, err := cart.NewService(registry)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}

	reg := prometheus.NewRegistry()
	limiter := &countingLimiter{}
	handler := NewRouter(cfg, logg, Dependencies{
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Sessions:    stubSessions{},
		RateLimiter: limiter,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Cart:        cartSvc,
		Catalog:     stubCatalog{},
		Uploads:     stubUploads{},
	})
	return testRouter{Handler: handler, limiter: limiter}
}

func buildToken(t *testing.T, cfg *config.Config, roles ...enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Roles:  roles,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(t, testConfig())

	for _, path := range []string{"/health/live", "/health/ready", "/api/v1/products", "/api/v1/categories"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `route="/api/v1/products"`) {
		t.Fatalf("expected request metrics by route pattern, got %s", resp.Body.String())
	}
}

func TestCartRoutesIssueSession(t *testing.T) {
	router := newTestRouter(t, testConfig())

	body := `{"id":"shirt1","name":"Home Kit","price":"25","size":"M","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	sessionID := resp.Header().Get(middleware.CartSessionHeader)
	if sessionID == "" {
		t.Fatal("expected a cart session to be issued")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(middleware.CartSessionHeader, sessionID)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"count":1`) {
		t.Fatalf("expected the cart to follow the session, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	router := newTestRouter(t, testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestUploadRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/s3/upload", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/s3/upload", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/s3/upload/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin got %d", resp.Code)
	}
}

func TestSignInIsRateLimited(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader(`{"email":"fan@example.com","password":"x"}`))
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(httptest.NewRecorder(), req)

	if len(router.limiter.scopes) != 1 || router.limiter.scopes[0] != "ip:signin:10.0.0.1" {
		t.Fatalf("expected one ip scope, got %v", router.limiter.scopes)
	}
}
