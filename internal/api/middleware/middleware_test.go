package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"stargate/backend/config"
	"stargate/backend/internal/metrics"
	"stargate/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── 测试辅助 ──

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.err
}

func newJWTManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "middleware-test-secret",
		AccessTokenTTL: time.Minute,
	})
}

func protectedEngine(mgr *jwt.Manager, bl BlacklistChecker) *gin.Engine {
	r := gin.New()
	r.GET("/protected", JWTAuth(mgr, bl, zap.NewNop()), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("username"))
	})
	return r
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth_ValidToken(t *testing.T) {
	mgr := newJWTManager()
	token, _ := mgr.GenerateAccessToken("admin", "admin")

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := do(protectedEngine(mgr, nil), req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "admin" {
		t.Errorf("expected username in context, got %q", w.Body.String())
	}
}

func TestJWTAuth_MissingOrMalformedHeader(t *testing.T) {
	r := protectedEngine(newJWTManager(), nil)

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest("GET", "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if w := do(r, req); w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, w.Code)
		}
	}
}

func TestJWTAuth_Blacklisted(t *testing.T) {
	mgr := newJWTManager()
	token, _ := mgr.GenerateAccessToken("admin", "admin")
	claims, _ := mgr.ParseToken(token)

	bl := &fakeBlacklist{revoked: map[string]bool{claims.ID: true}}
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := do(protectedEngine(mgr, bl), req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked token, got %d", w.Code)
	}
}

func TestJWTAuth_BlacklistErrorDegrades(t *testing.T) {
	mgr := newJWTManager()
	token, _ := mgr.GenerateAccessToken("viewer", "viewer")

	bl := &fakeBlacklist{err: errors.New("redis down")}
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := do(protectedEngine(mgr, bl), req)

	if w.Code != http.StatusOK {
		t.Errorf("expected request to pass when blacklist is unavailable, got %d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	cases := []struct {
		role   string
		status int
	}{
		{"admin", http.StatusOK},
		{"viewer", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		r := gin.New()
		r.POST("/duties", func(c *gin.Context) {
			if tc.role != "" {
				c.Set("role", tc.role)
			}
			c.Next()
		}, RoleAuth("admin"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		if w := do(r, httptest.NewRequest("POST", "/duties", nil)); w.Code != tc.status {
			t.Errorf("role %q: expected %d, got %d", tc.role, tc.status, w.Code)
		}
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	r := gin.New()
	r.GET("/people", RateLimit(limiter, 10, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest("GET", "/people", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	if len(limiter.keys) != 1 || !strings.HasSuffix(limiter.keys[0], ":/people") {
		t.Errorf("expected key per client and route, got %v", limiter.keys)
	}

	limiter.err = errors.New("redis down")
	if w := do(r, httptest.NewRequest("GET", "/people", nil)); w.Code != http.StatusOK {
		t.Errorf("expected pass-through on limiter error, got %d", w.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	r := gin.New()
	r.GET("/people", RateLimit(nil, 10, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := do(r, httptest.NewRequest("GET", "/people", nil)); w.Code != http.StatusOK {
		t.Errorf("expected 200 without limiter, got %d", w.Code)
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := do(r, req)
	if w.Header().Get("X-Request-ID") != "abc-123" || w.Body.String() != "abc-123" {
		t.Errorf("expected incoming request id to be kept, got header=%q body=%q", w.Header().Get("X-Request-ID"), w.Body.String())
	}

	for _, bad := range []string{strings.Repeat("x", requestIDMaxLen+1), "abc\nforged=1", "a b"} {
		req = httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Request-ID", bad)
		w = do(r, req)
		if got := w.Header().Get("X-Request-ID"); len(got) != 36 || got == bad {
			t.Errorf("expected generated uuid for %q, got %q", bad, got)
		}
	}
}

// ── BodyLimit ──

func TestBodyLimit_DeclaredLength(t *testing.T) {
	r := gin.New()
	r.POST("/people", BodyLimit(8), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest("POST", "/people", strings.NewReader(`{"name":"Ada Lovelace"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}

	w = do(r, httptest.NewRequest("POST", "/people", strings.NewReader(`{}`)))
	if w.Code != http.StatusOK {
		t.Errorf("expected small body to pass, got %d", w.Code)
	}
}

// ── CORS / SecurityHeaders ──

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://ops.example.com/"}))
	r.GET("/api/v1/duties", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/api/v1/duties", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	w := do(r, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "https://ops.example.com" {
		t.Errorf("expected configured origin to be allowed, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Error("expected Content-Disposition to be exposed for downloads")
	}

	req = httptest.NewRequest("GET", "/api/v1/duties", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	if w := do(r, req); w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unexpected CORS header for unknown origin")
	}

	req = httptest.NewRequest("OPTIONS", "/api/v1/duties", nil)
	if w := do(r, req); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	w := do(r, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("wildcard origin must not allow credentials")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/api/v1/people", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest("GET", "/api/v1/people", nil))
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected no-store on api responses")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff")
	}

	w = do(r, httptest.NewRequest("GET", "/health", nil))
	if w.Header().Get("Cache-Control") != "" {
		t.Error("health endpoint should not carry no-store")
	}
}

// ── Metrics ──

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := gin.New()
	r.Use(Metrics(metrics.New(reg)))
	r.GET("/people/:name", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, httptest.NewRequest("GET", "/people/Ada", nil))
	do(r, httptest.NewRequest("GET", "/people/Bob", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "stargate_http_requests_total" {
			continue
		}
		if len(mf.GetMetric()) != 1 {
			t.Fatalf("expected a single series per route template, got %d", len(mf.GetMetric()))
		}
		if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 2 {
			t.Errorf("expected 2 requests, got %v", v)
		}
		return
	}
	t.Error("stargate_http_requests_total not found")
}

// ── Logger ──

func TestLogger_SkipsProbePaths(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/people/:name", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	do(r, httptest.NewRequest("GET", "/health", nil))
	if logs.Len() != 0 {
		t.Fatalf("expected probe path to be skipped, got %d entries", logs.Len())
	}

	do(r, httptest.NewRequest("GET", "/people/Ada", nil))
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("expected warn for 404, got %v", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/people/:name" || fields["request_id"] == "" {
		t.Errorf("unexpected fields: %v", fields)
	}
}
