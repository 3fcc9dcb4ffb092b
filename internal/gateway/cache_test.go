package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/bentamate/bentamate-backend/internal/auth"
	"github.com/bentamate/bentamate-backend/internal/offline"
)

func cacheApp(status *stubStatus) (*fiber.App, offline.Store) {
	store := offline.NewMemoryStore()
	app := fiber.New()
	app.Use(ReadCache(store, status))
	app.Get("/api/v1/products", func(c *fiber.Ctx) error {
		return c.JSON([]fiber.Map{{"id": "a", "name": "Beer"}})
	})
	return app, store
}

func TestReadCacheWritesThroughWhenOnline(t *testing.T) {
	status := &stubStatus{online: true}
	app, store := cacheApp(status)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/products", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	raw, ok, err := store.CachedData("/api/v1/products")
	if err != nil || !ok {
		t.Fatalf("expected cached body, ok=%v err=%v", ok, err)
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("cached body is not JSON: %v", err)
	}
	if len(got) != 1 || got[0]["name"] != "Beer" {
		t.Fatalf("cached body = %s", raw)
	}
}

func TestReadCacheServesCachedBodyWhenOffline(t *testing.T) {
	status := &stubStatus{online: true}
	app, _ := cacheApp(status)

	if _, err := app.Test(httptest.NewRequest("GET", "/api/v1/products", nil)); err != nil {
		t.Fatal(err)
	}

	status.online = false
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/products", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 from cache", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var got []map[string]interface{}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if got[0]["name"] != "Beer" {
		t.Fatalf("body = %s", body)
	}
}

func TestReadCacheColdMissReturnsOfflinePayload(t *testing.T) {
	status := &stubStatus{online: false}
	app, _ := cacheApp(status)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/products", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var got map[string]interface{}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["error"] != "Offline" || got["offline"] != true {
		t.Fatalf("payload = %s", body)
	}
}

func TestReadCacheKeyIncludesQueryString(t *testing.T) {
	status := &stubStatus{online: true}
	store := offline.NewMemoryStore()
	app := fiber.New()
	app.Use(ReadCache(store, status))
	app.Get("/api/v1/products", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"category": c.Query("category")})
	})

	for _, cat := range []string{"Drinks", "Food"} {
		if _, err := app.Test(httptest.NewRequest("GET", "/api/v1/products?category="+cat, nil)); err != nil {
			t.Fatal(err)
		}
	}

	status.online = false
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/products?category=Food", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["category"] != "Food" {
		t.Fatalf("served wrong cache entry: %s", body)
	}
}

func TestReadCacheIgnoresProtectedPaths(t *testing.T) {
	status := &stubStatus{online: false}
	store := offline.NewMemoryStore()
	app := fiber.New()
	app.Use(ReadCache(store, status))
	app.Get("/api/v1/transactions", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/transactions", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("protected path intercepted by the public cache: %d", resp.StatusCode)
	}
}

// protectedApp wires the middleware stack the way cmd/api does: public
// cache, then JWT validation, then the user-scoped cache and the handler.
func protectedApp(status *stubStatus, secret string) (*fiber.App, offline.Store) {
	store := offline.NewMemoryStore()
	app := fiber.New()
	app.Use(ReadCache(store, status))
	app.Use(auth.Middleware(secret))
	app.Use(UserReadCache(store, status))
	app.Get("/api/v1/transactions", func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		return c.JSON([]fiber.Map{{"id": "t1", "total": 115, "userId": userID}})
	})
	return app, store
}

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).
		SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func authedGet(path, token string) *http.Request {
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCachedProtectedReadRequiresToken(t *testing.T) {
	const secret = "test-secret"
	status := &stubStatus{online: true}
	app, _ := protectedApp(status, secret)

	// prime the cache with an authenticated online read
	resp, err := app.Test(authedGet("/api/v1/transactions", signToken(t, secret, "alice")))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("prime request got %d", resp.StatusCode)
	}

	// the same read offline without credentials must be rejected before
	// the cache layer, never answered from it
	status.online = false
	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/transactions", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode < 400 {
		t.Fatalf("unauthenticated offline read got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "t1") {
		t.Fatalf("cached ledger leaked: %s", body)
	}
}

func TestCachedProtectedReadIsScopedByUser(t *testing.T) {
	const secret = "test-secret"
	status := &stubStatus{online: true}
	app, _ := protectedApp(status, secret)

	if _, err := app.Test(authedGet("/api/v1/transactions", signToken(t, secret, "alice"))); err != nil {
		t.Fatal(err)
	}

	status.online = false

	// another cashier's token must not unlock alice's cached entry
	resp, err := app.Test(authedGet("/api/v1/transactions", signToken(t, secret, "bob")))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("cross-user read got %d, want 503", resp.StatusCode)
	}

	// alice still gets her own cached copy
	resp, err = app.Test(authedGet("/api/v1/transactions", signToken(t, secret, "alice")))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("owner read got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var got []map[string]interface{}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["userId"] != "alice" {
		t.Fatalf("body = %s", body)
	}
}

func TestReadCacheIgnoresNonAPIAndNonGET(t *testing.T) {
	status := &stubStatus{online: false}
	store := offline.NewMemoryStore()
	app := fiber.New()
	app.Use(ReadCache(store, status))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/api/v1/checkout", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("non-API GET intercepted: %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("POST", "/api/v1/checkout", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("POST intercepted: %d", resp.StatusCode)
	}
}
