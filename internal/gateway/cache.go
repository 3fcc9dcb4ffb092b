package gateway

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bentamate/bentamate-backend/internal/auth"
	"github.com/bentamate/bentamate-backend/internal/offline"
)

// the only paths served from cache without authentication
var publicCachePaths = []string{
	"/api/v1/products",
	"/api/v1/product/",
	"/api/v1/categories",
}

func isPublicCachePath(path string) bool {
	for _, p := range publicCachePaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ReadCache is the caching layer for the public catalog reads: network-first
// with cache fallback. Successful GET responses are written through to the
// offline cache; when the app is offline (or the handler fails) the last
// cached body is served instead. A read with no cached copy gets the fixed
// structured payload rather than an opaque failure.
//
// Only the public catalog paths are intercepted here. Protected reads are
// cached by UserReadCache, mounted behind the JWT middleware, so an offline
// request without a valid token is rejected before any cached data can leak.
func ReadCache(store offline.Store, status StatusSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || !isPublicCachePath(c.Path()) {
			return c.Next()
		}
		return serveCached(c, store, status, cacheKey(c, ""))
	}
}

// UserReadCache applies the same strategy to the protected API reads. The
// authenticated user id prefixes the cache key, so one cashier is never
// served another's cached transactions or cart.
func UserReadCache(store offline.Store, status StatusSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || !strings.HasPrefix(c.Path(), "/api/") {
			return c.Next()
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			// no identity to scope by; skip caching entirely
			return c.Next()
		}
		return serveCached(c, store, status, cacheKey(c, userID))
	}
}

func cacheKey(c *fiber.Ctx, userID string) string {
	key := c.Path()
	if qs := string(c.Request().URI().QueryString()); qs != "" {
		key += "?" + qs
	}
	if userID != "" {
		key = userID + "|" + key
	}
	return key
}

func serveCached(c *fiber.Ctx, store offline.Store, status StatusSource, key string) error {
	if status.Online() {
		err := c.Next()
		if err == nil {
			if c.Response().StatusCode() == fiber.StatusOK {
				body := make([]byte, len(c.Response().Body()))
				copy(body, c.Response().Body())
				// best effort; a full cache write failure must not
				// break the live response
				_ = store.CacheData(key, json.RawMessage(body))
			}
			return nil
		}
		// handler failed while nominally online; fall back to cache
	}

	raw, ok, err := store.CachedData(key)
	if err == nil && ok {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).Send(raw)
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "Offline",
		"offline": true,
	})
}
