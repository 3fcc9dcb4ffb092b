package gateway

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/bentamate/bentamate-backend/internal/offline"
)

// Handler exposes sync state so the UI can render a pending/unsynced
// indicator, plus a manual reconcile trigger.
type Handler struct {
	gateway *Gateway
	store   offline.Store
	status  StatusSource
}

func NewHandler(gateway *Gateway, store offline.Store, status StatusSource) *Handler {
	return &Handler{gateway: gateway, store: store, status: status}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/sync/status", h.getStatus)
	app.Post("/api/v1/sync/reconcile", h.reconcile)

	// diagnostics only — wipes the queue and cache, gated like the other
	// reset endpoints
	app.Post("/dev/clear-offline", h.clearOffline)
}

func (h *Handler) getStatus(c *fiber.Ctx) error {
	txns, products, err := h.gateway.PendingCounts()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{
		"online":              h.status.Online(),
		"durable":             h.store.Durable(),
		"pendingTransactions": txns,
		"pendingProducts":     products,
	})
}

func (h *Handler) reconcile(c *fiber.Ctx) error {
	if !h.status.Online() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "cannot reconcile while offline"})
	}
	res, err := h.gateway.Reconcile(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(res)
}

func (h *Handler) clearOffline(c *fiber.Ctx) error {
	if os.Getenv("ALLOW_RESET") != "1" {
		return c.Status(fiber.StatusForbidden).SendString("reset not allowed")
	}
	if err := h.store.Clear(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"cleared": true})
}
