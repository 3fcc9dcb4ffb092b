package transaction

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bentamate/bentamate-backend/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/transactions", h.getTransactions)
	app.Get("/api/v1/transactions/mine", h.getMyTransactions)
	app.Get("/api/v1/transactions/range", h.getTransactionsInRange)
	app.Get("/api/v1/transactions/batch", h.getTransactionsByIDs)
}

func (h *Handler) getTransactions(c *fiber.Ctx) error {
	txns, err := h.service.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(txns)
}

// getMyTransactions lists the sales rung up by the authenticated cashier.
func (h *Handler) getMyTransactions(c *fiber.Ctx) error {
	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	txns, err := h.service.ListByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(txns)
}

func (h *Handler) getTransactionsInRange(c *fiber.Ctx) error {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid from timestamp"})
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid to timestamp"})
	}

	txns, err := h.service.ListBetween(from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(txns)
}

// getTransactionsByIDs fetches a picked set of sales (receipt reprints).
// ids is a comma-separated list; unknown ids are skipped.
func (h *Handler) getTransactionsByIDs(c *fiber.Ctx) error {
	raw := c.Query("ids")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "ids is required"})
	}
	ids := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	txns, err := h.service.ListByIDs(ids)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(txns)
}
