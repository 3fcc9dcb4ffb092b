package report

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/dashboard", h.getDashboard)
	app.Get("/api/v1/reports/summary", h.getSummary)
	app.Get("/api/v1/reports/series", h.getSeries)
	app.Get("/api/v1/reports/top-products", h.getTopProducts)
}

func (h *Handler) getDashboard(c *fiber.Ctx) error {
	d, err := h.service.Dashboard()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(d)
}

func (h *Handler) getSummary(c *fiber.Ctx) error {
	sum, err := h.service.Today()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(sum)
}

func (h *Handler) getSeries(c *fiber.Ctx) error {
	timeframe := c.Query("timeframe", "daily")
	switch timeframe {
	case "daily", "weekly", "monthly":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "timeframe must be daily, weekly or monthly"})
	}

	points, err := h.service.Series(timeframe)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(points)
}

func (h *Handler) getTopProducts(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "5"))
	if err != nil || limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid limit"})
	}

	top, err := h.service.TopProducts(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(top)
}
