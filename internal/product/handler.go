package product

import (
	"context"
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/auth"
)

// Action identifies a catalog mutation kind; queued offline mutations carry
// it so reconciliation can replay the right backend call.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Gateway is the write path for catalog mutations. Writes go through it so
// they queue locally when the backend is unreachable. MergePending overlays
// queued (unsynced) mutations onto a server snapshot for reads.
type Gateway interface {
	SubmitProductMutation(ctx context.Context, p Product, action Action) (Product, error)
	MergePending(snapshot []Product) ([]Product, error)
}

type Handler struct {
	service *Service
	gateway Gateway
}

func NewHandler(service *Service, gateway Gateway) *Handler {
	return &Handler{service: service, gateway: gateway}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/products", h.getProducts)
	app.Get("/api/v1/product/:id", h.getProduct)
	app.Get("/api/v1/product/barcode/:code", h.getProductByBarcode)

	// dev-only endpoint to reset products — enabled when ALLOW_RESET=1
	app.Post("/dev/reset-products", h.resetProducts)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/products", h.createProduct)
	app.Put("/api/v1/product/:id", h.updateProduct)
	app.Delete("/api/v1/product/:id", h.deleteProduct)
}

// productView is the API shape: Product plus its derived stock status.
type productView struct {
	Product
	Status string `json:"status"`
}

func toView(p Product) productView {
	return productView{Product: p, Status: p.Status()}
}

func toViews(products []Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, toView(p))
	}
	return out
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	products, err := h.service.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	// overlay any catalog edits still waiting to sync
	merged, err := h.gateway.MergePending(products)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(toViews(merged))
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	p, err := h.service.GetByID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Product not found")
	}
	return c.JSON(toView(p))
}

func (h *Handler) getProductByBarcode(c *fiber.Ctx) error {
	p, err := h.service.GetByBarcode(c.Params("code"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Product not found")
	}
	return c.JSON(toView(p))
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	p := new(Product)
	if err := c.BodyParser(p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	p.UserID = userID

	created, err := h.gateway.SubmitProductMutation(c.Context(), *p, ActionCreate)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toView(created))
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	p := new(Product)
	if err := c.BodyParser(p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	p.ID = c.Params("id")

	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	p.UserID = userID

	updated, err := h.gateway.SubmitProductMutation(c.Context(), *p, ActionUpdate)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toView(updated))
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	p := Product{ID: c.Params("id"), UserID: userID}
	deleted, err := h.gateway.SubmitProductMutation(c.Context(), p, ActionDelete)
	if err != nil {
		return writeError(c, err)
	}
	if deleted.Offline {
		return c.JSON(fiber.Map{"message": "Product delete queued", "offline": true})
	}
	return c.SendString("Product deleted")
}

// resetProducts clears the catalog and inserts the provided list.
// Gated by the ALLOW_RESET environment variable; set it to "1" to allow.
func (h *Handler) resetProducts(c *fiber.Ctx) error {
	if os.Getenv("ALLOW_RESET") != "1" {
		return c.Status(fiber.StatusForbidden).SendString("reset not allowed")
	}

	var products []Product
	if err := c.BodyParser(&products); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := h.service.ResetProducts(products); err != nil {
		return writeError(c, err)
	}
	return c.JSON(products)
}

func writeError(c *fiber.Ctx, err error) error {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"code": ve.Code, "message": ve.Message})
	}
	var ae *apperr.AuthError
	if errors.As(err, &ae) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": ae.Error()})
	}
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).SendString("Product not found")
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}
