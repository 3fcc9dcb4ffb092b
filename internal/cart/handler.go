package cart

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/auth"
	"github.com/bentamate/bentamate-backend/internal/product"
)

// ProductLookup resolves product ids for add-to-cart. Reads come from the
// catalog service; the cart only needs id, name and selling price.
type ProductLookup interface {
	GetByID(id string) (product.Product, error)
}

// Handler exposes the cart engine over HTTP for the POS screen.
type Handler struct {
	sessions *Sessions
	products ProductLookup
}

func NewHandler(sessions *Sessions, products ProductLookup) *Handler {
	return &Handler{sessions: sessions, products: products}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/cart", h.getCart)
	app.Post("/api/v1/cart/items", h.addItem)
	app.Patch("/api/v1/cart/items/:productId", h.changeQuantity)
	app.Delete("/api/v1/cart/items/:productId", h.removeItem)
	app.Delete("/api/v1/cart", h.clearCart)
	app.Post("/api/v1/cart/payment", h.setPayment)
	app.Post("/api/v1/checkout", h.checkout)
}

// cartView bundles the lines with the derived totals so the POS screen
// renders from a single response.
type cartView struct {
	Items  []LineItem `json:"items"`
	Totals Totals     `json:"totals"`
}

func view(e *Engine) cartView {
	return cartView{Items: e.Items(), Totals: e.Totals()}
}

func (h *Handler) engine(c *fiber.Ctx) (*Engine, error) {
	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return nil, err
	}
	return h.sessions.Get(userID), nil
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	e, err := h.engine(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	return c.JSON(view(e))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	payload := new(addItemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "productId is required"})
	}

	e, err := h.engine(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	p, err := h.products.GetByID(payload.ProductID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	}

	e.AddItem(p.ID, p.Name, p.Selling)
	return c.JSON(view(e))
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) changeQuantity(c *fiber.Ctx) error {
	payload := new(quantityRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	e, err := h.engine(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	e.ChangeQuantity(c.Params("productId"), payload.Delta)
	return c.JSON(view(e))
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	e, err := h.engine(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	e.RemoveItem(c.Params("productId"))
	return c.JSON(view(e))
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	e, err := h.engine(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	e.Clear()
	return c.JSON(view(e))
}

type paymentRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) setPayment(c *fiber.Ctx) error {
	payload := new(paymentRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	e, err := h.engine(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := e.SetPaymentReceived(payload.Amount); err != nil {
		return writeError(c, err)
	}
	return c.JSON(view(e))
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	e, err := h.engine(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	txn, err := e.Checkout(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(txn)
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
	var ioe *apperr.IOError
	if errors.As(err, &ioe) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": ioe.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}
