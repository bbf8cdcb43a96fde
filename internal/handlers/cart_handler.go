package handlers

import (
	"herbstore/internal/cart"
	"herbstore/internal/middleware"
	"herbstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CartHandler serves the shopper's cart for the current session.
type CartHandler struct {
	service *services.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers the cart routes. router must run the session
// middleware.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:productId", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
}

type cartResponse struct {
	Items    []cart.Item     `json:"items"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func renderCart(c *fiber.Ctx, cr *cart.Cart) error {
	items := cr.Items
	if items == nil {
		items = []cart.Item{}
	}
	return c.JSON(cartResponse{Items: items, Count: cr.Count(), Subtotal: cr.Subtotal()})
}

// HandleGetCart returns the session's cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cr, err := h.service.GetCart(c.UserContext(), middleware.SessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return renderCart(c, cr)
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// HandleAddItem adds a catalog product to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if req.ProductID == "" {
		return writeError(c, &services.ValidationError{Message: "productId is required", Fields: map[string]string{"productId": "required"}})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cr, err := h.service.AddItem(c.UserContext(), middleware.SessionID(c), req.ProductID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	c.Status(fiber.StatusCreated)
	return renderCart(c, cr)
}

// HandleUpdateItem sets the quantity of a line. Zero removes it.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if req.Quantity == nil {
		return writeError(c, &services.ValidationError{Message: "quantity is required", Fields: map[string]string{"quantity": "required"}})
	}

	cr, err := h.service.UpdateQuantity(c.UserContext(), middleware.SessionID(c), c.Params("productId"), *req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return renderCart(c, cr)
}

// HandleRemoveItem drops a line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	cr, err := h.service.RemoveItem(c.UserContext(), middleware.SessionID(c), c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return renderCart(c, cr)
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.ClearCart(c.UserContext(), middleware.SessionID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
