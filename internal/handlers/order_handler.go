package handlers

import (
	"log"

	"herbstore/internal/repositories"
	"herbstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler exposes recorded orders to administrators.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers the order routes. router must already be behind
// the admin guard.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orders := router.Group("/orders")
	orders.Get("/", h.HandleListOrders)
	orders.Get("/by-reference/:reference", h.HandleOrderByReference)
	orders.Get("/:id", h.HandleGetOrder)
	orders.Patch("/:id/status", h.HandleSetStatus)
}

// HandleListOrders lists orders, newest first. Accepts ?status= and ?email=.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.service.List(repositories.OrderFilter{
		Status: c.Query("status"),
		Email:  c.Query("email"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(orders)
}

// HandleGetOrder returns one order with its lines.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.service.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

// HandleOrderByReference looks an order up by its payment reference, for
// support cases that start from a gateway receipt.
func (h *OrderHandler) HandleOrderByReference(c *fiber.Ctx) error {
	order, err := h.service.ByReference(c.Params("reference"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

// StatusRequest is the body of PATCH /orders/:id/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// HandleSetStatus changes an order's administrative status.
func (h *OrderHandler) HandleSetStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.service.SetStatus(id, req.Status); err != nil {
		return writeError(c, err)
	}
	log.Printf("Order %s marked %s", id, req.Status)

	order, err := h.service.Get(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated",
		"order":   order,
	})
}
