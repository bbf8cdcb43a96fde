package handlers

import (
	"herbstore/internal/middleware"
	"herbstore/internal/models"
	"herbstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler drives the shipping -> payment -> confirmation flow.
type CheckoutHandler struct {
	service *services.CheckoutService
	limiter fiber.Handler
}

// NewCheckoutHandler creates a new CheckoutHandler. limiter guards the
// endpoint that opens gateway sessions.
func NewCheckoutHandler(service *services.CheckoutService, limiter fiber.Handler) *CheckoutHandler {
	return &CheckoutHandler{service: service, limiter: limiter}
}

// RegisterRoutes registers the checkout routes. router must run the
// session middleware.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Get("/", h.HandleGetFlow)
	checkoutRoutes.Post("/shipping", h.HandleSubmitShipping)
	checkoutRoutes.Post("/pay", h.limiter, h.HandlePay)
	checkoutRoutes.Post("/retry", h.HandleRetry)
}

// HandleGetFlow returns the current checkout state.
func (h *CheckoutHandler) HandleGetFlow(c *fiber.Ctx) error {
	flow, err := h.service.GetFlow(c.UserContext(), middleware.SessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(flow)
}

// ShippingRequest is the body of POST /checkout/shipping.
type ShippingRequest struct {
	Customer models.CustomerContact `json:"customer"`
	Shipping models.ShippingDetails `json:"shipping"`
}

// HandleSubmitShipping records contact and address details.
func (h *CheckoutHandler) HandleSubmitShipping(c *fiber.Ctx) error {
	var req ShippingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	flow, err := h.service.SubmitShipping(c.UserContext(), middleware.SessionID(c), req.Customer, req.Shipping)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(flow)
}

// HandlePay opens a gateway session for the cart under a new reference.
func (h *CheckoutHandler) HandlePay(c *fiber.Ctx) error {
	var userID string
	if id := middleware.Identity(c); id != nil {
		userID = id.UserID
	}
	result, err := h.service.Pay(c.UserContext(), middleware.SessionID(c), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"redirectUrl": result.RedirectURL,
		"reference":   result.Reference,
	})
}

// HandleRetry returns a failed checkout to the payment step.
func (h *CheckoutHandler) HandleRetry(c *fiber.Ctx) error {
	flow, err := h.service.Retry(c.UserContext(), middleware.SessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(flow)
}
