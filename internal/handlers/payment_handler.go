package handlers

import (
	"log"
	"net/url"

	"herbstore/internal/config"
	"herbstore/internal/middleware"
	"herbstore/internal/models"
	"herbstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler exposes payment initialization and the two reconciliation
// entry points.
type PaymentHandler struct {
	payments *services.PaymentService
	checkout *services.CheckoutService
	products *services.ProductService
	limiter  fiber.Handler
	cfg      config.PaymentConfig
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService, checkout *services.CheckoutService, products *services.ProductService, limiter fiber.Handler, cfg config.PaymentConfig) *PaymentHandler {
	return &PaymentHandler{payments: payments, checkout: checkout, products: products, limiter: limiter, cfg: cfg}
}

// RegisterRoutes registers the payment routes.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/initialize", h.limiter, h.HandleInitialize)
	paymentRoutes.Get("/callback", h.HandleCallback)
	paymentRoutes.Post("/verify", h.HandleVerify)
}

// HandleInitialize opens a gateway session for the draft in the body.
// Line prices are taken from the catalog, never from the client.
func (h *PaymentHandler) HandleInitialize(c *fiber.Ctx) error {
	var draft models.OrderDraft
	if err := c.BodyParser(&draft); err != nil {
		return badRequest(c, err)
	}
	items, err := h.products.Price(draft.Items)
	if err != nil {
		return writeError(c, err)
	}
	draft.Items = items
	draft.UserID = ""
	if id := middleware.Identity(c); id != nil {
		draft.UserID = id.UserID
	}

	result, err := h.payments.Initialize(c.UserContext(), draft)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"redirectUrl": result.RedirectURL,
		"accessCode":  result.AccessCode,
		"reference":   result.Reference,
	})
}

// HandleCallback is where the gateway sends the shopper's browser back.
// It always answers with a redirect to the client's success or failure page.
func (h *PaymentHandler) HandleCallback(c *fiber.Ctx) error {
	reference := c.Query("reference")
	if reference == "" {
		reference = c.Query("trxref")
	}

	result, err := h.checkout.Verify(c.UserContext(), middleware.SessionID(c), reference)
	if err != nil {
		log.Printf("Payment callback for reference %q failed: %v", reference, err)
		return c.Redirect(withQuery(h.cfg.FailureURL, url.Values{
			"error":     {services.PublicMessage(err)},
			"reference": {reference},
		}), fiber.StatusFound)
	}

	return c.Redirect(withQuery(h.cfg.SuccessURL, url.Values{
		"orderId":   {result.Order.ID},
		"reference": {reference},
	}), fiber.StatusFound)
}

// HandleVerify is the programmatic reconciliation entry point.
func (h *PaymentHandler) HandleVerify(c *fiber.Ctx) error {
	var req struct {
		Reference string `json:"reference"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	result, err := h.checkout.Verify(c.UserContext(), middleware.SessionID(c), req.Reference)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"orderId": result.Order.ID,
		"order":   result.Order,
	})
}

// withQuery appends params to base, keeping any query base already has.
func withQuery(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
