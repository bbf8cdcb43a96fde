package handlers

import (
	"errors"
	"log"

	"herbstore/internal/services"
	"herbstore/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type errorStatus struct {
	err    error
	status int
	code   string
}

// errorStatuses maps service sentinels onto HTTP statuses. Order matters:
// the first match wins.
var errorStatuses = []errorStatus{
	{services.ErrValidation, fiber.StatusBadRequest, "validation_error"},
	{services.ErrConflict, fiber.StatusConflict, "conflict"},
	{services.ErrRateLimited, fiber.StatusTooManyRequests, "rate_limited"},
	{services.ErrGatewayTimeout, fiber.StatusGatewayTimeout, "gateway_timeout"},
	{services.ErrGateway, fiber.StatusBadGateway, "gateway_error"},
	{services.ErrVerification, fiber.StatusBadGateway, "gateway_error"},
	{services.ErrPaymentNotSuccessful, fiber.StatusBadRequest, "payment_not_successful"},
	{services.ErrAmountMismatch, fiber.StatusBadRequest, "amount_mismatch"},
	{services.ErrOrderPersistence, fiber.StatusInternalServerError, "order_not_recorded"},
	{services.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid_credentials"},
	{services.ErrEmailTaken, fiber.StatusConflict, "email_taken"},
	{services.ErrInvalidTransition, fiber.StatusConflict, "invalid_transition"},
}

// statusFor returns the HTTP status and stable code for err.
func statusFor(err error) (int, string) {
	for _, s := range errorStatuses {
		if errors.Is(err, s.err) {
			return s.status, s.code
		}
	}
	return fiber.StatusInternalServerError, "internal_error"
}

// writeError renders err in the shared error shape. Only the public
// message leaves the server; the full error is logged.
func writeError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	}

	body := fiber.Map{
		"message": services.PublicMessage(err),
		"error":   code,
	}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		body["message"] = verr.Message
		if len(verr.Fields) > 0 {
			body["errors"] = verr.Fields
		}
	}
	return c.Status(status).JSON(body)
}

// badRequest reports an unparseable request body.
func badRequest(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body for %s: %v", c.Path(), err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   "invalid_body",
	})
}

// invalid renders validator failures as a 400 with per-field messages.
func invalid(c *fiber.Ctx, err error) error {
	return writeError(c, &services.ValidationError{Message: "Validation failed", Fields: validation.FieldErrors(err)})
}

// ErrorHandler renders errors that escape a handler, such as unknown
// routes, in the shared error shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"message": fe.Message,
			"error":   "http_error",
		})
	}
	return writeError(c, err)
}
