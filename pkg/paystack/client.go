package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker/v2"
	"github.com/valyala/fasthttp"
)

// Config holds the gateway connection settings.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client talks to the Paystack transaction API. Every call carries an
// explicit timeout and goes through a circuit breaker.
type Client struct {
	baseURL   string
	secretKey string
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new gateway client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "paystack",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Declines and validation answers are not outages.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			return err == nil || (errors.As(err, &apiErr) && apiErr.StatusCode < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		timeout:   timeout,
		breaker:   gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// InitializeTransaction asks the gateway for a hosted payment page.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	body, err := c.do(ctx, fiber.MethodPost, "/transaction/initialize", req)
	if err != nil {
		return nil, err
	}
	var env envelope[InitializeResponse]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("paystack: decode initialize response: %w", err)
	}
	if !env.Status || env.Data.AuthorizationURL == "" {
		return nil, &APIError{StatusCode: fiber.StatusOK, Message: env.Message}
	}
	return &env.Data, nil
}

// VerifyTransaction fetches the current state of a transaction by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	body, err := c.do(ctx, fiber.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	var env envelope[Transaction]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("paystack: decode verify response: %w", err)
	}
	if !env.Status {
		return nil, &APIError{StatusCode: fiber.StatusOK, Message: env.Message}
	}
	return &env.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		a := fiber.AcquireAgent()
		req := a.Request()
		req.Header.SetMethod(method)
		req.SetRequestURI(c.baseURL + path)
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.secretKey)
		a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
		if payload != nil {
			a.JSON(payload)
		}
		a.Timeout(timeout)
		if err := a.Parse(); err != nil {
			fiber.ReleaseAgent(a)
			return nil, fmt.Errorf("paystack: build request: %w", err)
		}

		code, respBody, errs := a.Bytes()
		if len(errs) > 0 {
			for _, e := range errs {
				if errors.Is(e, fasthttp.ErrTimeout) {
					return nil, ErrTimeout
				}
			}
			return nil, fmt.Errorf("paystack: %s %s: %w", method, path, errors.Join(errs...))
		}
		if code < 200 || code > 299 {
			log.Printf("Paystack %s %s returned %d: %s", method, path, code, respBody)
			return nil, &APIError{StatusCode: code, Message: gatewayMessage(respBody)}
		}
		return respBody, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return body, err
}

// gatewayMessage pulls the message field out of an error envelope.
func gatewayMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Message == "" {
		return "unexpected response"
	}
	return env.Message
}
