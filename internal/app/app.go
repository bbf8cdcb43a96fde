// Package app wires repositories, services and handlers into a fiber app.
package app

import (
	"time"

	"herbstore/internal/cart"
	"herbstore/internal/checkout"
	"herbstore/internal/config"
	"herbstore/internal/handlers"
	"herbstore/internal/middleware"
	"herbstore/internal/repositories"
	"herbstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

// Deps are the collaborators chosen by the caller: real infrastructure in
// main, fakes and in-memory stores in tests.
type Deps struct {
	DB         *gorm.DB
	Gateway    services.Gateway
	References services.ReferenceRegistry
	Carts      cart.Store
	Flows      checkout.Store
	Publisher  services.EventPublisher
	// Quiet disables the request logger.
	Quiet bool
}

// App is the HTTP application together with the services main needs.
type App struct {
	*fiber.App
	Auth     *services.AuthService
	Payments *services.PaymentService
}

// New builds the application.
func New(cfg *config.Config, deps Deps) *App {
	productRepo := repositories.NewGORMProductRepository(deps.DB)
	userRepo := repositories.NewGORMUserRepository(deps.DB)
	orderRepo := repositories.NewGORMOrderRepository(deps.DB)

	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	productService := services.NewProductService(productRepo)
	orderService := services.NewOrderService(orderRepo)
	cartService := services.NewCartService(deps.Carts, productRepo)
	paymentService := services.NewPaymentService(deps.Gateway, orderRepo, deps.References, deps.Publisher, cfg.Payment)
	checkoutService := services.NewCheckoutService(deps.Flows, deps.Carts, paymentService)

	limiter := middleware.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow)

	app := fiber.New(fiber.Config{
		AppName:      "herbstore",
		ErrorHandler: handlers.ErrorHandler,
	})
	if !deps.Quiet {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	apiV1 := app.Group("/api/v1")

	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	productHandler := handlers.NewProductHandler(productService)
	productHandler.RegisterRoutes(apiV1)

	admin := apiV1.Group("/admin", middleware.AuthRequired(authService), middleware.AdminRequired())
	productHandler.RegisterAdminRoutes(admin)
	handlers.NewOrderHandler(orderService).RegisterRoutes(admin)

	shop := apiV1.Group("", middleware.OptionalAuth(authService), middleware.Session(cfg.CartTTL))
	handlers.NewCartHandler(cartService).RegisterRoutes(shop)
	handlers.NewCheckoutHandler(checkoutService, limiter).RegisterRoutes(shop)
	handlers.NewPaymentHandler(paymentService, checkoutService, productService, limiter, cfg.Payment).RegisterRoutes(shop)

	return &App{App: app, Auth: authService, Payments: paymentService}
}
