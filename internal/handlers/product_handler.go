package handlers

import (
	"log"

	"herbstore/internal/models"
	"herbstore/internal/repositories"
	"herbstore/internal/services"
	"herbstore/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler serves the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validation.New(),
	}
}

// RegisterRoutes registers the public catalog routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	catalog := router.Group("/products")
	catalog.Get("/", h.HandleListProducts)
	catalog.Get("/:id", h.HandleGetProduct)
}

// RegisterAdminRoutes registers the catalog management routes. router must
// already be behind the admin guard.
func (h *ProductHandler) RegisterAdminRoutes(router fiber.Router) {
	catalog := router.Group("/products")
	catalog.Post("/", h.HandleAddProduct)
	catalog.Put("/:id", h.HandleEditProduct)
	catalog.Delete("/:id", h.HandleRemoveProduct)
}

// HandleListProducts lists the catalog. Accepts ?q= and ?in_stock=true.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	filter := repositories.ProductFilter{
		Search:  c.Query("q"),
		InStock: c.QueryBool("in_stock", false),
	}
	products, err := h.service.List(filter)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return writeError(c, err)
	}
	return c.JSON(products)
}

// HandleGetProduct returns a single product.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

// HandleAddProduct adds a product to the catalog.
func (h *ProductHandler) HandleAddProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badRequest(c, err)
	}
	product.ID = ""
	if err := h.validate.Struct(product); err != nil {
		return invalid(c, err)
	}

	if err := h.service.Add(&product); err != nil {
		log.Printf("Error adding product %q: %v", product.Name, err)
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleEditProduct replaces the editable fields of a product.
func (h *ProductHandler) HandleEditProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badRequest(c, err)
	}
	product.ID = c.Params("id")
	if err := h.validate.StructExcept(product, "ID"); err != nil {
		return invalid(c, err)
	}

	if err := h.service.Edit(&product); err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

// HandleRemoveProduct takes a product off the catalog.
func (h *ProductHandler) HandleRemoveProduct(c *fiber.Ctx) error {
	if err := h.service.Remove(c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
