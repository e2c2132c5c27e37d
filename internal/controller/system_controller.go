package controller

import (
	"github.com/Dots-Uzbekistan/Lexora/internal/dto"

	"github.com/gofiber/fiber/v2"
)

type ISystemController interface {
	RegisterRoutes(r fiber.Router)
}

type systemController struct {
	metrics fiber.Handler
}

// NewSystemController serves the root, health and metrics endpoints.
// metrics may be nil.
func NewSystemController(metrics fiber.Handler) ISystemController {
	return &systemController{metrics: metrics}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.root)
	r.Get("/health", c.health)
	if c.metrics != nil {
		r.Get("/metrics", c.metrics)
	}
}

func (c *systemController) root(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"message":  "Lexora Legal AI API",
		"version":  "1.0.0",
		"services": []string{"Consultation", "Research"},
	})
}

func (c *systemController) health(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{Status: "healthy"})
}
