package controller

import (
	"github.com/Dots-Uzbekistan/Lexora/internal/dto"
	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/serverutils"
	"github.com/Dots-Uzbekistan/Lexora/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IConsultationController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	NewSession(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type consultationController struct {
	service service.IConsultationService
	auth    fiber.Handler
}

func NewConsultationController(service service.IConsultationService, auth fiber.Handler) IConsultationController {
	return &consultationController{service: service, auth: auth}
}

func (c *consultationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1/qna")
	h.Get("/health", c.Health)

	chat := h.Group("/chat")
	if c.auth != nil {
		chat.Use(c.auth)
	}
	chat.Post("", c.Chat)
	chat.Post("/new-session", c.NewSession)
	chat.Get("/:session_id/history", c.History)
	chat.Delete("/:session_id", c.Clear)
}

func (c *consultationController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Chat(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *consultationController) NewSession(ctx *fiber.Ctx) error {
	res, err := c.service.NewSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *consultationController) History(ctx *fiber.Ctx) error {
	res, err := c.service.History(ctx.UserContext(), ctx.Params("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *consultationController) Clear(ctx *fiber.Ctx) error {
	res, err := c.service.Clear(ctx.UserContext(), ctx.Params("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *consultationController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{Status: "healthy", Service: "consultation"})
}
