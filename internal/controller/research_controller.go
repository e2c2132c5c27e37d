package controller

import (
	"errors"

	"github.com/Dots-Uzbekistan/Lexora/internal/dto"
	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/serverutils"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/internal/service"
	wshub "github.com/Dots-Uzbekistan/Lexora/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IResearchController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	NewSession(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Workflow(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type researchController struct {
	service service.IResearchService
	hub     *wshub.Hub
	auth    fiber.Handler
}

// NewResearchController wires the research routes. hub may be nil, which
// disables the websocket endpoint.
func NewResearchController(service service.IResearchService, hub *wshub.Hub, auth fiber.Handler) IResearchController {
	return &researchController{service: service, hub: hub, auth: auth}
}

func (c *researchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1/research")
	h.Get("/health", c.Health)

	chat := h.Group("/chat")
	if c.auth != nil {
		chat.Use(c.auth)
	}
	chat.Post("", c.Chat)
	chat.Post("/new-session", c.NewSession)
	chat.Get("/:session_id/history", c.History)
	chat.Get("/:session_id/workflow", c.Workflow)
	chat.Delete("/:session_id", c.Clear)

	if c.hub != nil {
		ws := h.Group("/ws")
		if c.auth != nil {
			ws.Use(c.auth)
		}
		ws.Use(func(ctx *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(ctx) {
				return ctx.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		ws.Get("/:session_id", websocket.New(func(conn *websocket.Conn) {
			wshub.ServeWs(c.hub, conn, conn.Params("session_id"))
		}))
	}
}

func (c *researchController) Chat(ctx *fiber.Ctx) error {
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

func (c *researchController) NewSession(ctx *fiber.Ctx) error {
	res, err := c.service.NewSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *researchController) History(ctx *fiber.Ctx) error {
	res, err := c.service.History(ctx.UserContext(), ctx.Params("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *researchController) Workflow(ctx *fiber.Ctx) error {
	res, err := c.service.Workflow(ctx.UserContext(), ctx.Params("session_id"))
	if errors.Is(err, contract.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Research session not found")
	}
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *researchController) Clear(ctx *fiber.Ctx) error {
	res, err := c.service.Clear(ctx.UserContext(), ctx.Params("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *researchController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{Status: "healthy", Service: "research"})
}
