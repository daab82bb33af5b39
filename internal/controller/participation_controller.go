package controller

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"github.com/felixniemeyer/ai-mediator/internal/pkg/serverutils"
	"github.com/felixniemeyer/ai-mediator/internal/service"
	"github.com/felixniemeyer/ai-mediator/internal/websocket"
)

type IParticipationController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
}

type participationController struct {
	service service.IParticipationService
	hub     *websocket.Hub
}

func NewParticipationController(service service.IParticipationService, hub *websocket.Hub) IParticipationController {
	return &participationController{
		service: service,
		hub:     hub,
	}
}

func (c *participationController) RegisterRoutes(r fiber.Router) {
	r.Get("/session/:sessionId/participation/:secretKey", c.Show)

	if c.hub != nil {
		r.Get("/session/:sessionId/participation/:secretKey/feed", fiberws.New(c.feed))
	}
}

func (c *participationController) Show(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")
	secretKey := ctx.Params("secretKey")

	res, err := c.service.GetParticipation(ctx.Context(), sessionId, secretKey)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrInvalidSecretKey):
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
		}
	}

	return ctx.JSON(serverutils.SuccessResponse("Participation", res))
}

// feed upgrades to a websocket and streams answer_ready events for the
// participation. The key is validated before the upgrade sticks.
func (c *participationController) feed(conn *fiberws.Conn) {
	sessionId := conn.Params("sessionId")
	secretKey := conn.Params("secretKey")

	if err := c.service.ValidateKey(context.Background(), sessionId, secretKey); err != nil {
		conn.WriteMessage(fiberws.CloseMessage,
			fiberws.FormatCloseMessage(fiberws.ClosePolicyViolation, "invalid session or key"))
		conn.Close()
		return
	}

	websocket.ServeWs(c.hub, conn, sessionId, secretKey)
}
