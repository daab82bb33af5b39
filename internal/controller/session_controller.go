package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/felixniemeyer/ai-mediator/internal/dto"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/serverutils"
	"github.com/felixniemeyer/ai-mediator/internal/service"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	SubmitPerspective(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.IMediationService
}

func NewSessionController(service service.IMediationService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	r.Post("/session", c.Create)
	r.Post("/perspective", c.SubmitPerspective)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	for _, p := range req.Participants {
		if p.ContactType == "email" && p.Email == "" || p.ContactType == "phone" && p.Phone == "" {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "participant "+p.Name+" has no contact address"))
		}
	}

	res, err := c.service.CreateSession(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyRoster) {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *sessionController) SubmitPerspective(ctx *fiber.Ctx) error {
	var req dto.SubmitPerspectiveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	completed, err := c.service.SubmitPerspective(ctx.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrInvalidSecretKey):
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
		}
	}

	if completed {
		return ctx.JSON(serverutils.CompleteResponse[any]("All perspectives collected, mediation in progress", nil))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Perspective saved", nil))
}
