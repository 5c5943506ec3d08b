package controller

import (
	"errors"

	"koios-rag-be/internal/dto"
	"koios-rag-be/internal/pkg/serverutils"
	"koios-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Query(ctx *fiber.Ctx) error
	QuerySimple(ctx *fiber.Ctx) error
	Analyze(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	ClearHistory(ctx *fiber.Ctx) error
	ListModels(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/chat/v1")
	h.Use(jwtMiddleware)
	h.Get("models", c.ListModels)
	h.Post("query", c.Query)
	h.Get("query", c.QuerySimple)
	h.Post("analyze", c.Analyze)
	h.Get("history", c.GetHistory)
	h.Delete("history", c.ClearHistory)
}

func (c *chatController) Query(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Query(ctx.Context(), userId, &req)
	if err != nil {
		if errors.Is(err, service.ErrHistoryStore) {
			// The answer exists, only persistence failed.
			return ctx.JSON(serverutils.SuccessResponse("Answer generated but history was not persisted", res))
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query", res))
}

// QuerySimple answers ?q= questions without a JSON body. Stateless: no
// history is loaded or persisted. Handy for probes and shell scripts.
func (c *chatController) QuerySimple(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	req := dto.QueryRequest{
		Question: ctx.Query("q"),
		Model:    ctx.Query("model"),
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.QueryStateless(ctx.Context(), userId, &req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query", res))
}

func (c *chatController) Analyze(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.AnalyzeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Analyze(ctx.Context(), userId, &req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success analyze", res))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.chatService.GetHistory(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *chatController) ClearHistory(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.chatService.ClearHistory(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success clear history", res))
}

func (c *chatController) ListModels(ctx *fiber.Ctx) error {
	res, err := c.chatService.ListModels(ctx.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list models", res))
}
