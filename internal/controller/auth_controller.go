package controller

import (
	"koios-rag-be/internal/dto"
	"koios-rag-be/internal/pkg/serverutils"
	"koios-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	IssueToken(ctx *fiber.Ctx) error
}

type authController struct {
	authService service.IAuthService
}

func NewAuthController(authService service.IAuthService) IAuthController {
	return &authController{
		authService: authService,
	}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth/v1")
	h.Post("token", c.IssueToken)
}

func (c *authController) IssueToken(ctx *fiber.Ctx) error {
	// Token minting is restricted to known caller IPs.
	if !c.authService.IsIpAuthorized(ctx.IP()) {
		return fiber.NewError(fiber.StatusForbidden, "IP not authorized for token issuance")
	}

	var req dto.TokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.authService.IssueToken(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success issue token", res))
}
