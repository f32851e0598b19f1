package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"refpay/internal/services/auth"
	"refpay/internal/services/sweeper"
	"refpay/internal/utils"
)

type AdminHandler struct {
	authService auth.Service
	sweeper     *sweeper.Service
}

func NewAdminHandler(authService auth.Service, sweeperService *sweeper.Service) *AdminHandler {
	return &AdminHandler{authService: authService, sweeper: sweeperService}
}

type loginInput struct {
	Password string `json:"password" validate:"required"`
}

// Login exchanges the admin password for a bearer token.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	token, err := h.authService.Login(c.Context(), input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return utils.Unauthorized(c, "invalid credentials")
		}
		return utils.InternalError(c, "login failed")
	}
	return utils.Success(c, fiber.Map{"token": token})
}

// Sweep triggers a clearance sweep on demand.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	cleared, err := h.sweeper.Sweep(c.Context())
	if err != nil {
		if errors.Is(err, sweeper.ErrSweepInProgress) {
			return utils.Conflict(c, "sweep already in progress")
		}
		return utils.ServiceUnavailable(c, "sweep failed")
	}
	return utils.Success(c, fiber.Map{"cleared": cleared})
}
