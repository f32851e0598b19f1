package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"refpay/internal/services/directory"
	"refpay/internal/services/ledger"
	"refpay/internal/services/payout"
	"refpay/internal/utils"
)

type AgentHandler struct {
	directoryService directory.Service
	ledgerService    ledger.Service
	payoutService    payout.Service
}

func NewAgentHandler(directoryService directory.Service, ledgerService ledger.Service, payoutService payout.Service) *AgentHandler {
	return &AgentHandler{
		directoryService: directoryService,
		ledgerService:    ledgerService,
		payoutService:    payoutService,
	}
}

type createAgentInput struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
}

// CreateAgent registers a new agent and issues their referral code.
func (h *AgentHandler) CreateAgent(c *fiber.Ctx) error {
	var input createAgentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	agent, err := h.directoryService.CreateAgent(c.Context(), input.FullName, input.Email, input.Phone)
	if err != nil {
		if errors.Is(err, directory.ErrCodeCollision) {
			return utils.ServiceUnavailable(c, "could not allocate a referral code, retry")
		}
		return utils.ServiceUnavailable(c, "failed to create agent")
	}
	return utils.Created(c, fiber.Map{"agent": agent})
}

type setActiveInput struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *AgentHandler) SetActive(c *fiber.Ctx) error {
	id, err := agentIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid agent id")
	}
	var input setActiveInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	if err := h.directoryService.SetActive(c.Context(), id, *input.Active); err != nil {
		if errors.Is(err, directory.ErrAgentNotFound) {
			return utils.NotFound(c, "agent not found")
		}
		return utils.ServiceUnavailable(c, "failed to update agent")
	}
	return utils.Success(c, fiber.Map{"active": *input.Active})
}

type rateOverrideInput struct {
	Rate *float64 `json:"rate"`
}

// SetRateOverride sets or clears (rate: null) the agent's commission rate
// override.
func (h *AgentHandler) SetRateOverride(c *fiber.Ctx) error {
	id, err := agentIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid agent id")
	}
	var input rateOverrideInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if err := h.directoryService.SetCommissionOverride(c.Context(), id, input.Rate); err != nil {
		switch {
		case errors.Is(err, directory.ErrInvalidRate):
			return utils.BadRequest(c, "rate must be between 0 and 1")
		case errors.Is(err, directory.ErrAgentNotFound):
			return utils.NotFound(c, "agent not found")
		}
		return utils.ServiceUnavailable(c, "failed to update agent")
	}
	return utils.Success(c, fiber.Map{"rate": input.Rate})
}

type globalRateInput struct {
	Rate float64 `json:"rate"`
}

// SetGlobalRate updates the default commission rate in settings.
func (h *AgentHandler) SetGlobalRate(c *fiber.Ctx) error {
	var input globalRateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := h.directoryService.SetGlobalRate(c.Context(), input.Rate); err != nil {
		if errors.Is(err, directory.ErrInvalidRate) {
			return utils.BadRequest(c, "rate must be between 0 and 1")
		}
		return utils.ServiceUnavailable(c, "failed to update rate")
	}
	return utils.Success(c, fiber.Map{"rate": input.Rate})
}

// Summary is the public per-code agent summary: visit and sale counters plus
// cleared and available balances.
func (h *AgentHandler) Summary(c *fiber.Ctx) error {
	agent, err := h.directoryService.FindByReferralCode(c.Context(), c.Params("code"))
	if err != nil {
		if errors.Is(err, directory.ErrAgentNotFound) {
			return utils.NotFound(c, "agent not found")
		}
		return utils.ServiceUnavailable(c, "failed to load agent")
	}

	available, err := h.payoutService.AvailableBalance(c.Context(), agent.ID)
	if err != nil {
		return utils.ServiceUnavailable(c, "failed to compute balance")
	}

	return utils.Success(c, fiber.Map{
		"referral_code":       agent.ReferralCode,
		"full_name":           agent.FullName,
		"is_active":           agent.IsActive,
		"visit_count":         agent.VisitCount,
		"sale_count":          agent.SaleCount,
		"total_cleared_cents": agent.TotalClearedCents,
		"available_cents":     available,
	})
}

// Detail is the admin view: full agent record plus commission and payout
// history.
func (h *AgentHandler) Detail(c *fiber.Ctx) error {
	id, err := agentIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid agent id")
	}
	agent, err := h.directoryService.GetAgent(c.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrAgentNotFound) {
			return utils.NotFound(c, "agent not found")
		}
		return utils.ServiceUnavailable(c, "failed to load agent")
	}

	commissions, err := h.ledgerService.AgentCommissions(c.Context(), id)
	if err != nil {
		return utils.ServiceUnavailable(c, "failed to load commissions")
	}
	payouts, err := h.payoutService.AgentPayouts(c.Context(), id)
	if err != nil {
		return utils.ServiceUnavailable(c, "failed to load payouts")
	}

	return utils.Success(c, fiber.Map{
		"agent":       agent,
		"commissions": commissions,
		"payouts":     payouts,
	})
}

func agentIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
