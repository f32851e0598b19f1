package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"refpay/internal/models"
	"refpay/internal/services/notification"
	"refpay/internal/services/payout"
	"refpay/internal/utils"
)

type PayoutHandler struct {
	payoutService payout.Service
	notifier      notification.Service
}

func NewPayoutHandler(payoutService payout.Service, notifier notification.Service) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService, notifier: notifier}
}

type requestPayoutInput struct {
	AgentID     uint   `json:"agent_id" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"required"`
	Destination string `json:"destination" validate:"required"`
}

// RequestPayout records a payout request against the agent's available
// balance.
func (h *PayoutHandler) RequestPayout(c *fiber.Ctx) error {
	var input requestPayoutInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	p, err := h.payoutService.RequestPayout(c.Context(), input.AgentID, input.AmountCents, input.Destination)
	if err != nil {
		if errors.Is(err, payout.ErrInsufficientFunds) {
			return utils.UnprocessableEntity(c, "insufficient cleared balance")
		}
		return utils.ServiceUnavailable(c, "failed to record payout request")
	}

	h.notifier.Notify(c.Context(), p.AgentID, notification.EventPayoutRequested, p.AmountCents)
	return utils.Created(c, fiber.Map{"payout": p})
}

// Approve moves a payout REQUESTED -> APPROVED.
func (h *PayoutHandler) Approve(c *fiber.Ctx) error {
	return h.adminTransition(c, h.payoutService.Approve, notification.EventPayoutApproved)
}

// MarkPaid moves a payout APPROVED -> PAID.
func (h *PayoutHandler) MarkPaid(c *fiber.Ctx) error {
	return h.adminTransition(c, h.payoutService.MarkPaid, notification.EventPayoutPaid)
}

// Reject moves a payout REQUESTED -> REJECTED, releasing the reserved
// balance.
func (h *PayoutHandler) Reject(c *fiber.Ctx) error {
	return h.adminTransition(c, h.payoutService.Reject, notification.EventPayoutRejected)
}

func (h *PayoutHandler) adminTransition(c *fiber.Ctx, apply func(context.Context, string) (*models.Payout, error), event string) error {
	p, err := apply(c.Context(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrPayoutNotFound):
			return utils.NotFound(c, "payout not found")
		case errors.Is(err, payout.ErrInvalidTransition):
			return utils.Conflict(c, err.Error())
		}
		return utils.ServiceUnavailable(c, "failed to update payout")
	}

	h.notifier.Notify(c.Context(), p.AgentID, event, p.AmountCents)
	return utils.Success(c, fiber.Map{"payout": p})
}
