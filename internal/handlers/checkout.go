package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"refpay/internal/models"
	"refpay/internal/repositories"
	"refpay/internal/services/ledger"
	"refpay/internal/services/notification"
	"refpay/internal/services/referral"
	"refpay/internal/services/settlement"
	"refpay/internal/utils"
)

type CheckoutHandler struct {
	orders          *repositories.OrderRepository
	referralService referral.Service
	ledgerService   ledger.Service
	settlement      settlement.Service
	notifier        notification.Service
}

func NewCheckoutHandler(
	orders *repositories.OrderRepository,
	referralService referral.Service,
	ledgerService ledger.Service,
	settlementService settlement.Service,
	notifier notification.Service,
) *CheckoutHandler {
	return &CheckoutHandler{
		orders:          orders,
		referralService: referralService,
		ledgerService:   ledgerService,
		settlement:      settlementService,
		notifier:        notifier,
	}
}

type checkoutInput struct {
	ProductID   string `json:"product_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
}

// Checkout is the synchronous demo path: it creates the order, attributes
// the referral, settles with the payment provider once, and records the
// commission on success.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	var input checkoutInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	// Last-touch: a ref query parameter at confirmation time beats the
	// cookie from an earlier visit.
	code := c.Cookies(ReferralCookie)
	if q := c.Query("ref"); q != "" {
		code = q
	}
	agentID, err := h.referralService.AttributeOrder(c.Context(), code)
	if err != nil {
		return utils.InternalError(c, "failed to attribute order")
	}

	now := time.Now()
	order := &models.Order{
		ID:               uuid.NewString(),
		ProductID:        input.ProductID,
		Quantity:         input.Quantity,
		TotalAmountCents: input.AmountCents,
		AgentID:          agentID,
		Status:           models.OrderPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.orders.Save(c.Context(), order); err != nil {
		return utils.ServiceUnavailable(c, "failed to create order")
	}

	paymentRef, err := h.settlement.Confirm(c.Context(), order.ID, order.TotalAmountCents)
	if err != nil {
		h.transitionOrder(c.Context(), order, models.OrderFailed, "")
		if errors.Is(err, settlement.ErrPaymentDeclined) {
			return utils.UnprocessableEntity(c, "payment declined")
		}
		return utils.InternalError(c, "payment failed")
	}

	if err := h.transitionOrder(c.Context(), order, models.OrderPaid, paymentRef); err != nil {
		return utils.ServiceUnavailable(c, "failed to confirm order")
	}

	commission, err := h.ledgerService.RecordSale(c.Context(), order)
	if err != nil {
		// The order is paid; a commission failure is a server fault, not
		// a checkout failure the shopper should see twice.
		log.Printf("checkout: failed to record commission for order %s: %v", order.ID, err)
		return utils.ServiceUnavailable(c, "order paid but commission not recorded; confirmation will be retried")
	}
	if commission != nil {
		h.notifier.Notify(c.Context(), commission.AgentID, notification.EventCommissionRecorded, commission.CommissionAmountCents)
	}

	return utils.Created(c, fiber.Map{
		"order":      order,
		"commission": commission,
	})
}

type paymentWebhookInput struct {
	OrderID    string `json:"order_id" validate:"required"`
	PaymentRef string `json:"payment_ref"`
	Status     string `json:"status" validate:"required,oneof=paid canceled failed"`
}

// PaymentWebhook handles asynchronous confirmations from the payment
// gateway. Gateways retry; everything here is safe to run more than once.
func (h *CheckoutHandler) PaymentWebhook(c *fiber.Ctx) error {
	var input paymentWebhookInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	order, err := h.orders.GetByID(c.Context(), input.OrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return utils.NotFound(c, "order not found")
		}
		return utils.ServiceUnavailable(c, "failed to load order")
	}

	next := map[string]models.OrderStatus{
		"paid":     models.OrderPaid,
		"canceled": models.OrderCanceled,
		"failed":   models.OrderFailed,
	}[input.Status]

	if order.Status != next {
		if !order.Status.CanTransitionTo(next) {
			return utils.Conflict(c, "order already finalized")
		}
		if err := h.transitionOrder(c.Context(), order, next, input.PaymentRef); err != nil {
			return utils.ServiceUnavailable(c, "failed to update order")
		}
	} else if input.PaymentRef != "" && order.PaymentRef == "" {
		// Terminal orders still accept a payment reference backfill.
		order.PaymentRef = input.PaymentRef
		order.UpdatedAt = time.Now()
		if err := h.orders.Save(c.Context(), order); err != nil {
			return utils.ServiceUnavailable(c, "failed to update order")
		}
	}

	if order.Status != models.OrderPaid {
		return utils.Success(c, fiber.Map{"order": order})
	}

	// Safe on retries: RecordSale is idempotent on the order id.
	commission, err := h.ledgerService.RecordSale(c.Context(), order)
	if err != nil {
		return utils.ServiceUnavailable(c, "failed to record commission")
	}
	if commission != nil {
		h.notifier.Notify(c.Context(), commission.AgentID, notification.EventCommissionRecorded, commission.CommissionAmountCents)
	}
	return utils.Success(c, fiber.Map{"order": order, "commission": commission})
}

func (h *CheckoutHandler) transitionOrder(ctx context.Context, order *models.Order, next models.OrderStatus, paymentRef string) error {
	if !order.Status.CanTransitionTo(next) {
		return ledger.ErrInvalidTransition
	}
	order.Status = next
	if paymentRef != "" {
		order.PaymentRef = paymentRef
	}
	order.UpdatedAt = time.Now()
	return h.orders.Save(ctx, order)
}
