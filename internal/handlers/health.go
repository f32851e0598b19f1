package handlers

import (
	"github.com/gofiber/fiber/v2"

	"refpay/internal/storage"
)

type HealthHandler struct {
	store *storage.TieredStore
}

func NewHealthHandler(store *storage.TieredStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check reports liveness and per-tier availability.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	tiers := h.store.Health()
	status := "ok"
	for _, up := range tiers {
		if !up {
			status = "degraded"
			break
		}
	}
	return c.JSON(fiber.Map{
		"status": status,
		"tiers":  tiers,
	})
}
