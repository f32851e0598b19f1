package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"refpay/internal/services/referral"
	"refpay/internal/utils"
)

// ReferralCookie carries the last-touch referral code until checkout.
const (
	ReferralCookie       = "ref_code"
	referralCookieMaxAge = 30 * 24 * time.Hour
)

type VisitHandler struct {
	referralService referral.Service
	shopURL         string
}

func NewVisitHandler(referralService referral.Service, shopURL string) *VisitHandler {
	return &VisitHandler{referralService: referralService, shopURL: shopURL}
}

// TrackLink handles the shareable referral link: it counts the visit, drops
// the referral cookie, and redirects to the shop. Unknown codes still
// redirect; a broken link should never show an error page to a shopper.
func (h *VisitHandler) TrackLink(c *fiber.Ctx) error {
	code := c.Params("code")
	if err := h.referralService.CaptureVisit(c.Context(), code, visitorFingerprint(c)); err != nil {
		if !errors.Is(err, referral.ErrInvalidReferral) {
			return utils.InternalError(c, "failed to record visit")
		}
		return c.Redirect(h.shopURL, fiber.StatusFound)
	}

	h.setReferralCookie(c, code)
	return c.Redirect(h.shopURL, fiber.StatusFound)
}

// CaptureVisit is the JSON capture endpoint used by the storefront script.
func (h *VisitHandler) CaptureVisit(c *fiber.Ctx) error {
	code := c.Params("code")
	err := h.referralService.CaptureVisit(c.Context(), code, visitorFingerprint(c))
	if err != nil {
		if errors.Is(err, referral.ErrInvalidReferral) {
			return utils.NotFound(c, "unknown referral code")
		}
		return utils.InternalError(c, "failed to record visit")
	}

	h.setReferralCookie(c, code)
	return utils.Success(c, fiber.Map{"tracked": true})
}

func (h *VisitHandler) setReferralCookie(c *fiber.Ctx, code string) {
	c.Cookie(&fiber.Cookie{
		Name:     ReferralCookie,
		Value:    code,
		Expires:  time.Now().Add(referralCookieMaxAge),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func visitorFingerprint(c *fiber.Ctx) string {
	return fmt.Sprintf("%s|%s", c.IP(), c.Get("User-Agent"))
}
