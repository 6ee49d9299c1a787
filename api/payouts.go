package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mentorhub/payouts/internal/domain"
	"github.com/mentorhub/payouts/internal/repository"
	"github.com/mentorhub/payouts/internal/service/payout"
)

type PayoutHandler struct {
	service payout.PayoutUseCase
}

type paymentWebhookRequest struct {
	BookingID int64 `json:"booking_id"`
}

type fraudReportRequest struct {
	Notes string `json:"notes"`
}

type payoutStatusResponse struct {
	BookingID        int64  `json:"booking_id"`
	PayoutStatus     string `json:"payout_status"`
	PlatformFee      *int64 `json:"platform_fee_cents,omitempty"`
	MentorPayout     *int64 `json:"mentor_payout_cents,omitempty"`
	PayoutReleasedAt string `json:"payout_released_at,omitempty"`
	PayoutID         string `json:"payout_id,omitempty"`
	IsFraudReported  bool   `json:"is_fraud_reported"`
	IsVerified       bool   `json:"is_verified"`
}

func NewPayoutHandler(service payout.PayoutUseCase) *PayoutHandler {
	return &PayoutHandler{service: service}
}

func (h *PayoutHandler) Register(router *gin.Engine) {
	router.POST("/webhooks/payment", h.paymentConfirmed)
	router.POST("/bookings/:id/confirm", h.confirmDelivery)
	router.POST("/bookings/:id/fraud", h.reportFraud)
	router.GET("/bookings/:id/payout", h.payoutStatus)
	router.POST("/admin/sweep", h.sweep)
}

func (h *PayoutHandler) paymentConfirmed(c *gin.Context) {
	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.HandlePaymentConfirmed(c.Request.Context(), req.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		// Provider failures are retryable: the booking state is unchanged and
		// the webhook will be redelivered.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *PayoutHandler) confirmDelivery(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	result, err := h.service.ConfirmDelivery(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *PayoutHandler) reportFraud(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req fraudReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.service.ReportFraud(c.Request.Context(), id, req.Notes)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fraud_reported": booking.IsFraudReported,
		"payout_status":  string(booking.PayoutStatus),
	})
}

func (h *PayoutHandler) payoutStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	booking, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toPayoutStatusResponse(booking))
}

func (h *PayoutHandler) sweep(c *gin.Context) {
	results, err := h.service.ProcessHeldPayouts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": len(results), "results": results})
}

func toPayoutStatusResponse(b *domain.Booking) payoutStatusResponse {
	resp := payoutStatusResponse{
		BookingID:       b.ID,
		PayoutStatus:    string(b.PayoutStatus),
		PlatformFee:     b.PlatformFeeCents,
		MentorPayout:    b.MentorPayoutCents,
		PayoutID:        b.PayoutID,
		IsFraudReported: b.IsFraudReported,
		IsVerified:      b.IsVerified,
	}
	if b.PayoutReleasedAt != nil {
		resp.PayoutReleasedAt = b.PayoutReleasedAt.Format(time.RFC3339)
	}
	return resp
}
