package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/pointagehq/pointage/internal/payment/domain"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

func (s *Server) CreateCoffeeCheckout(c *gin.Context) {
	var req paymentdomain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	session, err := s.paymentSvc.CreateCheckout(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) ListCoffeePayments(c *gin.Context) {
	payments, err := s.paymentSvc.ListByOrg(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// StripeWebhook ingests provider callbacks. Unsigned or replayed events are
// rejected inside the payment service.
func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if err := s.paymentSvc.IngestWebhook(c.Request.Context(), payload, signature); err != nil {
		s.log.Warn("webhook rejected", zap.Error(err))
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
