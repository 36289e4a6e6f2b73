package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	workflowdomain "github.com/helprs/fieldpay/internal/workflow/domain"
)

type processDepositRequest struct {
	CustomerID      string `json:"customer_id"`
	AmountCents     int64  `json:"amount_cents"`
	PaymentMethodID string `json:"payment_method_id"`
}

func (s *Server) ProcessDeposit(c *gin.Context) {
	var req processDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.workflowSvc.ProcessDeposit(c.Request.Context(), workflowdomain.ProcessDepositRequest{
		AppointmentID:   c.Param("id"),
		CustomerID:      strings.TrimSpace(req.CustomerID),
		AmountCents:     req.AmountCents,
		PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.Transaction.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "payment.deposit", "payment_transaction", &targetID, map[string]any{
			"appointment_id":     resp.Appointment.ID.String(),
			"gross_amount_cents": resp.Transaction.GrossAmountCents,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RequestApproval(c *gin.Context) {
	resp, err := s.workflowSvc.RequestApproval(c.Request.Context(), workflowdomain.RequestApprovalRequest{
		AppointmentID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "payment.request_approval", "appointment", &targetID, map[string]any{
			"appointment_id":    resp.ID.String(),
			"actual_cost_cents": resp.ActualCostCents,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveHours(c *gin.Context) {
	resp, err := s.workflowSvc.Approve(c.Request.Context(), workflowdomain.ApproveRequest{
		AppointmentID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "payment.approve_hours", "appointment", &targetID, map[string]any{
			"appointment_id": resp.ID.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type processFinalPaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (s *Server) ProcessFinalPayment(c *gin.Context) {
	var req processFinalPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.workflowSvc.ProcessFinalPayment(c.Request.Context(), workflowdomain.ProcessFinalPaymentRequest{
		AppointmentID:   c.Param("id"),
		PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.Transaction.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "payment.final", "payment_transaction", &targetID, map[string]any{
			"appointment_id":     resp.Appointment.ID.String(),
			"gross_amount_cents": resp.Transaction.GrossAmountCents,
			"payouts":            len(resp.Payouts),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
