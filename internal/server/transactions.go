package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
)

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		TransactionType string `form:"transaction_type"`
		Status          string `form:"status"`
		CustomerID      string `form:"customer_id"`
		WorkerID        string `form:"worker_id"`
		AppointmentID   string `form:"appointment_id"`
		From            string `form:"from"`
		To              string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	req := ledgerdomain.ListTransactionsRequest{
		TransactionType: strings.TrimSpace(query.TransactionType),
		Status:          strings.TrimSpace(query.Status),
		CustomerID:      strings.TrimSpace(query.CustomerID),
		WorkerID:        strings.TrimSpace(query.WorkerID),
		AppointmentID:   strings.TrimSpace(query.AppointmentID),
		PageToken:       query.PageToken,
		PageSize:        int32(query.PageSize),
	}
	if from != nil {
		req.From = *from
	}
	if to != nil {
		req.To = *to
	}

	resp, err := s.ledgerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTransaction(c *gin.Context) {
	resp, err := s.ledgerSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTransactionEvents(c *gin.Context) {
	resp, err := s.ledgerSvc.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type reversalRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

func (s *Server) RefundTransaction(c *gin.Context) {
	s.reverseTransaction(c, "payment.refund", s.ledgerSvc.Refund)
}

func (s *Server) DisputeTransaction(c *gin.Context) {
	s.reverseTransaction(c, "payment.dispute", s.ledgerSvc.Dispute)
}

func (s *Server) reverseTransaction(c *gin.Context, action string, reverse func(ctx context.Context, req ledgerdomain.RefundRequest) (ledgerdomain.PaymentTransaction, error)) {
	var req reversalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	transactionID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || transactionID == 0 {
		AbortWithError(c, ledgerdomain.ErrInvalidID)
		return
	}

	resp, err := reverse(c.Request.Context(), ledgerdomain.RefundRequest{
		TransactionID:    transactionID,
		GrossAmountCents: req.AmountCents,
		Reason:           strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, action, "payment_transaction", &targetID, map[string]any{
			"original_transaction_id": transactionID.String(),
			"gross_amount_cents":      resp.GrossAmountCents,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
