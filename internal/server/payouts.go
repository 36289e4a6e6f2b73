package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) AggregatePayout(c *gin.Context) {
	workerID := strings.TrimSpace(c.Query("worker_id"))

	start, err := parseOptionalTime(c.Query("start"), false)
	if err != nil || start == nil {
		AbortWithError(c, newValidationError("start", "invalid_start", "invalid start"))
		return
	}
	end, err := parseOptionalTime(c.Query("end"), true)
	if err != nil || end == nil {
		AbortWithError(c, newValidationError("end", "invalid_end", "invalid end"))
		return
	}

	resp, err := s.payoutSvc.AggregateForPeriod(c.Request.Context(), workerID, *start, *end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RunPayoutBatch triggers a batch payout run outside the scheduler
// cadence, e.g. from an operations console.
func (s *Server) RunPayoutBatch(c *gin.Context) {
	asOf := time.Now().UTC()
	if parsed, err := parseOptionalTime(c.Query("as_of"), true); err == nil && parsed != nil {
		asOf = *parsed
	}

	resp, err := s.payoutSvc.RunBatch(c.Request.Context(), asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "payout.run_batch", "payout_batch", nil, map[string]any{
			"paid":         resp.Paid,
			"failed":       resp.Failed,
			"amount_cents": resp.AmountCents,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
