package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
)

type clockRequest struct {
	WorkerID string `json:"worker_id"`
}

func (s *Server) ClockIn(c *gin.Context) {
	var req clockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.timesheetSvc.ClockIn(c.Request.Context(), timesheetdomain.ClockInRequest{
		AppointmentID: c.Param("id"),
		WorkerID:      strings.TrimSpace(req.WorkerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "time_entry.clock_in", "time_entry", &targetID, map[string]any{
			"appointment_id": resp.AppointmentID.String(),
			"worker_id":      resp.WorkerID.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ClockOut(c *gin.Context) {
	var req clockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.timesheetSvc.ClockOut(c.Request.Context(), timesheetdomain.ClockOutRequest{
		AppointmentID: c.Param("id"),
		WorkerID:      strings.TrimSpace(req.WorkerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "time_entry.clock_out", "time_entry", &targetID, map[string]any{
			"appointment_id":     resp.AppointmentID.String(),
			"worker_id":          resp.WorkerID.String(),
			"total_amount_cents": resp.TotalAmountCents,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTimeEntries(c *gin.Context) {
	resp, err := s.timesheetSvc.ListForAppointment(c.Request.Context(), timesheetdomain.ListEntriesRequest{
		AppointmentID: c.Param("id"),
		Status:        strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
