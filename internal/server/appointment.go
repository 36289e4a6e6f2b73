package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
)

type createAppointmentRequest struct {
	CustomerID         string `json:"customer_id"`
	ScheduledDate      string `json:"scheduled_date"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	EstimatedCostCents int64  `json:"estimated_cost_cents"`
}

func (s *Server) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		AbortWithError(c, newValidationError("start_time", "invalid_start_time", "invalid start_time"))
		return
	}
	endTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndTime))
	if err != nil {
		AbortWithError(c, newValidationError("end_time", "invalid_end_time", "invalid end_time"))
		return
	}

	scheduledDate, err := parseOptionalTime(req.ScheduledDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("scheduled_date", "invalid_scheduled_date", "invalid scheduled_date"))
		return
	}

	domainReq := appointmentdomain.CreateAppointmentRequest{
		CustomerID:         strings.TrimSpace(req.CustomerID),
		StartTime:          startTime,
		EndTime:            endTime,
		EstimatedCostCents: req.EstimatedCostCents,
	}
	if scheduledDate != nil {
		domainReq.ScheduledDate = *scheduledDate
	}

	resp, err := s.appointmentSvc.Create(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "appointment.create", "appointment", &targetID, map[string]any{
			"appointment_id":       resp.ID.String(),
			"customer_id":          resp.CustomerID.String(),
			"estimated_cost_cents": resp.EstimatedCostCents,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAppointments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.appointmentSvc.List(c.Request.Context(), appointmentdomain.ListAppointmentRequest{
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     strings.TrimSpace(query.Status),
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAppointment(c *gin.Context) {
	resp, err := s.appointmentSvc.GetByID(c.Request.Context(), appointmentdomain.GetAppointmentRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateAppointmentStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) UpdateAppointmentStatus(c *gin.Context) {
	var req updateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.appointmentSvc.UpdateStatus(c.Request.Context(), appointmentdomain.UpdateStatusRequest{
		ID:     c.Param("id"),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "appointment.update_status", "appointment", &targetID, map[string]any{
			"appointment_id": resp.ID.String(),
			"status":         string(resp.Status),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolveAppointmentCost(c *gin.Context) {
	resp, err := s.appointmentSvc.ResolveActualCost(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
