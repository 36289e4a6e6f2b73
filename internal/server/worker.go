package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	workerdomain "github.com/helprs/fieldpay/internal/worker/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
)

type createWorkerRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	HourlyRateCents   int64  `json:"hourly_rate_cents"`
	PaymentPreference string `json:"payment_preference"`
	PayoutAccountID   string `json:"payout_account_id"`
}

func (s *Server) CreateWorker(c *gin.Context) {
	var req createWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.workerSvc.Create(c.Request.Context(), workerdomain.CreateWorkerRequest{
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.TrimSpace(req.Email),
		HourlyRateCents:   req.HourlyRateCents,
		PaymentPreference: strings.TrimSpace(req.PaymentPreference),
		PayoutAccountID:   strings.TrimSpace(req.PayoutAccountID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "worker.create", "worker", &targetID, map[string]any{
			"worker_id":          resp.ID.String(),
			"payment_preference": string(resp.PaymentPreference),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListWorkers(c *gin.Context) {
	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.workerSvc.List(c.Request.Context(), workerdomain.ListWorkerRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetWorker(c *gin.Context) {
	resp, err := s.workerSvc.GetByID(c.Request.Context(), workerdomain.GetWorkerRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateWorkerPreferenceRequest struct {
	PaymentPreference string `json:"payment_preference"`
}

func (s *Server) UpdateWorkerPreference(c *gin.Context) {
	var req updateWorkerPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.workerSvc.UpdatePreference(c.Request.Context(), workerdomain.UpdatePreferenceRequest{
		ID:         c.Param("id"),
		Preference: strings.TrimSpace(req.PaymentPreference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "worker.update_preference", "worker", &targetID, map[string]any{
			"worker_id":          resp.ID.String(),
			"payment_preference": string(resp.PaymentPreference),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
