package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/helprs/fieldpay/internal/settings/domain"
)

func (s *Server) GetSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateSettingsRequest struct {
	PlatformFeeBPS *int64  `json:"platform_fee_bps"`
	PayoutSchedule *string `json:"payout_schedule"`
	AutoPayWorkers *bool   `json:"auto_pay_workers"`
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	domainReq := settingsdomain.UpdateSettingsRequest{
		PlatformFeeBPS: req.PlatformFeeBPS,
		AutoPayWorkers: req.AutoPayWorkers,
	}
	if req.PayoutSchedule != nil {
		schedule := strings.TrimSpace(*req.PayoutSchedule)
		domainReq.PayoutSchedule = &schedule
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.CompanyID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "", nil, "settings.update", "company_payment_settings", &targetID, map[string]any{
			"platform_fee_bps": resp.PlatformFeeBPS,
			"payout_schedule":  string(resp.PayoutSchedule),
			"auto_pay_workers": resp.AutoPayWorkers,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
