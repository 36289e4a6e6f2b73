package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/helprs/fieldpay/internal/tenantctx"
)

const HeaderCompany = "X-Company-ID"

// CompanyContext resolves the tenant from the request header and injects
// it into the request context. Every route under /v1 is tenant scoped;
// authentication itself is handled upstream.
func CompanyContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderCompany))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		companyID, err := snowflake.ParseString(raw)
		if err != nil || companyID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := tenantctx.WithCompanyID(c.Request.Context(), companyID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
