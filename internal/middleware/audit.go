package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	"github.com/liyun-dev/campus-sis-api/internal/repository"
)

// Audit writes an audit trail entry once the wrapped handler finishes
// with a success status. Failed requests are not recorded; write errors
// never fail the request.
func Audit(repo *repository.UserRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if raw, ok := c.Get(ContextUserKey); ok {
			if claims, ok := raw.(*models.JWTClaims); ok {
				userID = &claims.UserID
			}
		}

		detail, _ := json.Marshal(struct {
			Path      string `json:"path"`
			Method    string `json:"method"`
			Status    int    `json:"status"`
			LatencyMs int64  `json:"latency_ms"`
		}{
			Path:      c.FullPath(),
			Method:    c.Request.Method,
			Status:    c.Writer.Status(),
			LatencyMs: time.Since(start).Milliseconds(),
		})

		_ = repo.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:    userID,
			Action:    action,
			Resource:  resource,
			NewValues: detail,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
	}
}
