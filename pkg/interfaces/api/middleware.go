package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/dto"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTenant    = "X-Tenant-ID"
	HeaderOperator  = "X-Operator-ID"

	actorKey = "actor"
)

// Logger logs one line per request, at Error for 5xx and Warn for 4xx
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
			zap.String("tenant_id", c.GetHeader(HeaderTenant)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if status >= 500 {
			logger.Error("Server error", fields...)
		} else if status >= 400 {
			logger.Warn("Client error", fields...)
		} else {
			logger.Info("Request", fields...)
		}
	}
}

// RequestID propagates or assigns a request id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Next()
	}
}

// Tenant requires X-Tenant-ID and stores the caller as an actor
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(HeaderTenant)
		if tenantID == "" {
			tenantID = c.Query("tenant_id")
		}
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    CodeBadRequest,
				"message": HeaderTenant + " header is required",
			})
			return
		}
		c.Set(actorKey, dto.Actor{TenantID: tenantID, OperatorID: c.GetHeader(HeaderOperator)})
		c.Next()
	}
}

func actorOf(c *gin.Context) dto.Actor {
	actor, _ := c.Get(actorKey)
	a, _ := actor.(dto.Actor)
	return a
}
