package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "invoiceaudit/server/errors"
)

// RequestIDHeader заголовок с идентификатором запроса.
const RequestIDHeader = "X-Request-ID"

// requestIDKey ключ request ID в контексте gin.
const requestIDKey = "request_id"

// RequestID добавляет уникальный request ID к каждому запросу.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(requestIDKey, reqID)
		c.Writer.Header().Set(RequestIDHeader, reqID)
		c.Next()
	}
}

// GetRequestID извлекает request ID из контекста gin.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logging пишет структурированный лог по каждому запросу.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", GetRequestID(c),
		)
	}
}

// Recovery перехватывает панику и возвращает JSON 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c),
				)
				c.AbortWithStatusJSON(500, gin.H{
					"error":      "Внутренняя ошибка сервера",
					"request_id": GetRequestID(c),
				})
			}
		}()
		c.Next()
	}
}

// HandleError переводит ошибку приложения в JSON-ответ.
// AppError несет собственный статус и сообщение; остальные ошибки
// считаются внутренними и не раскрывают деталей пользователю.
func HandleError(c *gin.Context, err error) {
	reqID := GetRequestID(c)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		slog.Error("request error",
			"error", appErr.Error(),
			"status_code", appErr.StatusCode(),
			"context", appErr.GetContext(),
			"request_id", reqID,
		)
		c.JSON(appErr.StatusCode(), gin.H{
			"error":      appErr.UserMessage(),
			"request_id": reqID,
		})
		return
	}

	slog.Error("unhandled error", "error", err.Error(), "request_id", reqID)
	c.JSON(500, gin.H{
		"error":      "Внутренняя ошибка сервера",
		"request_id": reqID,
	})
}
