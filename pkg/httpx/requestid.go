package httpx

import (
	"github.com/Gunvolt24/spot_drain/pkg/ctxmeta"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID — заголовок корреляции запросов к ops-эндпоинтам.
	HeaderRequestID = "X-Request-ID"
	// maxRequestIDLen — длиннее не принимаем: id попадает в каждую строку лога.
	maxRequestIDLen = 128
)

// RequestIDMiddleware — request_id для логов и ответа.
// Клиентский X-Request-ID принимается, только если он короткий и из
// безопасных символов; иначе генерируется UUID. Итог лежит в контексте
// запроса, в gin-контексте под ключом request_id и в ответном заголовке.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set(string(ctxmeta.KeyRequestID), requestID)

		c.Request = c.Request.WithContext(ctxmeta.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// validRequestID — [A-Za-z0-9._:-], от 1 до maxRequestIDLen символов.
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.', ch == ':':
		default:
			return false
		}
	}
	return true
}
