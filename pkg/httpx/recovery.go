package httpx

import (
	"net/http"

	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/gin-gonic/gin"
)

// Recovery — panic в хендлере превращается в 500 и строку в логе, процесс живёт дальше.
func Recovery(log ports.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Errorf(c.Request.Context(), "panic recovered method=%s path=%s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
