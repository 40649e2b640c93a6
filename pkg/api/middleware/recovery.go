package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/scan-orchestrator/pkg/api/dto"
)

// Recovery panic恢复中间件
// Handler panic不拖垮Worker进程，记录请求与堆栈后返回统一500信封
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[API] %s %s panic: %v\n%s",
					c.Request.Method, c.Request.URL.Path, r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					dto.NewErrorResponse(500, "服务器内部错误"))
			}
		}()
		c.Next()
	}
}
