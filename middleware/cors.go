package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var exposeHeaders = []string{"Content-Disposition", "X-Model-Used", "X-Cache", RequestIDHeader}

// CORS 允许浏览器直接调用 API，并暴露模型与请求 ID 头
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+RequestIDHeader)
		c.Header("Access-Control-Expose-Headers", strings.Join(exposeHeaders, ", "))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
