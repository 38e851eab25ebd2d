package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"efs-platform/backend/pkg/response"
)

// BodyLimit 请求体大小限制
// 课表接口只接收少量 JSON（一次最多几百个 session id），超限直接 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}

// IsBodyTooLarge 绑定请求体失败是否因超出 BodyLimit
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
