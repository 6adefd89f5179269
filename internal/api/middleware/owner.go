package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/errcode"
)

const ownerIDKey = "ownerID"

var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// OwnerMiddleware 从可信请求头中读取调用方身份并注入上下文。
func OwnerMiddleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(header))
		if !ownerPattern.MatchString(owner) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or invalid " + header,
				"code":  errcode.FieldValidation,
			})
			return
		}
		c.Set(ownerIDKey, owner)
		c.Next()
	}
}

// GetOwnerID 从上下文中取出调用方身份。
func GetOwnerID(c *gin.Context) (string, bool) {
	if value, ok := c.Get(ownerIDKey); ok {
		if id, ok := value.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}
