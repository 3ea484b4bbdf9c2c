package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/service"
)

// Middleware JWT 认证中间件
// 验证通过后把 Actor 写入请求 context,供服务层鉴权
func Middleware(validator *TokenValidator, policy *Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			c.Abort()
			return
		}

		if strings.HasPrefix(token, "Bearer ") {
			token = token[7:]
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
				"detail":  err.Error(),
			})
			c.Abort()
			return
		}

		actor := policy.Actor(claims.Sub, claims.RealmAccess.Roles)

		c.Set("user_id", claims.Sub)
		c.Set("username", claims.PreferredUsername)
		c.Set("email", claims.Email)
		c.Set("roles", claims.RealmAccess.Roles)
		c.Request = c.Request.WithContext(service.ContextWithActor(c.Request.Context(), actor))

		c.Next()
	}
}
