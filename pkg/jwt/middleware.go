package jwt

import (
	"strings"

	"fpiersk/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	// ContextEmailKey 用户邮箱在gin.Context中的键名
	ContextEmailKey = "email"
	// ContextNickKey 昵称在gin.Context中的键名
	ContextNickKey = "nick"
	// ContextClaimsKey JWT声明在gin.Context中的键名
	ContextClaimsKey = "jwt_claims"
)

// AuthMiddleware JWT认证中间件
// 从请求头中提取Authorization: Bearer <token>
// 验证token并将用户信息存入gin.Context
func (s *JWTService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "缺少Authorization请求头")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "Authorization格式错误，应为Bearer <token>")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			response.Unauthorized(c, "token不能为空")
			c.Abort()
			return
		}

		claims, err := s.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "token无效或已过期")
			c.Abort()
			return
		}

		email := claims.Subject
		nick := ""
		if claims.Data != nil {
			if n, ok := claims.Data["nick"].(string); ok {
				nick = n
			}
		}

		c.Set(ContextEmailKey, email)
		c.Set(ContextNickKey, nick)
		c.Set(ContextClaimsKey, claims)

		c.Next()
	}
}

// GetEmail 从gin.Context中获取用户邮箱
func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextEmailKey); exists {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}

// GetNick 从gin.Context中获取昵称
func GetNick(c *gin.Context) string {
	if nick, exists := c.Get(ContextNickKey); exists {
		if n, ok := nick.(string); ok {
			return n
		}
	}
	return ""
}

// GetClaims 从gin.Context中获取JWT声明
func GetClaims(c *gin.Context) *CustomClaims {
	if claims, exists := c.Get(ContextClaimsKey); exists {
		if cc, ok := claims.(*CustomClaims); ok {
			return cc
		}
	}
	return nil
}
