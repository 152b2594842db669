package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/logging"
)

const identityCtxKey = "identity"

// Authenticate 解析 Authorization 头；没有头时按匿名处理，头无效时直接 401
func Authenticate(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}
		id, err := m.ParseToken(raw)
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gormtool.Response{
				Code:    http.StatusUnauthorized,
				Message: "invalid token",
			})
			return
		}
		c.Set(identityCtxKey, id)
		c.Set(logging.UserIDKey, id.UserID)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireUser 匿名请求 401
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Current(c).Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gormtool.Response{
				Code:    http.StatusUnauthorized,
				Message: "authentication credentials were not provided",
			})
			return
		}
		c.Next()
	}
}

func Current(c *gin.Context) Identity {
	if v, ok := c.Get(identityCtxKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return FromContext(c.Request.Context())
}

// bearer 同时接受 "Bearer <t>" 与 "Token <t>"
func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
		return strings.TrimSpace(token)
	}
	return ""
}
