package server

import (
	"net/http"
	"strings"

	"github.com/dushixiang/pika-alert/internal/service"
	"github.com/labstack/echo/v4"
)

const claimsContextKey = "claims"

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// APIKeyAuth 探针接口认证，支持 X-API-Key 请求头或 Bearer token
func APIKeyAuth(authService *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey := c.Request().Header.Get("X-API-Key")
			if apiKey == "" {
				apiKey = bearerToken(c)
			}
			if apiKey == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "缺少 API Key",
				})
			}
			if !authService.ValidateApiKey(apiKey) {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "无效的 API Key",
				})
			}
			return next(c)
		}
	}
}

// AdminAuth 管理接口认证，websocket 无法设置请求头，允许通过 token 查询参数传递
func AdminAuth(authService *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				token = c.QueryParam("token")
			}
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "未登录",
				})
			}
			claims, err := authService.ValidateToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": err.Error(),
				})
			}
			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}
