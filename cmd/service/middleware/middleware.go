package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/quka-ai/daybook/app/core"
	v1 "github.com/quka-ai/daybook/app/logic/v1"
	"github.com/quka-ai/daybook/app/response"
	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/security"
	"github.com/quka-ai/daybook/pkg/types"
	"github.com/quka-ai/daybook/pkg/utils"
)

func I18n() gin.HandlerFunc {
	return response.ProvideResponseLocalizer(i18n.NewDefaultLocalizer())
}

// AcceptLanguage 目前服务端支持 en: English, zh-CN: 简体中文
func AcceptLanguage() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		lang := ctx.Request.Header.Get("Accept-Language")
		if lang == "" {
			ctx.Set(v1.LANGUAGE_KEY, types.LANGUAGE_EN_KEY)
			return
		}

		res := utils.ParseAcceptLanguage(lang)
		if len(res) == 0 {
			ctx.Set(v1.LANGUAGE_KEY, types.LANGUAGE_EN_KEY)
			return
		}

		ctx.Set(v1.LANGUAGE_KEY, lo.If(strings.Contains(res[0].Tag, "zh"), types.LANGUAGE_CN_KEY).Else(types.LANGUAGE_EN_KEY))
	}
}

const (
	AUTH_TOKEN_HEADER_KEY = "X-Authorization"
)

// Authorization 校验 X-Authorization 中的 RS256 token
func Authorization(publicKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed, err := ParseAuthToken(c, c.GetHeader(AUTH_TOKEN_HEADER_KEY), publicKey)
		if err != nil {
			response.APIError(c, errors.Trace("middleware.Authorization", err))
			return
		}
		if !passed {
			response.APIError(c, errors.New("middleware.Authorization", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized).Kind(errors.ErrAuth))
		}
	}
}

// AuthorizationFromQuery 浏览器无法为 websocket 设置请求头，允许通过 query 传递 token
func AuthorizationFromQuery(publicKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenValue := c.GetHeader(AUTH_TOKEN_HEADER_KEY)
		if tokenValue == "" {
			tokenValue = c.Query("token")
		}
		passed, err := ParseAuthToken(c, tokenValue, publicKey)
		if err != nil {
			response.APIError(c, errors.Trace("middleware.AuthorizationFromQuery", err))
			return
		}
		if !passed {
			response.APIError(c, errors.New("middleware.AuthorizationFromQuery", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized).Kind(errors.ErrAuth))
		}
	}
}

func ParseAuthToken(c *gin.Context, tokenValue string, publicKey []byte) (bool, error) {
	tokenValue = strings.TrimSpace(strings.TrimPrefix(tokenValue, "Bearer "))
	if tokenValue == "" {
		return false, nil
	}

	claims, err := security.VerifyToken(tokenValue, publicKey)
	if err != nil {
		return false, errors.New("ParseAuthToken.VerifyToken", i18n.ERROR_INVALID_TOKEN, err).Code(http.StatusUnauthorized).Kind(errors.ErrAuth)
	}
	if claims.User == "" {
		return false, nil
	}

	c.Set(v1.TOKEN_CONTEXT_KEY, *claims)
	c.Set(response.UserIDKey, claims.User)
	return true, nil
}

func Cors(c *gin.Context) {
	method := c.Request.Method
	origin := c.Request.Header.Get("Origin")
	if origin != "" {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, X-Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")
	}
	if method == "OPTIONS" {
		c.AbortWithStatus(http.StatusNoContent)
	}
	c.Next()
}

type LimiterFunc func(key string, opts ...core.LimitOption) gin.HandlerFunc

type LimiterProvider interface {
	UseLimiter(key string, opts ...core.LimitOption) core.Limiter
}

func UseLimit(limiters LimiterProvider, genKeyFunc func(c *gin.Context) string, opts ...core.LimitOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.UseLimiter(genKeyFunc(c), opts...).Allow() {
			response.APIError(c, errors.New("middleware.limiter", i18n.ERROR_TOO_MANY_REQUESTS, nil).Code(http.StatusTooManyRequests))
		}
	}
}

// Metrics 记录接口耗时与错误数
func Metrics(m *core.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		api := c.FullPath()
		if api == "" {
			c.Next()
			return
		}
		timer := m.ApiResponseTimer(api)
		c.Next()
		timer.ObserveDuration()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			m.ApiErrorInc(c.Request.Method, api, status)
		}
	}
}
