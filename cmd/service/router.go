package service

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quka-ai/daybook/app/core"
	v1 "github.com/quka-ai/daybook/app/logic/v1"
	"github.com/quka-ai/daybook/app/response"
	"github.com/quka-ai/daybook/cmd/service/handler"
	"github.com/quka-ai/daybook/cmd/service/middleware"
	"github.com/quka-ai/daybook/pkg/metrics"
)

func serve(core *core.Core) error {
	httpSrv := handler.NewHttpSrv(core)
	setupHttpRouter(httpSrv)

	return core.HttpEngine().Run(core.Cfg().Addr)
}

func GetUserLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, func(c *gin.Context) string {
			token, _ := v1.InjectTokenClaim(c)
			return key + ":" + token.User
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	userLimit := GetUserLimitBuilder(s.Core)

	s.Engine.Use(gin.Recovery())
	s.Engine.GET("/metrics", metrics.DefaultExportHandler())
	s.Engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors, middleware.AcceptLanguage(), middleware.Metrics(s.Core.Metrics()))

	apiV1 := s.Engine.Group("/api/v1")
	{
		// websocket 无法携带自定义请求头
		apiV1.GET("/media/record/:kind", middleware.AuthorizationFromQuery(s.Core.PublicKey()), s.RecordMedia)

		authed := apiV1.Group("")
		authed.Use(middleware.Authorization(s.Core.PublicKey()))

		entries := authed.Group("/entries")
		{
			entries.GET("", s.ListEntries)
			entries.GET("/day", s.GetEntryByDate)
			entries.POST("", userLimit("modify_entry"), s.CreateEntry)
			entries.PUT("/:id", userLimit("modify_entry"), s.UpdateEntry)
			entries.DELETE("/:id", s.DeleteEntry)
			entries.POST("/:id/summary", userLimit("assistant", core.WithLimit(20)), s.SummarizeEntry)
		}

		media := authed.Group("/media")
		{
			media.POST("/:kind", userLimit("upload", core.WithLimit(30)), s.UploadMedia)
		}

		assistant := authed.Group("/assistant")
		assistant.Use(userLimit("assistant", core.WithLimit(20)))
		{
			assistant.GET("/prompt", s.GetDailyPrompt)
			assistant.POST("/reflect", s.Reflect)
			assistant.POST("/chat", s.Chat)
		}
	}
}
