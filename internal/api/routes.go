package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/assist"
	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/markup"
	"resumeBuilder/internal/store"
)

// Deps 汇总路由所需的依赖，除 Registry 外均可为 nil。
type Deps struct {
	Registry       *store.Registry
	Enqueuer       TaskEnqueuer
	Exports        ExportStore
	Generator      assist.Generator
	Subscriber     gateway.Subscriber
	RedisClient    redis.UniversalClient
	Markup         markup.Engine
	Logger         *slog.Logger
	OwnerHeader    string
	AllowedOrigins []string
}

// RegisterRoutes 注册 /v1 下的 API 路由，所有路由都要求调用方身份。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	resumeHandler := NewResumeHandler(deps.Registry, deps.Enqueuer, deps.Exports)
	draftHandler := NewDraftHandler(deps.Registry, deps.Generator)
	markupHandler := NewMarkupHandler(deps.Markup)
	wsHandler := NewWsHandler(deps.Registry, deps.Subscriber, deps.RedisClient, deps.Logger, deps.AllowedOrigins)

	v1 := router.Group("/v1")
	v1.Use(middleware.OwnerMiddleware(deps.OwnerHeader))
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		resumeGroup := v1.Group("/resumes")
		{
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/stats", resumeHandler.ListStats)
			resumeGroup.POST("/import", resumeHandler.ImportResume)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/open", resumeHandler.OpenResume)
			resumeGroup.POST("/:id/duplicate", resumeHandler.DuplicateResume)
			resumeGroup.PUT("/:id/favorite", resumeHandler.SetFavorite)
			resumeGroup.GET("/:id/export", resumeHandler.ExportResume)
			resumeGroup.POST("/:id/export", resumeHandler.EnqueueExport)
			resumeGroup.GET("/:id/exports", resumeHandler.ListExports)
		}

		draftGroup := v1.Group("/draft")
		{
			draftGroup.POST("", draftHandler.NewDraft)
			draftGroup.GET("", draftHandler.GetDraft)
			draftGroup.PUT("", draftHandler.UpdateDraft)
			draftGroup.DELETE("", draftHandler.DiscardDraft)
			draftGroup.POST("/save", draftHandler.SaveDraft)
			draftGroup.GET("/validate", draftHandler.Validate)
			draftGroup.GET("/stats", draftHandler.Stats)
			draftGroup.POST("/skills", draftHandler.AddSkill)
			draftGroup.DELETE("/skills/:name", draftHandler.RemoveSkill)
			draftGroup.POST("/skills/apply", draftHandler.ApplySkills)
			draftGroup.POST("/suggestions", draftHandler.Suggest)
		}

		markupGroup := v1.Group("/markup")
		{
			markupGroup.POST("/render", markupHandler.Render)
			markupGroup.POST("/strip", markupHandler.Strip)
			markupGroup.POST("/toggle", markupHandler.Toggle)
			markupGroup.POST("/escape", markupHandler.Escape)
		}
	}
}
