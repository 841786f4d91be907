package router

import (
	"github.com/collabdoc/backend/config"
	"github.com/collabdoc/backend/internal/handler"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func Setup(
	cfg *config.Config,
	docHandler *handler.DocumentHandler,
	contributeHandler *handler.ContributeHandler,
	debateHandler *handler.DebateHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	api := r.Group("/api")
	{
		docs := api.Group("/documents")
		{
			docs.POST("", docHandler.Create)
			docs.GET("", docHandler.List)
			docs.GET("/:id", docHandler.Get) // ?revision= 读取历史版本
			docs.PUT("/:id", docHandler.UpdateTitle)
			docs.DELETE("/:id", docHandler.Delete)
		}

		sections := api.Group("/sections")
		{
			sections.GET("/:sectionId/history", docHandler.GetSectionHistory)
		}

		contributes := api.Group("/contributes")
		{
			contributes.POST("", contributeHandler.Create)
			contributes.GET("", contributeHandler.List) // ?document_id= / ?member_id= / ?status=
			contributes.GET("/:id", contributeHandler.Get)
			contributes.POST("/:id/open", contributeHandler.Open)
			contributes.POST("/:id/withdraw", contributeHandler.Withdraw)
			contributes.POST("/:id/votes", contributeHandler.CastVote)
			contributes.GET("/:id/votes", contributeHandler.GetVoteSummary)
			contributes.GET("/:id/debate", debateHandler.GetByContribute)
		}

		debates := api.Group("/debates")
		{
			debates.POST("/:id/comments", debateHandler.PostComment)
			debates.GET("/:id/comments", debateHandler.ListComments)
		}
	}

	return r
}
