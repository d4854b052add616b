package router

import (
	"kejinlab/internal/handlers"
	"kejinlab/internal/widget"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, registry *widget.Registry, siteURL string) {
	// Handlers
	pageHandler := handlers.NewPageHandler(registry, siteURL)
	commentHandler := handlers.NewCommentHandler(registry)

	// 页面 (Pages)
	r.GET("/", pageHandler.Home)                // 首页，评论区 home
	r.GET("/projects/:id", pageHandler.Project) // 项目详情页，评论区 project_<id>
	r.GET("/lang/:code", pageHandler.SetLanguage)

	// 评论区片段 (Comment Section Fragments)
	w := r.Group("/w/:instance")
	{
		w.GET("", commentHandler.Show)                        // 评论区片段
		w.GET("/stream", commentHandler.Stream)               // SSE，挂载期间持有实时订阅
		w.POST("/comments", commentHandler.Create)            // 发表评论/回复
		w.POST("/comments/:id/delete", commentHandler.Delete) // 删除评论
		w.POST("/more", commentHandler.More)                  // 加载更多
		w.POST("/admin/login", commentHandler.Login)          // 管理员登录
		w.POST("/admin/logout", commentHandler.Logout)        // 退出管理员
	}

	// 运维 (Ops)
	r.GET("/healthz", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
