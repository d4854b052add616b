package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"kejinlab/internal/i18n"
	"kejinlab/internal/logger"
	"kejinlab/internal/middleware"
	"kejinlab/internal/models"
	"kejinlab/internal/widget"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PageHandler struct {
	registry *widget.Registry
	siteURL  string
}

func NewPageHandler(registry *widget.Registry, siteURL string) *PageHandler {
	return &PageHandler{registry: registry, siteURL: siteURL}
}

// Home 首页，评论区 pageId 为 home
func (h *PageHandler) Home(c *gin.Context) {
	section := h.registry.Open(c.Request.Context(), models.HomePageID)
	Render(c, http.StatusOK, "home.html", gin.H{
		"Projects": models.Projects(),
		"Section":  section.View(middleware.CurrentVisitor(c)),
		"SiteURL":  h.siteURL,
	})
}

// Project 项目详情页，评论区 pageId 为 project_<id>
func (h *PageHandler) Project(c *gin.Context) {
	project, ok := models.FindProject(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "error.notFound")
		return
	}

	section := h.registry.Open(c.Request.Context(), project.PageID())
	Render(c, http.StatusOK, "project.html", gin.H{
		"Project": project,
		"Section": section.View(middleware.CurrentVisitor(c)),
		"SiteURL": h.siteURL,
	})
}

// SetLanguage 保存语言偏好后跳回来源页面
func (h *PageHandler) SetLanguage(c *gin.Context) {
	code := c.Param("code")
	if !i18n.Supported(code) {
		RenderError(c, http.StatusNotFound, "error.notFound")
		return
	}
	if v := middleware.CurrentVisitor(c); v != nil {
		if err := v.SetLanguage(code); err != nil {
			logger.L().Warn("save language preference", zap.Error(err))
		}
	}
	c.Redirect(http.StatusFound, safeRedirect(c.Query("next")))
}

// safeRedirect 只允许站内相对路径
func safeRedirect(next string) string {
	u, err := url.Parse(next)
	if err != nil || next == "" || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// Health 健康检查
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
