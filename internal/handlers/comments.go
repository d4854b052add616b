package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"kejinlab/internal/logger"
	"kejinlab/internal/middleware"
	"kejinlab/internal/services"
	"kejinlab/internal/widget"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 没有更新时定期发送心跳，防止代理断开长连接
const streamKeepAlive = 25 * time.Second

type CommentHandler struct {
	registry  *widget.Registry
	keepAlive time.Duration
}

func NewCommentHandler(registry *widget.Registry) *CommentHandler {
	return &CommentHandler{registry: registry, keepAlive: streamKeepAlive}
}

// section 取出路由中的评论区实例；已过期时返回 410 片段
func (h *CommentHandler) section(c *gin.Context) (*widget.Section, bool) {
	s, ok := h.registry.Get(c.Param("instance"))
	if !ok {
		Render(c, http.StatusGone, "widget/expired.html", nil)
		return nil, false
	}
	return s, true
}

func (h *CommentHandler) renderSection(c *gin.Context, s *widget.Section) {
	Render(c, http.StatusOK, "widget/section.html", gin.H{
		"Section": s.View(middleware.CurrentVisitor(c)),
	})
}

// Show 返回评论区片段
func (h *CommentHandler) Show(c *gin.Context) {
	s, ok := h.section(c)
	if !ok {
		return
	}
	h.renderSection(c, s)
}

// Stream 挂载评论区并通过 SSE 推送 refresh 事件，连接断开即卸载
func (h *CommentHandler) Stream(c *gin.Context) {
	s, ok := h.section(c)
	if !ok {
		return
	}
	// 订阅的生命周期由 Unmount 控制，不跟随请求 context
	if err := s.Mount(context.Background()); err != nil {
		logger.L().Warn("mount comment section", zap.String("instance", s.ID()), zap.Error(err))
		c.Status(http.StatusServiceUnavailable)
		return
	}
	defer s.Unmount()

	updates, stop := s.Updates()
	defer stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.SSEvent("ready", s.Version())
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case _, open := <-updates:
			if !open {
				c.SSEvent("expired", s.ID())
				return false
			}
			c.SSEvent("refresh", s.Version())
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

// Create 发表评论；表单字段 parent_id 非空时为回复
func (h *CommentHandler) Create(c *gin.Context) {
	s, ok := h.section(c)
	if !ok {
		return
	}

	var form services.CommentForm
	if err := c.ShouldBind(&form); err != nil {
		logger.L().Debug("bind comment form", zap.Error(err))
	}

	var parentID *uint
	if raw := c.PostForm("parent_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		pid := uint(id)
		parentID = &pid
	}

	// 校验失败、写入失败都已体现在片段的表单状态和提示中
	if _, err := s.Submit(c.Request.Context(), middleware.CurrentVisitor(c), parentID, form); err != nil {
		logger.L().Debug("submit comment", zap.String("instance", s.ID()), zap.Error(err))
	}
	h.renderSection(c, s)
}

// Delete 删除评论：管理员硬删除，作者软删除
func (h *CommentHandler) Delete(c *gin.Context) {
	s, ok := h.section(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := s.Delete(c.Request.Context(), middleware.CurrentVisitor(c), uint(id)); err != nil {
		if !errors.Is(err, widget.ErrForbidden) {
			logger.L().Debug("delete comment", zap.String("instance", s.ID()), zap.Error(err))
		}
	}
	h.renderSection(c, s)
}

// More 加载更多根评论
func (h *CommentHandler) More(c *gin.Context) {
	s, ok := h.section(c)
	if !ok {
		return
	}
	_ = s.LoadMore()
	h.renderSection(c, s)
}

// Login 管理员登录
func (h *CommentHandler) Login(c *gin.Context) {
	s, ok := h.section(c)
	if !ok {
		return
	}
	if err := s.Login(c.PostForm("password")); err != nil && !errors.Is(err, services.ErrInvalidPassword) {
		logger.L().Warn("admin login", zap.String("instance", s.ID()), zap.Error(err))
	}
	h.renderSection(c, s)
}

// Logout 退出管理员模式
func (h *CommentHandler) Logout(c *gin.Context) {
	s, ok := h.section(c)
	if !ok {
		return
	}
	_ = s.Logout(middleware.CurrentVisitor(c))
	h.renderSection(c, s)
}
