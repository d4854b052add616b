package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"kejinlab/internal/config"
	"kejinlab/internal/db"
	"kejinlab/internal/logger"
	"kejinlab/internal/middleware"
	"kejinlab/internal/realtime"
	"kejinlab/internal/router"
	"kejinlab/internal/services"
	"kejinlab/internal/widget"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.Init(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	if err := db.Init(cfg.DatabaseURL); err != nil {
		zl.Fatal("init database", zap.Error(err))
	}
	defer db.Close()

	// 配置了 REDIS_URL 时多个进程共享变更通知，否则使用进程内 broker
	broker := newBroker(ctx, cfg.RedisURL)
	defer func() { _ = broker.Close() }()

	store := services.NewCommentStore(db.DB, broker)
	registry, err := widget.NewRegistry(cfg.Widget.MaxInstances, store, widget.Options{
		AdminNickname:  cfg.Admin.Nickname,
		AdminAvatarURL: cfg.Admin.AvatarURL,
		PageSize:       cfg.Widget.PageSize,
		LoadMoreStep:   cfg.Widget.LoadMoreStep,
		Gate:           services.NewAdminGate(cfg.Admin.Salt, cfg.Admin.Iterations, cfg.Admin.Hash),
	})
	if err != nil {
		zl.Fatal("create widget registry", zap.Error(err))
	}
	defer registry.Close()

	if cfg.Env != "local" && cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions：访客身份、我的评论、语言偏好都保存在 cookie 中
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   365 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("kejinlab_session", sessionStore))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	renderer, err := router.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		zl.Fatal("load templates", zap.Error(err))
	}
	r.HTMLRender = renderer

	// Static Assets
	r.Static("/static", "./web/static")

	// Middleware
	r.Use(middleware.LoadVisitor(), middleware.Language())

	router.RegisterRoutes(r, registry, cfg.SiteURL)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("kejinlab server starting", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	// 先关闭评论区，SSE 连接随之结束
	registry.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
}

func newBroker(ctx context.Context, redisURL string) realtime.Broker {
	if redisURL == "" {
		logger.L().Info("REDIS_URL not set, using in-process realtime broker")
		return realtime.NewMemoryBroker()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	b, err := realtime.NewRedisBrokerFromURL(pingCtx, redisURL)
	if err != nil {
		logger.L().Fatal("connect redis", zap.Error(err))
	}
	logger.L().Info("realtime broker connected to redis")
	return b
}
