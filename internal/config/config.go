// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"net"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config 服务配置，来源：.env（godotenv 预加载）+ 环境变量
type Config struct {
	Env           string `env:"ENV" env-default:"local"`
	Host          string `env:"HOST" env-default:"0.0.0.0"`
	Port          string `env:"PORT" env-default:"8080"`
	DatabaseURL   string `env:"DATABASE_URL" env-default:"host=localhost user=postgres password=postgres dbname=kejinlab port=5432 sslmode=disable TimeZone=Asia/Shanghai"`
	RedisURL      string `env:"REDIS_URL"` // 为空时使用进程内 broker
	SessionSecret string `env:"SESSION_SECRET" env-default:"secret_key_change_me"`
	SiteURL       string `env:"SITE_URL" env-default:"https://kejin.ai"`
	TemplatesDir  string `env:"TEMPLATES_DIR" env-default:"./web/templates"`

	Admin  AdminConfig
	Widget WidgetConfig
}

// AdminConfig 管理员口令校验参数
type AdminConfig struct {
	Nickname   string `env:"ADMIN_NICKNAME" env-default:"Kejin.AI"`
	AvatarURL  string `env:"ADMIN_AVATAR_URL" env-default:"/static/img/admin-avatar.svg"`
	Salt       string `env:"ADMIN_SALT" env-default:"Kejin_Salt_2024_#992"`
	Iterations int    `env:"ADMIN_ITERATIONS" env-default:"100000"`
	Hash       string `env:"ADMIN_HASH" env-default:"e44897595d2b9f0665a5a9b52b7340c0437cfcdc0b7d6eb929bd7b933ae3d826b059445f8109b566b3f9767927eb3e79faae5fd56bae790011ec30dfcdac60a9"`
}

// WidgetConfig 评论组件参数
type WidgetConfig struct {
	PageSize     int `env:"COMMENTS_PAGE_SIZE" env-default:"3"`
	LoadMoreStep int `env:"COMMENTS_LOAD_MORE" env-default:"5"`
	MaxInstances int `env:"WIDGET_MAX_INSTANCES" env-default:"1000"`
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Admin.Iterations <= 0 {
		return fmt.Errorf("config: ADMIN_ITERATIONS must be positive, got %d", c.Admin.Iterations)
	}
	if c.Admin.Salt == "" || c.Admin.Hash == "" {
		return fmt.Errorf("config: ADMIN_SALT and ADMIN_HASH are required")
	}
	if c.Widget.PageSize <= 0 || c.Widget.LoadMoreStep <= 0 {
		return fmt.Errorf("config: comment page sizes must be positive")
	}
	if c.Widget.MaxInstances <= 0 {
		return fmt.Errorf("config: WIDGET_MAX_INSTANCES must be positive")
	}
	return nil
}
