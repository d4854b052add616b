package middleware

import (
	"kejinlab/internal/i18n"
	"kejinlab/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const VisitorKey = "visitor"
const LanguageKey = "lang"

// LoadVisitor 从 cookie session 取出访客缓存放入 context
func LoadVisitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		c.Set(VisitorKey, services.NewVisitorCache(session))
		c.Next()
	}
}

// Language 确定本次请求的语言：访客保存的偏好优先，其次 Accept-Language
func Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := ""
		if v := CurrentVisitor(c); v != nil {
			lang = v.Language()
		}
		if !i18n.Supported(lang) {
			lang = i18n.Detect(c.GetHeader("Accept-Language"))
		}
		c.Set(LanguageKey, lang)
		c.Next()
	}
}

// CurrentVisitor returns the visitor cache set by LoadVisitor, or nil.
func CurrentVisitor(c *gin.Context) *services.VisitorCache {
	if v, ok := c.Get(VisitorKey); ok {
		if visitor, ok := v.(*services.VisitorCache); ok {
			return visitor
		}
	}
	return nil
}

// CurrentLanguage returns the language chosen by Language, or the default.
func CurrentLanguage(c *gin.Context) string {
	if lang := c.GetString(LanguageKey); lang != "" {
		return lang
	}
	return i18n.Default
}
