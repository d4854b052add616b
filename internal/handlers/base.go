package handlers

import (
	"kejinlab/internal/i18n"
	"kejinlab/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like the language and translator
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	lang := middleware.CurrentLanguage(c)
	obj["Lang"] = lang
	obj["T"] = i18n.For(lang)
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// Error helper
func RenderError(c *gin.Context, code int, key string) {
	Render(c, code, "error.html", gin.H{"ErrorKey": key})
}
