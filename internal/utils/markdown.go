package utils

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy      = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()

	// 同一条评论每次刷新都会重新渲染，按内容哈希缓存结果
	renderCache = NewTTLCache[template.HTML](2000, 30*time.Minute)
)

func init() {
	// 评论里允许图片，链接一律新窗口打开
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown converts comment markdown to sanitized HTML.
func RenderMarkdown(source string) template.HTML {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	sum := sha1.Sum([]byte(source))
	key := hex.EncodeToString(sum[:])
	if out, ok := renderCache.Get(key); ok {
		return out
	}

	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}

	sanitized := policy.SanitizeBytes(buf.Bytes())
	out := EnhanceHTMLContent(string(sanitized))
	renderCache.Set(key, out)
	return out
}

// StripTags removes every HTML tag, used for fields rendered as plain text.
func StripTags(s string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(s))
}
