// Package i18n holds the site's English and Chinese strings.
package i18n

import (
	"strings"
	"sync"

	"kejinlab/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	English = "en"
	Chinese = "zh"
)

// Default 无法判断时使用英文
const Default = English

var (
	supported = []language.Tag{language.English, language.Chinese}
	matcher   = language.NewMatcher(supported)

	missingMu sync.Mutex
	missing   = map[string]struct{}{}
)

// Supported reports whether code names a language with a translation table.
func Supported(code string) bool {
	_, ok := translations[code]
	return ok
}

// Normalize maps code to a supported language, or Default.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if Supported(code) {
		return code
	}
	return Default
}

// T 返回 key 的翻译；缺失时退回英文，再缺失返回 key 本身
func T(lang, key string) string {
	if s, ok := translations[Normalize(lang)][key]; ok {
		return s
	}
	if s, ok := translations[Default][key]; ok {
		return s
	}
	reportMissing(key)
	return key
}

// reportMissing 每个 key 只记录一次
func reportMissing(key string) {
	missingMu.Lock()
	defer missingMu.Unlock()
	if _, seen := missing[key]; seen {
		return
	}
	missing[key] = struct{}{}
	logger.L().Warn("missing translation", zap.String("key", key))
}

// Detect picks a supported language from an Accept-Language header value.
func Detect(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	if supported[idx] == language.Chinese {
		return Chinese
	}
	return English
}

// Translator is a T bound to one language, handed to templates.
type Translator func(key string) string

// For returns the Translator of lang.
func For(lang string) Translator {
	lang = Normalize(lang)
	return func(key string) string { return T(lang, key) }
}
