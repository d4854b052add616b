package router

import (
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"

	"github.com/gin-contrib/multitemplate"
)

// LoadTemplates 使用 multitemplate 组装页面和片段模板，避免同名 block 冲突
func LoadTemplates(templatesDir string) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		return nil, err
	}
	components, err := filepath.Glob(templatesDir + "/components/*.html")
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 || len(components) == 0 {
		return nil, fmt.Errorf("no templates found under %s", templatesDir)
	}

	// 整页：layout + 组件 + 视图
	page := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(components)+1)
		files = append(files, layouts...)
		files = append(files, components...)
		files = append(files, templatesDir+"/views/"+view)
		return files
	}
	// 片段：视图在前，作为执行入口
	fragment := func(view string) []string {
		files := []string{templatesDir + "/views/" + view}
		return append(files, components...)
	}

	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"deref": func(p *uint) uint {
			if p == nil {
				return 0
			}
			return *p
		},
		"urlquery": func(s string) string {
			return url.QueryEscape(s)
		},
	}

	// Pages
	r.AddFromFilesFuncs("home.html", funcMap, page("home.html")...)
	r.AddFromFilesFuncs("project.html", funcMap, page("project.html")...)
	r.AddFromFilesFuncs("error.html", funcMap, page("error.html")...)

	// 评论区片段 (htmx swap)
	r.AddFromFilesFuncs("widget/section.html", funcMap, fragment("widget/section.html")...)
	r.AddFromFilesFuncs("widget/expired.html", funcMap, fragment("widget/expired.html")...)

	return r, nil
}
