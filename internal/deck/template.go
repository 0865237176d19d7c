package deck

import (
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// RenderMode determines how the engine handles undefined variables.
type RenderMode int

const (
	// RenderModeLax renders missing variables as empty strings.
	RenderModeLax RenderMode = iota
	// RenderModeStrict fails the render when the template references a
	// variable the context does not define. Used at build time so a typo in
	// the deck shell surfaces as an error, not a blank slide.
	RenderModeStrict
)

// TemplateEngine wraps a Liquid engine with a compiled-template cache and the
// deck's formatting filters.
type TemplateEngine struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewTemplateEngine creates the engine and registers the custom filters.
func NewTemplateEngine() *TemplateEngine {
	te := &TemplateEngine{engine: liquid.NewEngine()}
	te.registerFilters()
	return te
}

func (te *TemplateEngine) registerFilters() {
	// Default value: {{ author | default: "anonymous" }}
	te.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	// Percentage: {{ 0.042 | percentage }} -> "4.2%"
	te.engine.RegisterFilter("percentage", func(value interface{}) string {
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		default:
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("%.1f%%", f*100)
	})

	// Number with commas: {{ 100000 | number_with_delimiter }} -> "100,000"
	te.engine.RegisterFilter("number_with_delimiter", func(value interface{}) string {
		var n int64
		switch v := value.(type) {
		case int:
			n = int64(v)
		case int64:
			n = v
		case float64:
			n = int64(v)
		default:
			return fmt.Sprintf("%v", value)
		}

		str := fmt.Sprintf("%d", n)
		if n < 0 {
			str = str[1:]
		}
		var result strings.Builder
		for i, c := range str {
			if i > 0 && (len(str)-i)%3 == 0 {
				result.WriteRune(',')
			}
			result.WriteRune(c)
		}
		if n < 0 {
			return "-" + result.String()
		}
		return result.String()
	})

	// HTML escape: {{ notes | escape }}
	te.engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
}

// RenderWithMode renders a template with configurable handling of undefined
// variables. Strict mode validates every output-tag variable against the
// context before rendering; lax mode behaves like Render.
func (te *TemplateEngine) RenderWithMode(cacheKey, templateStr string, ctx map[string]interface{}, mode RenderMode) (string, error) {
	if mode == RenderModeStrict {
		if missing := te.missingVariables(templateStr, ctx); len(missing) > 0 {
			return "", fmt.Errorf("template references undefined variables: %s", strings.Join(missing, ", "))
		}
	}
	return te.Render(cacheKey, templateStr, ctx)
}

var (
	outputVarRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)`)
	loopVarRe   = regexp.MustCompile(`\{%\s*for\s+([a-zA-Z_][a-zA-Z0-9_]*)\s+in`)
)

// missingVariables returns the output-tag variables the context does not
// define. Loop variables bound by {% for %} tags and Liquid literals are
// skipped.
func (te *TemplateEngine) missingVariables(templateStr string, ctx map[string]interface{}) []string {
	bound := map[string]bool{"forloop": true}
	for _, m := range loopVarRe.FindAllStringSubmatch(templateStr, -1) {
		bound[m[1]] = true
	}

	seen := map[string]bool{}
	var missing []string
	for _, m := range outputVarRe.FindAllStringSubmatch(templateStr, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true

		root := strings.SplitN(name, ".", 2)[0]
		if bound[root] || isLiquidLiteral(root) {
			continue
		}
		if !variableExists(name, ctx) {
			missing = append(missing, name)
		}
	}
	return missing
}

// variableExists walks a dotted path through nested string maps.
func variableExists(varPath string, ctx map[string]interface{}) bool {
	var current interface{} = ctx
	for _, part := range strings.Split(varPath, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return false
		}
		if current, ok = m[part]; !ok {
			return false
		}
	}
	return true
}

func isLiquidLiteral(name string) bool {
	switch strings.ToLower(name) {
	case "true", "false", "nil", "null", "empty", "blank":
		return true
	}
	return false
}

// Render compiles (with caching) and renders a template.
func (te *TemplateEngine) Render(cacheKey, templateStr string, ctx map[string]interface{}) (string, error) {
	if cacheKey != "" {
		if cached, ok := te.cache.Load(cacheKey); ok {
			return cached.(*liquid.Template).RenderString(ctx)
		}
	}

	tpl, err := te.engine.ParseString(templateStr)
	if err != nil {
		log.Printf("[deck] template parse error: %v", err)
		return "", fmt.Errorf("parsing template: %w", err)
	}
	if cacheKey != "" {
		te.cache.Store(cacheKey, tpl)
	}

	out, err := tpl.RenderString(ctx)
	if err != nil {
		log.Printf("[deck] template render error: %v", err)
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return out, nil
}
