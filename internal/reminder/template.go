package reminder

import (
	"regexp"
	"strings"

	"github.com/Nathech23/High-Five/pkg/logger"
	"github.com/Nathech23/High-Five/pkg/types"
)

// placeholderPattern matches {variable_name} placeholders in message templates
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Renderer produces final message text from a reminder type's templates.
// It performs no I/O; template and variable data come from the caller.
type Renderer struct {
	logger *logger.Logger
}

// NewRenderer creates a new template renderer
func NewRenderer(log *logger.Logger) *Renderer {
	return &Renderer{logger: log}
}

// Render selects a template for the requested language and substitutes
// variables. Language selection falls back from the requested language to the
// type's default language; if neither has a template the reminder type is
// misconfigured and a TemplateError is returned.
//
// Placeholders without a matching variable are left literal in the output and
// logged as a warning. A reminder is never failed over an unknown variable.
func (r *Renderer) Render(rt *types.ReminderType, language string, vars map[string]string) (string, error) {
	tpl, lang, err := r.selectTemplate(rt, language)
	if err != nil {
		return "", err
	}

	var unknown []string
	rendered := placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		unknown = append(unknown, name)
		return match
	})

	if len(unknown) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"reminder_type": rt.Name,
			"language":      lang,
			"placeholders":  strings.Join(unknown, ","),
		}).Warn("Template placeholders left unsubstituted")
	}

	return rendered, nil
}

// selectTemplate resolves the language fallback chain
func (r *Renderer) selectTemplate(rt *types.ReminderType, language string) (string, string, error) {
	if language != "" {
		if tpl, ok := rt.Template(language); ok {
			return tpl, language, nil
		}
	}

	if language != rt.DefaultLanguage {
		if tpl, ok := rt.Template(rt.DefaultLanguage); ok {
			r.logger.WithFields(map[string]interface{}{
				"reminder_type": rt.Name,
				"requested":     language,
				"fallback":      rt.DefaultLanguage,
			}).Debug("Falling back to default template language")
			return tpl, rt.DefaultLanguage, nil
		}
	}

	return "", "", &types.TemplateError{
		ReminderType: rt.Name,
		Language:     language,
		Reason:       "no template for requested or default language",
	}
}
