package notify

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Source supplies template overrides. ok is false when the source has no
// entry for key.
type Source interface {
	Template(ctx context.Context, key Key) (t Template, ok bool, err error)
}

// StaticSource serves templates from memory.
type StaticSource map[Key]Template

func (s StaticSource) Template(_ context.Context, key Key) (Template, bool, error) {
	t, ok := s[key]
	return t, ok, nil
}

// Renderer resolves a template through its override sources and fills in
// variables. Sources are consulted in priority order; non-empty fields of a
// higher-priority source win over lower ones and the built-in defaults.
type Renderer struct {
	defaults  map[Key]Template
	overrides []Source
	logger    *zap.Logger
}

func NewRenderer(logger *zap.Logger, overrides ...Source) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{defaults: Defaults(), overrides: overrides, logger: logger}
}

// Resolve returns the effective template for key. ok is false when neither
// the defaults nor any override know the key.
func (r *Renderer) Resolve(ctx context.Context, key Key) (Template, bool) {
	t, found := r.defaults[key]
	for i := len(r.overrides) - 1; i >= 0; i-- {
		o, ok, err := r.overrides[i].Template(ctx, key)
		if err != nil {
			r.logger.Warn("template override lookup failed", zap.String("key", string(key)), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		t = merge(t, o)
		found = true
	}
	t.Key = key
	return t, found
}

// Render produces subject, email and WhatsApp text for msg in lang.
func (r *Renderer) Render(ctx context.Context, msg Message, lang string) Content {
	return r.RenderKey(ctx, msg.Key(), msg.Vars(), lang)
}

// RenderKey is the untyped form of Render. Placeholders outside the key's
// declared variable set render empty.
func (r *Renderer) RenderKey(ctx context.Context, key Key, vars map[string]string, lang string) Content {
	t, ok := r.Resolve(ctx, key)
	if !ok {
		return Content{
			Subject:  fmt.Sprintf("[%s] Subject", key),
			Email:    fmt.Sprintf("[%s] Body", key),
			WhatsApp: fmt.Sprintf("[%s] WA", key),
		}
	}
	allowed := allowedVars(key, vars)
	subject, email, wa := t.SubjectEN, t.EmailEN, t.WhatsAppEN
	if lang == LangArabic {
		subject = pick(t.SubjectAR, subject)
		email = pick(t.EmailAR, email)
		wa = pick(t.WhatsAppAR, wa)
	}
	return Content{
		Subject:  fill(subject, vars, allowed),
		Email:    fill(email, vars, allowed),
		WhatsApp: fill(wa, vars, allowed),
	}
}

func allowedVars(key Key, vars map[string]string) map[string]bool {
	declared := Variables(key)
	out := make(map[string]bool, len(vars))
	if declared == nil {
		for k := range vars {
			out[k] = true
		}
		return out
	}
	for _, v := range declared {
		out[v] = true
	}
	return out
}

func fill(text string, vars map[string]string, allowed map[string]bool) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if !allowed[name] {
			return ""
		}
		return vars[name]
	})
}

func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func merge(base, o Template) Template {
	base.Description = pick(o.Description, base.Description)
	base.SubjectEN = pick(o.SubjectEN, base.SubjectEN)
	base.SubjectAR = pick(o.SubjectAR, base.SubjectAR)
	base.EmailEN = pick(o.EmailEN, base.EmailEN)
	base.EmailAR = pick(o.EmailAR, base.EmailAR)
	base.WhatsAppEN = pick(o.WhatsAppEN, base.WhatsAppEN)
	base.WhatsAppAR = pick(o.WhatsAppAR, base.WhatsAppAR)
	return base
}
