// Package mailing renders campaign content with the Liquid template language.
package mailing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/osteele/liquid"
)

// Renderer parses and renders campaign bodies. Parsed templates are cached
// by content hash, so validating and then rendering the same body parses it
// once. Safe for concurrent use.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // content hash -> *liquid.Template
}

// NewRenderer returns a Renderer with the campaign filter set registered.
func NewRenderer() *Renderer {
	r := &Renderer{engine: liquid.NewEngine()}
	r.registerFilters()
	return r
}

func (r *Renderer) registerFilters() {
	// {{ sender_name | default: "The team" }}
	r.engine.RegisterFilter("default", func(value interface{}, fallback string) interface{} {
		if value == nil {
			return fallback
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return fallback
		}
		return value
	})

	r.engine.RegisterFilter("capitalize", func(s string) string {
		first, size := utf8.DecodeRuneInString(s)
		if size == 0 {
			return s
		}
		return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
	})

	// Lengths count characters, not bytes.
	r.engine.RegisterFilter("truncate", func(s string, length int) string {
		runes := []rune(s)
		if length < 0 {
			length = 0
		}
		if len(runes) <= length {
			return s
		}
		if length <= 3 {
			return string(runes[:length])
		}
		return string(runes[:length-3]) + "..."
	})

	r.engine.RegisterFilter("urlencode", url.QueryEscape)
	r.engine.RegisterFilter("escape", html.EscapeString)

	r.engine.RegisterFilter("email_domain", func(email string) string {
		if i := strings.LastIndex(email, "@"); i >= 0 {
			return email[i+1:]
		}
		return ""
	})

	r.engine.RegisterFilter("mask_email", func(email string) string {
		i := strings.LastIndex(email, "@")
		if i < 0 {
			return email
		}
		local, domain := []rune(email[:i]), email[i+1:]
		if len(local) <= 2 {
			return "***@" + domain
		}
		return string(local[:2]) + "***@" + domain
	})
}

func (r *Renderer) parse(content string) (*liquid.Template, error) {
	sum := sha256.Sum256([]byte(content))
	key := hex.EncodeToString(sum[:])
	if cached, ok := r.cache.Load(key); ok {
		return cached.(*liquid.Template), nil
	}
	tpl, err := r.engine.ParseString(content)
	if err != nil {
		return nil, err
	}
	r.cache.Store(key, tpl)
	return tpl, nil
}

// Validate reports Liquid syntax errors in content.
func (r *Renderer) Validate(content string) error {
	if _, err := r.parse(content); err != nil {
		return fmt.Errorf("template syntax: %w", err)
	}
	return nil
}

// Render executes content with bindings and returns the HTML body and its
// plain-text alternative.
func (r *Renderer) Render(content string, bindings map[string]interface{}) (string, string, error) {
	tpl, err := r.parse(content)
	if err != nil {
		return "", "", fmt.Errorf("template syntax: %w", err)
	}
	out, serr := tpl.RenderString(bindings)
	if serr != nil {
		return "", "", fmt.Errorf("render template: %w", serr)
	}
	return out, HTMLToText(out), nil
}
