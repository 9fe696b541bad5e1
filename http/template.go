package http

import (
	"fmt"
	"slices"
	"strings"
)

// VariablePrefix introduces a named variable in a URL template. The name runs
// up to the next '/' or the end of the template.
const VariablePrefix = ':'

type TemplatePart struct {
	Literal  string
	Variable string
}

func (part TemplatePart) IsVariable() bool {
	return part.Variable != ""
}

// Template is a compiled URL pattern such as "/users/:id/posts/:post".
// It is immutable once compiled and safe for concurrent use.
type Template struct {
	raw   string
	parts []TemplatePart
}

// Vars holds the values captured by a template match, keyed by variable name.
type Vars map[string]string

func (vars Vars) Get(name string) string {
	return vars[name]
}

func CompileTemplate(raw string) (*Template, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty template", ErrInvalidTemplate)
	}

	var (
		parts []TemplatePart
		seen  = make(map[string]struct{})
		rest  = raw
	)

	for rest != "" {
		i := strings.IndexByte(rest, VariablePrefix)
		if i < 0 {
			parts = append(parts, TemplatePart{Literal: rest})
			break
		}
		if i > 0 {
			parts = append(parts, TemplatePart{Literal: rest[:i]})
		}

		// The separator ending a variable belongs to the variable.
		name, after, _ := strings.Cut(rest[i+1:], "/")
		if name == "" {
			return nil, fmt.Errorf("%w: empty variable name in %q", ErrInvalidTemplate, raw)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate variable %q in %q", ErrInvalidTemplate, name, raw)
		}
		seen[name] = struct{}{}

		parts = append(parts, TemplatePart{Variable: name})
		rest = after
	}

	parts = trimTrailingSeparator(parts)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %q has no parts", ErrInvalidTemplate, raw)
	}

	return &Template{raw: raw, parts: parts}, nil
}

func MustCompileTemplate(raw string) *Template {
	t, err := CompileTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// A lone "/" template stays as is, any other trailing '/' is dropped.
func trimTrailingSeparator(parts []TemplatePart) []TemplatePart {
	n := len(parts)
	if n == 0 {
		return parts
	}

	last := parts[n-1]
	if last.IsVariable() || !strings.HasSuffix(last.Literal, "/") {
		return parts
	}
	if n == 1 && last.Literal == "/" {
		return parts
	}

	last.Literal = strings.TrimSuffix(last.Literal, "/")
	if last.Literal == "" {
		return parts[:n-1]
	}
	parts[n-1] = last
	return parts
}

// Match tests url against the template, left to right. A variable needs a
// non-empty value and consumes the '/' that ends it. After the last part
// only an empty remainder is accepted, or a single '/' after a literal.
func (t *Template) Match(url string) (Vars, bool) {
	var vars Vars
	rest := url
	consumedSep := false // the last part was a variable that ate its '/'

	for _, part := range t.parts {
		consumedSep = false

		if !part.IsVariable() {
			if !strings.HasPrefix(rest, part.Literal) {
				return nil, false
			}
			rest = rest[len(part.Literal):]
			continue
		}

		if rest == "" {
			return nil, false
		}

		value := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			value, rest = rest[:i], rest[i+1:]
			consumedSep = true
		} else {
			rest = ""
		}
		if value == "" {
			return nil, false
		}

		if vars == nil {
			vars = make(Vars, len(t.parts))
		}
		vars[part.Variable] = value
	}

	if rest != "" && (rest != "/" || consumedSep) {
		return nil, false
	}

	if vars == nil {
		vars = Vars{}
	}
	return vars, true
}

func (t *Template) Parts() []TemplatePart {
	return slices.Clone(t.parts)
}

func (t *Template) String() string {
	return t.raw
}
