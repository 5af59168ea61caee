package route

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrRouteNotFound is returned when no rule matches a path.
var ErrRouteNotFound = errors.New("route not found")

type compiledRule struct {
	Rule
	prefix  string
	re      *regexp.Regexp
	capture string
}

// Table is an ordered, immutable list of rules. It is safe for concurrent use.
type Table struct {
	rules []compiledRule
}

// Match is the result of routing one path.
type Match struct {
	Rule Rule
	// Path is the rewritten path to send to the target, without query string.
	Path string
}

// NewTable validates and compiles rules, keeping their declaration order.
func NewTable(rules []Rule) (*Table, error) {
	t := &Table{rules: make([]compiledRule, 0, len(rules))}
	seen := make(map[string]bool, len(rules))

	for i, r := range rules {
		if r.ID == "" {
			r.ID = fmt.Sprintf("route-%d", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("route %s: duplicate id", r.ID)
		}
		seen[r.ID] = true

		cr, err := compile(r)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r.ID, err)
		}
		t.rules = append(t.rules, cr)
	}
	return t, nil
}

func compile(r Rule) (compiledRule, error) {
	r.Target = strings.TrimSpace(r.Target)
	if r.Target == "" {
		return compiledRule{}, errors.New("target service is required")
	}
	if !strings.HasPrefix(r.Path, "/") {
		return compiledRule{}, fmt.Errorf("path %q must start with /", r.Path)
	}
	prefix := r.Prefix()

	if r.Pattern == "" {
		r.Pattern = "^" + regexp.QuoteMeta(prefix) + "(?P<" + DefaultSegment + ">.*)$"
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return compiledRule{}, fmt.Errorf("invalid pattern: %w", err)
	}

	var names []string
	for _, name := range re.SubexpNames() {
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) != 1 {
		return compiledRule{}, fmt.Errorf("pattern %q must have exactly one named capture, found %d", r.Pattern, len(names))
	}
	capture := names[0]

	if r.Rewrite == "" {
		r.Rewrite = "/${" + capture + "}"
	}
	refs := rewriteRefs(r.Rewrite)
	referenced := false
	for _, ref := range refs {
		if ref != capture {
			return compiledRule{}, fmt.Errorf("rewrite %q references unknown variable %q", r.Rewrite, ref)
		}
		referenced = true
	}
	if !referenced {
		return compiledRule{}, fmt.Errorf("rewrite %q does not reference capture %q", r.Rewrite, capture)
	}

	for _, h := range r.ResponseHeaders {
		if err := h.validate(); err != nil {
			return compiledRule{}, err
		}
	}

	return compiledRule{Rule: r, prefix: prefix, re: re, capture: capture}, nil
}

// rewriteVar matches the variable references regexp.Expand understands: $$,
// ${name} and $name.
var rewriteVar = regexp.MustCompile(`\$(\$|\{([^}]*)\}|([A-Za-z0-9_]+))`)

// rewriteRefs lists the variable names a rewrite template references. An
// unterminated "${" is reported as a reference to itself.
func rewriteRefs(tmpl string) []string {
	var refs []string
	for _, m := range rewriteVar.FindAllStringSubmatch(tmpl, -1) {
		switch {
		case m[1] == "$":
		case m[2] != "" || strings.HasPrefix(m[1], "{"):
			refs = append(refs, m[2])
		default:
			refs = append(refs, m[3])
		}
	}
	if i := strings.LastIndex(tmpl, "${"); i >= 0 && !strings.Contains(tmpl[i:], "}") {
		refs = append(refs, tmpl[i:])
	}
	return refs
}

// Match returns the first rule, in declaration order, whose prefix and pattern
// both accept path, together with the rewritten path.
func (t *Table) Match(path string) (Match, error) {
	for _, r := range t.rules {
		if !strings.HasPrefix(path, r.prefix) {
			continue
		}
		idx := r.re.FindStringSubmatchIndex(path)
		if idx == nil {
			continue
		}
		rewritten := string(r.re.ExpandString(nil, r.Rewrite, path, idx))
		if !strings.HasPrefix(rewritten, "/") {
			rewritten = "/" + rewritten
		}
		return Match{Rule: r.Rule, Path: rewritten}, nil
	}
	return Match{}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
}

// Rules returns the compiled rules with defaults applied, in order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.Rule
	}
	return out
}
