// Package route holds the gateway's ordered route table. The table is built
// once at startup and is read-only afterwards.
package route

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultSegment is the capture name used when a rule only declares a path.
const DefaultSegment = "segment"

// HeaderRule adds one header to every response forwarded by a route. Value may
// reference ${now}, ${route} and ${target}; they are evaluated per response.
type HeaderRule struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Rule is one route definition.
//
// Path is the prefix predicate, e.g. "/digibank/accounts/**". When Pattern is
// empty it is derived from Path as ^<prefix>(?P<segment>.*)$ and Rewrite
// defaults to "/${segment}".
type Rule struct {
	ID              string       `yaml:"id"`
	Path            string       `yaml:"path"`
	Pattern         string       `yaml:"pattern"`
	Rewrite         string       `yaml:"rewrite"`
	Target          string       `yaml:"target"`
	ResponseHeaders []HeaderRule `yaml:"responseHeaders"`
}

// Prefix is the literal path prefix of the rule.
func (r Rule) Prefix() string {
	return strings.TrimSuffix(r.Path, "**")
}

var headerVars = map[string]bool{"now": true, "route": true, "target": true}

// Expand evaluates the header value template for one response.
func (h HeaderRule) Expand(rule Rule, now time.Time) string {
	return os.Expand(h.Value, func(name string) string {
		switch name {
		case "now":
			return now.Format(time.RFC3339Nano)
		case "route":
			return rule.ID
		case "target":
			return rule.Target
		}
		return ""
	})
}

func (h HeaderRule) validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("response header with empty name")
	}
	var unknown string
	os.Expand(h.Value, func(name string) string {
		if !headerVars[name] && unknown == "" {
			unknown = name
		}
		return ""
	})
	if unknown != "" {
		return fmt.Errorf("response header %s references unknown variable %q", h.Name, unknown)
	}
	return nil
}

// DefaultRules are the digibank routes: /digibank/<domain>/** is forwarded to
// the matching logical service with the prefix removed, and every response is
// stamped with X-Response-Time.
func DefaultRules() []Rule {
	timing := []HeaderRule{{Name: "X-Response-Time", Value: "${now}"}}
	return []Rule{
		{ID: "accounts", Path: "/digibank/accounts/**", Rewrite: "/${segment}", Target: "ACCOUNTS", ResponseHeaders: timing},
		{ID: "loans", Path: "/digibank/loans/**", Rewrite: "/${segment}", Target: "LOANS", ResponseHeaders: timing},
		{ID: "cards", Path: "/digibank/cards/**", Rewrite: "/${segment}", Target: "CARDS", ResponseHeaders: timing},
	}
}
