// Package template implements the textual placeholder substitution used by
// the export publisher and the command builders.
//
// Substitution is purely textual: a token such as ${site.hbase-site.port}
// or ${HBASE_MASTER_HOST} is replaced by its value wherever it occurs, and
// tokens without a known value are left verbatim. This is deliberately not
// an expression evaluator; there is no nesting, no defaulting and no
// fixed-point iteration. Cross-references between already-built config
// dictionaries are resolved by Dereference in a single pass, so chains of
// references more than one level deep stay unresolved. Known limitation.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches any ${...} token.
var placeholderPattern = regexp.MustCompile(`\$\{[^}]+\}`)

// SiteToken returns the lookup token for a key of a named config
// dictionary, e.g. ${site.hbase-site.hbase.master.port}.
func SiteToken(dictionary, key string) string {
	return fmt.Sprintf("${site.%s.%s}", dictionary, key)
}

// PortToken returns the lookup token for a reported port name,
// e.g. ${site.server_port}.
func PortToken(portName string) string {
	return fmt.Sprintf("${site.%s}", portName)
}

// HostToken returns the host lookup token for a role,
// e.g. ${HBASE_MASTER_HOST}.
func HostToken(role string) string {
	return fmt.Sprintf("${%s_HOST}", strings.ToUpper(role))
}

// configRefToken is the form used when one dictionary value references
// another, e.g. ${@//site/hbase-site/hbase.tmp.dir}.
func configRefToken(dictionary, key string) string {
	return fmt.Sprintf("${@//site/%s/%s}", dictionary, key)
}

// ReplaceTokens substitutes every occurrence of each token in value.
// Tokens not present in the map are untouched.
func ReplaceTokens(value string, tokens map[string]string) string {
	for token, replacement := range tokens {
		if strings.Contains(value, token) {
			value = strings.ReplaceAll(value, token, replacement)
		}
	}
	return value
}

// HasPlaceholders reports whether value still contains any ${...} token.
func HasPlaceholders(value string) bool {
	return placeholderPattern.MatchString(value)
}

// Dereference resolves values that textually reference entries of other
// dictionaries in the same configuration set. It performs exactly one
// pass: a value substituted in is not scanned again, so a chain of
// references resolves only one level per call.
func Dereference(configurations map[string]map[string]string) {
	var pairs []string
	for dictionary, bucket := range configurations {
		for key, value := range bucket {
			pairs = append(pairs, configRefToken(dictionary, key), value)
		}
	}
	if len(pairs) == 0 {
		return
	}

	// strings.Replacer never rescans replaced text, which is exactly the
	// one-level semantics required here.
	replacer := strings.NewReplacer(pairs...)
	for _, bucket := range configurations {
		for key, value := range bucket {
			bucket[key] = replacer.Replace(value)
		}
	}
}
