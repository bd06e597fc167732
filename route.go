package hxview

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Route describes one entry of a router's route table: a URL pattern and
// the name of the view module it shows.
//
// Patterns use the fragment syntax:
//
//	"users"             static
//	"users/:id"         named parameter, one path segment
//	"files/*path"       splat, any number of segments
//	"search(/:query)"   optional part
type Route struct {
	URL  string `mapstructure:"url" yaml:"url"`
	View string `mapstructure:"view" yaml:"view"`
}

var (
	optionalParam = regexp.MustCompile(`\((.*?)\)`)
	namedParam    = regexp.MustCompile(`(\(\?)?:\w+`)
	splatParam    = regexp.MustCompile(`\*\w+`)
	escapeRegExp  = regexp.MustCompile(`[\-{}\[\]+?.,\\\^$|#\s]`)
)

// compileRoute turns a route pattern into an anchored regular expression
// with one capture group per parameter.
func compileRoute(pattern string) (*regexp.Regexp, error) {
	expr := escapeRegExp.ReplaceAllString(pattern, `\${0}`)
	expr = optionalParam.ReplaceAllString(expr, `(?:${1})?`)
	expr = namedParam.ReplaceAllStringFunc(expr, func(m string) string {
		if strings.HasPrefix(m, "(?") {
			return m
		}
		return `([^/]+)`
	})
	expr = splatParam.ReplaceAllString(expr, `(.*?)`)

	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, fmt.Errorf("hxview: invalid route %q: %w", pattern, err)
	}
	return re, nil
}

// extractParams returns the unescaped capture groups of fragment. Optional
// groups that did not participate come back as "".
func extractParams(re *regexp.Regexp, fragment string) ([]string, bool) {
	m := re.FindStringSubmatch(fragment)
	if m == nil {
		return nil, false
	}
	params := make([]string, 0, len(m)-1)
	for _, p := range m[1:] {
		if decoded, err := url.PathUnescape(p); err == nil {
			p = decoded
		}
		params = append(params, p)
	}
	return params, true
}

// normalizeFragment strips a single leading '#' or '/', the query string
// and trailing whitespace.
func normalizeFragment(fragment string) string {
	if i := strings.IndexByte(fragment, '?'); i >= 0 {
		fragment = fragment[:i]
	}
	fragment = strings.TrimRightFunc(fragment, unicode.IsSpace)
	if strings.HasPrefix(fragment, "#") || strings.HasPrefix(fragment, "/") {
		fragment = fragment[1:]
	}
	return fragment
}

// buildFragment fills the parameters of pattern in order. Optional parts
// are kept only when all of their parameters are non-empty.
func buildFragment(pattern string, params []string) (string, error) {
	out, rest, err := fillPattern(pattern, params, false)
	if err != nil {
		return "", err
	}
	if len(rest) > 0 {
		return "", fmt.Errorf("hxview: route %q: %d unused parameters", pattern, len(rest))
	}
	return out, nil
}

func fillPattern(pattern string, params []string, optional bool) (string, []string, error) {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '(':
			end := strings.IndexByte(pattern[i:], ')')
			if end < 0 {
				return "", nil, fmt.Errorf("hxview: route %q: unclosed optional part", pattern)
			}
			inner := pattern[i+1 : i+end]
			filled, rest, err := fillPattern(inner, params, true)
			if err == nil {
				sb.WriteString(filled)
			}
			params = rest
			i += end + 1
		case c == ':' || c == '*':
			j := i + 1
			for j < len(pattern) && isWordByte(pattern[j]) {
				j++
			}
			if j == i+1 {
				sb.WriteByte(c)
				i++
				continue
			}
			if len(params) == 0 || params[0] == "" {
				if optional {
					// Skip this param and the rest of the optional part.
					return "", skipParams(pattern[i:], params), errOptionalMissing
				}
				return "", params, fmt.Errorf("hxview: route %q: missing parameter %s", pattern, pattern[i:j])
			}
			if c == ':' {
				sb.WriteString(url.PathEscape(params[0]))
			} else {
				sb.WriteString(params[0])
			}
			params = params[1:]
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), params, nil
}

var errOptionalMissing = fmt.Errorf("optional parameter missing")

// skipParams drops the parameters consumed by the remaining tokens of an
// optional part.
func skipParams(rest string, params []string) []string {
	n := len(namedParam.FindAllString(rest, -1)) + len(splatParam.FindAllString(rest, -1))
	if n > len(params) {
		n = len(params)
	}
	return params[n:]
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
