// Package command expands a manifest's command template into a concrete
// argument vector. The result is always an argv slice handed directly to
// the execution backend, never a shell string, so no shell is invoked
// and no further escaping is needed downstream.
package command

import (
	"fmt"
	"regexp"
	"strconv"
)

// TargetToken is the reserved placeholder replaced by the validated target.
const TargetToken = "{{target}}"

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Build expands template token by token. It is a pure function with no
// failure path: validation has already happened upstream, so unresolved
// placeholders are dropped rather than rejected.
//
// Per token:
//   - {{target}} is replaced by the literal target string.
//   - Placeholders substitute the stringified parameter value in place;
//     surrounding literal text is preserved.
//   - Boolean parameters never stringify. A true boolean keeps the token
//     with the placeholder text removed ("-A{{aggressive}}" → "-A"); a
//     false or missing boolean contributes nothing.
//   - Values that are missing, nil, or an empty string contribute nothing.
//   - A token is dropped entirely when it contained placeholders and none
//     of them resolved to a present value.
//   - Tokens without placeholders pass through as literal arguments.
func Build(template []string, supplied map[string]interface{}, target string) []string {
	argv := make([]string, 0, len(template))

	for _, token := range template {
		if token == TargetToken {
			argv = append(argv, target)
			continue
		}
		if !placeholderRe.MatchString(token) {
			argv = append(argv, token)
			continue
		}

		resolved := false
		expanded := placeholderRe.ReplaceAllStringFunc(token, func(m string) string {
			name := m[2 : len(m)-2]
			if name == "target" {
				resolved = true
				return target
			}
			value, ok := supplied[name]
			if !ok || value == nil {
				return ""
			}
			switch v := value.(type) {
			case bool:
				if v {
					resolved = true
				}
				return ""
			case string:
				if v == "" {
					return ""
				}
				resolved = true
				return v
			default:
				resolved = true
				return stringify(v)
			}
		})

		if resolved && expanded != "" {
			argv = append(argv, expanded)
		}
	}

	return argv
}

// stringify renders non-string parameter values without exponent notation
// or trailing zeros.
func stringify(v interface{}) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	case int64:
		return strconv.FormatInt(n, 10)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case fmt.Stringer:
		return n.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
