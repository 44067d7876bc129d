// Package params validates user-supplied tool arguments against a
// manifest's declared parameter schema before any command is built.
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/hamza/scanhub/internal/models"
)

// ErrInvalidParams wraps every rejection produced by Validate.
var ErrInvalidParams = errors.New("invalid parameters")

// Validate checks supplied against schema and returns the first failing
// condition as the single rejection reason. Checks run in a fixed order so
// the reported reason is deterministic: unknown keys first, then per-value
// type/enum/pattern checks in schema key order, then the required sweep.
func Validate(supplied map[string]interface{}, schema map[string]models.ParamSpec) error {
	// Unknown keys reject before anything else.
	for _, name := range sortedKeys(supplied) {
		if _, ok := schema[name]; !ok {
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParams, name)
		}
	}

	// Supplied-value checks in schema iteration order.
	for _, name := range sortedSpecKeys(schema) {
		value, ok := supplied[name]
		if !ok || value == nil {
			continue
		}
		if err := checkValue(name, value, schema[name]); err != nil {
			return err
		}
	}

	// Every required entry must have a non-null value.
	for _, name := range sortedSpecKeys(schema) {
		if !schema[name].Required {
			continue
		}
		if value, ok := supplied[name]; !ok || value == nil {
			return fmt.Errorf("%w: missing required parameter %q", ErrInvalidParams, name)
		}
	}

	return nil
}

// checkValue validates one supplied value against its spec: runtime type,
// then enum, then pattern.
func checkValue(name string, value interface{}, spec models.ParamSpec) error {
	switch spec.Type {
	case models.ParamString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: parameter %q must be a string", ErrInvalidParams, name)
		}
		if len(spec.Enum) > 0 && !contains(spec.Enum, s) {
			return fmt.Errorf("%w: parameter %q must be one of %v", ErrInvalidParams, name, spec.Enum)
		}
		if spec.Pattern != "" {
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				// A manifest carrying a broken pattern fails closed.
				return fmt.Errorf("%w: parameter %q has an invalid pattern constraint", ErrInvalidParams, name)
			}
			if !re.MatchString(s) {
				return fmt.Errorf("%w: parameter %q does not match required pattern", ErrInvalidParams, name)
			}
		}
	case models.ParamNumber:
		if !isNumber(value) {
			return fmt.Errorf("%w: parameter %q must be a number", ErrInvalidParams, name)
		}
	case models.ParamBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: parameter %q must be a boolean", ErrInvalidParams, name)
		}
	default:
		return fmt.Errorf("%w: parameter %q has unsupported declared type %q", ErrInvalidParams, name, spec.Type)
	}
	return nil
}

// ApplyDefaults returns a copy of supplied with schema defaults filled in
// for keys the caller omitted. The input map is not modified.
func ApplyDefaults(supplied map[string]interface{}, schema map[string]models.ParamSpec) map[string]interface{} {
	merged := make(map[string]interface{}, len(supplied)+len(schema))
	for k, v := range supplied {
		merged[k] = v
	}
	for name, spec := range schema {
		if _, ok := merged[name]; !ok && spec.Default != nil {
			merged[name] = spec.Default
		}
	}
	return merged
}

// isNumber accepts the numeric representations seen from JSON decoding and
// from in-process callers.
func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return true
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSpecKeys(m map[string]models.ParamSpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
