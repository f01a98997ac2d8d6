package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// placeholderRe matches one {{ ... }} placeholder, non-greedy so multiple
// placeholders in one string stay separate.
var placeholderRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// RenderError reports a template that failed to evaluate. Switch nodes treat
// it as the "except" branch instead of aborting the flow.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Render evaluates every {{ ... }} placeholder in template against scope.
//
// A template that is exactly one placeholder yields the expression's value
// with its type preserved. Anything else is string interpolation, and the
// resulting string is coerced: boolean words and JSON literals become typed
// values, everything else stays a string. Undefined variables evaluate to
// nil, mirroring the leniency flow authors rely on.
func Render(template string, scope map[string]any) (any, error) {
	matches := placeholderRe.FindStringSubmatchIndex(template)
	if matches == nil {
		return coerce(template), nil
	}

	// Single placeholder spanning the whole template keeps the value's type.
	if matches[0] == 0 && matches[1] == len(template) {
		out, err := eval(template[matches[2]:matches[3]], scope)
		if err != nil {
			return nil, &RenderError{Template: template, Err: err}
		}
		if s, ok := out.(string); ok {
			return coerce(s), nil
		}
		return out, nil
	}

	var evalErr error
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		if evalErr != nil {
			return ""
		}
		code := m[2 : len(m)-2]
		out, err := eval(code, scope)
		if err != nil {
			evalErr = err
			return ""
		}
		return stringify(out)
	})
	if evalErr != nil {
		return nil, &RenderError{Template: template, Err: evalErr}
	}
	return coerce(rendered), nil
}

// RenderValue renders a string, map or slice value: string leaves go through
// Render, containers are rebuilt with every leaf rendered, anything else
// passes through untouched.
func RenderValue(v any, scope map[string]any) (any, error) {
	switch t := v.(type) {
	case string:
		return Render(t, scope)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			r, err := RenderValue(elem, scope)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			r, err := RenderValue(elem, scope)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// RenderString renders template and forces the result into a string.
func RenderString(template string, scope map[string]any) (string, error) {
	out, err := Render(template, scope)
	if err != nil {
		return "", err
	}
	return stringify(out), nil
}

func eval(code string, scope map[string]any) (any, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}
	// Env must precede AllowUndefinedVariables for the option to take effect.
	program, err := expr.Compile(code,
		expr.Env(scope),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, scope)
}

// coerce maps literal strings onto typed values: boolean words in any case,
// then any valid JSON literal (numbers, quoted strings, arrays, objects,
// null). Unparseable input is returned as the string it already is.
func coerce(s string) any {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true
	case "false":
		return false
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '{', '[', '"', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	case 'n':
		if trimmed == "null" {
			return nil
		}
	}
	return s
}

// stringify renders a value the way flow authors expect it interpolated.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

// canonicalKey normalizes a rendered value for case matching, collapsing the
// numeric spellings of the same value ("1", 1, 1.0) onto one key.
func canonicalKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return t
	}
	return stringify(v)
}

// asInt converts a rendered value into an int, tolerating string and float
// spellings. The fallback is returned for anything non-numeric.
func asInt(v any, fallback int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return fallback
}
