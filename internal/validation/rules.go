package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// RuleFunc applies one validation rule to a value with an optional parameter.
// Rules are stateless and never panic: a malformed parameter degrades to a
// passing result so that broken field configuration cannot lock out valid
// submissions. Every rule except "required" treats an empty value as passing;
// the dispatch layer enforces that short-circuit so individual rules can
// assume a non-empty value.
type RuleFunc func(value, param any) Result

// Rules is the closed dispatch table of all known validation rules.
var Rules = map[string]RuleFunc{
	"required":  ruleRequired,
	"email":     ruleEmail,
	"url":       ruleURL,
	"minLength": ruleMinLength,
	"maxLength": ruleMaxLength,
	"min":       ruleMin,
	"max":       ruleMax,
	"integer":   ruleInteger,
	"numeric":   ruleNumeric,
	"boolean":   ruleBoolean,
	"pattern":   rulePattern,
	"in":        ruleIn,
	"date":      ruleDate,
	"datetime":  ruleDatetime,
	"json":      ruleJSON,
	"color":     ruleColor,
	"slug":      ruleSlug,
	"uuid":      ruleUUID,
}

// Apply runs the named rule against the value. Unknown rule names pass, and
// empty values pass for every rule except "required".
func Apply(name string, value, param any) Result {
	rule, ok := Rules[name]
	if !ok {
		return OK()
	}
	if name != "required" && IsEmpty(value) {
		return OK()
	}
	return rule(value, param)
}

// IsEmpty reports whether a submitted value counts as absent: nil, an empty
// or whitespace-only string, or an empty slice/map.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func ruleRequired(value, _ any) Result {
	if IsEmpty(value) {
		return Fail("is required")
	}
	return OK()
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func ruleEmail(value, _ any) Result {
	s := toString(value)
	if _, err := mail.ParseAddress(s); err != nil || !emailPattern.MatchString(s) {
		return Fail("must be a valid email address")
	}
	return OK()
}

func ruleURL(value, _ any) Result {
	u, err := url.Parse(toString(value))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Fail("must be a valid URL")
	}
	return OK()
}

func ruleMinLength(value, param any) Result {
	n, ok := toInt(param)
	if !ok {
		return OK()
	}
	if utf8.RuneCountInString(toString(value)) < n {
		return Fail(fmt.Sprintf("must be at least %d characters", n))
	}
	return OK()
}

func ruleMaxLength(value, param any) Result {
	n, ok := toInt(param)
	if !ok {
		return OK()
	}
	if utf8.RuneCountInString(toString(value)) > n {
		return Fail(fmt.Sprintf("must be at most %d characters", n))
	}
	return OK()
}

// ruleMin ignores non-numeric values: numeric-ness is the integer/numeric
// rule's responsibility, and double-reporting the same defect helps nobody.
func ruleMin(value, param any) Result {
	limit, ok := toFloat64(param)
	if !ok {
		return OK()
	}
	n, ok := toFloat64(value)
	if !ok {
		return OK()
	}
	if n < limit {
		return Fail(fmt.Sprintf("must be at least %g", limit))
	}
	return OK()
}

func ruleMax(value, param any) Result {
	limit, ok := toFloat64(param)
	if !ok {
		return OK()
	}
	n, ok := toFloat64(value)
	if !ok {
		return OK()
	}
	if n > limit {
		return Fail(fmt.Sprintf("must be at most %g", limit))
	}
	return OK()
}

func ruleInteger(value, _ any) Result {
	n, ok := toFloat64(value)
	if !ok || n != math.Trunc(n) {
		return Fail("must be an integer")
	}
	return OK()
}

func ruleNumeric(value, _ any) Result {
	if _, ok := toFloat64(value); !ok {
		return Fail("must be a number")
	}
	return OK()
}

func ruleBoolean(value, _ any) Result {
	switch v := value.(type) {
	case bool:
		return OK()
	case string:
		if _, err := strconv.ParseBool(v); err == nil {
			return OK()
		}
	case float64, int, int64:
		n, _ := toFloat64(v)
		if n == 0 || n == 1 {
			return OK()
		}
	}
	return Fail("must be a boolean")
}

func rulePattern(value, param any) Result {
	pattern := toString(param)
	if pattern == "" {
		return OK()
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return OK()
	}
	if !re.MatchString(toString(value)) {
		return Fail(fmt.Sprintf("must match pattern %s", pattern))
	}
	return OK()
}

// ruleIn accepts the allowed list either as a slice or as a comma-separated
// string parameter.
func ruleIn(value, param any) Result {
	allowed := toStringSlice(param)
	if len(allowed) == 0 {
		return OK()
	}
	s := toString(value)
	for _, a := range allowed {
		if s == a {
			return OK()
		}
	}
	return Fail(fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

func ruleDate(value, _ any) Result {
	if _, err := time.Parse("2006-01-02", toString(value)); err != nil {
		return Fail("must be a valid date (YYYY-MM-DD)")
	}
	return OK()
}

func ruleDatetime(value, _ any) Result {
	s := toString(value)
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return OK()
	}
	if _, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return OK()
	}
	return Fail("must be a valid datetime (RFC 3339 or YYYY-MM-DD HH:MM:SS)")
}

func ruleJSON(value, _ any) Result {
	switch value.(type) {
	case map[string]any, []any:
		// Already structured; it parsed from JSON input.
		return OK()
	}
	if !json.Valid([]byte(toString(value))) {
		return Fail("must be valid JSON")
	}
	return OK()
}

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func ruleColor(value, _ any) Result {
	if !colorPattern.MatchString(toString(value)) {
		return Fail("must be a valid hex color (#RGB or #RRGGBB)")
	}
	return OK()
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func ruleSlug(value, _ any) Result {
	if !slugPattern.MatchString(toString(value)) {
		return Fail("must be a valid slug (lowercase letters, digits, hyphens)")
	}
	return OK()
}

func ruleUUID(value, _ any) Result {
	if _, err := uuid.Parse(toString(value)); err != nil {
		return Fail("must be a valid UUID")
	}
	return OK()
}

// toString renders a scalar value for rule checks. Non-scalar values render
// empty so that string rules degrade rather than misfire.
func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// toFloat64 converts a value to float64, handling JSON number types and
// numeric strings.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toInt converts a value to int, rejecting fractional numbers.
func toInt(v any) (int, bool) {
	f, ok := toFloat64(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// toStringSlice converts a rule parameter to a list of allowed values.
func toStringSlice(v any) []string {
	switch p := v.(type) {
	case []string:
		return p
	case []any:
		out := make([]string, 0, len(p))
		for _, e := range p {
			out = append(out, toString(e))
		}
		return out
	case string:
		if p == "" {
			return nil
		}
		parts := strings.Split(p, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return nil
	}
}
