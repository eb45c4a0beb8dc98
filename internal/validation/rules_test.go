package validation

import (
	"strings"
	"testing"
)

func TestApplyUnknownRulePasses(t *testing.T) {
	res := Apply("no_such_rule", "anything", nil)
	if !res.Valid {
		t.Errorf("unknown rule should pass, got errors %v", res.Errors)
	}
}

func TestApplyEmptyValueShortCircuit(t *testing.T) {
	// Every rule except required passes on an empty value.
	for name := range Rules {
		if name == "required" {
			continue
		}
		for _, empty := range []any{nil, "", "   ", []any{}, map[string]any{}} {
			if res := Apply(name, empty, nil); !res.Valid {
				t.Errorf("Apply(%q, %#v) = %v, want pass on empty value", name, empty, res.Errors)
			}
		}
	}

	if res := Apply("required", nil, nil); res.Valid {
		t.Error("required should fail on nil")
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, true},
		{"", true},
		{"  \t ", true},
		{[]any{}, true},
		{[]string{}, true},
		{map[string]any{}, true},
		{"x", false},
		{0, false},
		{false, false},
		{[]any{nil}, false},
	}
	for _, tt := range tests {
		if got := IsEmpty(tt.value); got != tt.want {
			t.Errorf("IsEmpty(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  string
		value any
		param any
		valid bool
	}{
		{"valid email", "email", "user@example.com", nil, true},
		{"email without domain", "email", "user@", nil, false},
		{"email without tld", "email", "user@localhost", nil, false},
		{"valid url", "url", "https://example.com/path", nil, true},
		{"url without scheme", "url", "example.com", nil, false},
		{"url without host", "url", "https://", nil, false},
		{"minLength pass", "minLength", "hello", 3, true},
		{"minLength fail", "minLength", "hi", 3, false},
		{"minLength counts runes", "minLength", "héllo", 5, true},
		{"maxLength pass", "maxLength", "hi", 3, true},
		{"maxLength fail", "maxLength", "hello", 3, false},
		{"maxLength bad param passes", "maxLength", "hello", "not a number", true},
		{"min pass", "min", 5, 3, true},
		{"min fail", "min", 2, 3, false},
		{"min numeric string", "min", "2", 3, false},
		{"min non-numeric value passes", "min", "abc", 3, true},
		{"max pass", "max", 3, float64(5), true},
		{"max fail", "max", 7, float64(5), false},
		{"integer pass", "integer", float64(42), nil, true},
		{"integer string pass", "integer", "42", nil, true},
		{"integer fractional fail", "integer", 4.2, nil, false},
		{"integer non-numeric fail", "integer", "abc", nil, false},
		{"numeric pass", "numeric", "3.14", nil, true},
		{"numeric fail", "numeric", "pi", nil, false},
		{"boolean true", "boolean", true, nil, true},
		{"boolean string", "boolean", "true", nil, true},
		{"boolean one", "boolean", float64(1), nil, true},
		{"boolean two fails", "boolean", float64(2), nil, false},
		{"boolean word fails", "boolean", "yes", nil, false},
		{"pattern pass", "pattern", "abc123", "^abc", true},
		{"pattern fail", "pattern", "xyz", "^abc", false},
		{"pattern invalid regex passes", "pattern", "xyz", "(", true},
		{"in pass", "in", "red", []string{"red", "green"}, true},
		{"in fail", "in", "blue", []string{"red", "green"}, false},
		{"in comma string param", "in", "green", "red, green", true},
		{"in empty param passes", "in", "anything", nil, true},
		{"date pass", "date", "2026-01-31", nil, true},
		{"date fail", "date", "31/01/2026", nil, false},
		{"datetime rfc3339", "datetime", "2026-01-31T12:00:00Z", nil, true},
		{"datetime space form", "datetime", "2026-01-31 12:00:00", nil, true},
		{"datetime fail", "datetime", "noonish", nil, false},
		{"json string pass", "json", `{"a":1}`, nil, true},
		{"json structured pass", "json", map[string]any{"a": 1}, nil, true},
		{"json fail", "json", "{broken", nil, false},
		{"color short", "color", "#fff", nil, true},
		{"color long", "color", "#00FF00", nil, true},
		{"color fail", "color", "green", nil, false},
		{"slug pass", "slug", "my-first-post", nil, true},
		{"slug uppercase fail", "slug", "My-Post", nil, false},
		{"slug trailing hyphen fail", "slug", "post-", nil, false},
		{"uuid pass", "uuid", "8a2b7c9e-1f34-4d56-9a78-0b1c2d3e4f5a", nil, true},
		{"uuid fail", "uuid", "not-a-uuid", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(tt.rule, tt.value, tt.param)
			if res.Valid != tt.valid {
				t.Errorf("Apply(%q, %#v, %#v) valid = %v, want %v (errors: %v)",
					tt.rule, tt.value, tt.param, res.Valid, tt.valid, res.Errors)
			}
			if !res.Valid && len(res.Errors) == 0 {
				t.Error("failing result must carry at least one message")
			}
		})
	}
}

func TestResultMerge(t *testing.T) {
	merged := OK().Merge(Fail("first"), OK(), Fail("second", "third"))
	if merged.Valid {
		t.Error("merge with failures should be invalid")
	}
	if got := strings.Join(merged.Errors, "|"); got != "first|second|third" {
		t.Errorf("merged errors = %q, want order preserved", got)
	}
}
