package field

import (
	"strings"
	"testing"
)

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func TestValidMachineName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"title", true},
		{"field_one", true},
		{"_private", true},
		{"f2", true},
		{"Title", false},
		{"2fast", false},
		{"with-hyphen", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidMachineName(tt.name); got != tt.want {
			t.Errorf("ValidMachineName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDefinitionCheck(t *testing.T) {
	valid := Definition{
		Name:        "Title",
		MachineName: "title",
		EntityType:  "article",
		Kind:        KindString,
		Cardinality: 1,
	}
	if problems := valid.Check(); len(problems) != 0 {
		t.Errorf("valid definition rejected: %v", problems)
	}

	tests := []struct {
		name     string
		mutate   func(*Definition)
		fragment string
	}{
		{"missing name", func(d *Definition) { d.Name = "" }, "name is required"},
		{"missing machine name", func(d *Definition) { d.MachineName = "" }, "machine_name is required"},
		{"bad machine name", func(d *Definition) { d.MachineName = "Not Valid" }, "machine_name must match"},
		{"missing entity type", func(d *Definition) { d.EntityType = "" }, "entity_type is required"},
		{"unknown kind", func(d *Definition) { d.Kind = "hologram" }, `unknown field kind "hologram"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid
			tt.mutate(&def)
			problems := def.Check()
			found := false
			for _, p := range problems {
				if strings.Contains(p, tt.fragment) {
					found = true
				}
			}
			if !found {
				t.Errorf("problems %v missing %q", problems, tt.fragment)
			}
		})
	}
}

func TestDefinitionCheckUnknownKindShortCircuits(t *testing.T) {
	// Settings checks depend on the kind, so an unknown kind reports only
	// itself instead of misleading settings noise.
	def := Definition{
		Name:        "X",
		MachineName: "x",
		EntityType:  "article",
		Kind:        "hologram",
		Settings:    Settings{Options: []string{"a"}},
	}
	problems := def.Check()
	if len(problems) != 1 {
		t.Errorf("got %v, want only the unknown-kind problem", problems)
	}
}

func TestSettingsCheck(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		settings Settings
		fragment string
	}{
		{"length on number", KindInteger, Settings{MaxLength: intPtr(10)}, "only valid on text kinds"},
		{"negative min length", KindString, Settings{MinLength: intPtr(-1)}, "min_length must be >= 0"},
		{"zero max length", KindString, Settings{MaxLength: intPtr(0)}, "max_length must be > 0"},
		{"inverted lengths", KindString, Settings{MinLength: intPtr(9), MaxLength: intPtr(3)}, "must be <= max_length"},
		{"range on text", KindString, Settings{Min: floatPtr(1)}, "only valid on numeric kinds"},
		{"inverted range", KindInteger, Settings{Min: floatPtr(9), Max: floatPtr(3)}, "min (9) must be <= max (3)"},
		{"pattern on number", KindFloat, Settings{Pattern: "^x$"}, "only valid on text kinds"},
		{"broken pattern", KindString, Settings{Pattern: "("}, "invalid pattern"},
		{"options on string", KindString, Settings{Options: []string{"a"}}, "only valid on select"},
		{"select without options", KindSelect, Settings{}, "non-empty options list"},
		{"decimal places on string", KindString, Settings{DecimalPlaces: intPtr(2)}, "only valid on float"},
		{"date format on string", KindString, Settings{DateFormat: "2006"}, "only valid on date"},
		{"target on string", KindString, Settings{TargetType: "person"}, "only valid on entity_reference"},
		{"reference without target", KindReference, Settings{}, "must have target_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := tt.settings.Check(tt.kind)
			found := false
			for _, p := range problems {
				if strings.Contains(p, tt.fragment) {
					found = true
				}
			}
			if !found {
				t.Errorf("Check(%s) = %v, missing %q", tt.kind, problems, tt.fragment)
			}
		})
	}

	ok := Settings{MinLength: intPtr(1), MaxLength: intPtr(80), Pattern: "^[a-z]+$"}
	if problems := ok.Check(KindString); len(problems) != 0 {
		t.Errorf("valid settings rejected: %v", problems)
	}
}

func TestCardinality(t *testing.T) {
	single := Definition{Cardinality: 1}
	if single.Multiple() || single.Unbounded() {
		t.Error("cardinality 1 is single-valued and bounded")
	}

	bounded := Definition{Cardinality: 3}
	if !bounded.Multiple() || bounded.Unbounded() {
		t.Error("cardinality 3 is multi-valued and bounded")
	}

	unbounded := Definition{Cardinality: CardinalityUnbounded}
	if !unbounded.Multiple() || !unbounded.Unbounded() {
		t.Error("cardinality 0 is multi-valued and unbounded")
	}
}
