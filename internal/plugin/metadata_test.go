package plugin

import (
	"errors"
	"testing"
)

func validMeta() Metadata {
	return Metadata{
		Name:         "kinematics",
		Version:      "1.0.0",
		Description:  "integrator",
		Author:       "reef",
		Dependencies: []string{},
		CoreVersion:  "1.0.0",
		Category:     "physics",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Metadata)
		wantField string // "" means valid
	}{
		{"valid", func(m *Metadata) {}, ""},
		{"valid with deps", func(m *Metadata) { m.Dependencies = []string{"lifetime"} }, ""},
		{"valid dotted name", func(m *Metadata) { m.Name = "reef.water-sim_2" }, ""},
		{"missing name", func(m *Metadata) { m.Name = "" }, "name"},
		{"uppercase name", func(m *Metadata) { m.Name = "Kinematics" }, "name"},
		{"double separator", func(m *Metadata) { m.Name = "a..b" }, "name"},
		{"edge separator", func(m *Metadata) { m.Name = "-abc" }, "name"},
		{"missing version", func(m *Metadata) { m.Version = "" }, "version"},
		{"missing core version", func(m *Metadata) { m.CoreVersion = "" }, "core_version"},
		{"malformed core version", func(m *Metadata) { m.CoreVersion = "1.0" }, "core_version"},
		{"newer major", func(m *Metadata) { m.CoreVersion = "2.0.0" }, "core_version"},
		{"newer minor", func(m *Metadata) { m.CoreVersion = "1.5.0" }, "core_version"},
		{"nil dependencies", func(m *Metadata) { m.Dependencies = nil }, "dependencies"},
		{"empty dependency", func(m *Metadata) { m.Dependencies = []string{""} }, "dependencies"},
		{"self dependency", func(m *Metadata) { m.Dependencies = []string{"kinematics"} }, "dependencies"},
		{"duplicate dependency", func(m *Metadata) { m.Dependencies = []string{"a", "a"} }, "dependencies"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMeta()
			tt.mutate(&m)
			err := Validate(m)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestNormalizedName(t *testing.T) {
	// e + combining acute must collapse to the precomposed form.
	m := Metadata{Name: "cafe\u0301"}
	got := m.Normalized().Name
	if got != "caf\u00e9" {
		t.Errorf("Normalized name = %q, want %q", got, "caf\u00e9")
	}
}
