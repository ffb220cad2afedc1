package plugin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CoreVersion is the version of the host contract this build implements.
// Plugins declare the minimum core version they require; a plugin is
// compatible when majors match and its required minor is not newer than ours.
const CoreVersion = "1.0.0"

// Metadata is the immutable descriptor every plugin carries. Name is the
// registry key.
type Metadata struct {
	Name         string
	Version      string
	Description  string
	Author       string
	Dependencies []string
	CoreVersion  string
	Category     string
	Tags         []string
}

// nameRe: lowercase alphanumeric runs joined by single '.', '-' or '_'.
var nameRe = regexp.MustCompile(`^[a-z0-9]+([._-][a-z0-9]+)*$`)

// Normalized returns a copy with the name NFC-normalized, so visually
// identical names cannot occupy distinct registry slots.
func (m Metadata) Normalized() Metadata {
	m.Name = norm.NFC.String(m.Name)
	return m
}

// Validate checks metadata shape. It mutates nothing and reports the first
// violation found.
func Validate(m Metadata) error {
	if m.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if !nameRe.MatchString(m.Name) {
		return &ValidationError{Field: "name", Reason: "must be lowercase alphanumeric with single . - _ separators"}
	}
	if m.Version == "" {
		return &ValidationError{Field: "version", Reason: "is required"}
	}
	if m.CoreVersion == "" {
		return &ValidationError{Field: "core_version", Reason: "is required"}
	}
	reqMaj, reqMin, _, err := parseVersion(m.CoreVersion)
	if err != nil {
		return &ValidationError{Field: "core_version", Reason: err.Error()}
	}
	hostMaj, hostMin, _, _ := parseVersion(CoreVersion)
	if reqMaj != hostMaj || reqMin > hostMin {
		return &ValidationError{
			Field:  "core_version",
			Reason: fmt.Sprintf("requires core %s, host is %s", m.CoreVersion, CoreVersion),
		}
	}
	if m.Dependencies == nil {
		return &ValidationError{Field: "dependencies", Reason: "must not be nil (use an empty list)"}
	}
	seen := make(map[string]bool, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		if dep == "" {
			return &ValidationError{Field: "dependencies", Reason: "contains an empty name"}
		}
		if dep == m.Name {
			return &ValidationError{Field: "dependencies", Reason: "contains a self-reference"}
		}
		if seen[dep] {
			return &ValidationError{Field: "dependencies", Reason: fmt.Sprintf("lists %q twice", dep)}
		}
		seen[dep] = true
	}
	return nil
}

// parseVersion parses "major.minor.patch" with plain decimal fields.
func parseVersion(s string) (maj, min, patch int, err error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%q is not major.minor.patch", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("%q is not major.minor.patch", s)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
