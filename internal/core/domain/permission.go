package domain

import (
	"regexp"
	"strings"
)

// Wildcard matches any resource or action segment of a held permission.
const Wildcard = "*"

var permissionSegment = regexp.MustCompile(`^[a-z_*]+$`)

// Permission is a resource:action capability token.
type Permission struct {
	resource string
	action   string
}

// ParsePermission validates and normalizes a "resource:action" string.
func ParsePermission(value string) (Permission, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return Permission{}, NewValidationError("permission", "Permission cannot be empty")
	}

	resource, action, ok := strings.Cut(value, ":")
	if !ok || !permissionSegment.MatchString(resource) || !permissionSegment.MatchString(action) {
		return Permission{}, NewValidationError("permission", "Invalid permission format: "+value+" (expected resource:action)")
	}

	return Permission{resource: resource, action: action}, nil
}

// MustPermission is ParsePermission for compile-time constants. It panics on invalid input.
func MustPermission(value string) Permission {
	p, err := ParsePermission(value)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePermissions parses every value, failing on the first invalid one.
func ParsePermissions(values []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(values))
	for _, v := range values {
		p, err := ParsePermission(v)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func (p Permission) Resource() string { return p.resource }

func (p Permission) Action() string { return p.action }

// IsZero reports whether p was never constructed.
func (p Permission) IsZero() bool { return p.resource == "" && p.action == "" }

func (p Permission) String() string {
	if p.IsZero() {
		return ""
	}
	return p.resource + ":" + p.action
}

// Equals is exact equality.
func (p Permission) Equals(other Permission) bool {
	return p == other
}

// Matches reports whether the held permission p grants required.
// Only wildcards on p are honored.
func (p Permission) Matches(required Permission) bool {
	if p.IsZero() || required.IsZero() {
		return false
	}
	resourceOK := p.resource == Wildcard || p.resource == required.resource
	actionOK := p.action == Wildcard || p.action == required.action
	return resourceOK && actionOK
}

// MarshalText encodes the canonical string form.
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses and validates the canonical string form.
func (p *Permission) UnmarshalText(text []byte) error {
	parsed, err := ParsePermission(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
