// Package access maps authenticated identities to roles and answers
// capability checks.
//
// Roles are nested: every capability of reader is held by analyst, and every
// capability of analyst is held by admin. Only admin can ingest.
package access

import (
	"fmt"
	"strings"
)

// Role is a named set of capabilities.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAnalyst Role = "analyst"
	RoleReader  Role = "reader"
)

// Capability is a named permission checked before an operation runs.
type Capability string

const (
	CapView   Capability = "view"
	CapFilter Capability = "filter"
	CapExport Capability = "export"
	CapEmail  Capability = "email"
	CapIngest Capability = "ingest"
)

var (
	readerCaps  = []Capability{CapView, CapFilter}
	analystCaps = append(append([]Capability{}, readerCaps...), CapExport, CapEmail)
	adminCaps   = append(append([]Capability{}, analystCaps...), CapIngest)
)

var capabilities = map[Role][]Capability{
	RoleReader:  readerCaps,
	RoleAnalyst: analystCaps,
	RoleAdmin:   adminCaps,
}

// Roles lists the known roles from least to most privileged.
var Roles = []Role{RoleReader, RoleAnalyst, RoleAdmin}

// ParseRole converts a role name to a Role. Matching ignores case and
// surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := capabilities[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RoleForIdentity returns the role implied by an identity's name: the
// identities admin, analyst and reader get the role of the same name and
// everyone else is a reader.
func RoleForIdentity(identity string) Role {
	switch Role(identity) {
	case RoleAdmin:
		return RoleAdmin
	case RoleAnalyst:
		return RoleAnalyst
	default:
		return RoleReader
	}
}

// Can reports whether the role grants c.
func (r Role) Can(c Capability) bool {
	for _, have := range capabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

// Capabilities returns a copy of the role's capability set.
func (r Role) Capabilities() []Capability {
	caps := capabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}
