package auth

import (
	"sort"
)

// Role is a membership a user account can hold.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// rolePriority orders roles for dashboard dispatch.
var rolePriority = []Role{RoleAdmin, RoleDoctor, RolePatient}

// dashboards maps each role to its landing route.
var dashboards = map[Role]string{
	RoleAdmin:   "/admin",
	RoleDoctor:  "/doctor",
	RolePatient: "/patient",
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := dashboards[r]
	return ok
}

// RoleSet is an unordered set of roles. Nothing prevents a user from being
// admin, doctor and patient at once.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// ParseRoleSet builds a set from stored names, dropping unknown ones.
func ParseRoleSet(names []string) RoleSet {
	s := make(RoleSet, len(names))
	for _, n := range names {
		if r := Role(n); r.Valid() {
			s[r] = struct{}{}
		}
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether s holds at least one of roles.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

func (s RoleSet) Add(r Role) {
	s[r] = struct{}{}
}

// Strings returns the role names sorted for stable storage and tokens.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// Primary returns the highest-priority role held: admin, then doctor, then
// patient.
func (s RoleSet) Primary() (Role, bool) {
	for _, r := range rolePriority {
		if s.Has(r) {
			return r, true
		}
	}
	return "", false
}

// DashboardPath is where a user with these roles lands after sign-in.
func (s RoleSet) DashboardPath() string {
	if r, ok := s.Primary(); ok {
		return dashboards[r]
	}
	return AccessDeniedPath
}
