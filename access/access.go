// Package access provides the client-side authorization checks. The checks
// are pure functions over a profile snapshot: no network calls, no caching.
// They are a UX optimization only; the backend remains the security boundary.
package access

import (
	"slices"

	"github.com/camphq/session/users"
	"github.com/cccteam/ccc/accesstypes"
)

// DirectorRole is the privileged role name. A profile carrying it passes
// every permission check regardless of its permission set.
const DirectorRole accesstypes.Role = "Camp Director"

// HasPermission reports whether the profile holds perm. Matching is exact
// and case-sensitive; there is no hierarchy or wildcard beyond the
// DirectorRole bypass. A nil profile fails every check, including the
// bypass, since the role is unknown.
func HasPermission(user *users.UserProfile, perm accesstypes.Permission) bool {
	if user == nil {
		return false
	}
	if isDirector(user) {
		return true
	}

	return slices.Contains(user.Permissions, perm)
}

// HasAnyPermission reports whether the profile holds at least one of perms.
func HasAnyPermission(user *users.UserProfile, perms ...accesstypes.Permission) bool {
	if user == nil {
		return false
	}
	if isDirector(user) {
		return true
	}

	for _, perm := range perms {
		if slices.Contains(user.Permissions, perm) {
			return true
		}
	}

	return false
}

// HasAllPermissions reports whether the profile holds every one of perms.
// An empty perms list is vacuously satisfied by any loaded profile.
func HasAllPermissions(user *users.UserProfile, perms ...accesstypes.Permission) bool {
	if user == nil {
		return false
	}
	if isDirector(user) {
		return true
	}

	for _, perm := range perms {
		if !slices.Contains(user.Permissions, perm) {
			return false
		}
	}

	return true
}

func isDirector(user *users.UserProfile) bool {
	return accesstypes.Role(user.RoleName) == DirectorRole
}
