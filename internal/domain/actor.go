package domain

import "github.com/google/uuid"

// Permission names the engine checks before mutating operations. Evaluation
// of how an actor obtained a permission happens outside the core.
const (
	PermModulesManage = "modules:manage"
	PermTypesManage   = "object_types:manage"
	PermObjectsRead   = "objects:read"
	PermObjectsWrite  = "objects:write"
	PermObjectsDelete = "objects:delete"
)

// Actor is the opaque authorization context passed into every engine call:
// a user id plus the permission set some external evaluator granted it.
type Actor struct {
	UserID      uuid.UUID
	Permissions map[string]bool
}

// NewActor builds an actor holding the given permissions.
func NewActor(userID uuid.UUID, perms ...string) Actor {
	set := make(map[string]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return Actor{UserID: userID, Permissions: set}
}

// Has reports whether the actor holds the named permission.
func (a Actor) Has(perm string) bool {
	return a.Permissions[perm]
}

// Require returns ErrForbidden unless the actor holds the named permission.
func (a Actor) Require(perm string) error {
	if !a.Has(perm) {
		return ErrForbidden
	}
	return nil
}
