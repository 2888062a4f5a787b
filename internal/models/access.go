package models

type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
	RoleStaff   Role = "STAFF"
	RoleWaiter  Role = "WAITER"
)

type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
	PermissionManage Permission = "manage"
)

// roleRank orders the lattice OWNER ⊇ MANAGER ⊇ {ADMIN, STAFF} ⊇ WAITER.
var roleRank = map[Role]int{
	RoleOwner:   4,
	RoleManager: 3,
	RoleAdmin:   2,
	RoleStaff:   2,
	RoleWaiter:  1,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Includes reports whether r dominates other in the role lattice. ADMIN and STAFF
// are siblings and include each other only when equal.
func (r Role) Includes(other Role) bool {
	if r == other {
		return true
	}
	rr, ok1 := roleRank[r]
	or, ok2 := roleRank[other]
	if !ok1 || !ok2 {
		return false
	}
	return rr > or
}

// CanDelete is the role gate applied to delete operations on top of the delete permission.
func (r Role) CanDelete() bool {
	return r.Includes(RoleManager)
}

// DefaultPermissions is used for OWNER grants and for membership records without an explicit list.
func DefaultPermissions(role Role) []Permission {
	switch role {
	case RoleOwner:
		return []Permission{PermissionRead, PermissionWrite, PermissionDelete, PermissionManage}
	case RoleManager:
		return []Permission{PermissionRead, PermissionWrite, PermissionDelete}
	case RoleAdmin, RoleStaff:
		return []Permission{PermissionRead, PermissionWrite}
	case RoleWaiter:
		return []Permission{PermissionRead}
	default:
		return nil
	}
}

// RequiredPermission maps an operation kind to the permission it needs.
func RequiredPermission(kind OperationKind) Permission {
	switch kind {
	case KindCreate, KindUpdate:
		return PermissionWrite
	case KindDelete:
		return PermissionDelete
	default:
		return PermissionRead
	}
}

// AccessGrant is resolved per request and never cached.
type AccessGrant struct {
	UserID       string       `json:"userId"`
	RestaurantID string       `json:"restaurantId"`
	Role         Role         `json:"role"`
	Permissions  []Permission `json:"permissions"`
}

func (g *AccessGrant) Has(p Permission) bool {
	if g == nil {
		return false
	}
	for _, have := range g.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// Allows applies the permission check and, for deletes, the role gate.
func (g *AccessGrant) Allows(kind OperationKind) bool {
	if !g.Has(RequiredPermission(kind)) {
		return false
	}
	if kind == KindDelete && !g.Role.CanDelete() {
		return false
	}
	return true
}
