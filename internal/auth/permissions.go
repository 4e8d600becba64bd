package auth

import "ChipTrack/internal/model"

// Permission - именованное право.
type Permission string

const (
	PermItemsCreate Permission = "items:create"
	PermItemsRead   Permission = "items:read"
	PermItemsUpdate Permission = "items:update"
	PermItemsDelete Permission = "items:delete"
	PermItemsBackup Permission = "items:backup"
	PermAdminAccess Permission = "admin:access"
)

// Плоская таблица роль -> набор прав. Никаких ACL на уровне ресурсов.
var rolePermissions = map[model.Role]map[Permission]struct{}{
	model.RoleAdmin: set(
		PermItemsCreate, PermItemsRead, PermItemsUpdate,
		PermItemsDelete, PermItemsBackup, PermAdminAccess,
	),
	model.RoleUser: set(PermItemsCreate, PermItemsRead, PermItemsUpdate),
}

func set(perms ...Permission) map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return m
}

// HasPermission проверяет наличие права у роли.
func HasPermission(role model.Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[perm]
	return ok
}

// PermissionsFor возвращает права роли (для ответа /session).
func PermissionsFor(role model.Role) []Permission {
	out := make([]Permission, 0, len(rolePermissions[role]))
	for _, p := range []Permission{PermItemsCreate, PermItemsRead, PermItemsUpdate, PermItemsDelete, PermItemsBackup, PermAdminAccess} {
		if HasPermission(role, p) {
			out = append(out, p)
		}
	}
	return out
}
