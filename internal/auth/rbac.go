package auth

import "github.com/qoffice/dispatcher/internal/models"

// Permission is one admin-side capability gated on Principal.Role.
type Permission string

const (
	PermissionDispatch      Permission = "dispatch"       // next/recall/previous/skip/transfer
	PermissionWindowControl Permission = "window:control" // pause/resume
	PermissionRequeue       Permission = "requeue"
	PermissionAllOffices    Permission = "offices:all" // superadmin: act across both offices
)

const (
	RoleWindowAgent = "window-agent"
	RoleSupervisor  = "supervisor"
	RoleSuperadmin  = "superadmin"
)

// RBAC maps a Principal's declared role to the permissions it holds.
type RBAC struct {
	rolePermissions map[string][]Permission
}

func NewRBAC() *RBAC {
	r := &RBAC{rolePermissions: make(map[string][]Permission)}
	r.rolePermissions[RoleWindowAgent] = []Permission{PermissionDispatch}
	r.rolePermissions[RoleSupervisor] = []Permission{PermissionDispatch, PermissionWindowControl, PermissionRequeue}
	r.rolePermissions[RoleSuperadmin] = []Permission{
		PermissionDispatch, PermissionWindowControl, PermissionRequeue, PermissionAllOffices,
	}
	return r
}

func (r *RBAC) HasPermission(role string, permission Permission) bool {
	for _, p := range r.rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CanActOnOffice reports whether a Principal may operate on office: a
// superadmin may act on any office, everyone else only their own.
func CanActOnOffice(p models.Principal, office models.Office) bool {
	if p.Role == RoleSuperadmin {
		return true
	}
	return p.Office == office
}
