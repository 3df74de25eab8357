// Package authz holds the authorization policy as pure decision functions
// over an authenticated Identity and the ownership of the loaded resource.
// The predicates never trust a path parameter's tenant claim; callers pass
// the tenant id re-derived from the resource row itself.
package authz

import (
	"github.com/google/uuid"

	"github.com/tenantdesk/tenantdesk/pkg/auth"
	"github.com/tenantdesk/tenantdesk/pkg/model"
)

func IsSuperAdmin(identity auth.Identity) bool {
	return identity.Role == model.RoleSuperAdmin
}

// TenantMatch is the core isolation predicate: the caller is super_admin, or
// the caller's tenant equals the resource's tenant. A caller without a tenant
// never matches a tenant-scoped resource.
func TenantMatch(identity auth.Identity, resourceTenantID uuid.UUID) bool {
	if IsSuperAdmin(identity) {
		return true
	}
	return identity.TenantID != nil && *identity.TenantID == resourceTenantID
}

func RoleAllowed(identity auth.Identity, allowed ...model.Role) bool {
	for _, role := range allowed {
		if identity.Role == role {
			return true
		}
	}
	return false
}

// CanMutateProject allows updates and deletes on a project: same tenant, and
// either a tenant_admin or the project's creator. super_admin never qualifies
// (it is excluded from tenant resources before any project is loaded, and
// holds neither qualifying role here).
func CanMutateProject(identity auth.Identity, projectTenantID, createdBy uuid.UUID) bool {
	if !TenantMatch(identity, projectTenantID) {
		return false
	}
	return identity.Role == model.RoleTenantAdmin || identity.UserID == createdBy
}

// CanEditUserFullName: self, tenant_admin, or super_admin. Tenant match is
// checked separately against the target user's row.
func CanEditUserFullName(identity auth.Identity, targetUserID uuid.UUID) bool {
	return identity.UserID == targetUserID ||
		identity.Role == model.RoleTenantAdmin ||
		identity.Role == model.RoleSuperAdmin
}

// CanEditUserRoleOrActive: role and isActive are tenant_admin-only fields.
func CanEditUserRoleOrActive(identity auth.Identity) bool {
	return identity.Role == model.RoleTenantAdmin
}

// TenantUpdate describes which tenant fields a request wants to change.
type TenantUpdate struct {
	Name             bool
	Status           bool
	SubscriptionPlan bool
	MaxUsers         bool
	MaxProjects      bool
}

// TouchesPrivileged reports whether the update includes any field reserved
// for super_admin.
func (u TenantUpdate) TouchesPrivileged() bool {
	return u.Status || u.SubscriptionPlan || u.MaxUsers || u.MaxProjects
}

// CanUpdateTenant gates tenant mutation. name is editable by a tenant_admin
// of that tenant or a super_admin. The privileged fields (status, plan,
// quotas) are super_admin-only, all-or-nothing: a tenant_admin request that
// touches any of them is rejected wholesale even if name is also present.
func CanUpdateTenant(identity auth.Identity, resourceTenantID uuid.UUID, update TenantUpdate) bool {
	if IsSuperAdmin(identity) {
		return true
	}
	if identity.Role != model.RoleTenantAdmin || !TenantMatch(identity, resourceTenantID) {
		return false
	}
	return !update.TouchesPrivileged()
}
