package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tenantdesk/tenantdesk/pkg/auth"
	"github.com/tenantdesk/tenantdesk/pkg/model"
)

func identityFor(role model.Role, tenantID *uuid.UUID) auth.Identity {
	return auth.Identity{UserID: uuid.New(), TenantID: tenantID, Role: role}
}

func TestTenantMatch(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	member := identityFor(model.RoleUser, &tenantA)
	if !TenantMatch(member, tenantA) {
		t.Error("member must match own tenant")
	}
	if TenantMatch(member, tenantB) {
		t.Error("member must not match foreign tenant")
	}

	superAdmin := identityFor(model.RoleSuperAdmin, nil)
	if !TenantMatch(superAdmin, tenantA) || !TenantMatch(superAdmin, tenantB) {
		t.Error("super_admin must match every tenant")
	}

	// A tenant-less caller that is not super_admin matches nothing.
	orphan := identityFor(model.RoleUser, nil)
	if TenantMatch(orphan, tenantA) {
		t.Error("tenant-less non-super_admin must never match")
	}
}

func TestRoleAllowed(t *testing.T) {
	admin := identityFor(model.RoleTenantAdmin, nil)
	if !RoleAllowed(admin, model.RoleTenantAdmin) {
		t.Error("exact role must be allowed")
	}
	if RoleAllowed(admin, model.RoleSuperAdmin) {
		t.Error("other role must not be allowed")
	}
	if !RoleAllowed(admin, model.RoleSuperAdmin, model.RoleTenantAdmin) {
		t.Error("role in a multi-role set must be allowed")
	}
	if RoleAllowed(admin) {
		t.Error("empty role set must deny")
	}
}

func TestCanMutateProject(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	creator := identityFor(model.RoleUser, &tenantA)

	if !CanMutateProject(creator, tenantA, creator.UserID) {
		t.Error("creator must mutate own project")
	}
	if CanMutateProject(creator, tenantA, uuid.New()) {
		t.Error("plain user must not mutate another user's project")
	}

	admin := identityFor(model.RoleTenantAdmin, &tenantA)
	if !CanMutateProject(admin, tenantA, uuid.New()) {
		t.Error("tenant_admin must mutate any project in tenant")
	}
	if CanMutateProject(admin, tenantB, uuid.New()) {
		t.Error("tenant_admin must not mutate a foreign tenant's project")
	}

	// super_admin passes the tenant check but holds neither qualifying role.
	superAdmin := identityFor(model.RoleSuperAdmin, nil)
	if CanMutateProject(superAdmin, tenantA, uuid.New()) {
		t.Error("super_admin must not mutate tenant projects")
	}
}

func TestCanEditUserFields(t *testing.T) {
	tenantA := uuid.New()
	self := identityFor(model.RoleUser, &tenantA)

	if !CanEditUserFullName(self, self.UserID) {
		t.Error("user must edit own fullName")
	}
	if CanEditUserFullName(self, uuid.New()) {
		t.Error("user must not edit another user's fullName")
	}
	if CanEditUserRoleOrActive(self) {
		t.Error("plain user must not edit role or isActive")
	}

	admin := identityFor(model.RoleTenantAdmin, &tenantA)
	if !CanEditUserFullName(admin, uuid.New()) {
		t.Error("tenant_admin must edit any user's fullName")
	}
	if !CanEditUserRoleOrActive(admin) {
		t.Error("tenant_admin must edit role and isActive")
	}
}

func TestCanUpdateTenant(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	superAdmin := identityFor(model.RoleSuperAdmin, nil)
	full := TenantUpdate{Name: true, Status: true, SubscriptionPlan: true, MaxUsers: true, MaxProjects: true}
	if !CanUpdateTenant(superAdmin, tenantA, full) {
		t.Error("super_admin must update every field of any tenant")
	}

	admin := identityFor(model.RoleTenantAdmin, &tenantA)
	if !CanUpdateTenant(admin, tenantA, TenantUpdate{Name: true}) {
		t.Error("tenant_admin must rename own tenant")
	}
	if CanUpdateTenant(admin, tenantB, TenantUpdate{Name: true}) {
		t.Error("tenant_admin must not rename a foreign tenant")
	}

	// Mixing name with a privileged field is rejected wholesale.
	mixed := TenantUpdate{Name: true, SubscriptionPlan: true}
	if CanUpdateTenant(admin, tenantA, mixed) {
		t.Error("tenant_admin request touching a privileged field must be rejected")
	}
	for _, update := range []TenantUpdate{
		{Status: true},
		{SubscriptionPlan: true},
		{MaxUsers: true},
		{MaxProjects: true},
	} {
		if CanUpdateTenant(admin, tenantA, update) {
			t.Errorf("tenant_admin must not update privileged fields: %+v", update)
		}
	}

	user := identityFor(model.RoleUser, &tenantA)
	if CanUpdateTenant(user, tenantA, TenantUpdate{Name: true}) {
		t.Error("plain user must not update tenant")
	}
}
