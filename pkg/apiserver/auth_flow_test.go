package apiserver

import (
	"net/http"
	"testing"
)

func TestRegisterTenantAndLogin(t *testing.T) {
	env := newTestEnv(t)

	token, tenantID := env.seedTenant(t, "Acme", "acme", "admin@acme.test")
	if tenantID == "" {
		t.Fatal("expected a tenant id")
	}

	recorder := env.do(http.MethodGet, "/api/auth/me", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("me: expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var me struct {
		Email  string `json:"email"`
		Role   string `json:"role"`
		Tenant struct {
			Subdomain        string `json:"subdomain"`
			SubscriptionPlan string `json:"subscriptionPlan"`
			MaxUsers         int    `json:"maxUsers"`
			MaxProjects      int    `json:"maxProjects"`
		} `json:"tenant"`
	}
	dataField(t, decode(t, recorder), &me)

	if me.Email != "admin@acme.test" || me.Role != "tenant_admin" {
		t.Fatalf("unexpected profile: %+v", me)
	}
	if me.Tenant.Subdomain != "acme" || me.Tenant.SubscriptionPlan != "free" {
		t.Fatalf("unexpected tenant block: %+v", me.Tenant)
	}
	// New tenants land on the free tier ceilings.
	if me.Tenant.MaxUsers != 5 || me.Tenant.MaxProjects != 3 {
		t.Fatalf("unexpected free quotas: %+v", me.Tenant)
	}
}

func TestRegisterTenantDuplicateSubdomain(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant(t, "Acme", "acme", "admin@acme.test")

	recorder := env.do(http.MethodPost, "/api/auth/register-tenant", "", map[string]string{
		"tenantName":    "Acme Clone",
		"subdomain":     "acme",
		"adminEmail":    "other@acme.test",
		"adminPassword": "password",
		"adminFullName": "Other Admin",
	})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, recorder.Code)
	}
	if got := decode(t, recorder).Message; got != "Subdomain already exists" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestRegisterTenantValidation(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(http.MethodPost, "/api/auth/register-tenant", "", map[string]string{
		"tenantName": "No Admin",
		"subdomain":  "no-admin",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestLoginByTenantID(t *testing.T) {
	env := newTestEnv(t)
	_, tenantID := env.seedTenant(t, "Acme", "acme", "admin@acme.test")

	env.login(t, map[string]string{
		"email":    "admin@acme.test",
		"password": "admin-password",
		"tenantId": tenantID,
	})
}

func TestLoginRequiresExactlyOneTenantSelector(t *testing.T) {
	env := newTestEnv(t)
	_, tenantID := env.seedTenant(t, "Acme", "acme", "admin@acme.test")

	// Neither selector.
	recorder := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "admin@acme.test",
		"password": "admin-password",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("no selector: expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	if got := decode(t, recorder).Message; got != "Tenant identifier required" {
		t.Fatalf("unexpected message %q", got)
	}

	// Both selectors.
	recorder = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":           "admin@acme.test",
		"password":        "admin-password",
		"tenantSubdomain": "acme",
		"tenantId":        tenantID,
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("both selectors: expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant(t, "Acme", "acme", "admin@acme.test")

	recorder := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":           "admin@acme.test",
		"password":        "wrong",
		"tenantSubdomain": "acme",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
	if got := decode(t, recorder).Message; got != "Invalid credentials" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant(t, "Acme", "acme", "admin@acme.test")

	recorder := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":           "ghost@acme.test",
		"password":        "whatever",
		"tenantSubdomain": "acme",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

func TestLoginUnknownTenant(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":           "someone@nowhere.test",
		"password":        "whatever",
		"tenantSubdomain": "nowhere",
	})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
	if got := decode(t, recorder).Message; got != "Tenant not found" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestLoginSuspendedTenant(t *testing.T) {
	env := newTestEnv(t)
	_, tenantID := env.seedTenant(t, "Acme", "acme", "admin@acme.test")

	superToken := env.seedSuperAdmin(t, "root@platform.test")

	recorder := env.do(http.MethodPut, "/api/tenants/"+tenantID, superToken, map[string]string{
		"status": "suspended",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("suspend: expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}

	recorder = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":           "admin@acme.test",
		"password":        "admin-password",
		"tenantSubdomain": "acme",
	})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, recorder.Code)
	}
	if got := decode(t, recorder).Message; got != "Account suspended/inactive" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestSuperAdminLoginNeedsNoSelector(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedSuperAdmin(t, "root@platform.test")

	recorder := env.do(http.MethodGet, "/api/auth/me", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("me: expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var me struct {
		Role   string      `json:"role"`
		Tenant interface{} `json:"tenant"`
	}
	dataField(t, decode(t, recorder), &me)
	if me.Role != "super_admin" {
		t.Fatalf("expected super_admin, got %q", me.Role)
	}
	if me.Tenant != nil {
		t.Fatalf("super admin must have no tenant block, got %v", me.Tenant)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.seedTenant(t, "Acme", "acme", "admin@acme.test")

	recorder := env.do(http.MethodPost, "/api/auth/logout", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if got := decode(t, recorder).Message; got != "Logged out successfully" {
		t.Fatalf("unexpected message %q", got)
	}
}
