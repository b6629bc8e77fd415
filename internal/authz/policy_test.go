package authz

import (
	"testing"

	"useradmin/internal/models"
	"useradmin/pkg/config"
	"useradmin/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id uint, typ models.UserType, project, tenant string) *models.User {
	u := &models.User{
		Name:     "user",
		Email:    "user@example.com",
		Tenant:   tenant,
		Project:  project,
		UserType: typ,
	}
	u.ID = id
	return u
}

// 演示数据同构的一组用户
func fixtureUsers() []*models.User {
	return []*models.User{
		newUser(1, models.UserTypeSuperAdmin, "系统管理", "租户A"),
		newUser(2, models.UserTypeProjectAdmin, "项目1", "租户A"),
		newUser(3, models.UserTypeRegular, "项目1", "租户A"),
		newUser(4, models.UserTypeRegular, "项目2", "租户B"),
		newUser(5, models.UserTypeProjectAdmin, "项目2", "租户B"),
		newUser(6, models.UserTypeSuperAdmin, "项目2", "租户B"),
	}
}

func visible(p *Policy, c Caller) []uint {
	var ids []uint
	scope := p.UserScope(c)
	for _, u := range fixtureUsers() {
		if scope.Allows(u) {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func TestUserScope_Anonymous(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})

	for _, u := range fixtureUsers() {
		allowed := p.UserScope(Anonymous()).Allows(u)
		assert.Equal(t, u.IsRegular(), allowed, "user %d", u.ID)
	}
	assert.Equal(t, []uint{3, 4}, visible(p, Anonymous()))
}

func TestUserScope_SuperAdminSeesAll(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	caller := AsUser(fixtureUsers()[0])

	assert.Equal(t, []uint{1, 2, 3, 4, 5, 6}, visible(p, caller))
}

func TestUserScope_ProjectAdmin(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()

	for _, admin := range []*models.User{users[1], users[4]} {
		caller := AsUser(admin)
		for _, u := range users {
			want := u.Project == admin.Project || u.IsSuperAdmin()
			assert.Equal(t, want, p.UserScope(caller).Allows(u), "admin %d user %d", admin.ID, u.ID)
		}
	}
	assert.Equal(t, []uint{1, 2, 3, 6}, visible(p, AsUser(users[1])))
	assert.Equal(t, []uint{1, 4, 5, 6}, visible(p, AsUser(users[4])))
}

func TestUserScope_RegularSeesSelf(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()

	assert.Equal(t, []uint{3}, visible(p, AsUser(users[2])))
	assert.Equal(t, []uint{4}, visible(p, AsUser(users[3])))
}

func TestCanReadUser(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()

	tests := []struct {
		name    string
		caller  Caller
		target  *models.User
		allowed bool
	}{
		{"anonymous reads regular", Anonymous(), users[2], true},
		{"anonymous reads project admin", Anonymous(), users[1], false},
		{"anonymous reads super admin", Anonymous(), users[0], false},
		{"project admin reads same project", AsUser(users[1]), users[2], true},
		{"project admin reads other project", AsUser(users[1]), users[3], false},
		{"project admin reads super admin", AsUser(users[1]), users[5], true},
		{"project admin reads other project admin", AsUser(users[1]), users[4], false},
		{"regular reads self", AsUser(users[2]), users[2], true},
		{"regular reads other", AsUser(users[2]), users[3], false},
		{"super admin reads anyone", AsUser(users[0]), users[4], true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.CanReadUser(tt.caller, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.KindForbidden))
		})
	}
}

func TestCanCreateUser(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()

	tests := []struct {
		name   string
		caller Caller
		user   *models.User
		kind   errors.Kind // 空表示允许
	}{
		{"anonymous", Anonymous(), newUser(0, models.UserTypeRegular, "项目1", "租户A"), errors.KindUnauthenticated},
		{"regular", AsUser(users[2]), newUser(0, models.UserTypeRegular, "项目1", "租户A"), errors.KindForbidden},
		{"project admin same project", AsUser(users[1]), newUser(0, models.UserTypeRegular, "项目1", "租户A"), ""},
		{"project admin other project", AsUser(users[1]), newUser(0, models.UserTypeRegular, "项目2", "租户A"), errors.KindForbidden},
		{"project admin creates admin", AsUser(users[1]), newUser(0, models.UserTypeProjectAdmin, "项目1", "租户A"), errors.KindForbidden},
		{"super admin creates admin", AsUser(users[0]), newUser(0, models.UserTypeSuperAdmin, "项目9", "租户B"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.CanCreateUser(tt.caller, tt.user)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestCanUpdateUser(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()

	promote := *users[2]
	promote.UserType = models.UserTypeProjectAdmin

	rename := *users[2]
	rename.Name = "renamed"

	err := p.CanUpdateUser(Anonymous(), users[2], &rename)
	assert.True(t, errors.Is(err, errors.KindUnauthenticated))

	err = p.CanUpdateUser(AsUser(users[3]), users[2], &rename)
	assert.True(t, errors.Is(err, errors.KindForbidden))

	assert.NoError(t, p.CanUpdateUser(AsUser(users[1]), users[2], &rename))

	err = p.CanUpdateUser(AsUser(users[1]), users[2], &promote)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "change user types")

	err = p.CanUpdateUser(AsUser(users[1]), users[3], users[3])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "own project")

	err = p.CanUpdateUser(AsUser(users[1]), users[0], users[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update admin users")

	assert.NoError(t, p.CanUpdateUser(AsUser(users[0]), users[2], &promote))
}

func TestCanManageUsers(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()

	assert.True(t, errors.Is(p.CanManageUsers(Anonymous()), errors.KindUnauthenticated))
	assert.True(t, errors.Is(p.CanManageUsers(AsUser(users[2])), errors.KindForbidden))
	assert.NoError(t, p.CanManageUsers(AsUser(users[1])))
	assert.NoError(t, p.CanManageUsers(AsUser(users[0])))
}

func TestCanDeleteUser(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()

	assert.True(t, errors.Is(p.CanDeleteUser(Anonymous(), users[2]), errors.KindUnauthenticated))
	assert.True(t, errors.Is(p.CanDeleteUser(AsUser(users[2]), users[3]), errors.KindForbidden))
	assert.NoError(t, p.CanDeleteUser(AsUser(users[1]), users[2]))
	assert.True(t, errors.Is(p.CanDeleteUser(AsUser(users[1]), users[3]), errors.KindForbidden))
	assert.True(t, errors.Is(p.CanDeleteUser(AsUser(users[1]), users[4]), errors.KindForbidden))
	assert.NoError(t, p.CanDeleteUser(AsUser(users[0]), users[4]))
}

func TestTenantScope(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()
	tenantA := &models.Tenant{Name: "租户A"}
	tenantB := &models.Tenant{Name: "租户B"}

	assert.Equal(t, TenantScopeNone, p.TenantScope(Anonymous()).Kind)
	assert.False(t, p.TenantScope(Anonymous()).Allows(tenantA))

	assert.True(t, p.TenantScope(AsUser(users[0])).Allows(tenantB))

	scope := p.TenantScope(AsUser(users[2]))
	assert.Equal(t, TenantScopeNamed, scope.Kind)
	assert.True(t, scope.Allows(tenantA))
	assert.False(t, scope.Allows(tenantB))
}

func TestCanReadTenant(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()
	tenantB := &models.Tenant{Name: "租户B"}

	assert.NoError(t, p.CanReadTenant(Anonymous(), tenantB))
	assert.NoError(t, p.CanReadTenant(AsUser(users[0]), tenantB))
	assert.NoError(t, p.CanReadTenant(AsUser(users[3]), tenantB))
	assert.True(t, errors.Is(p.CanReadTenant(AsUser(users[1]), tenantB), errors.KindForbidden))
}

func TestCanManageTenants(t *testing.T) {
	p := NewPolicy(config.PolicyConfig{})
	users := fixtureUsers()

	assert.True(t, errors.Is(p.CanManageTenants(Anonymous()), errors.KindUnauthenticated))
	assert.True(t, errors.Is(p.CanManageTenants(AsUser(users[1])), errors.KindForbidden))
	assert.True(t, errors.Is(p.CanManageTenants(AsUser(users[2])), errors.KindForbidden))
	assert.NoError(t, p.CanManageTenants(AsUser(users[0])))
}

func TestCanAccessApplications(t *testing.T) {
	open := NewPolicy(config.PolicyConfig{})
	assert.NoError(t, open.CanAccessApplications(Anonymous()))

	strict := NewPolicy(config.PolicyConfig{ApplicationsRequireAuth: true})
	assert.True(t, errors.Is(strict.CanAccessApplications(Anonymous()), errors.KindUnauthenticated))
	assert.NoError(t, strict.CanAccessApplications(AsUser(fixtureUsers()[3])))
}
