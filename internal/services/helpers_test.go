package services

import (
	"io"
	"path/filepath"
	"testing"

	"useradmin/internal/authz"
	"useradmin/internal/database"
	"useradmin/internal/models"
	"useradmin/pkg/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	policy  *authz.Policy
	users   *UserService
	tenants *TenantService
	apps    *ApplicationService
	imports *ImportService

	superAdmin   *models.User
	projectAdmin *models.User
	regular1     *models.User
	regular2     *models.User
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	log := quietLogger()
	db, err := database.Connect(config.DatabaseConfig{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, log))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newFixture(t *testing.T, policyCfg config.PolicyConfig) *fixture {
	t.Helper()
	db := newTestDB(t)
	policy := authz.NewPolicy(policyCfg)
	users := NewUserService(db, policy)
	apps := NewApplicationService(db, policy, users)

	f := &fixture{
		db:      db,
		policy:  policy,
		users:   users,
		tenants: NewTenantService(db, policy, policyCfg.TenantRenameCascade),
		apps:    apps,
		imports: NewImportService(policy, apps),
	}

	require.NoError(t, db.Create(&[]models.Tenant{
		{Name: "租户A", UpdateCycle: 30},
		{Name: "租户B", UpdateCycle: 15},
	}).Error)

	f.superAdmin = insertUser(t, db, "管理员", "admin@example.com", "租户A", "系统管理", models.UserTypeSuperAdmin)
	f.projectAdmin = insertUser(t, db, "项目管理", "project@example.com", "租户A", "项目1", models.UserTypeProjectAdmin)
	f.regular1 = insertUser(t, db, "张三", "zhangsan@example.com", "租户A", "项目1", models.UserTypeRegular)
	f.regular2 = insertUser(t, db, "李四", "lisi@example.com", "租户B", "项目2", models.UserTypeRegular)
	return f
}

func insertUser(t *testing.T, db *gorm.DB, name, email, tenant, project string, typ models.UserType) *models.User {
	t.Helper()
	u := &models.User{
		Name:       name,
		Email:      email,
		Tenant:     tenant,
		Department: "研发部",
		Project:    project,
		Role:       "工程师",
		UserType:   typ,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func insertApplication(t *testing.T, db *gorm.DB, date string, userID uint) *models.Application {
	t.Helper()
	d, err := models.ParseDate(date)
	require.NoError(t, err)
	app := &models.Application{
		ApplicationDate: d,
		TargetProduct:   models.TargetProductC,
		Status:          models.ApplicationStatusPending,
		UserID:          userID,
	}
	require.NoError(t, db.Create(app).Error)
	return app
}

func ids(users []*models.User) []uint {
	out := make([]uint, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}
