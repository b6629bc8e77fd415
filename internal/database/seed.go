package database

import (
	"fmt"

	"useradmin/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Seed 空库时写入演示租户、用户和申请记录，已有数据则跳过
func Seed(db *gorm.DB, log *logrus.Logger) error {
	log.Info("Starting seed data initialization...")

	err := db.Transaction(func(tx *gorm.DB) error {
		// 1. 默认租户
		if err := seedTenants(tx, log); err != nil {
			return fmt.Errorf("创建默认租户失败: %w", err)
		}

		// 2. 演示用户及其申请记录
		if err := seedUsers(tx, log); err != nil {
			return fmt.Errorf("创建演示用户失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Seed data initialization completed successfully")
	return nil
}

func seedTenants(tx *gorm.DB, log *logrus.Logger) error {
	var count int64
	if err := tx.Model(&models.Tenant{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("租户已存在，跳过创建")
		return nil
	}

	tenants := []models.Tenant{
		{Name: "租户A", UpdateCycle: 30},
		{Name: "租户B", UpdateCycle: 15},
	}
	return tx.Create(&tenants).Error
}

func seedUsers(tx *gorm.DB, log *logrus.Logger) error {
	var count int64
	if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("用户已存在，跳过创建")
		return nil
	}

	users := []*models.User{
		{
			Name: "管理员", Email: "admin@example.com", Tenant: "租户A",
			Department: "管理部", Project: "系统管理", Role: "系统管理员",
			UserType: models.UserTypeSuperAdmin,
		},
		{
			Name: "项目管理", Email: "project@example.com", Tenant: "租户A",
			Department: "研发部", Project: "项目1", Role: "项目管理员",
			UserType: models.UserTypeProjectAdmin, TabsAccepted: 5, PremiumRequestsUsed: 2,
		},
		{
			Name: "张三", Email: "zhangsan@example.com", Tenant: "租户A",
			Department: "研发部", Project: "项目1", Role: "开发工程师",
			UserType: models.UserTypeRegular, TabsAccepted: 10, PremiumRequestsUsed: 5,
		},
		{
			Name: "李四", Email: "lisi@example.com", Tenant: "租户B",
			Department: "产品部", Project: "项目2", Role: "产品经理",
			UserType: models.UserTypeRegular, TabsAccepted: 8, PremiumRequestsUsed: 3,
		},
	}
	if err := tx.Create(&users).Error; err != nil {
		return err
	}

	today := models.Today()
	applications := []models.Application{
		{
			ApplicationDate: today,
			TargetProduct:   models.TargetProductC,
			Status:          models.ApplicationStatusCompleted,
			UserID:          users[2].ID,
		},
		{
			ApplicationDate: today,
			TargetProduct:   models.TargetProductW,
			Status:          models.ApplicationStatusPending,
			UserID:          users[3].ID,
		},
	}
	if err := tx.Create(&applications).Error; err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"users":        len(users),
		"applications": len(applications),
	}).Info("演示数据已创建")
	return nil
}
