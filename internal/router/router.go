package router

import (
	"useradmin/internal/authz"
	"useradmin/internal/handlers"
	"useradmin/internal/middleware"
	"useradmin/internal/services"
	"useradmin/pkg/config"
	"useradmin/pkg/metrics"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps 路由依赖，由 main 组装
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Metrics *metrics.Metrics // nil 时不暴露 /metrics
}

// SetupRouter 设置路由
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS(deps.Config.CORS))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	registerRoutes(router, deps)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, deps Deps) {
	policy := authz.NewPolicy(deps.Config.Policy)
	userService := services.NewUserService(deps.DB, policy)
	tenantService := services.NewTenantService(deps.DB, policy, deps.Config.Policy.TenantRenameCascade)
	applicationService := services.NewApplicationService(deps.DB, policy, userService)
	importService := services.NewImportService(policy, applicationService)

	healthHandler := handlers.NewHealthHandler(deps.DB)
	router.GET("/healthz", healthHandler.Liveness)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/api/v1")
	api.GET("/health", healthHandler.Health)

	// 以下接口按 user-id 请求头识别调用方
	api.Use(middleware.Identity(userService))
	{
		userHandler := handlers.NewUserHandler(userService)
		users := api.Group("/users")
		{
			users.GET("", userHandler.GetAll)
			users.POST("", userHandler.Create)
			users.GET("/:id", userHandler.GetByID)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}

		tenantHandler := handlers.NewTenantHandler(tenantService)
		tenants := api.Group("/tenants")
		{
			tenants.GET("", tenantHandler.GetAll)
			tenants.POST("", tenantHandler.Create)
			tenants.GET("/:id", tenantHandler.GetByID)
			tenants.PUT("/:id", tenantHandler.Update)
			tenants.DELETE("/:id", tenantHandler.Delete)
		}

		applicationHandler := handlers.NewApplicationHandler(applicationService, importService, deps.Metrics, deps.Config.Import.MaxUploadMB)
		applications := api.Group("/applications")
		{
			applications.GET("", applicationHandler.GetAll)
			applications.POST("", applicationHandler.Create)
			applications.POST("/import", applicationHandler.Import)
			applications.GET("/template", applicationHandler.Template)
			applications.GET("/:id", applicationHandler.GetByID)
			applications.PUT("/:id", applicationHandler.Update)
			applications.DELETE("/:id", applicationHandler.Delete)
		}
	}
}
