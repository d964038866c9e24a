package app

import (
	"helpmarket_backend/docs"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/middleware"
	"helpmarket_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	router.Use(middleware.RequestCacheMiddleware())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActiveUserMiddleware(repos.user),
		middleware.ActivityMiddleware(repos.user),
	)
	{
		a.registerResidentRoutes(authGroup, c)

		// 3. 管理员相关接口
		admin := authGroup.Group("/admin")
		admin.Use(middleware.AdminOnly())
		a.registerAdminRoutes(admin, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/users/:id", c.auth.PublicProfile)
		public.GET("/users/:id/reviews", c.review.ListUserReviews)
	}
}

func (a *App) registerResidentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.auth.UpdateProfile)
	rg.PUT("/profile/password", c.auth.ChangePassword)

	rg.GET("/me/requests", c.request.ListMyRequests)
	rg.GET("/me/applications", c.application.ListMyApplications)

	// 求助
	requests := rg.Group("/requests")
	{
		requests.POST("", c.request.CreateRequest)
		requests.GET("", c.request.SearchRequests)
		requests.GET("/:id", c.request.GetRequest)
		requests.PUT("/:id", c.request.UpdateRequest)
		requests.PATCH("/:id/status", c.request.UpdateRequestStatus)

		requests.POST("/:id/applications", c.application.ApplyToRequest)
		requests.GET("/:id/applications", c.application.ListApplications)

		requests.POST("/:id/messages", c.message.SendMessage)
		requests.GET("/:id/messages", c.message.ListMessages)

		requests.POST("/:id/reviews", c.review.CreateReview)
		requests.GET("/:id/reviews", c.review.ListRequestReviews)
		requests.GET("/:id/can-review", c.review.CanReview)

		requests.POST("/:id/reports", c.report.ReportRequest)
	}

	// 申请
	applications := rg.Group("/applications")
	{
		applications.POST("/:id/accept", c.application.AcceptApplication)
		applications.DELETE("/:id", c.application.RemoveApplication)
	}

	rg.POST("/users/:id/reports", c.report.ReportUser)
	// 举报人也可以查看自己提交的举报
	rg.GET("/reports/:id", c.report.GetReport)

	// 通知
	notifications := rg.Group("/notifications")
	{
		notifications.GET("", c.notification.ListNotifications)
		notifications.GET("/unread-count", c.notification.UnreadCount)
		notifications.PATCH("/:id/read", c.notification.MarkRead)
		notifications.POST("/read-all", c.notification.MarkAllRead)
		notifications.DELETE("/:id", c.notification.DeleteNotification)
	}

	rg.POST("/uploads/images", c.upload.UploadImage)

	// 实时推送
	rg.GET("/live/ws", c.live.HandleWS)
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/users", c.user.ListUsers)
	rg.PATCH("/users/:id/active", c.user.SetUserActive)
	rg.PATCH("/users/:id/role", c.user.SetUserRole)

	rg.GET("/reports", c.report.ListReports)
	rg.POST("/reports/:id/resolve", c.report.ResolveReport)
	rg.POST("/reports/:id/dismiss", c.report.DismissReport)
}
