// File: /routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"net/http"
	"reliefhub-api/config"
	"reliefhub-api/controllers"
	"reliefhub-api/middleware"
	"reliefhub-api/services"
	"reliefhub-api/utils"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Config        *config.Config
	Tokens        *services.TokenManager
	Auth          *services.AuthService
	Posts         *services.PostService
	Donations     *services.DonationService
	Moderation    *services.ModerationService
	DonorStats    *services.DonorStatsService
	Notifications *services.NotificationService

	// UploadsDir is served at UploadsPath when images are kept on local disk.
	UploadsDir  string
	UploadsPath string
}

// NewRouter builds the engine with the global middleware and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		utils.RegisterCustomValidations(v)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.Config.Server.CorsOrigins))
	r.Use(middleware.ValidateJSON())

	if deps.UploadsDir != "" && deps.UploadsPath != "" {
		r.Static(deps.UploadsPath, deps.UploadsDir)
	}

	SetupRoutes(r, deps)
	return r
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	// Controllers
	authController := controllers.NewAuthController(deps.Auth)
	postController := controllers.NewPostController(deps.Posts)
	donationController := controllers.NewDonationController(deps.Donations)
	flagController := controllers.NewFlagController(deps.Moderation)
	donorController := controllers.NewDonorController(deps.DonorStats)
	notificationController := controllers.NewNotificationController(deps.Notifications)
	adminController := controllers.NewAdminController(deps.Posts, deps.Moderation)

	requireAuth := middleware.AuthMiddleware(deps.Tokens)
	optionalAuth := middleware.OptionalAuth(deps.Tokens)
	publicWrite := middleware.RateLimit(deps.Config.Server.RateLimitPerMinute, deps.Config.Server.RateLimitBurst)

	// API version 1
	v1 := r.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Auth routes
	auth := v1.Group("/auth")
	{
		auth.POST("/register", publicWrite, authController.Register)
		auth.POST("/login", publicWrite, authController.Login)
		auth.GET("/me", requireAuth, authController.Me)
	}

	// Need posts: anonymous callers manage posts with the edit PIN
	posts := v1.Group("/posts")
	posts.Use(optionalAuth)
	{
		posts.GET("", postController.GetPosts)
		posts.POST("", publicWrite, postController.CreatePost)
		posts.GET("/:id", postController.GetPost)
		posts.PUT("/:id", postController.UpdatePost)
		posts.DELETE("/:id", postController.DeletePost)
		posts.POST("/:id/images", publicWrite, postController.UploadImage)
		posts.GET("/:id/donations", donationController.GetPostDonations)
		posts.POST("/:id/donations", publicWrite, donationController.CreateDonation)
		posts.POST("/:id/flags", publicWrite, flagController.FlagPost)
	}

	donations := v1.Group("/donations")
	donations.Use(optionalAuth)
	{
		donations.POST("/:id/confirm-receipt", donationController.ConfirmReceipt)
	}

	donors := v1.Group("/donors")
	{
		donors.GET("/leaderboard", donorController.GetLeaderboard)
		donors.GET("/me", requireAuth, donorController.GetMyProfile)
		donors.GET("/me/donations", requireAuth, donationController.GetMyDonations)
	}

	notifications := v1.Group("/notifications")
	notifications.Use(requireAuth)
	{
		notifications.GET("", notificationController.GetNotifications)
		notifications.GET("/stats", notificationController.GetNotificationStats)
		notifications.PUT("/read-all", notificationController.MarkAllAsRead)
		notifications.PUT("/:id/read", notificationController.MarkAsRead)
	}

	admin := v1.Group("/admin")
	admin.Use(requireAuth, middleware.AdminOnly())
	{
		admin.GET("/posts", adminController.GetPosts)
		admin.PATCH("/posts/:id", adminController.UpdatePost)
		admin.DELETE("/posts/:id", adminController.DeletePost)
		admin.POST("/posts/:id/resolve-flags", adminController.ResolveFlags)
		admin.GET("/flags", adminController.GetFlags)
		admin.POST("/flags/:id/approve", adminController.ApproveFlag)
		admin.POST("/flags/:id/dismiss", adminController.DismissFlag)
		admin.GET("/summary", adminController.GetSummary)
	}
}
