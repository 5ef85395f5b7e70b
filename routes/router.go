package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bazaarche/bazaarche/config"
	"github.com/bazaarche/bazaarche/controllers"
	"github.com/bazaarche/bazaarche/middleware"
	"github.com/bazaarche/bazaarche/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Record listing detail views after each request
	r.Use(middleware.ListingViewRecorder(db))

	r.Static("/uploads", "./"+cfg.UploadDir)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	listingController := controllers.NewListingController(db)
	storeController := controllers.NewStoreController(db)
	messageController := controllers.NewMessageController(db)
	ratingController := controllers.NewRatingController(db)
	followController := controllers.NewFollowController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public browse/read surfaces
	api.GET("/listings", listingController.ListListings)
	api.GET("/listings/:id", listingController.GetListing)
	api.GET("/listings/:id/stats", statsController.GetListingStats)
	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/users/:id/listings", listingController.ListUserListings)
	api.GET("/users/:id/ratings", ratingController.ListUserRatings)
	api.GET("/stores/:id", storeController.GetStore)
	api.GET("/stores/:id/listings", storeController.ListStoreListings)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/listings", listingController.CreateListing)
	protected.PUT("/listings/:id", listingController.UpdateListing)
	protected.DELETE("/listings/:id", listingController.DeleteListing)
	protected.GET("/users/me/listings", listingController.ListMyListings)
	protected.POST("/users/:id/ratings", ratingController.RateUser)
	protected.POST("/stores", storeController.CreateStore)
	protected.GET("/stores/me", storeController.MyStore)
	protected.PUT("/stores/me", storeController.UpdateStore)
	protected.POST("/stores/:id/follow", followController.FollowStore)
	protected.DELETE("/stores/:id/follow", followController.UnfollowStore)
	protected.GET("/stores/following", followController.ListFollowing)
	protected.POST("/listings/:id/messages", messageController.SendMessage)
	protected.GET("/listings/:id/messages/:buyerId", messageController.ListThread)
	protected.GET("/messages/conversations", messageController.ListConversations)
	protected.GET("/messages/unread", messageController.UnreadCount)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/uploads/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "upload not found"})
			return
		}
		ctx.Status(http.StatusNotFound)
	})

	return r
}
