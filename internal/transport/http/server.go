package http

import (
	"github.com/gin-gonic/gin"

	"lexhub/internal/bootstrap"
	"lexhub/internal/transport/http/handler"
	"lexhub/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.AuthService)
	docHandler := handler.NewDocumentHandler(app.DocumentService, app.QAService)
	firmHandler := handler.NewFirmHandler(app.FirmService)
	tplHandler := handler.NewTemplateHandler(app.TemplateService)
	qaHandler := handler.NewQAHandler(app.QAService)
	subHandler := handler.NewSubscriptionHandler(app.SubscriptionService)

	authJWT := middleware.AuthJWT(app.Config.Auth.JWTSecret)
	limit := func(class string) gin.HandlerFunc {
		return middleware.RateLimit(app.RateLimiter, class)
	}

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", limit("auth"), authHandler.Register)
	authGroup.POST("/login", limit("auth"), authHandler.Login)
	authGroup.GET("/me", authJWT, authHandler.Me)
	authGroup.POST("/2fa/setup", authJWT, authHandler.Setup2FA)
	authGroup.POST("/2fa/confirm", authJWT, authHandler.Confirm2FA)
	authGroup.POST("/2fa/disable", authJWT, authHandler.Disable2FA)

	docGroup := v1.Group("/documents")
	docGroup.Use(authJWT)
	docGroup.POST("", limit("upload"), docHandler.Upload)
	docGroup.GET("", docHandler.List)
	docGroup.GET("/:id", docHandler.Get)
	docGroup.DELETE("/:id", docHandler.Delete)
	docGroup.POST("/:id/ask", limit("ask"), docHandler.Ask)

	firmGroup := v1.Group("/firms")
	firmGroup.GET("", limit("directory"), firmHandler.Search)
	firmGroup.GET("/:id", firmHandler.Profile)
	firmGroup.POST("", authJWT, firmHandler.Register)
	firmGroup.POST("/:id/ratings", authJWT, firmHandler.Rate)

	tplGroup := v1.Group("/templates")
	tplGroup.GET("", tplHandler.List)
	tplGroup.GET("/:id", tplHandler.Get)
	tplGroup.POST("", authJWT, tplHandler.Publish)
	tplGroup.POST("/:id/purchase", authJWT, tplHandler.Purchase)
	tplGroup.GET("/:id/download", authJWT, tplHandler.Download)
	tplGroup.GET("/purchases", authJWT, tplHandler.ListPurchases)

	qaGroup := v1.Group("/questions")
	qaGroup.GET("", qaHandler.ListQuestions)
	qaGroup.GET("/:id", qaHandler.GetThread)
	qaGroup.POST("", authJWT, limit("community"), qaHandler.PostQuestion)
	qaGroup.POST("/:id/answers", authJWT, limit("community"), qaHandler.PostAnswer)
	qaGroup.POST("/:id/accept", authJWT, qaHandler.AcceptAnswer)

	subGroup := v1.Group("/subscription")
	subGroup.GET("/plans", subHandler.Plans)
	subGroup.GET("", authJWT, subHandler.Status)
	subGroup.POST("", authJWT, subHandler.Subscribe)
	subGroup.DELETE("", authJWT, subHandler.Cancel)

	return router
}
