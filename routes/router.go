package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"profeamigo/controllers"
	"profeamigo/middlewares"
)

type Handlers struct {
	Auth      *controllers.AuthController
	Revision  *controllers.RevisionController
	Profile   *controllers.ProfileController
	WebSocket gin.HandlerFunc
}

type RouterConfig struct {
	CORSOrigins []string
	Logger      *zap.Logger
}

func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()
	if cfg.Logger != nil {
		router.Use(middlewares.RequestLogger(cfg.Logger))
	}
	router.Use(gin.Recovery())

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if h.WebSocket != nil {
		router.GET("/ws", h.WebSocket)
	}

	api := router.Group("/api")
	SetupAuthRoutes(api, h.Auth)
	SetupRevisionRoutes(api, h.Revision)

	auth := api.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	SetupProfileRoutes(auth, h.Profile)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No encontrado."})
	})
	return router
}
