package routes

import (
	"github.com/gin-gonic/gin"

	"profeamigo/controllers"
)

// SetupProfileRoutes expects router to carry the auth middleware.
func SetupProfileRoutes(router *gin.RouterGroup, profile *controllers.ProfileController) {
	router.GET("/profile", profile.GetProfile)
	router.GET("/history", profile.GetHistory)
}
