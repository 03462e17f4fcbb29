package routes

import (
	"github.com/gin-gonic/gin"

	"profeamigo/controllers"
)

func SetupAuthRoutes(router *gin.RouterGroup, auth *controllers.AuthController) {
	group := router.Group("/auth")
	{
		group.POST("/register", auth.Register)
		group.POST("/login", auth.Login)
	}
}
