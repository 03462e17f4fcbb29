package routes

import (
	"github.com/gin-gonic/gin"

	"profeamigo/controllers"
)

func SetupRevisionRoutes(router *gin.RouterGroup, revision *controllers.RevisionController) {
	router.POST("/check", revision.Check)
	router.POST("/analyze-text", revision.AnalyzeText)
	router.POST("/generate-exercises", revision.GenerateExercises)
	router.POST("/ocr", revision.OCR)
}
