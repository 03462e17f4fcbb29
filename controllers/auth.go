package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"profeamigo/db"
	"profeamigo/services"
	"profeamigo/structs"
)

type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

func (a *AuthController) Register(ctx *gin.Context) {
	var request structs.RegisterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": []string{invalidData}})
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), request)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": verr.Messages})
		return
	case errors.Is(err, db.ErrUsernameTaken):
		ctx.JSON(http.StatusConflict, gin.H{"success": false, "message": "Este nombre de usuario ya está en uso. Prueba con otro."})
		return
	case err != nil:
		zap.S().Errorf("auth: register %q: %v", request.Username, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Hubo un problema al crear la cuenta."})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "¡Cuenta creada! Ahora puedes iniciar sesión.",
		"userId":  user.ID,
	})
}

func (a *AuthController) Login(ctx *gin.Context) {
	var request structs.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": []string{invalidData}})
		return
	}

	token, user, err := a.users.Login(ctx.Request.Context(), request)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": verr.Messages})
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		ctx.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Usuario o contraseña incorrectos."})
		return
	case err != nil:
		zap.S().Errorf("auth: login %q: %v", request.Username, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Hubo un problema al iniciar sesión."})
		return
	}

	ctx.JSON(http.StatusOK, structs.LoginResponse{
		Success: true,
		Message: "¡Bienvenido/a!",
		Token:   token,
		User: structs.UserInfo{
			ID:          strconv.FormatUint(user.ID, 10),
			Username:    user.Username,
			DisplayName: user.Name(),
		},
	})
}
