package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"profeamigo/internal/stream"
	"profeamigo/middlewares"
	"profeamigo/services"
)

const maxHistory = 100

// HistoryReader returns the newest recorded cycles of a user.
type HistoryReader interface {
	Recent(ctx context.Context, userID string, n int64) ([]stream.HistoryEntry, error)
}

type ProfileController struct {
	profiles *services.ProfileService
	history  HistoryReader
}

// NewProfileController accepts a nil history when Redis is not configured.
func NewProfileController(profiles *services.ProfileService, history HistoryReader) *ProfileController {
	return &ProfileController{profiles: profiles, history: history}
}

// GetProfile returns the caller's skill profile and the progress panel markup.
func (p *ProfileController) GetProfile(ctx *gin.Context) {
	userID := ctx.GetString(middlewares.ContextUserID)
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	profile, err := p.profiles.Get(dbCtx, userID)
	if err != nil {
		zap.S().Errorf("profile: load %s: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "No se pudo cargar tu progreso."})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "profile": profile, "html": services.RenderProfile(profile)})
}

// GetHistory returns the caller's recent check cycles, newest first.
func (p *ProfileController) GetHistory(ctx *gin.Context) {
	userID := ctx.GetString(middlewares.ContextUserID)
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	limit := int64(stream.DefaultRecent)
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": invalidData})
			return
		}
		limit = min(n, maxHistory)
	}

	if p.history == nil {
		ctx.JSON(http.StatusOK, gin.H{"success": true, "enabled": false, "history": []stream.HistoryEntry{}})
		return
	}

	entries, err := p.history.Recent(ctx.Request.Context(), userID, limit)
	if err != nil {
		zap.S().Errorf("history: read %s: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "No se pudo cargar tu historial."})
		return
	}
	if entries == nil {
		entries = []stream.HistoryEntry{}
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "enabled": true, "history": entries})
}
