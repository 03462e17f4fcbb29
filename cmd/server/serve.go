package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"profeamigo/config"
	"profeamigo/controllers"
	"profeamigo/internal/revision"
	"profeamigo/internal/stream"
	"profeamigo/routes"
	"profeamigo/services"
	"profeamigo/websocket"
)

const shutdownTimeout = 10 * time.Second

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := setupJWTSecret(cfg); err != nil {
		return err
	}

	backends, err := connectBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	checker := revision.NewLanguageToolClient(revision.LanguageToolConfig{
		Endpoint:  cfg.LanguageTool.URL,
		Language:  cfg.LanguageTool.Language,
		MinLength: cfg.LanguageTool.MinLength,
		Timeout:   cfg.LanguageToolTimeout(),
	}, nil)

	gemini, err := services.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.ChatModel, cfg.Gemini.OCRModel)
	if err != nil {
		zap.S().Warnf("gemini: %v, image reading disabled", err)
	}
	tutor := services.NewTutor(chatModel(cfg, gemini), cfg.OpenRouter.MaxTokens, cfg.OpenRouter.Temperature)
	var ocr *services.OCR
	if gemini != nil {
		ocr = services.NewOCR(gemini)
	}

	profiles := services.NewProfileService(backends.profiles)
	svc := websocket.Services{
		Checker:        checker,
		Profiles:       profiles,
		Tutor:          tutor,
		Debounce:       cfg.Debounce(),
		AllowedOrigins: cfg.Server.CORSOrigins,
	}
	var history controllers.HistoryReader
	if backends.redis != nil {
		recorder := stream.NewRecorder(backends.redis, cfg.Redis.HistoryMaxLen)
		svc.History = recorder
		history = recorder
	}
	hub := websocket.NewHub(svc)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	}, routes.Handlers{
		Auth:      controllers.NewAuthController(services.NewUserService(backends.users)),
		Revision:  controllers.NewRevisionController(checker, ocr, hub),
		Profile:   controllers.NewProfileController(profiles, history),
		WebSocket: hub.Handler,
	})

	logStartup(cfg, backends, gemini != nil)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	zap.S().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.CloseAll()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
}

// chatModel picks the configured chat provider. A nil model makes the tutor
// answer that the service is not configured.
func chatModel(cfg *config.Config, gemini *services.Gemini) services.ChatModel {
	switch {
	case cfg.Chat.Provider == config.ProviderGemini && gemini != nil:
		return gemini
	case cfg.Chat.Provider == config.ProviderOpenRouter && cfg.OpenRouter.APIKey != "":
		return services.NewOpenRouter(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.Model, cfg.Server.AppURL)
	default:
		zap.S().Warnf("chat: provider %s has no API key, tutoring chat disabled", cfg.Chat.Provider)
		return nil
	}
}

func logStartup(cfg *config.Config, b *backends, vision bool) {
	loaded := func(ok bool) string {
		if ok {
			return "loaded"
		}
		return "NOT LOADED"
	}
	zap.S().Infow("server starting",
		"port", cfg.Server.Port,
		"env", cfg.Server.Env,
		"appUrl", cfg.Server.AppURL,
		"languageTool", cfg.LanguageTool.URL,
		"chatProvider", cfg.Chat.Provider,
		"openRouterKey", loaded(cfg.OpenRouter.APIKey != ""),
		"geminiKey", loaded(vision),
		"history", b.redis != nil,
	)
}
