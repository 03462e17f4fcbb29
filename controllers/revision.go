package controllers

import (
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"profeamigo/internal/revision"
	"profeamigo/services"
	"profeamigo/structs"
	"profeamigo/utils"
)

const invalidData = "Datos inválidos."

// StatusNotifier reaches the live session named by a socket id. Unknown ids
// are ignored.
type StatusNotifier interface {
	EmitStatus(socketID, message string, isError bool)
	FeedText(socketID, text string) bool
}

type noopNotifier struct{}

func (noopNotifier) EmitStatus(string, string, bool) {}
func (noopNotifier) FeedText(string, string) bool { return false }

type RevisionController struct {
	checker  revision.Checker
	ocr      *services.OCR
	notifier StatusNotifier

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewRevisionController(checker revision.Checker, ocr *services.OCR, notifier StatusNotifier) *RevisionController {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &RevisionController{
		checker:  checker,
		ocr:      ocr,
		notifier: notifier,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Check runs one cycle outside of a session and returns the rendered view.
func (r *RevisionController) Check(ctx *gin.Context) {
	var request structs.CheckRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Text) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": invalidData})
		return
	}

	res := r.checker.Check(ctx.Request.Context(), request.Text)
	view := revision.BuildView(0, res)
	status := http.StatusOK
	if !res.Succeeded {
		status = http.StatusBadGateway
	}
	ctx.JSON(status, gin.H{"success": res.Succeeded, "view": view, "errors": res.Spans})
}

func (r *RevisionController) AnalyzeText(ctx *gin.Context) {
	var request structs.AnalyzeRequest
	bindErr := ctx.ShouldBindJSON(&request)
	r.notifier.EmitStatus(request.SocketID, "Generando consejos...", false)
	if bindErr != nil || request.Text == "" || request.Errors == nil {
		r.notifier.EmitStatus(request.SocketID, "Error: "+invalidData, true)
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": invalidData})
		return
	}

	analysis := services.Explain(request.Text, *request.Errors)
	r.notifier.EmitStatus(request.SocketID, "Consejos listos.", false)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}

func (r *RevisionController) GenerateExercises(ctx *gin.Context) {
	var request structs.ExercisesRequest
	bindErr := ctx.ShouldBindJSON(&request)
	r.notifier.EmitStatus(request.SocketID, "Generando ejercicios...", false)
	if bindErr != nil || strings.TrimSpace(request.Text) == "" {
		r.notifier.EmitStatus(request.SocketID, "Texto muy corto.", true)
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Escribe más para crear ejercicios."})
		return
	}

	r.rngMu.Lock()
	set := services.BuildExercises(request.Text, r.rng)
	r.rngMu.Unlock()

	r.notifier.EmitStatus(request.SocketID, "Ejercicios listos.", false)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "exercises": services.RenderExercises(set), "set": set})
}

// OCR transcribes an image. With a socket id the text also replaces that
// session's input and is checked right away.
func (r *RevisionController) OCR(ctx *gin.Context) {
	var request structs.OCRRequest
	bindErr := ctx.ShouldBindJSON(&request)
	r.notifier.EmitStatus(request.SocketID, "Leyendo la imagen...", false)
	if bindErr != nil || strings.TrimSpace(request.Image) == "" {
		r.notifier.EmitStatus(request.SocketID, "Imagen inválida.", true)
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Imagen inválida."})
		return
	}

	text, err := r.ocr.Recognize(ctx.Request.Context(), request.Image)
	if err != nil {
		status, message := ocrFailure(err)
		if status >= http.StatusInternalServerError {
			zap.S().Errorf("ocr: %v", err)
		}
		r.notifier.EmitStatus(request.SocketID, message, true)
		ctx.JSON(status, gin.H{"success": false, "error": message})
		return
	}

	r.notifier.EmitStatus(request.SocketID, "Texto reconocido.", false)
	r.notifier.FeedText(request.SocketID, text)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "text": text})
}

func ocrFailure(err error) (int, string) {
	switch {
	case errors.Is(err, utils.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "La imagen es demasiado grande."
	case errors.Is(err, utils.ErrEmptyImage), errors.Is(err, utils.ErrInvalidImage), errors.Is(err, utils.ErrUnsupportedImage):
		return http.StatusBadRequest, "Imagen inválida."
	case errors.Is(err, services.ErrNoTextFound):
		return http.StatusUnprocessableEntity, "No se encontró texto en la imagen."
	case errors.Is(err, services.ErrAINotConfigured):
		return http.StatusServiceUnavailable, services.NotConfiguredMessage
	default:
		return http.StatusBadGateway, "No se pudo leer la imagen."
	}
}
