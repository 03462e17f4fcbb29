package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profeamigo/db"
	"profeamigo/internal/revision"
	"profeamigo/models"
	"profeamigo/services"
	"profeamigo/structs"
	"profeamigo/utils"
)

type stubChecker struct {
	fail bool
}

func (s stubChecker) Check(ctx context.Context, text string) revision.Result {
	if s.fail {
		return revision.Result{Text: text, Spans: []revision.Span{}, Failure: revision.FailureTransport, FailureReason: revision.ReasonConnection}
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < 3 {
		return revision.Result{Text: text, Spans: []revision.Span{}, Succeeded: true, Skipped: true}
	}
	spans := []revision.Span{}
	if i := strings.Index(text, "caza"); i >= 0 {
		spans = append(spans, revision.Span{
			Offset:       utf8.RuneCountInString(text[:i]),
			Length:       4,
			Message:      "Posible error ortográfico.",
			Replacements: []revision.Replacement{{Value: "casa"}},
			Category:     "TYPOS",
		})
	}
	return revision.Result{Text: text, Spans: spans, Succeeded: true}
}

type stubChat struct{}

func (stubChat) Complete(ctx context.Context, req services.ChatRequest) (string, error) {
	return "La 'a' es una vocal. 😊", nil
}

func newTestHub(t *testing.T, svc Services) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if svc.Checker == nil {
		svc.Checker = stubChecker{}
	}
	if svc.Debounce == 0 {
		svc.Debounce = 10 * time.Millisecond
	}
	hub := NewHub(svc)
	r := gin.New()
	r.GET("/ws", hub.Handler)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) structs.ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg structs.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func expect(t *testing.T, conn *websocket.Conn, msgType string) structs.ServerMessage {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, msgType, msg.Type, "message: %+v", msg)
	return msg
}

func write(t *testing.T, conn *websocket.Conn, msg structs.ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func TestSessionWelcome(t *testing.T) {
	hub, srv := newTestHub(t, Services{})
	conn := dial(t, srv, "")

	welcome := expect(t, conn, structs.MsgServer)
	assert.NotEmpty(t, welcome.SocketID)
	assert.Equal(t, services.WelcomeMessage, welcome.Message)

	_, ok := hub.Client(welcome.SocketID)
	assert.True(t, ok)
	assert.Equal(t, 1, hub.Count())
}

func TestSessionCheckFlow(t *testing.T) {
	_, srv := newTestHub(t, Services{})
	conn := dial(t, srv, "")
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgCheck, Text: "Yo tengo un caza"})

	checking := expect(t, conn, structs.MsgChecking)
	corrected := expect(t, conn, structs.MsgCorrected)
	assert.Equal(t, checking.Cycle, corrected.Cycle)
	require.NotNil(t, corrected.View)
	assert.Equal(t, 1, corrected.View.ErrorCount)
	assert.Equal(t, "1 error detectado", corrected.View.ErrorLabel)
	assert.Contains(t, corrected.HTML, `title="Sugerencia: casa">caza</span>`)

	analysis := expect(t, conn, structs.MsgAnalysis)
	assert.Contains(t, analysis.HTML, "Consejos de Profe Amigo")
	assert.Contains(t, analysis.HTML, `"caza"`)
}

func TestSessionDebouncedInput(t *testing.T) {
	_, srv := newTestHub(t, Services{Debounce: 50 * time.Millisecond})
	conn := dial(t, srv, "")
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgInput, Text: "Yo"})
	write(t, conn, structs.ClientMessage{Type: structs.MsgInput, Text: "Yo tengo"})
	write(t, conn, structs.ClientMessage{Type: structs.MsgInput, Text: "Yo tengo sueño"})

	expect(t, conn, structs.MsgChecking)
	corrected := expect(t, conn, structs.MsgCorrected)
	assert.Equal(t, uint64(1), corrected.Cycle)
	assert.Equal(t, "Yo tengo sueño", corrected.View.Text)
	assert.Equal(t, 0, corrected.View.ErrorCount)
}

func TestSessionShortAndBlankInput(t *testing.T) {
	_, srv := newTestHub(t, Services{})
	conn := dial(t, srv, "")
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgCheck, Text: "Yo"})
	expect(t, conn, structs.MsgChecking)
	expect(t, conn, structs.MsgNeedsMoreInput)
	analysis := expect(t, conn, structs.MsgAnalysis)
	assert.Equal(t, services.NeedsMoreTextAdvice, analysis.HTML)

	write(t, conn, structs.ClientMessage{Type: structs.MsgInput, Text: "   "})
	expect(t, conn, structs.MsgCleared)
}

func TestSessionCheckFailure(t *testing.T) {
	_, srv := newTestHub(t, Services{Checker: stubChecker{fail: true}})
	conn := dial(t, srv, "")
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgCheck, Text: "Hola amigo"})
	expect(t, conn, structs.MsgChecking)
	failed := expect(t, conn, structs.MsgCheckFailed)
	assert.Contains(t, failed.HTML, revision.ReasonConnection)
	assert.False(t, failed.View.Succeeded)

	analysis := expect(t, conn, structs.MsgAnalysis)
	assert.Contains(t, analysis.HTML, "No se pueden generar consejos")
}

func TestSessionExercisesTab(t *testing.T) {
	_, srv := newTestHub(t, Services{})
	conn := dial(t, srv, "")
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgTab, Tab: structs.TabExercises})
	write(t, conn, structs.ClientMessage{Type: structs.MsgCheck, Text: "El gato come pan"})

	expect(t, conn, structs.MsgChecking)
	expect(t, conn, structs.MsgCorrected)
	exercises := expect(t, conn, structs.MsgExercises)
	assert.Contains(t, exercises.HTML, "¡A Practicar!")

	write(t, conn, structs.ClientMessage{Type: structs.MsgGenerateExercises})
	again := expect(t, conn, structs.MsgExercises)
	assert.Equal(t, uint64(0), again.Cycle)
}

func TestSessionProgressForSignedInUser(t *testing.T) {
	utils.SetJWTSecret("ws-test-secret-0123456789abcdefghij")
	token, err := utils.GenerateJWTToken("7", "ana", "Ana")
	require.NoError(t, err)

	profiles := services.NewProfileService(db.NewMemoryProfileStore())
	_, srv := newTestHub(t, Services{Profiles: profiles})
	conn := dial(t, srv, "?token="+token)
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgCheck, Text: "Yo tengo un caza"})
	expect(t, conn, structs.MsgChecking)
	expect(t, conn, structs.MsgCorrected)
	expect(t, conn, structs.MsgAnalysis)
	profile := expect(t, conn, structs.MsgProfile)
	require.NotNil(t, profile.Profile)
	assert.Equal(t, "7", profile.Profile.UserID)
	assert.Equal(t, 1, profile.Profile.Streak)
	assert.Equal(t, []string{"Ortografía"}, profile.Profile.PracticeAreas)

	write(t, conn, structs.ClientMessage{Type: structs.MsgTab, Tab: structs.TabProgress})
	again := expect(t, conn, structs.MsgProfile)
	assert.Contains(t, again.HTML, `id="streak-count">1<`)
}

// stallingStore never finishes a save until its context ends.
type stallingStore struct {
	*db.MemoryProfileStore
	saving chan struct{}
}

func (s *stallingStore) Save(ctx context.Context, profile *models.SkillProfile) error {
	s.saving <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestSessionClosesWhileProfileSaveStalls(t *testing.T) {
	utils.SetJWTSecret("ws-test-secret-0123456789abcdefghij")
	token, err := utils.GenerateJWTToken("8", "eva", "Eva")
	require.NoError(t, err)

	store := &stallingStore{MemoryProfileStore: db.NewMemoryProfileStore(), saving: make(chan struct{}, 1)}
	hub, srv := newTestHub(t, Services{Profiles: services.NewProfileService(store)})
	conn := dial(t, srv, "?token="+token)
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgCheck, Text: "Yo tengo una casa"})
	select {
	case <-store.saving:
	case <-time.After(3 * time.Second):
		t.Fatal("profile save never started")
	}

	closed := make(chan struct{})
	go func() {
		hub.CloseAll()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close while a profile save was stuck")
	}
	assert.Equal(t, 0, hub.Count())
}

func TestSessionRejectsInvalidToken(t *testing.T) {
	utils.SetJWTSecret("ws-test-secret-0123456789abcdefghij")
	_, srv := newTestHub(t, Services{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionChat(t *testing.T) {
	_, srv := newTestHub(t, Services{Tutor: services.NewTutor(stubChat{}, 100, 0.5)})
	conn := dial(t, srv, "")
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgChat, Message: "¿Qué es la a?"})
	thinking := expect(t, conn, structs.MsgChatReply)
	assert.Equal(t, services.SenderThinking, thinking.SenderType)
	reply := expect(t, conn, structs.MsgChatReply)
	assert.Equal(t, services.SenderBot, reply.SenderType)
	assert.Equal(t, "La 'a' es una vocal. 😊", reply.Message)
}

func TestSessionChatWithoutModel(t *testing.T) {
	_, srv := newTestHub(t, Services{})
	conn := dial(t, srv, "")
	expect(t, conn, structs.MsgServer)

	write(t, conn, structs.ClientMessage{Type: structs.MsgChat, Message: "hola"})
	expect(t, conn, structs.MsgChatReply)
	reply := expect(t, conn, structs.MsgChatReply)
	assert.Equal(t, services.SenderError, reply.SenderType)
	assert.True(t, reply.IsError)
	assert.Equal(t, services.NotConfiguredMessage, reply.Message)
}

func TestHubStatusAndFeedText(t *testing.T) {
	hub, srv := newTestHub(t, Services{})
	conn := dial(t, srv, "")
	id := expect(t, conn, structs.MsgServer).SocketID

	hub.EmitStatus(id, "Generando consejos...", false)
	status := expect(t, conn, structs.MsgStatus)
	assert.Equal(t, "Generando consejos...", status.Message)
	assert.False(t, status.IsError)

	hub.EmitStatus("unknown", "ignored", true)

	require.True(t, hub.FeedText(id, "Mi caza es grande"))
	recognized := expect(t, conn, structs.MsgRecognized)
	assert.Equal(t, "Mi caza es grande", recognized.Message)
	expect(t, conn, structs.MsgChecking)
	corrected := expect(t, conn, structs.MsgCorrected)
	assert.Equal(t, 1, corrected.View.ErrorCount)

	assert.False(t, hub.FeedText("unknown", "x"))
}

func TestSessionUnregistersOnDisconnect(t *testing.T) {
	hub, srv := newTestHub(t, Services{})
	conn := dial(t, srv, "")
	expect(t, conn, structs.MsgServer)
	require.Equal(t, 1, hub.Count())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub(Services{AllowedOrigins: []string{"http://localhost:3000/"}})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, hub.checkOrigin(req))
}
