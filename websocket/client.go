package websocket

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"profeamigo/internal/revision"
	"profeamigo/services"
	"profeamigo/structs"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 10
)

// Client is one browser session: a connection, its own revision pipeline and
// the bus that fans each finished cycle out to the panels.
type Client struct {
	ID       string
	UserID   string
	Username string

	hub      *Hub
	conn     *websocket.Conn
	writeMu  sync.Mutex
	pipeline *revision.Pipeline
	bus      *revision.Bus

	ctx       context.Context
	cancel    context.CancelFunc
	chats     sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.RWMutex
	tab    string
	closed bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

func newClient(h *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		hub:      h,
		conn:     conn,
		bus:      revision.NewBus(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		tab:      structs.TabSuggestions,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	c.bus.Subscribe("explanation", revision.SubscriberFunc(c.onExplanation))
	c.bus.Subscribe("exercises", revision.SubscriberFunc(c.onExercises))
	c.bus.Subscribe("progress", revision.SubscriberFunc(c.onProgress))
	if h.services.History != nil {
		c.bus.Subscribe("history", h.services.History)
	}

	c.pipeline = revision.NewPipeline(h.services.Checker, c.bus, c, revision.PipelineConfig{
		Debounce: h.services.Debounce,
		UserID:   userID,
	})
	return c
}

// SafeWriteJSON serializes writes to the connection.
func (c *Client) SafeWriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) send(msg structs.ServerMessage) {
	select {
	case <-c.done:
		return
	default:
	}
	if err := c.SafeWriteJSON(msg); err != nil {
		zap.S().Debugf("ws: write %s to %s: %v", msg.Type, c.ID, err)
	}
}

func (c *Client) Tab() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tab
}

func (c *Client) setTab(tab string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab = tab
}

// ShowChecking, ShowResult and Clear make the client the pipeline's surface.

func (c *Client) ShowChecking(cycle uint64, text string) {
	c.send(structs.ServerMessage{Type: structs.MsgChecking, Cycle: cycle})
}

func (c *Client) ShowResult(v revision.View) {
	msgType := structs.MsgCorrected
	switch {
	case !v.Succeeded:
		msgType = structs.MsgCheckFailed
	case v.Skipped:
		msgType = structs.MsgNeedsMoreInput
	}
	c.send(structs.ServerMessage{Type: msgType, Cycle: v.Cycle, HTML: v.Markup, View: &v})
}

func (c *Client) Clear() {
	c.send(structs.ServerMessage{Type: structs.MsgCleared})
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Warnf("ws: read from %s: %v", c.ID, err)
			}
			return
		}
		var msg structs.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			zap.S().Debugf("ws: bad message from %s: %v", c.ID, err)
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) handle(msg structs.ClientMessage) {
	switch msg.Type {
	case structs.MsgInput:
		c.pipeline.Input(msg.Text)
	case structs.MsgCheck:
		c.pipeline.CheckNow(msg.Text)
	case structs.MsgTab:
		c.setTab(msg.Tab)
		if msg.Tab == structs.TabProgress {
			c.pushProfile()
		}
	case structs.MsgGenerateExercises:
		text := msg.Text
		if strings.TrimSpace(text) == "" {
			text = c.pipeline.Buffer()
		}
		c.pushExercises(0, text)
	case structs.MsgChat:
		c.chat(msg.Message)
	default:
		zap.S().Debugf("ws: unknown message type %q from %s", msg.Type, c.ID)
	}
}

func (c *Client) chat(message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.chats.Add(1)
	c.mu.Unlock()

	c.send(structs.ServerMessage{Type: structs.MsgChatReply, Message: services.ThinkingMessage, SenderType: services.SenderThinking})
	go func() {
		defer c.chats.Done()
		reply := c.hub.services.Tutor.Reply(c.ctx, message)
		c.send(structs.ServerMessage{
			Type:       structs.MsgChatReply,
			Message:    reply.Message,
			SenderType: reply.SenderType,
			IsError:    reply.SenderType == services.SenderError,
		})
	}()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.hub.unregister(c)
		c.cancel()
		close(c.done)
		c.conn.Close()
		c.pipeline.Close()
		c.chats.Wait()
	})
}
