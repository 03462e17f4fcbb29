package websocket

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"profeamigo/internal/revision"
	"profeamigo/services"
	"profeamigo/structs"
)

const progressTimeout = 5 * time.Second

// onExplanation refreshes the advice panel while it is in front.
func (c *Client) onExplanation(ctx context.Context, ev revision.Event) {
	if c.Tab() != structs.TabSuggestions {
		return
	}
	var html string
	switch {
	case !ev.Success:
		html = services.ExplainFailure(ev.Error)
	case ev.Skipped:
		html = services.NeedsMoreTextAdvice
	default:
		html = services.Explain(ev.Text, ev.Errors)
	}
	c.send(structs.ServerMessage{Type: structs.MsgAnalysis, Cycle: ev.Cycle, HTML: html})
}

// onExercises rebuilds the practice panel while it is in front.
func (c *Client) onExercises(ctx context.Context, ev revision.Event) {
	if !ev.Success || ev.Skipped || c.Tab() != structs.TabExercises {
		return
	}
	c.pushExercises(ev.Cycle, ev.Text)
}

// onProgress updates the signed-in learner's profile after every real check.
func (c *Client) onProgress(ctx context.Context, ev revision.Event) {
	profiles := c.hub.services.Profiles
	if profiles == nil || ev.UserID == "" || !ev.Success || ev.Skipped {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, progressTimeout)
	defer cancel()
	p, err := profiles.Update(ctx, ev.UserID, ev.Text, ev.Errors)
	if err != nil {
		zap.S().Warnf("progress: update for user %s: %v", ev.UserID, err)
		return
	}
	c.send(structs.ServerMessage{Type: structs.MsgProfile, Cycle: ev.Cycle, HTML: services.RenderProfile(p), Profile: p})
}

func (c *Client) pushExercises(cycle uint64, text string) {
	if strings.TrimSpace(text) == "" {
		c.send(structs.ServerMessage{Type: structs.MsgStatus, Message: "Texto muy corto.", IsError: true})
		return
	}
	c.rngMu.Lock()
	set := services.BuildExercises(text, c.rng)
	c.rngMu.Unlock()
	c.send(structs.ServerMessage{Type: structs.MsgExercises, Cycle: cycle, HTML: services.RenderExercises(set)})
}

func (c *Client) pushProfile() {
	profiles := c.hub.services.Profiles
	if profiles == nil || c.UserID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, progressTimeout)
	defer cancel()
	p, err := profiles.Get(ctx, c.UserID)
	if err != nil {
		zap.S().Warnf("progress: load for user %s: %v", c.UserID, err)
		return
	}
	c.send(structs.ServerMessage{Type: structs.MsgProfile, HTML: services.RenderProfile(p), Profile: p})
}
