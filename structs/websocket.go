package structs

import (
	"profeamigo/internal/revision"
	"profeamigo/models"
)

// Client to server message types.
const (
	MsgInput             = "input"
	MsgCheck             = "check"
	MsgTab               = "tab"
	MsgChat              = "chat_message_from_client"
	MsgGenerateExercises = "generate_exercises"
)

// Server to client message types.
const (
	MsgServer         = "server_message"
	MsgChecking       = "checking"
	MsgCorrected      = "corrected"
	MsgCheckFailed    = "check_failed"
	MsgNeedsMoreInput = "needs_more_input"
	MsgCleared        = "cleared"
	MsgAnalysis       = "analysis"
	MsgExercises      = "exercises"
	MsgProfile        = "profile"
	MsgStatus         = "ia_status_update"
	MsgChatReply      = "chat_message_from_server"
	MsgRecognized     = "text_recognized"
)

// Panels the client can have in front.
const (
	TabSuggestions = "suggestions"
	TabExercises   = "exercises"
	TabProgress    = "progress"
	TabChat        = "chat"
)

type ClientMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Tab     string `json:"tab,omitempty"`
	Message string `json:"message,omitempty"`
}

type ServerMessage struct {
	Type       string               `json:"type"`
	SocketID   string               `json:"socketId,omitempty"`
	Cycle      uint64               `json:"cycle,omitempty"`
	Message    string               `json:"message,omitempty"`
	SenderType string               `json:"senderType,omitempty"`
	IsError    bool                 `json:"isError,omitempty"`
	HTML       string               `json:"html,omitempty"`
	View       *revision.View       `json:"view,omitempty"`
	Profile    *models.SkillProfile `json:"profile,omitempty"`
}
