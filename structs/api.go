package structs

import "profeamigo/internal/revision"

type CheckRequest struct {
	Text string `json:"text"`
}

type AnalyzeRequest struct {
	Text     string           `json:"text"`
	Errors   *[]revision.Span `json:"errors"`
	SocketID string           `json:"socketId"`
}

type ExercisesRequest struct {
	Text     string `json:"text"`
	SocketID string `json:"socketId"`
}

type OCRRequest struct {
	Image    string `json:"image"`
	SocketID string `json:"socketId"`
}
