// Package api holds the response envelopes shared by every handler.
package api

type ErrorResponse struct {
	Error string `json:"error" example:"membership not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Plan retired"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
