package models

type ProcessImageResponse struct {
	UserMessage   *Message            `json:"userMessage"`
	AIMessage     *Message            `json:"aiMessage"`
	ProcessingJob *ImageProcessingJob `json:"processingJob"`
}

type UploadResponse struct {
	ImageURL     string `json:"imageUrl"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// ModelConfigResponse never echoes the key; APIKeyConfigured is "true" or "false".
type ModelConfigResponse struct {
	Model            string `json:"model"`
	OutputQuality    string `json:"outputQuality"`
	MaxResolution    int    `json:"maxResolution"`
	Timeout          int    `json:"timeout"`
	APIKeyConfigured string `json:"apiKeyConfigured"`
}

type ConversationListResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type MessageListResponse struct {
	Messages []Message `json:"messages"`
}

type LibraryResponse struct {
	Images []SavedImage `json:"images"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	Database     string `json:"database,omitempty"`
	InFlightJobs int    `json:"inFlightJobs"`
	EventStreams int    `json:"eventStreams"`
}
