package models

type ProcessImageRequest struct {
	ConversationID string `json:"conversationId"`
	ImageURL       string `json:"imageUrl"`
	Prompt         string `json:"prompt"`
}

type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
	// Prompt is optional; when Title is empty the title is derived from it.
	Prompt string `json:"prompt,omitempty"`
}

// ModelConfigRequest uses pointers so a partial update leaves other fields untouched.
type ModelConfigRequest struct {
	Model         *string `json:"model,omitempty"`
	OutputQuality *string `json:"outputQuality,omitempty"`
	MaxResolution *int    `json:"maxResolution,omitempty"`
	Timeout       *int    `json:"timeout,omitempty"`
	APIKey        *string `json:"apiKey,omitempty"`
}

type SaveImageRequest struct {
	Title             string   `json:"title"`
	ObjectPath        string   `json:"objectPath"`
	OriginalImagePath string   `json:"originalImagePath,omitempty"`
	Prompt            string   `json:"prompt,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
