// Package openrouter calls an OpenRouter-compatible chat-completions endpoint
// to edit an image from a natural-language prompt and stores the result.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/imagestore"
	"prompt-image-studio/internal/logger"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	TextOnlyNote = "Text analysis only (no image was generated)"

	maxErrorBody = 2048
)

type Request struct {
	ImageURL string
	Prompt   string
	Model    string
	// APIKey overrides the process-wide key when set.
	APIKey string
}

type Result struct {
	ProcessedImageURL   string
	EnhancementsApplied []string
	ProcessingTime      int // seconds
}

type Options struct {
	BaseURL       string
	APIKey        string
	PublicBaseURL string
	// AppURL and AppTitle are sent as OpenRouter attribution headers.
	AppURL     string
	AppTitle   string
	HTTPClient *http.Client
}

type Client struct {
	baseURL       string
	apiKey        string
	publicBaseURL string
	appURL        string
	appTitle      string
	images        imagestore.ImageStore
	httpClient    *http.Client
	log           *logger.Logger
	now           func() time.Time
}

func NewClient(opts Options, images imagestore.ImageStore, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// no client timeout: the configured job timeout arrives as a context deadline
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:       baseURL,
		apiKey:        opts.APIKey,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		appURL:        opts.AppURL,
		appTitle:      opts.AppTitle,
		images:        images,
		httpClient:    httpClient,
		log:           log.With("component", "OpenRouterClient"),
		now:           time.Now,
	}
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Modalities []string      `json:"modalities"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []requestPart `json:"content"`
}

type requestPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

// Instruction wraps the user's prompt in the editing template sent to the model.
func Instruction(prompt string) string {
	return fmt.Sprintf(`You are a professional photo editor. Edit the attached image according to this request: "%s".

Make the edit clearly visible. Prefer bold, dramatic changes over subtle ones, while keeping the main subject recognisable.
Return the edited image, followed by a short bullet list describing each change you made.`, strings.TrimSpace(prompt))
}

func (c *Client) Process(ctx context.Context, req Request) (*Result, error) {
	start := c.now()

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return nil, &apperr.ConfigurationError{Message: "OpenRouter API key is not configured"}
	}

	imageURL, err := c.ResolveImageURL(ctx, req.ImageURL)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model: req.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []requestPart{
				{Type: "text", Text: Instruction(req.Prompt)},
				{Type: "image_url", ImageURL: &imageURLPart{URL: imageURL}},
			},
		}},
		Modalities: []string{"image", "text"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.appURL != "" {
		httpReq.Header.Set("HTTP-Referer", c.appURL)
	}
	if c.appTitle != "" {
		httpReq.Header.Set("X-Title", c.appTitle)
	}

	c.log.Info("Requesting image edit", "model", req.Model, "image_url", truncate(imageURL, 120))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &apperr.ProviderError{Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperr.ProviderError{StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}

	outcome, err := ParseResponse(raw)
	if err != nil {
		return nil, &apperr.ProviderError{StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody), Err: err}
	}
	elapsed := int(math.Round(c.now().Sub(start).Seconds()))

	result := &Result{ProcessingTime: elapsed}
	switch o := outcome.(type) {
	case TextOnly:
		result.ProcessedImageURL = req.ImageURL
		result.EnhancementsApplied = []string{TextOnlyNote}
		if o.Text != "" {
			result.EnhancementsApplied = append(result.EnhancementsApplied, o.Text)
		}
		c.log.Info("Provider returned text only", "model", req.Model)
		return result, nil
	case ImageFromContentArray:
		result.ProcessedImageURL, err = c.persist(ctx, o.Image, req.Prompt)
		result.EnhancementsApplied = Enhancements(o.Text, req.Prompt)
	case ImageFromMessageImages:
		result.ProcessedImageURL, err = c.persist(ctx, o.Image, req.Prompt)
		result.EnhancementsApplied = Enhancements(o.Text, req.Prompt)
	case ImageFromDataArray:
		result.ProcessedImageURL, err = c.persist(ctx, o.Image, req.Prompt)
		result.EnhancementsApplied = Enhancements(o.Text, req.Prompt)
	default:
		return nil, fmt.Errorf("unhandled response outcome %T", outcome)
	}
	if err != nil {
		return nil, err
	}

	c.log.Info("Image edit stored",
		"model", req.Model,
		"processed_image_url", result.ProcessedImageURL,
		"processing_time", result.ProcessingTime,
	)
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
