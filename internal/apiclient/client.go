// Package apiclient is a typed HTTP client for the image studio API, used by
// the imagectl CLI and the job poller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
)

// StatusError is returned for any non-success response other than 404.
type StatusError struct {
	StatusCode int
	Response   models.ErrorResponse
	Body       string
}

func (e *StatusError) Error() string {
	if e.Response.Error != "" {
		if e.Response.Message != "" {
			return fmt.Sprintf("status %d: %s: %s", e.StatusCode, e.Response.Error, e.Response.Message)
		}
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Response.Error)
	}
	return fmt.Sprintf("status %d, body: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	var conv models.Conversation
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations", models.CreateConversationRequest{Title: title}, http.StatusCreated, &conv)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	var resp models.MessageListResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/conversations/"+conversationID.String()+"/messages", nil, http.StatusOK, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return resp.Messages, nil
}

// Upload sends data as the "image" multipart field.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp models.UploadResponse
	if err := c.do(req, http.StatusCreated, &resp, ""); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	return &resp, nil
}

func (c *Client) ProcessImage(ctx context.Context, req models.ProcessImageRequest) (*models.ProcessImageResponse, error) {
	var resp models.ProcessImageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/process-image", req, http.StatusCreated, &resp); err != nil {
		return nil, fmt.Errorf("failed to submit image: %w", err)
	}
	return &resp, nil
}

// GetJob returns an apperr.NotFoundError when no job is attached to messageID.
func (c *Client) GetJob(ctx context.Context, messageID uuid.UUID) (*models.ImageProcessingJob, error) {
	var job models.ImageProcessingJob
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/processing-jobs/"+messageID.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.do(req, http.StatusOK, &job, messageID.String()); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) GetModelConfig(ctx context.Context) (*models.ModelConfigResponse, error) {
	var resp models.ModelConfigResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/model-config", nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to get model config: %w", err)
	}
	return &resp, nil
}

func (c *Client) UpdateModelConfig(ctx context.Context, req models.ModelConfigRequest) (*models.ModelConfigResponse, error) {
	var resp models.ModelConfigResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/model-config", req, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to update model config: %w", err)
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in interface{}, want int, out interface{}) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, want, out, "")
}

// do executes req and decodes a response with status want into out. When
// notFoundID is set a 404 becomes an apperr.NotFoundError.
func (c *Client) do(req *http.Request, want int, out interface{}, notFoundID string) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && notFoundID != "" {
		return apperr.NotFound("processing job for message", notFoundID)
	}
	if resp.StatusCode != want {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		_ = json.Unmarshal(body, &statusErr.Response)
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	return nil
}
