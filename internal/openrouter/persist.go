package openrouter

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/imagestore"
)

// MaxDownloadBytes bounds a generated image fetched from a provider URL.
const MaxDownloadBytes = 25 << 20

// FileName derives the stored name from the base64 payload and the prompt, so
// the same pair always maps to the same file.
func FileName(payload, prompt, ext string) string {
	sum := sha256.Sum256([]byte(payload + prompt))
	return "processed_" + hex.EncodeToString(sum[:])[:16] + "." + ext
}

func (c *Client) persist(ctx context.Context, img Image, prompt string) (string, error) {
	payload, contentType, err := c.payloadOf(ctx, img)
	if err != nil {
		return "", err
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return "", &apperr.ProviderError{Err: fmt.Errorf("failed to decode image payload: %w", err)}
	}
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}

	name := FileName(payload, prompt, imagestore.ExtensionFor(contentType))
	urlPath, err := c.images.Save(ctx, name, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to save processed image: %w", err)
	}
	return urlPath, nil
}

// payloadOf returns the base64 text for img along with any declared content type.
func (c *Client) payloadOf(ctx context.Context, img Image) (string, string, error) {
	if img.Base64 != "" {
		return img.Base64, "", nil
	}

	if strings.HasPrefix(strings.ToLower(img.URL), "data:") {
		contentType, payload, err := splitDataURL(img.URL)
		if err != nil {
			return "", "", &apperr.ProviderError{Err: err}
		}
		return payload, contentType, nil
	}

	data, contentType, err := c.download(ctx, img.URL)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(data), contentType, nil
}

// splitDataURL parses "data:<mime>;base64,<payload>".
func splitDataURL(u string) (contentType, payload string, err error) {
	meta, payload, ok := strings.Cut(u[len("data:"):], ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data URL")
	}
	if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
		return "", "", fmt.Errorf("data URL is not base64 encoded")
	}
	return strings.TrimSuffix(strings.TrimSuffix(meta, ";base64"), ";BASE64"), payload, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &apperr.ProviderError{Err: fmt.Errorf("failed to download generated image: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &apperr.ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to download generated image")}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, "", &apperr.ProviderError{Err: fmt.Errorf("failed to read generated image: %w", err)}
	}
	if len(data) > MaxDownloadBytes {
		return nil, "", &apperr.ProviderError{Err: fmt.Errorf("generated image exceeds %d bytes", MaxDownloadBytes)}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("invalid base64 payload")
}
