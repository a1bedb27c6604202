package openrouter

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/imagestore"
)

// ResolveImageURL turns the stored image reference into something the
// provider can fetch. Absolute and data URLs pass through; a served path is
// joined to the public base URL, or inlined as a data URL when none is set.
func (c *Client) ResolveImageURL(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validation("imageUrl", "image URL is required")
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return raw, nil
	}

	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if c.publicBaseURL != "" {
		return c.publicBaseURL + raw, nil
	}

	name, ok := imagestore.NameFromURLPath(raw)
	if !ok {
		return "", fmt.Errorf("cannot resolve image URL %q without PUBLIC_BASE_URL", raw)
	}
	data, err := c.images.Open(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to load image %s: %w", name, err)
	}
	return "data:" + imagestore.ContentType(name, data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
