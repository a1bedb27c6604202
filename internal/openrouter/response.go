package openrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Image is an image reference found in a provider response: a remote URL, a
// data URL, or a bare base64 payload.
type Image struct {
	URL    string
	Base64 string
}

func (i Image) empty() bool {
	return i.URL == "" && i.Base64 == ""
}

// Outcome is one of ImageFromContentArray, ImageFromMessageImages,
// ImageFromDataArray or TextOnly.
type Outcome interface {
	outcome()
}

// ImageFromContentArray: choices[0].message.content is an array with an image element.
type ImageFromContentArray struct {
	Image Image
	Text  string
}

// ImageFromMessageImages: choices[0].message.images[], the shape OpenRouter
// uses for image output modalities.
type ImageFromMessageImages struct {
	Image Image
	Text  string
}

// ImageFromDataArray: a top-level data[] array of url or b64_json descriptors.
type ImageFromDataArray struct {
	Image Image
	Text  string
}

// TextOnly: no image in any recognised shape.
type TextOnly struct {
	Text string
}

func (ImageFromContentArray) outcome()  {}
func (ImageFromMessageImages) outcome() {}
func (ImageFromDataArray) outcome()     {}
func (TextOnly) outcome()               {}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Images  []contentPart   `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

type contentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	ImageURL json.RawMessage `json:"image_url"`
	Image    json.RawMessage `json:"image"`
	B64JSON  string          `json:"b64_json"`
}

// ParseResponse decodes a chat-completions body and picks the first matching
// outcome in priority order.
func ParseResponse(body []byte) (Outcome, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil && len(resp.Choices) == 0 && len(resp.Data) == 0 {
		return nil, fmt.Errorf("provider returned an error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 && len(resp.Data) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	var (
		text  string
		parts []contentPart
	)
	if len(resp.Choices) > 0 {
		msg := resp.Choices[0].Message
		text, parts = decodeContent(msg.Content)

		for _, part := range parts {
			if !isImagePart(part) {
				continue
			}
			if img := partImage(part); !img.empty() {
				return ImageFromContentArray{Image: img, Text: text}, nil
			}
		}

		for _, part := range msg.Images {
			if img := partImage(part); !img.empty() {
				return ImageFromMessageImages{Image: img, Text: text}, nil
			}
		}
	}

	for _, d := range resp.Data {
		img := Image{URL: strings.TrimSpace(d.URL), Base64: strings.TrimSpace(d.B64JSON)}
		if !img.empty() {
			return ImageFromDataArray{Image: img, Text: text}, nil
		}
	}

	return TextOnly{Text: text}, nil
}

// decodeContent handles content as a plain string, an array of parts, or null.
func decodeContent(raw json.RawMessage) (string, []contentPart) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", nil
	}
	var texts []string
	for _, p := range parts {
		if p.Type == "text" && strings.TrimSpace(p.Text) != "" {
			texts = append(texts, strings.TrimSpace(p.Text))
		}
	}
	return strings.Join(texts, "\n"), parts
}

func isImagePart(p contentPart) bool {
	switch p.Type {
	case "image_url", "image", "output_image":
		return true
	}
	return false
}

func partImage(p contentPart) Image {
	if u := urlValue(p.ImageURL); u != "" {
		return imageFromString(u)
	}
	if u := urlValue(p.Image); u != "" {
		return imageFromString(u)
	}
	if b := strings.TrimSpace(p.B64JSON); b != "" {
		return Image{Base64: b}
	}
	return Image{}
}

// urlValue accepts both "image_url": "..." and "image_url": {"url": "..."}.
func urlValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.URL)
	}
	return ""
}

func imageFromString(s string) Image {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Image{URL: s}
	}
	return Image{Base64: s}
}

// Enhancements lists the bullet or numbered lines of the model's text, or
// falls back to a single line naming the requested edit.
func Enhancements(text, prompt string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if item, ok := bulletItem(line); ok {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"Applied edit: " + strings.TrimSpace(prompt)}
	}
	return out
}

func bulletItem(line string) (string, bool) {
	line = strings.TrimSpace(line)
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return cleanItem(strings.TrimPrefix(line, marker))
		}
	}

	// "1. item" or "1) item"
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return cleanItem(line[i+2:])
	}
	return "", false
}

// cleanItem drops surrounding markdown bold markers.
func cleanItem(s string) (string, bool) {
	item := strings.TrimSpace(s)
	if len(item) > 4 && strings.HasPrefix(item, "**") && strings.HasSuffix(item, "**") {
		item = strings.TrimSpace(item[2 : len(item)-2])
	}
	return item, item != ""
}
