package openrouter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"prompt-image-studio/internal/openrouter"
)

func TestParseResponse_PriorityOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want openrouter.Outcome
	}{
		{
			name: "content array beats data array",
			body: `{"choices":[{"message":{"content":[{"type":"image_url","image_url":"https://x/a.png"}]}}],"data":[{"url":"https://x/b.png"}]}`,
			want: openrouter.ImageFromContentArray{Image: openrouter.Image{URL: "https://x/a.png"}},
		},
		{
			name: "message images beat data array",
			body: `{"choices":[{"message":{"content":"hi","images":[{"type":"image_url","image_url":{"url":"https://x/c.png"}}]}}],"data":[{"url":"https://x/b.png"}]}`,
			want: openrouter.ImageFromMessageImages{Image: openrouter.Image{URL: "https://x/c.png"}, Text: "hi"},
		},
		{
			name: "data array with bare base64",
			body: `{"choices":[{"message":{"content":"text"}}],"data":[{"url":""},{"b64_json":"aGVsbG8="}]}`,
			want: openrouter.ImageFromDataArray{Image: openrouter.Image{Base64: "aGVsbG8="}, Text: "text"},
		},
		{
			name: "array content without image is text only",
			body: `{"choices":[{"message":{"content":[{"type":"text","text":"just words"}]}}]}`,
			want: openrouter.TextOnly{Text: "just words"},
		},
		{
			name: "null content",
			body: `{"choices":[{"message":{"content":null}}]}`,
			want: openrouter.TextOnly{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := openrouter.ParseResponse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResponse_Errors(t *testing.T) {
	_, err := openrouter.ParseResponse([]byte(`not json`))
	assert.Error(t, err)

	_, err = openrouter.ParseResponse([]byte(`{"error":{"message":"model overloaded"}}`))
	assert.ErrorContains(t, err, "model overloaded")

	_, err = openrouter.ParseResponse([]byte(`{"choices":[]}`))
	assert.Error(t, err)
}

func TestEnhancements(t *testing.T) {
	assert.Equal(t,
		[]string{"Added **drama**", "Cooler sky"},
		openrouter.Enhancements("Changes:\n- Added **drama**\n* Cooler sky\nThanks!", "p"))
	assert.Equal(t,
		[]string{"Bold contrast"},
		openrouter.Enhancements("• **Bold contrast**", "p"))
	assert.Equal(t,
		[]string{"Applied edit: make it pop"},
		openrouter.Enhancements("I made it pop.", " make it pop "))
}

func TestFileName(t *testing.T) {
	a := openrouter.FileName("payload", "prompt", "png")
	assert.Regexp(t, `^processed_[0-9a-f]{16}\.png$`, a)
	assert.Equal(t, a, openrouter.FileName("payload", "prompt", "png"))
	assert.NotEqual(t, a, openrouter.FileName("payload", "other", "png"))
}
