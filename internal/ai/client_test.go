package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/renovabot/internal/config"
)

func TestImageDataURL(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,/9j/", ImageDataURL([]byte{0xff, 0xd8, 0xff}))
}

func TestDescribeImageSendsInlineLowDetail(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"плитка уложена"}}]}`)
	}))
	defer srv.Close()

	c, err := New(&config.Config{
		AIProvider: config.ProviderOpenAICompatible,
		AIEndpoint: srv.URL,
		AIAPIKey:   "test-key",
		ChatModel:  "vision-test",
	})
	require.NoError(t, err)

	dataURL := ImageDataURL([]byte("jpeg bytes"))
	desc, err := c.DescribeImage(context.Background(), dataURL, "")
	require.NoError(t, err)
	assert.Equal(t, "плитка уложена", desc)

	var req struct {
		Messages []struct {
			Content []struct {
				Type     string `json:"type"`
				ImageURL struct {
					URL    string `json:"url"`
					Detail string `json:"detail"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].Content, 2)
	img := req.Messages[0].Content[1]
	assert.Equal(t, "image_url", img.Type)
	assert.Equal(t, dataURL, img.ImageURL.URL)
	assert.Equal(t, "low", img.ImageURL.Detail)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "абв", Truncate("абвгд", 3))
	assert.Equal(t, "short", Truncate("short", 100))
}
