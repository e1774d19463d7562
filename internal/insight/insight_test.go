package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *Client {
	return NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    serverURL,
		Model:      "test-model",
		TimeoutSec: 2,
	})
}

func TestSummarizeReturnsServiceText(t *testing.T) {
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "Tight consensus, the task is well understood.  "}},
				}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	got := testClient(server.URL).Summarize(context.Background(), "Login flow", "OAuth revamp", []string{"5", "5", "8"})
	assert.Equal(t, "Tight consensus, the task is well understood.", got)

	require.Len(t, gotBody.Contents, 1)
	prompt := gotBody.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Login flow")
	assert.Contains(t, prompt, "5, 5, 8")
}

func TestSummarizeFallbacks(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()
		assert.Equal(t, Fallback, testClient(server.URL).Summarize(context.Background(), "T", "", []string{"3"}))
	})

	t.Run("undecodable body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()
		assert.Equal(t, Fallback, testClient(server.URL).Summarize(context.Background(), "T", "", []string{"3"}))
	})

	t.Run("empty candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[]}`))
		}))
		defer server.Close()
		assert.Equal(t, Fallback, testClient(server.URL).Summarize(context.Background(), "T", "", []string{"3"}))
	})

	t.Run("unreachable server", func(t *testing.T) {
		assert.Equal(t, Fallback, testClient("http://127.0.0.1:1").Summarize(context.Background(), "T", "", []string{"3"}))
	})

	t.Run("no api key", func(t *testing.T) {
		c := NewClient(Config{})
		assert.Equal(t, Fallback, c.Summarize(context.Background(), "T", "", nil))
	})
}
