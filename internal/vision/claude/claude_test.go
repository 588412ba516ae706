package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/scaninv/internal/vision"
)

func newTestServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
			return
		}
		resp := map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": reply},
			},
			"usage": map[string]int{"input_tokens": 10, "output_tokens": 5},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClaudeReadBarcode(t *testing.T) {
	server := newTestServer(t, http.StatusOK, "4006381333931")

	reader := NewClaudeReader("sk-test", "claude-test", anthropic.WithBaseURL(server.URL))

	result, err := reader.ReadBarcode(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", result.Barcode)
}

func TestClaudeReadBarcodeNone(t *testing.T) {
	server := newTestServer(t, http.StatusOK, "NONE")

	reader := NewClaudeReader("sk-test", "claude-test", anthropic.WithBaseURL(server.URL))

	_, err := reader.ReadBarcode(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/png")
	assert.ErrorIs(t, err, vision.ErrNoBarcode)
}

func TestClaudeReadBarcodeAPIError(t *testing.T) {
	server := newTestServer(t, http.StatusTooManyRequests, "")

	reader := NewClaudeReader("sk-test", "claude-test", anthropic.WithBaseURL(server.URL))

	_, err := reader.ReadBarcode(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	assert.Error(t, err)
}

func TestClaudeReadBarcodeReadError(t *testing.T) {
	reader := NewClaudeReader("sk-test", "claude-test")

	_, err := reader.ReadBarcode(context.Background(), &errReader{}, "image/jpeg")
	assert.Error(t, err)
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", normaliseMIME("image/png"))
	assert.Equal(t, "image/webp", normaliseMIME("image/webp"))
	assert.Equal(t, "image/jpeg", normaliseMIME("image/heic"))
}

// errReader always returns an error on Read.
type errReader struct{}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
