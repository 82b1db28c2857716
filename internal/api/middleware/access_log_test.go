package middleware

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestAccessLog_RecordsRequest(t *testing.T) {
	buf := captureLog(t)

	mockValidator := new(MockAuthValidator)
	mockValidator.On("ValidateAPIKey", mock.Anything, "secret").Return("key-42", nil)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})
	chain := RequestID(AccessLog(APIKeyAuth(mockValidator)(handler)))

	req := httptest.NewRequest(http.MethodPost, "/retrieve", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	w := httptest.NewRecorder()

	chain.ServeHTTP(w, req)

	var entry accessLogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "/retrieve", entry.Path)
	assert.Equal(t, http.StatusCreated, entry.Status)
	assert.Equal(t, 5, entry.Bytes)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "key-42", entry.ClientID)
	assert.Equal(t, "10.0.0.1", entry.RemoteAddr)
}

func TestAccessLog_SkipsHealth(t *testing.T) {
	buf := captureLog(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	AccessLog(handler).ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, buf.String())
}
