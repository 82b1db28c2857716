//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/repository"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2E_Auth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Get("/health", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.Post("/retrieve", map[string]string{"question": "what are mutual funds"}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = env.Post("/retrieve", map[string]string{"question": "what are mutual funds"}, "fsk_"+strings.Repeat("0", 64))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestE2E_VectorRetrievalWithQueryLog(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Get("/index/status", env.APIKey)
	require.NoError(t, err)
	var status handlers.IndexStatusResponse
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.True(t, status.Enabled)
	assert.False(t, status.Built)
	assert.Equal(t, 3, status.Documents)

	resp, err = env.Post("/retrieve", map[string]interface{}{"question": "what are mutual funds", "k": 2}, env.APIKey)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

	var result handlers.RetrieveResponse
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "vector", result.Path)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "mutual_funds.txt", result.Matches[0].Source)
	assert.Equal(t, "sip.txt", result.Matches[1].Source)
	assert.InDelta(t, 1.0, result.Matches[0].Score, 1e-6)
	assert.Equal(t, result.Matches[0].Snippet+service.ContextDelimiter+result.Matches[1].Snippet, result.Context)
	assert.NotEmpty(t, result.QueryID)

	resp, err = env.Get("/index/status", env.APIKey)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.True(t, status.Built)
	assert.Equal(t, "vocabulary", status.Model)
	assert.Equal(t, 6, status.Dimensions)
	assert.Equal(t, map[string]int{"vector": 1}, status.Queries)

	count, err := repository.NewChunkIndexRepository(env.Pool, "e2e").Count(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var clientID, path string
	err = env.Pool.QueryRow(env.Ctx, `SELECT client_id, path FROM query_logs WHERE id = $1`, result.QueryID).Scan(&clientID, &path)
	require.NoError(t, err)
	assert.Equal(t, service.ClientID(env.APIKey), clientID)
	assert.Equal(t, "vector", path)
}

func TestE2E_InvalidRequests(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/retrieve", map[string]string{"question": "   "}, env.APIKey)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, service.InvalidQueryMessage, resp.Error)

	resp, err = env.Post("/retrieve", map[string]interface{}{"question": "sip", "k": 50}, env.APIKey)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var logged int
	require.NoError(t, env.Pool.QueryRow(env.Ctx, `SELECT COUNT(*) FROM query_logs`).Scan(&logged))
	assert.Zero(t, logged)
}

func TestE2E_CLI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CLI build in short mode")
	}
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildClient()

	out, err := env.RunFinsight("ask", "what", "is", "a", "sip?", "-k", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "A SIP invests a fixed amount in a mutual fund every month.")

	out, err = env.RunFinsight("status")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Corpus: 3 documents, 3 chunks")
	assert.Contains(t, out, "Vector index: built")

	out, err = env.RunFinsight("--api-key", "fsk_"+strings.Repeat("0", 64), "--api-url", env.Server.URL, "ask", "sip")
	assert.Error(t, err)
	assert.Contains(t, out, "401")
}
