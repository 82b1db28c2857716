package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(testKey, srv.URL+"/").Get("/index/status")

	require.NoError(t, err)
	assert.Equal(t, "Bearer "+testKey, gotAuth)
}

func TestAPIClient_AnonymousWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("", srv.URL).Get("/index/status")

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid API key"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("bad", srv.URL).Get("/index/status")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid API key", apiErr.Message)
}

func TestAPIClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "404 page not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("", srv.URL).Get("/nope")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "404 page not found", apiErr.Message)
}

func TestAsk(t *testing.T) {
	var got retrieveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/retrieve", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data":{"context":"Mutual funds pool money.","path":"keyword","no_match":false,"matches":[{"chunk_id":"builtin-1#0","source":"builtin-1","type":"builtin","offset":0,"score":3,"snippet":"Mutual funds pool money."}]}}`))
	}))
	defer srv.Close()

	result, err := Ask(NewAPIClientWithConfig("", srv.URL), "what are mutual funds", 3)

	require.NoError(t, err)
	assert.Equal(t, "what are mutual funds", got.Question)
	assert.Equal(t, 3, got.K)
	assert.Equal(t, "keyword", result.Path)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "builtin-1", result.Matches[0].Source)

	var out bytes.Buffer
	require.NoError(t, writeRetrieveResult(&out, result, false, true))
	assert.Contains(t, out.String(), "Mutual funds pool money.")
	assert.Contains(t, out.String(), "1. builtin-1 (builtin, offset 0) 3.000")
}

func TestAsk_NoMatchSkipsMatchList(t *testing.T) {
	var out bytes.Buffer
	result := &RetrieveResult{Context: "no relevant information found", Path: "keyword", NoMatch: true}

	require.NoError(t, writeRetrieveResult(&out, result, false, true))

	assert.Equal(t, "no relevant information found\n", out.String())
}

func TestFetchIndexStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/index/status", r.URL.Path)
		w.Write([]byte(`{"data":{"enabled":true,"built":true,"build_id":"b1","model":"text-embedding-3-small","dimensions":1536,"builds":1,"documents":4,"chunks":9}}`))
	}))
	defer srv.Close()

	status, err := FetchIndexStatus(NewAPIClientWithConfig("", srv.URL))

	require.NoError(t, err)
	assert.True(t, status.Built)
	assert.Equal(t, 1536, status.Dimensions)

	var out bytes.Buffer
	require.NoError(t, writeIndexStatus(&out, status, false))
	assert.Contains(t, out.String(), "Corpus: 4 documents, 9 chunks")
	assert.Contains(t, out.String(), "Vector index: built (text-embedding-3-small, 1536 dims, build b1)")
}

func TestWriteIndexStatus_KeywordOnly(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, writeIndexStatus(&out, &IndexStatus{Documents: 4, Chunks: 4}, false))

	assert.Contains(t, out.String(), "keyword only")
}

func TestWriteIndexStatus_QueryCounts(t *testing.T) {
	var out bytes.Buffer
	status := &IndexStatus{Documents: 4, Chunks: 4, Queries: map[string]int{"vector": 7, "keyword": 1}}

	require.NoError(t, writeIndexStatus(&out, status, false))

	assert.Contains(t, out.String(), "Queries answered: 7 vector, 1 keyword")
}
