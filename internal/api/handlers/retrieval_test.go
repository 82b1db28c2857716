package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/finsight/internal/api/middleware"
	"github.com/cloo-solutions/finsight/internal/corpus"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Search(ctx context.Context, question string, k int) (*service.RetrievalOutput, error) {
	args := m.Called(ctx, question, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RetrievalOutput), args.Error(1)
}

func (m *MockRetrievalService) Status() service.IndexStatus {
	args := m.Called()
	return args.Get(0).(service.IndexStatus)
}

type MockQueryLogRepository struct {
	mock.Mock
}

func (m *MockQueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *MockQueryLogRepository) CountByPath(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func requestWithClientID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.ClientIDKey, "key-456")
	ctx = middleware.WithRequestID(ctx, "req-123")
	return req.WithContext(ctx)
}

func vectorOutput() *service.RetrievalOutput {
	return &service.RetrievalOutput{
		Path: service.RetrievalPathVector,
		Matches: []domain.ScoredChunk{
			{Chunk: domain.Chunk{Ordinal: 0, Source: "mutual_funds.txt", Type: domain.DocumentTypeFinancialArticle, Text: "Mutual funds pool money."}, Score: 0.92},
		},
		Snippets: []string{"Mutual funds pool money."},
		Context:  "Mutual funds pool money.",
		TopK:     service.DefaultTopK,
	}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestRetrievalHandler_Retrieve_Success(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc, nil)

	mockSvc.On("Search", mock.Anything, "what are mutual funds", 0).Return(vectorOutput(), nil)

	body, _ := json.Marshal(RetrieveRequest{Question: "what are mutual funds"})
	w := httptest.NewRecorder()

	handler.Retrieve(w, requestWithClientID(http.MethodPost, "/retrieve", body))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "Mutual funds pool money.", data["context"])
	assert.Equal(t, "vector", data["path"])
	assert.Equal(t, false, data["no_match"])
	matches := data["matches"].([]interface{})
	require.Len(t, matches, 1)
	match := matches[0].(map[string]interface{})
	assert.Equal(t, "mutual_funds.txt#0", match["chunk_id"])
	assert.Equal(t, 0.92, match["score"])
	mockSvc.AssertExpectations(t)
}

func TestRetrievalHandler_Retrieve_NoMatch(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc, nil)

	mockSvc.On("Search", mock.Anything, "crypto", 3).Return(&service.RetrievalOutput{
		Path:    service.RetrievalPathKeyword,
		Context: service.NoMatchMessage,
		NoMatch: true,
	}, nil)

	body, _ := json.Marshal(RetrieveRequest{Question: "crypto", K: 3})
	w := httptest.NewRecorder()

	handler.Retrieve(w, requestWithClientID(http.MethodPost, "/retrieve", body))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, service.NoMatchMessage, data["context"])
	assert.Equal(t, true, data["no_match"])
	assert.Empty(t, data["matches"])
}

func TestRetrievalHandler_Retrieve_EmptyQuestion(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc, nil)

	mockSvc.On("Search", mock.Anything, "  ", 0).Return(nil, domain.ErrInvalidQuery)

	body, _ := json.Marshal(RetrieveRequest{Question: "  "})
	w := httptest.NewRecorder()

	handler.Retrieve(w, requestWithClientID(http.MethodPost, "/retrieve", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), service.InvalidQueryMessage)
}

func TestRetrievalHandler_Retrieve_InvalidBody(t *testing.T) {
	handler := NewRetrievalHandler(new(MockRetrievalService), nil)
	w := httptest.NewRecorder()

	handler.Retrieve(w, requestWithClientID(http.MethodPost, "/retrieve", []byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestRetrievalHandler_Retrieve_InvalidK(t *testing.T) {
	handler := NewRetrievalHandler(new(MockRetrievalService), nil)

	for _, k := range []int{-1, MaxTopK + 1} {
		body, _ := json.Marshal(RetrieveRequest{Question: "funds", K: k})
		w := httptest.NewRecorder()

		handler.Retrieve(w, requestWithClientID(http.MethodPost, "/retrieve", body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestRetrievalHandler_Retrieve_LogsQuery(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockLog := new(MockQueryLogRepository)
	handler := NewRetrievalHandler(mockSvc, mockLog)

	mockSvc.On("Search", mock.Anything, " mutual funds ", 0).Return(vectorOutput(), nil)
	mockSvc.On("Status").Return(service.IndexStatus{Built: true, Info: domain.IndexInfo{BuildID: "build-9"}})
	mockLog.On("CreateQueryLog", mock.Anything, mock.MatchedBy(func(e service.QueryLogEntry) bool {
		return e.ClientID == "key-456" &&
			e.RequestID == "req-123" &&
			e.Question == "mutual funds" &&
			e.TopK == service.DefaultTopK &&
			e.BuildID == "build-9" &&
			len(e.Results) == 1
	})).Return("query-1", nil)

	body, _ := json.Marshal(RetrieveRequest{Question: " mutual funds "})
	w := httptest.NewRecorder()

	handler.Retrieve(w, requestWithClientID(http.MethodPost, "/retrieve", body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "query-1", decodeData(t, w)["query_id"])
	mockLog.AssertExpectations(t)
}

func TestRetrievalHandler_Retrieve_LogFailureIgnored(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockLog := new(MockQueryLogRepository)
	handler := NewRetrievalHandler(mockSvc, mockLog)

	mockSvc.On("Search", mock.Anything, "funds", 0).Return(vectorOutput(), nil)
	mockSvc.On("Status").Return(service.IndexStatus{})
	mockLog.On("CreateQueryLog", mock.Anything, mock.Anything).Return("", errors.New("db down"))

	body, _ := json.Marshal(RetrieveRequest{Question: "funds"})
	w := httptest.NewRecorder()

	handler.Retrieve(w, requestWithClientID(http.MethodPost, "/retrieve", body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeData(t, w)["query_id"])
}

func TestRetrievalHandler_Status(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc, nil)

	failedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	mockSvc.On("Status").Return(service.IndexStatus{
		Enabled:     true,
		Built:       false,
		Builds:      2,
		Documents:   4,
		Chunks:      4,
		LastError:   "embed corpus: quota exceeded",
		LastErrorAt: failedAt,
	})

	w := httptest.NewRecorder()
	handler.Status(w, httptest.NewRequest(http.MethodGet, "/index/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["enabled"])
	assert.Equal(t, false, data["built"])
	assert.Equal(t, float64(2), data["builds"])
	assert.Equal(t, "embed corpus: quota exceeded", data["last_error"])
	assert.Equal(t, "2026-03-01T09:30:00Z", data["last_error_at"])
}

func TestRetrievalHandler_Retrieve_LogsConfiguredTopK(t *testing.T) {
	cfg := service.DefaultRetrievalConfig()
	cfg.TopK = 3
	svc, err := service.NewRetrievalService(context.Background(), corpus.NewLoader(nil), nil, nil, cfg)
	require.NoError(t, err)

	mockLog := new(MockQueryLogRepository)
	mockLog.On("CreateQueryLog", mock.Anything, mock.MatchedBy(func(e service.QueryLogEntry) bool {
		return e.TopK == 3 && e.Path == service.RetrievalPathKeyword && len(e.Results) == 3
	})).Return("query-2", nil)
	handler := NewRetrievalHandler(svc, mockLog)

	body, _ := json.Marshal(RetrieveRequest{Question: "financial mutual funds"})
	w := httptest.NewRecorder()

	handler.Retrieve(w, requestWithClientID(http.MethodPost, "/retrieve", body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData(t, w)["matches"], 3)
	mockLog.AssertExpectations(t)
}

func TestRetrievalHandler_Status_QueryCounts(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockLog := new(MockQueryLogRepository)
	handler := NewRetrievalHandler(mockSvc, mockLog)

	mockSvc.On("Status").Return(service.IndexStatus{Documents: 4, Chunks: 4})
	mockLog.On("CountByPath", mock.Anything).Return(map[string]int{"vector": 5, "keyword": 2}, nil)

	w := httptest.NewRecorder()
	handler.Status(w, httptest.NewRequest(http.MethodGet, "/index/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"vector": float64(5), "keyword": float64(2)}, decodeData(t, w)["queries"])
}

func TestRetrievalHandler_Status_QueryCountFailureIgnored(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockLog := new(MockQueryLogRepository)
	handler := NewRetrievalHandler(mockSvc, mockLog)

	mockSvc.On("Status").Return(service.IndexStatus{Documents: 4, Chunks: 4})
	mockLog.On("CountByPath", mock.Anything).Return(nil, errors.New("db down"))

	w := httptest.NewRecorder()
	handler.Status(w, httptest.NewRequest(http.MethodGet, "/index/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeData(t, w)["queries"])
}

func TestRetrievalHandler_Retrieve_BodyTooLarge(t *testing.T) {
	handler := NewRetrievalHandler(new(MockRetrievalService), nil)

	body := []byte(`{"question":"` + strings.Repeat("sip ", 64) + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))
	req.ContentLength = -1
	w := httptest.NewRecorder()

	middleware.LimitBody(32)(http.HandlerFunc(handler.Retrieve)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request body exceeds 32 bytes")
}
