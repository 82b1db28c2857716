package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/finsight/internal/api"
	"github.com/cloo-solutions/finsight/internal/api/middleware"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
)

// MaxTopK bounds the number of snippets a single request may ask for.
const MaxTopK = 20

type RetrievalService interface {
	Search(ctx context.Context, question string, k int) (*service.RetrievalOutput, error)
	Status() service.IndexStatus
}

type RetrievalHandler struct {
	svc     RetrievalService
	logRepo service.QueryLogRepository
}

func NewRetrievalHandler(svc RetrievalService, logRepo service.QueryLogRepository) *RetrievalHandler {
	return &RetrievalHandler{svc: svc, logRepo: logRepo}
}

type RetrieveRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type MatchResponse struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Type    string  `json:"type"`
	Offset  int     `json:"offset"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type RetrieveResponse struct {
	Context string           `json:"context"`
	Path    string           `json:"path"`
	NoMatch bool             `json:"no_match"`
	Matches []*MatchResponse `json:"matches"`
	QueryID string           `json:"query_id,omitempty"`
}

type IndexStatusResponse struct {
	Enabled     bool           `json:"enabled"`
	Built       bool           `json:"built"`
	BuildID     string         `json:"build_id,omitempty"`
	Model       string         `json:"model,omitempty"`
	Dimensions  int            `json:"dimensions,omitempty"`
	Builds      int64          `json:"builds"`
	Documents   int            `json:"documents"`
	Chunks      int            `json:"chunks"`
	LastError   string         `json:"last_error,omitempty"`
	LastErrorAt string         `json:"last_error_at,omitempty"`
	Queries     map[string]int `json:"queries,omitempty"`
}

// Retrieve answers a question with the best matching corpus snippets.
func (h *RetrievalHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if msg, ok := middleware.BodyLimitError(err); ok {
			api.Error(w, http.StatusRequestEntityTooLarge, msg)
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.K < 0 || req.K > MaxTopK {
		api.Error(w, http.StatusBadRequest, "k must be between 1 and 20")
		return
	}

	output, err := h.svc.Search(r.Context(), req.Question, req.K)
	if errors.Is(err, domain.ErrInvalidQuery) {
		api.Error(w, http.StatusBadRequest, service.InvalidQueryMessage)
		return
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	matches := make([]*MatchResponse, len(output.Matches))
	for i, m := range output.Matches {
		matches[i] = &MatchResponse{
			ChunkID: m.ID(),
			Source:  m.Source,
			Type:    m.Type,
			Offset:  m.Offset,
			Score:   m.Score,
			Snippet: output.Snippets[i],
		}
	}

	resp := RetrieveResponse{
		Context: output.Context,
		Path:    string(output.Path),
		NoMatch: output.NoMatch,
		Matches: matches,
	}

	if h.logRepo != nil {
		entry := service.NewQueryLogEntry(
			middleware.GetClientID(r.Context()),
			strings.TrimSpace(req.Question),
			output.TopK,
			output,
			h.svc.Status().Info.BuildID,
			int(time.Since(start).Milliseconds()),
		)
		entry.RequestID = middleware.GetRequestID(r.Context())
		if queryID, err := h.logRepo.CreateQueryLog(r.Context(), entry); err == nil {
			resp.QueryID = queryID
		} else {
			log.Printf("retrieval: failed to record query log: %v", err)
		}
	}

	api.Success(w, http.StatusOK, resp)
}

// Status reports whether the vector index is built.
func (h *RetrievalHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Status()

	resp := IndexStatusResponse{
		Enabled:    st.Enabled,
		Built:      st.Built,
		BuildID:    st.Info.BuildID,
		Model:      st.Info.Model,
		Dimensions: st.Info.Dimensions,
		Builds:     st.Builds,
		Documents:  st.Documents,
		Chunks:     st.Chunks,
		LastError:  st.LastError,
	}
	if !st.LastErrorAt.IsZero() {
		resp.LastErrorAt = st.LastErrorAt.UTC().Format(time.RFC3339Nano)
	}
	if h.logRepo != nil {
		counts, err := h.logRepo.CountByPath(r.Context())
		if err != nil {
			log.Printf("retrieval: failed to count query logs: %v", err)
		} else {
			resp.Queries = counts
		}
	}

	api.Success(w, http.StatusOK, resp)
}
