package service

import "context"

// QueryLogResult captures a single result entry for logging.
type QueryLogResult struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// QueryLogEntry captures a retrieval request and its results.
type QueryLogEntry struct {
	ClientID   string
	RequestID  string
	Question   string
	Path       RetrievalPath
	TopK       int
	NoMatch    bool
	BuildID    string
	DurationMs int
	Results    []QueryLogResult
}

// QueryLogRepository persists retrieval logs for later evaluation.
type QueryLogRepository interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error)
	CountByPath(ctx context.Context) (map[string]int, error)
}

// NewQueryLogEntry summarizes a search output for logging.
func NewQueryLogEntry(clientID, question string, k int, out *RetrievalOutput, buildID string, durationMs int) QueryLogEntry {
	entry := QueryLogEntry{
		ClientID:   clientID,
		Question:   question,
		Path:       out.Path,
		TopK:       k,
		NoMatch:    out.NoMatch,
		DurationMs: durationMs,
		Results:    make([]QueryLogResult, 0, len(out.Matches)),
	}
	if out.Path == RetrievalPathVector {
		entry.BuildID = buildID
	}
	for _, m := range out.Matches {
		entry.Results = append(entry.Results, QueryLogResult{ChunkID: m.ID(), Source: m.Source, Score: m.Score})
	}
	return entry
}
