package repository

import (
	"context"
	"encoding/json"

	"github.com/cloo-solutions/finsight/internal/service"
)

// QueryLogRepository stores retrieval logs for evaluation.
type QueryLogRepository struct {
	db dbtx
}

// NewQueryLogRepository accepts a pool or a transaction.
func NewQueryLogRepository(db dbtx) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

func (r *QueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) (string, error) {
	resultsJSON, _ := json.Marshal(entry.Results)

	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO query_logs (client_id, request_id, question, path, top_k, no_match, build_id, results, result_count, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		nullableString(entry.ClientID),
		nullableString(entry.RequestID),
		entry.Question,
		string(entry.Path),
		entry.TopK,
		entry.NoMatch,
		nullableString(entry.BuildID),
		resultsJSON,
		len(entry.Results),
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// CountByPath returns how many logged queries each retrieval path answered.
func (r *QueryLogRepository) CountByPath(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT path, COUNT(*) FROM query_logs GROUP BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var path string
		var n int
		if err := rows.Scan(&path, &n); err != nil {
			return nil, err
		}
		counts[path] = n
	}
	return counts, rows.Err()
}
