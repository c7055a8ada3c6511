// internal/experts/query-executor/handler.go
package queryexecutor

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "brickland-expert/internal/common/errors"
	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/common/metrics"
	"brickland-expert/internal/models"
)

type Handler struct {
	config *Config
	db     *sql.DB
	cache  *redis.Client
	logger logger.Logger
}

// NewHandler builds an executor. cache may be nil; queries then always hit
// the database.
func NewHandler(cfg *Config, db *sql.DB, cache *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: cfg,
		db:     db,
		cache:  cache,
		logger: log,
	}
}

// Execute runs every query exactly once against the listings table. Results
// come back positionally aligned with the input; a failing query yields a
// failure marker in its slot and never disturbs its siblings. Parallelism is
// bounded by MaxConcurrency.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	results := make([]models.QueryResult, len(input.Queries))

	sem := make(chan struct{}, h.config.MaxConcurrency)
	var wg sync.WaitGroup
	for i, query := range input.Queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = h.runOne(ctx, query)
		}(i, query)
	}
	wg.Wait()

	return &Output{Results: results}, nil
}

func (h *Handler) runOne(ctx context.Context, query string) models.QueryResult {
	result := models.QueryResult{Query: query}

	if strings.TrimSpace(query) == "" {
		result.Failed = true
		result.Err = "empty query"
		metrics.QueriesExecuted.WithLabelValues("skipped").Inc()
		return result
	}

	if rows, ok := h.cachedRows(ctx, query); ok {
		result.Rows = rows
		metrics.QueriesExecuted.WithLabelValues("cache_hit").Inc()
		return result
	}

	started := time.Now()
	rows, err := h.queryRows(ctx, query)
	if err != nil {
		// single attempt: a malformed statement will not heal on retry
		stdErr := apperrors.NewQueryExecutionError(query, err.Error())
		h.logger.WithError(stdErr).Warn("Query execution failed", map[string]interface{}{
			"query": query,
			"code":  string(stdErr.Code),
			"error": err.Error(),
		})
		result.Failed = true
		result.Err = err.Error()
		metrics.QueriesExecuted.WithLabelValues("failed").Inc()
		return result
	}

	h.logger.Info("Query executed", map[string]interface{}{
		"query":      query,
		"rows":       len(rows),
		"durationMs": time.Since(started).Milliseconds(),
	})
	result.Rows = rows
	metrics.QueriesExecuted.WithLabelValues("success").Inc()
	h.storeRows(ctx, query, rows)
	return result
}

func (h *Handler) queryRows(ctx context.Context, query string) ([]models.Row, error) {
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]models.Row, 0, 8)
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(models.Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func cacheKey(query string) string {
	sum := sha1.Sum([]byte(query))
	return "sqlresult:" + hex.EncodeToString(sum[:])
}

func (h *Handler) cachedRows(ctx context.Context, query string) ([]models.Row, bool) {
	if h.cache == nil {
		return nil, false
	}
	raw, err := h.cache.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []models.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// storeRows caches successful results only; failures must re-execute.
func (h *Handler) storeRows(ctx context.Context, query string, rows []models.Row) {
	if h.cache == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, cacheKey(query), raw, h.config.CacheTTL).Err(); err != nil {
		h.logger.Debug("Result cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
