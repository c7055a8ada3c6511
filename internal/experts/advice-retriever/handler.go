// internal/experts/advice-retriever/handler.go
package adviceretriever

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "brickland-expert/internal/common/errors"
	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/models"
)

type Handler struct {
	config   *Config
	esClient *elasticsearch.Client
	logger   logger.Logger
}

func NewHandler(cfg *Config, esClient *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config:   cfg,
		esClient: esClient,
		logger:   log,
	}
}

// Execute searches the advice corpus for snippets relevant to one question.
// No match is an empty slice, not an error; the index is search-only from
// here.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return &Output{Snippets: []models.Snippet{}}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	topK := input.TopK
	if topK <= 0 {
		topK = h.config.TopK
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"content": question,
			},
		},
		"size": topK,
	}

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{h.config.Index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, h.esClient)
	if err != nil {
		return nil, apperrors.NewCorpusSearchError(err.Error())
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewCorpusSearchError(res.String())
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewCorpusSearchError(fmt.Sprintf("decode search response: %v", err))
	}

	snippets := parseHits(r)
	h.logger.Info("Advice corpus searched", map[string]interface{}{
		"question": question,
		"snippets": len(snippets),
	})
	return &Output{Snippets: snippets}, nil
}

func parseHits(r map[string]interface{}) []models.Snippet {
	snippets := []models.Snippet{}

	outer, ok := r["hits"].(map[string]interface{})
	if !ok {
		return snippets
	}
	hits, ok := outer["hits"].([]interface{})
	if !ok {
		return snippets
	}

	for _, hit := range hits {
		hm, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hm["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		content, ok := source["content"].(string)
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}
		score, _ := hm["_score"].(float64)
		snippets = append(snippets, models.Snippet{Content: content, Score: score})
	}
	return snippets
}
