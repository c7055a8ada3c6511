// internal/experts/advice-retriever/handler_test.go
package adviceretriever

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickland-expert/internal/common/logger"
)

// newSearchServer fakes the search endpoint. The product header is required
// or the client rejects the response.
func newSearchServer(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func searchResponse(snippets ...map[string]interface{}) string {
	hits := make([]interface{}, 0, len(snippets))
	for _, s := range snippets {
		hits = append(hits, map[string]interface{}{
			"_score":  s["score"],
			"_source": map[string]interface{}{"content": s["content"]},
		})
	}
	body, _ := json.Marshal(map[string]interface{}{
		"hits": map[string]interface{}{"hits": hits},
	})
	return string(body)
}

func newTestHandler(t *testing.T, es *elasticsearch.Client) *Handler {
	t.Helper()
	cfg := &Config{Timeout: 5 * time.Second, Index: "advice-corpus", TopK: 4}
	return NewHandler(cfg, es, logger.NewTestLogger(t))
}

func TestExecute_RankedSnippets(t *testing.T) {
	es := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "advice-corpus")
		io.WriteString(w, searchResponse(
			map[string]interface{}{"score": 2.4, "content": "Comprar en pozo suele ofrecer precios por debajo del mercado."},
			map[string]interface{}{"score": 1.1, "content": "El fideicomiso al costo traslada los aumentos al comprador."},
		))
	})
	handler := newTestHandler(t, es)

	out, err := handler.Execute(context.Background(), &Input{Question: "ventajas de comprar en pozo"})

	require.NoError(t, err)
	require.Len(t, out.Snippets, 2)
	assert.Greater(t, out.Snippets[0].Score, out.Snippets[1].Score)
	assert.Contains(t, out.Snippets[0].Content, "pozo")
}

func TestExecute_NoMatchIsEmptyNotError(t *testing.T) {
	es := newSearchServer(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, searchResponse())
	})
	handler := newTestHandler(t, es)

	out, err := handler.Execute(context.Background(), &Input{Question: "tema sin cobertura"})

	require.NoError(t, err)
	assert.Empty(t, out.Snippets)
}

func TestExecute_EmptyQuestionSkipsSearch(t *testing.T) {
	called := false
	es := newSearchServer(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
		io.WriteString(w, searchResponse())
	})
	handler := newTestHandler(t, es)

	out, err := handler.Execute(context.Background(), &Input{Question: "   "})

	require.NoError(t, err)
	assert.Empty(t, out.Snippets)
	assert.False(t, called)
}

func TestExecute_TopKOverrideSentToIndex(t *testing.T) {
	var captured map[string]interface{}
	es := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		io.WriteString(w, searchResponse())
	})
	handler := newTestHandler(t, es)

	_, err := handler.Execute(context.Background(), &Input{Question: "consejos legales", TopK: 2})

	require.NoError(t, err)
	assert.Equal(t, float64(2), captured["size"])
}

func TestExecute_IndexErrorSurfaces(t *testing.T) {
	es := newSearchServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"reason":"shard failure"}}`)
	})
	handler := newTestHandler(t, es)

	_, err := handler.Execute(context.Background(), &Input{Question: "consejos"})

	assert.Error(t, err)
}
