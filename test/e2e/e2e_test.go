// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickland-expert/internal/common/genai"
	"brickland-expert/internal/common/logger"
	adviceretriever "brickland-expert/internal/experts/advice-retriever"
	answercomposer "brickland-expert/internal/experts/answer-composer"
	"brickland-expert/internal/experts/pipeline"
	querydecomposer "brickland-expert/internal/experts/query-decomposer"
	queryexecutor "brickland-expert/internal/experts/query-executor"
	queryrouter "brickland-expert/internal/experts/query-router"
	querytranslator "brickland-expert/internal/experts/query-translator"
	schemaloader "brickland-expert/internal/experts/schema-loader"
	"brickland-expert/internal/models"
)

// capabilityServer doubles the generative API with canned per-endpoint
// responses and records which paths were hit.
type capabilityServer struct {
	mu      sync.Mutex
	paths   []string
	sources []string
	query   string
	answer  string
	subQs   map[string][]string // strategy -> sub-questions
}

func (c *capabilityServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.mu.Unlock()

		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)

		switch r.URL.Path {
		case "/api/ai/decompose":
			strategy, _ := req["strategy"].(string)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"subQuestions": c.subQs[strategy],
			})
		case "/api/ai/classify-sources":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"dataSources": c.sources,
			})
		case "/api/ai/generate-query":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"query": c.query,
			})
		case "/api/ai/generate":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"text": c.answer,
			})
		default:
			http.NotFound(w, r)
		}
	}
}

func (c *capabilityServer) hits(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.paths {
		if p == path {
			n++
		}
	}
	return n
}

func writeSchemaDocument(t *testing.T) string {
	t.Helper()
	doc := `[
		{"name": "prop_url", "description": "listing page url", "type": "TEXT"},
		{"name": "project_url", "description": "project page url", "type": "TEXT"},
		{"name": "prop_price", "description": "price in USD as text", "type": "TEXT"},
		{"name": "prop_rooms", "description": "room count", "type": "INTEGER"},
		{"name": "prop_location", "description": "neighborhood", "type": "TEXT"}
	]`
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func newElasticsearchDouble(t *testing.T, body string) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

const emptySearch = `{"hits":{"hits":[]}}`

type fixture struct {
	capability *capabilityServer
	mock       sqlmock.Sqlmock
	pipeline   *pipeline.Pipeline
}

// newFixture wires the real stage handlers against doubled backends: a
// canned capability API, sqlmock for Postgres, miniredis for the caches and
// an httptest Elasticsearch.
func newFixture(t *testing.T, capability *capabilityServer, esBody string) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)

	capSrv := httptest.NewServer(capability.handler())
	t.Cleanup(capSrv.Close)
	ai := genai.NewClient(&genai.Config{
		BaseURL: capSrv.URL,
		Timeout: 5 * time.Second,
	})

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisSrv := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: redisSrv.Addr()})
	t.Cleanup(func() { cache.Close() })

	stageTimeout := 5 * time.Second
	decomposer := querydecomposer.NewHandler(&querydecomposer.Config{Timeout: stageTimeout}, ai, log)
	router := queryrouter.NewHandler(&queryrouter.Config{Timeout: stageTimeout}, ai, cache, time.Minute, log)
	loader := schemaloader.NewHandler(&schemaloader.Config{Path: writeSchemaDocument(t)}, log)
	translator := querytranslator.NewHandler(
		&querytranslator.Config{Timeout: stageTimeout, Table: "properties", MaxResults: 5}, ai, log)
	executor := queryexecutor.NewHandler(
		&queryexecutor.Config{Timeout: stageTimeout, MaxConcurrency: 2, CacheTTL: time.Minute},
		db, cache, log)
	retriever := adviceretriever.NewHandler(
		&adviceretriever.Config{Timeout: stageTimeout, Index: "advice-corpus", TopK: 4},
		newElasticsearchDouble(t, esBody), log)
	composer := answercomposer.NewHandler(&answercomposer.Config{Timeout: stageTimeout}, ai, log)

	p := pipeline.New(
		&pipeline.Config{Timeout: 30 * time.Second, MaxConcurrency: 2},
		decomposer, router, loader, translator, executor, retriever, composer, log)

	return &fixture{capability: capability, mock: mock, pipeline: p}
}

func TestListingSearchEndToEnd(t *testing.T) {
	question := "¿Busco un depto de 2 ambientes en Palermo por menos de 200000 dólares?"
	sub := "departamentos de 2 ambientes en Palermo por menos de 200000 dolares"

	// the generated query omits the urls and the limit on purpose: the
	// guards must repair both before execution
	generated := "SELECT prop_price FROM properties WHERE prop_rooms = 2 AND prop_location LIKE '%Palermo%' AND CAST(prop_price AS REAL) < 200000"
	guarded := "SELECT prop_url, project_url, prop_price FROM properties WHERE prop_rooms = 2 AND prop_location LIKE '%Palermo%' AND CAST(prop_price AS REAL) < 200000 LIMIT 5"

	capability := &capabilityServer{
		subQs: map[string][]string{
			genai.StrategyDecomposition: {sub},
			genai.StrategyStepBack:      {},
		},
		sources: []string{"properties_table"},
		query:   generated,
		answer:  "Encontré un departamento de 2 ambientes en Palermo por USD 185000: https://example.com/p/1",
	}
	f := newFixture(t, capability, emptySearch)

	f.mock.ExpectQuery(guarded).WillReturnRows(
		sqlmock.NewRows([]string{"prop_url", "project_url", "prop_price"}).
			AddRow("https://example.com/p/1", "https://example.com/pr/1", "185000"),
	)

	resp, err := f.pipeline.Ask(context.Background(), &pipeline.Request{Question: question})

	require.NoError(t, err)
	assert.True(t, resp.Grounded)
	assert.Contains(t, resp.Answer, "https://example.com/p/1")
	require.Len(t, resp.SubQuestions, 1)
	assert.Equal(t, sub, resp.SubQuestions[0].Text)
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, []models.SourceTag{models.SourceStructuredTable}, resp.Routes[0].Sources)

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestNeighborhoodQuestionSkipsTableEndToEnd(t *testing.T) {
	question := "¿Es seguro el barrio de Recoleta?"

	capability := &capabilityServer{
		subQs: map[string][]string{
			genai.StrategyDecomposition: {question},
			genai.StrategyStepBack:      {},
		},
		sources: []string{"llm_expertise"},
		answer:  "Recoleta es un barrio consolidado con buena seguridad relativa.",
	}
	f := newFixture(t, capability, emptySearch)

	resp, err := f.pipeline.Ask(context.Background(), &pipeline.Request{Question: question})

	require.NoError(t, err)
	assert.True(t, resp.Grounded)
	assert.Contains(t, resp.Answer, "Recoleta")

	// no structured_table routing anywhere: translation never requested,
	// nothing executed
	assert.Zero(t, f.capability.hits("/api/ai/generate-query"))
	require.NoError(t, f.mock.ExpectationsWereMet())

	for _, route := range resp.Routes {
		assert.False(t, models.HasSource(route.Sources, models.SourceStructuredTable))
	}
}

func TestAdviceQuestionUsesCorpusEndToEnd(t *testing.T) {
	question := "¿Qué ventajas tiene comprar un departamento en pozo?"
	search := `{"hits":{"hits":[
		{"_score": 2.1, "_source": {"content": "Comprar en pozo suele ofrecer precios por debajo del valor de mercado."}},
		{"_score": 1.3, "_source": {"content": "El riesgo principal es la demora en la entrega de la obra."}}
	]}}`

	capability := &capabilityServer{
		subQs: map[string][]string{
			genai.StrategyDecomposition: {question},
			genai.StrategyStepBack:      {},
		},
		sources: []string{"pdf_docs"},
		answer:  "Comprar en pozo ofrece precios bajo mercado, con riesgo de demoras.",
	}
	f := newFixture(t, capability, search)

	resp, err := f.pipeline.Ask(context.Background(), &pipeline.Request{Question: question})

	require.NoError(t, err)
	assert.True(t, resp.Grounded)
	require.Len(t, resp.Routes, 1)
	assert.True(t, models.HasSource(resp.Routes[0].Sources, models.SourceDocumentCorpus))
	assert.Zero(t, f.capability.hits("/api/ai/generate-query"))
}

func TestBlankQuestionEndToEnd(t *testing.T) {
	capability := &capabilityServer{subQs: map[string][]string{}}
	f := newFixture(t, capability, emptySearch)

	resp, err := f.pipeline.Ask(context.Background(), &pipeline.Request{Question: "   "})

	require.NoError(t, err)
	// blank input produces the marker sub-question; no source grounds it
	// and no capability call is made on the way
	require.Len(t, resp.SubQuestions, 1)
	assert.Equal(t, models.UnableToAnswer, resp.SubQuestions[0].Text)
	require.Len(t, resp.Routes, 1)
	assert.Empty(t, resp.Routes[0].Sources)
	assert.Zero(t, f.capability.hits("/api/ai/decompose"))
	assert.False(t, resp.Grounded)
	assert.Equal(t, models.UnableToAnswer, resp.Answer)
}
