// internal/common/genai/client_test.go
package genai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, retries int) *Client {
	return NewClient(&Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		MaxRetries: retries,
	})
}

func TestDecompose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/decompose", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "query_decomposition")
		io.WriteString(w, `{"subQuestions": ["precio en Palermo", "ambientes en Palermo"]}`)
	}))
	defer srv.Close()

	subs, err := newTestClient(srv, 0).Decompose(context.Background(), "depto en Palermo", StrategyDecomposition)

	require.NoError(t, err)
	assert.Equal(t, []string{"precio en Palermo", "ambientes en Palermo"}, subs)
}

func TestClassifySources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/classify-sources", r.URL.Path)
		io.WriteString(w, `{"dataSources": ["structured_table", "general_knowledge"]}`)
	}))
	defer srv.Close()

	sources, err := newTestClient(srv, 0).ClassifySources(context.Background(), "precio en Palermo")

	require.NoError(t, err)
	assert.Equal(t, []string{"structured_table", "general_knowledge"}, sources)
}

func TestGenerateQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate-query", r.URL.Path)
		io.WriteString(w, `{"query": "SELECT prop_url, project_url FROM properties LIMIT 5"}`)
	}))
	defer srv.Close()

	query, err := newTestClient(srv, 0).GenerateQuery(context.Background(), "propiedades", "prop_url: listing url")

	require.NoError(t, err)
	assert.Contains(t, query, "SELECT")
}

func TestGenerateAnswer_RetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"text": "respuesta final"}`)
	}))
	defer srv.Close()

	text, err := newTestClient(srv, 2).GenerateAnswer(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "respuesta final", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPost_FailureAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 1).GenerateAnswer(context.Background(), "prompt")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapabilityFailed)
}

func TestPost_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		io.WriteString(w, `{"text": "tarde"}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv, 0).GenerateAnswer(ctx, "prompt")

	assert.ErrorIs(t, err, ErrCapabilityTimeout)
}
