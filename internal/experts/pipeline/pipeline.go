// internal/experts/pipeline/pipeline.go
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "brickland-expert/internal/common/errors"
	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/common/metrics"
	adviceretriever "brickland-expert/internal/experts/advice-retriever"
	answercomposer "brickland-expert/internal/experts/answer-composer"
	querydecomposer "brickland-expert/internal/experts/query-decomposer"
	queryexecutor "brickland-expert/internal/experts/query-executor"
	queryrouter "brickland-expert/internal/experts/query-router"
	querytranslator "brickland-expert/internal/experts/query-translator"
	"brickland-expert/internal/models"
	"brickland-expert/pkg/schema"
)

// Stage interfaces mirror the handler Execute signatures so every stage can
// be swapped for a double in tests.
type (
	Decomposer interface {
		Execute(ctx context.Context, input *querydecomposer.Input) (*querydecomposer.Output, error)
	}
	Router interface {
		Execute(ctx context.Context, input *queryrouter.Input) (*queryrouter.Output, error)
	}
	SchemaLoader interface {
		Load(ctx context.Context) *schema.Metadata
	}
	Translator interface {
		Execute(ctx context.Context, input *querytranslator.Input) (*querytranslator.Output, error)
	}
	Executor interface {
		Execute(ctx context.Context, input *queryexecutor.Input) (*queryexecutor.Output, error)
	}
	Retriever interface {
		Execute(ctx context.Context, input *adviceretriever.Input) (*adviceretriever.Output, error)
	}
	Composer interface {
		Execute(ctx context.Context, input *answercomposer.Input) (*answercomposer.Output, error)
	}
)

// Pipeline runs one question through decomposition, routing, grounding and
// composition. Branches degrade independently: a failing branch only loses
// its own grounding.
type Pipeline struct {
	config     *Config
	decomposer Decomposer
	router     Router
	schema     SchemaLoader
	translator Translator
	executor   Executor
	retriever  Retriever
	composer   Composer
	logger     logger.Logger
}

func New(cfg *Config, d Decomposer, r Router, s SchemaLoader, t Translator, e Executor, ret Retriever, c Composer, log logger.Logger) *Pipeline {
	return &Pipeline{
		config:     cfg,
		decomposer: d,
		router:     r,
		schema:     s,
		translator: t,
		executor:   e,
		retriever:  ret,
		composer:   c,
		logger:     log,
	}
}

// branch carries the grounding work of one routed sub-question.
type branch struct {
	route    models.RoutedQuestion
	query    string
	snippets []models.Snippet
}

// Ask answers one question end to end. The returned error covers pipeline
// plumbing only; content-level degradation is expressed in the answer itself.
func (p *Pipeline) Ask(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	runID := uuid.NewString()
	log := p.logger.With(map[string]interface{}{"runId": runID})
	log.Info("Question received", map[string]interface{}{"question": req.Question})

	started := time.Now()
	decomposed, err := p.decomposer.Execute(ctx, &querydecomposer.Input{Question: req.Question})
	observeStage("decompose", started, err)
	if err != nil {
		return nil, err
	}
	subQuestions := decomposed.SubQuestions

	started = time.Now()
	routed, err := p.router.Execute(ctx, &queryrouter.Input{SubQuestions: subQuestions})
	observeStage("route", started, err)
	if err != nil {
		return nil, err
	}
	routes := routed.Routes

	// schema metadata is only touched when some sub-question actually
	// needs the listings table
	var meta *schema.Metadata
	if anySource(routes, models.SourceStructuredTable) {
		meta = p.schema.Load(ctx)
	}

	branches := p.ground(ctx, log, routes, meta)
	outcomes := p.executeQueries(ctx, log, branches)

	var snippets []models.Snippet
	for _, b := range branches {
		snippets = append(snippets, b.snippets...)
	}

	started = time.Now()
	answer, err := p.composer.Execute(ctx, &answercomposer.Input{
		Question:     req.Question,
		SubQuestions: subQuestions,
		Queries:      outcomes,
		Snippets:     snippets,
	})
	observeStage("compose", started, err)
	if err != nil {
		return nil, err
	}

	outcome := "grounded"
	if !answer.Grounded {
		outcome = "unanswered"
	}
	metrics.QuestionsAnswered.WithLabelValues(outcome).Inc()
	log.Info("Question answered", map[string]interface{}{
		"grounded": answer.Grounded,
		"branches": len(branches),
	})

	return &Response{
		RunID:        runID,
		Question:     req.Question,
		Answer:       answer.Answer,
		Grounded:     answer.Grounded,
		SubQuestions: subQuestions,
		Routes:       routes,
	}, nil
}

// ground fans the per-sub-question work out with bounded parallelism. Each
// branch owns its slot in the result slice, so no cross-branch state is
// shared.
func (p *Pipeline) ground(ctx context.Context, log logger.Logger, routes []models.RoutedQuestion, meta *schema.Metadata) []branch {
	branches := make([]branch, len(routes))

	sem := make(chan struct{}, p.config.MaxConcurrency)
	var wg sync.WaitGroup
	for i, route := range routes {
		branches[i].route = route
		wg.Add(1)
		go func(i int, route models.RoutedQuestion) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if models.HasSource(route.Sources, models.SourceStructuredTable) {
				out, err := p.translator.Execute(ctx, &querytranslator.Input{
					Question: route.Question.Text,
					Schema:   meta,
				})
				if err != nil {
					log.Warn("Translation branch degraded", map[string]interface{}{
						"question":    route.Question.Text,
						"error":       err.Error(),
						"degradation": string(apperrors.DegradationFor(apperrors.ErrCodeTranslationFailed)),
					})
					metrics.StageDegraded.WithLabelValues("translate", string(apperrors.ErrCodeTranslationFailed)).Inc()
				} else {
					branches[i].query = out.Query
				}
			}

			if models.HasSource(route.Sources, models.SourceDocumentCorpus) {
				out, err := p.retriever.Execute(ctx, &adviceretriever.Input{Question: route.Question.Text})
				if err != nil {
					log.Warn("Retrieval branch degraded", map[string]interface{}{
						"question":    route.Question.Text,
						"error":       err.Error(),
						"degradation": string(apperrors.DegradationFor(apperrors.ErrCodeCorpusSearchFailed)),
					})
					metrics.StageDegraded.WithLabelValues("retrieve", string(apperrors.ErrCodeCorpusSearchFailed)).Inc()
				} else {
					branches[i].snippets = out.Snippets
				}
			}
		}(i, route)
	}
	wg.Wait()

	return branches
}

// executeQueries runs the non-empty translated queries as one positional
// batch and pairs each result back with its sub-question. Empty translations
// are a normal outcome and never reach the executor.
func (p *Pipeline) executeQueries(ctx context.Context, log logger.Logger, branches []branch) []answercomposer.QueryOutcome {
	var outcomes []answercomposer.QueryOutcome

	var (
		queries []string
		idx     []int
	)
	for i, b := range branches {
		if !models.HasSource(b.route.Sources, models.SourceStructuredTable) {
			continue
		}
		if b.query == "" {
			outcomes = append(outcomes, answercomposer.QueryOutcome{
				Question: b.route.Question.Text,
			})
			continue
		}
		queries = append(queries, b.query)
		idx = append(idx, i)
	}
	if len(queries) == 0 {
		return outcomes
	}

	started := time.Now()
	out, err := p.executor.Execute(ctx, &queryexecutor.Input{Queries: queries})
	observeStage("execute", started, err)
	if err != nil {
		log.Warn("Executor degraded, losing table grounding", map[string]interface{}{
			"error":       err.Error(),
			"degradation": string(apperrors.DegradationFor(apperrors.ErrCodeQueryExecutionFailed)),
		})
		metrics.StageDegraded.WithLabelValues("execute", string(apperrors.ErrCodeQueryExecutionFailed)).Inc()
		for _, i := range idx {
			outcomes = append(outcomes, answercomposer.QueryOutcome{
				Question: branches[i].route.Question.Text,
				Query:    branches[i].query,
				Result:   models.QueryResult{Query: branches[i].query, Failed: true, Err: err.Error()},
			})
		}
		return outcomes
	}

	for n, i := range idx {
		outcomes = append(outcomes, answercomposer.QueryOutcome{
			Question: branches[i].route.Question.Text,
			Query:    branches[i].query,
			Result:   out.Results[n],
		})
	}
	return outcomes
}

func observeStage(stage string, started time.Time, err error) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	if err == nil {
		metrics.StageCompleted.WithLabelValues(stage).Inc()
	}
}

func anySource(routes []models.RoutedQuestion, want models.SourceTag) bool {
	for _, r := range routes {
		if models.HasSource(r.Sources, want) {
			return true
		}
	}
	return false
}
