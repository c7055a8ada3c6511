// cmd/expert-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"brickland-expert/internal/common/config"
	"brickland-expert/internal/common/database"
	"brickland-expert/internal/common/genai"
	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/common/observability"
	adviceretriever "brickland-expert/internal/experts/advice-retriever"
	answercomposer "brickland-expert/internal/experts/answer-composer"
	"brickland-expert/internal/experts/pipeline"
	querydecomposer "brickland-expert/internal/experts/query-decomposer"
	queryexecutor "brickland-expert/internal/experts/query-executor"
	queryrouter "brickland-expert/internal/experts/query-router"
	querytranslator "brickland-expert/internal/experts/query-translator"
	schemaloader "brickland-expert/internal/experts/schema-loader"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting expert server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	ai := genai.NewClient(&genai.Config{
		BaseURL:    cfg.APIs.GenAI.BaseURL,
		APIKey:     cfg.APIs.GenAI.APIKey,
		Timeout:    config.GetDuration(cfg.APIs.GenAI.Timeout),
		MaxRetries: cfg.APIs.GenAI.MaxRetries,
	})

	stageTimeout := config.GetDuration(cfg.Expert.StageTimeout)
	cacheTTL := time.Duration(cfg.Expert.CacheTTLSeconds) * time.Second

	decomposer := querydecomposer.NewHandler(
		&querydecomposer.Config{Timeout: stageTimeout},
		ai, log,
	)
	router := queryrouter.NewHandler(
		&queryrouter.Config{Timeout: stageTimeout},
		ai, redisClient.GetClient(), cacheTTL, log,
	)
	schemaLoader := schemaloader.NewHandler(
		&schemaloader.Config{Path: cfg.Expert.SchemaPath},
		log,
	)
	translator := querytranslator.NewHandler(
		&querytranslator.Config{
			Timeout:    stageTimeout,
			Table:      cfg.Expert.ListingsTable,
			MaxResults: cfg.Expert.MaxResults,
		},
		ai, log,
	)
	executor := queryexecutor.NewHandler(
		&queryexecutor.Config{
			Timeout:        stageTimeout,
			MaxConcurrency: cfg.Expert.MaxConcurrency,
			CacheTTL:       cacheTTL,
		},
		pg.DB, redisClient.GetClient(), log,
	)
	retriever := adviceretriever.NewHandler(
		&adviceretriever.Config{
			Timeout: stageTimeout,
			Index:   cfg.Expert.AdviceIndex,
			TopK:    cfg.Expert.RetrieveTopK,
		},
		esClient.Client, log,
	)
	composer := answercomposer.NewHandler(
		&answercomposer.Config{Timeout: stageTimeout},
		ai, log,
	)

	expert := pipeline.New(
		&pipeline.Config{
			Timeout:        config.GetDuration(cfg.Expert.PipelineTimeout),
			MaxConcurrency: cfg.Expert.MaxConcurrency,
		},
		decomposer, router, schemaLoader, translator, executor, retriever, composer,
		log,
	)

	// --- HTTP surface ---
	r := mux.NewRouter()
	r.HandleFunc("/ask", askHandler(expert, obs, log)).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := pg.Ping(req.Context()); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: config.GetDuration(cfg.Expert.PipelineTimeout) + 5*time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// metrics and pprof share the ops listener
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, nil); err != nil {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("Expert server stopped")
}

func askHandler(expert *pipeline.Pipeline, obs *observability.Observability, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			http.Error(w, "question is required", http.StatusBadRequest)
			return
		}

		started := time.Now()
		resp, err := expert.Ask(r.Context(), &req)
		if err != nil {
			log.Error("Question processing failed", map[string]interface{}{
				"error": err.Error(),
			})
			obs.RecordQuestionProcessed(r.Context(), "error")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		outcome := "grounded"
		if !resp.Grounded {
			outcome = "unanswered"
		}
		obs.RecordQuestionProcessed(r.Context(), outcome)
		obs.RecordQuestionDuration(r.Context(), time.Since(started), outcome)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("Response encoding failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
