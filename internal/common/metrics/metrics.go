// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expert_stage_completed_total",
			Help: "Total number of pipeline stage executions completed",
		},
		[]string{"stage"},
	)

	StageDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expert_stage_degraded_total",
			Help: "Total number of stage executions that fell back to a degraded path",
		},
		[]string{"stage", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "expert_stage_duration_seconds",
			Help: "Duration of stage processing in seconds",
		},
		[]string{"stage"},
	)

	QuestionsAnswered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expert_questions_answered_total",
			Help: "Questions answered by grounding outcome",
		},
		[]string{"outcome"},
	)

	QueriesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expert_queries_executed_total",
			Help: "Translated queries executed against the listings table",
		},
		[]string{"status"},
	)
)
