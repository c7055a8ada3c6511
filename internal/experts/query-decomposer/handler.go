// internal/experts/query-decomposer/handler.go
package querydecomposer

import (
	"context"
	"strings"

	"brickland-expert/internal/common/genai"
	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/models"
)

// Decomposer produces sub-questions for a user question using a named
// rewriting strategy.
type Decomposer interface {
	Decompose(ctx context.Context, question, strategy string) ([]string, error)
}

type Handler struct {
	config     *Config
	decomposer Decomposer
	logger     logger.Logger
}

func NewHandler(cfg *Config, decomposer Decomposer, log logger.Logger) *Handler {
	return &Handler{
		config:     cfg,
		decomposer: decomposer,
		logger:     log,
	}
}

// StrategyPassthrough marks a sub-question that is the unrewritten input,
// used when no rewriting strategy produced anything usable.
const StrategyPassthrough = "passthrough"

// strategies run in a fixed order so the pooled output is deterministic
// for a given set of capability responses.
var strategies = []string{
	genai.StrategyDecomposition,
	genai.StrategyStepBack,
}

// Execute splits a question into sub-questions by pooling every rewriting
// strategy. Duplicates across strategies are kept: downstream stages treat
// each entry independently. Execute never fails; when no strategy yields
// anything usable, the original question passes through unchanged.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		h.logger.Warn("Empty question received", nil)
		return &Output{
			SubQuestions: []models.SubQuestion{
				{Text: models.UnableToAnswer, Strategy: StrategyPassthrough},
			},
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	var pooled []models.SubQuestion
	for _, strategy := range strategies {
		parts, err := h.decomposer.Decompose(ctx, question, strategy)
		if err != nil {
			h.logger.Warn("Decomposition strategy failed", map[string]interface{}{
				"strategy": strategy,
				"error":    err.Error(),
			})
			continue
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			pooled = append(pooled, models.SubQuestion{Text: part, Origin: question, Strategy: strategy})
		}
	}

	if len(pooled) == 0 {
		h.logger.Info("No sub-questions produced, passing question through", map[string]interface{}{
			"question": question,
		})
		pooled = []models.SubQuestion{{Text: question, Origin: question, Strategy: StrategyPassthrough}}
	}

	h.logger.Info("Question decomposed", map[string]interface{}{
		"question":     question,
		"subQuestions": len(pooled),
	})

	return &Output{SubQuestions: pooled}, nil
}
