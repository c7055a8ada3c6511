// internal/experts/answer-composer/handler.go
package answercomposer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "brickland-expert/internal/common/errors"
	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/models"
)

// AnswerGenerator produces the final answer text from a composed prompt.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	config    *Config
	generator AnswerGenerator
	logger    logger.Logger
}

func NewHandler(cfg *Config, generator AnswerGenerator, log logger.Logger) *Handler {
	return &Handler{
		config:    cfg,
		generator: generator,
		logger:    log,
	}
}

// Execute merges every grounding source into one prompt and asks for the
// final answer. The merge order is fixed: question, decomposition, query
// results, document context. When generation fails but grounding exists, a
// plain digest of that grounding is returned instead; the unable-to-answer
// text appears only when every source came up empty at the same time.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	prompt := h.buildPrompt(input)

	answer, err := h.generator.GenerateAnswer(ctx, prompt)
	if err != nil {
		h.logger.Warn("Answer generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		answer = ""
	}
	answer = strings.TrimSpace(answer)

	if answer == "" {
		answer = digest(input)
	}
	if answer == "" {
		stdErr := apperrors.NewAllSourcesFailedError("no rows, no snippets, generation unavailable")
		h.logger.WithError(stdErr).Warn("No source produced anything, answering with the marker", map[string]interface{}{
			"code": string(stdErr.Code),
		})
		return &Output{Answer: models.UnableToAnswer, Grounded: false}, nil
	}

	return &Output{Answer: answer, Grounded: true}, nil
}

// buildPrompt renders the grounding sources in a deterministic order so the
// same inputs always produce the same prompt.
func (h *Handler) buildPrompt(input *Input) string {
	var b strings.Builder

	b.WriteString("Sos un experto inmobiliario en desarrollos en pozo de Buenos Aires.\n")
	b.WriteString("Respondé la pregunta del usuario usando únicamente el contexto provisto.\n\n")

	fmt.Fprintf(&b, "Pregunta original: %s\n", input.Question)

	if len(input.SubQuestions) > 0 {
		b.WriteString("\nSub-preguntas analizadas:\n")
		for _, sq := range input.SubQuestions {
			fmt.Fprintf(&b, "- %s\n", sq.Text)
		}
	}

	b.WriteString("\nDatos de la tabla de propiedades:\n")
	if !hasListingData(input.Queries) {
		b.WriteString(models.NoListingData + "\n")
		b.WriteString("No afirmes haber consultado avisos concretos.\n")
	} else {
		for _, q := range input.Queries {
			if q.Query == "" {
				continue
			}
			fmt.Fprintf(&b, "Consulta: %s\n", q.Query)
			switch {
			case q.Result.Failed:
				b.WriteString("Resultado: la consulta no pudo ejecutarse\n")
			case len(q.Result.Rows) == 0:
				b.WriteString("Resultado: sin filas\n")
			default:
				rows, _ := json.Marshal(q.Result.Rows)
				fmt.Fprintf(&b, "Resultado: %s\n", rows)
			}
		}
	}

	if len(input.Snippets) > 0 {
		b.WriteString("\nContexto documental:\n")
		for _, s := range input.Snippets {
			fmt.Fprintf(&b, "- %s\n", s.Content)
		}
	}

	b.WriteString("\nIncluí los links (prop_url, project_url) de cada propiedad que menciones.\n")
	return b.String()
}

func hasListingData(queries []QueryOutcome) bool {
	for _, q := range queries {
		if q.Query != "" {
			return true
		}
	}
	return false
}

// digest is the degraded rendering used when generation is unavailable: raw
// rows and snippets, no synthesis.
func digest(input *Input) string {
	var parts []string

	for _, q := range input.Queries {
		if q.Query == "" || q.Result.Failed || len(q.Result.Rows) == 0 {
			continue
		}
		var lines []string
		for _, row := range q.Result.Rows {
			raw, err := json.Marshal(row)
			if err != nil {
				continue
			}
			lines = append(lines, string(raw))
		}
		if len(lines) > 0 {
			parts = append(parts, "Propiedades encontradas:\n"+strings.Join(lines, "\n"))
		}
	}

	if len(input.Snippets) > 0 {
		var lines []string
		for _, s := range input.Snippets {
			lines = append(lines, "- "+s.Content)
		}
		parts = append(parts, "Información relevante:\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}
