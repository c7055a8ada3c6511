// internal/experts/query-router/handler.go
package queryrouter

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/models"
)

// Classifier names the data sources a question should be answered from.
type Classifier interface {
	ClassifySources(ctx context.Context, question string) ([]string, error)
}

type Handler struct {
	config     *Config
	classifier Classifier
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     logger.Logger
}

// NewHandler builds a router. cache may be nil; routing then works without
// the decision cache.
func NewHandler(cfg *Config, classifier Classifier, cache *redis.Client, cacheTTL time.Duration, log logger.Logger) *Handler {
	return &Handler{
		config:     cfg,
		classifier: classifier,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     log,
	}
}

// Keyword rules keep routing predictable when the classifier is unavailable
// and widen its decisions when it is. Matching is on the accent-stripped,
// lowercased question text.
var keywordRules = []struct {
	source   models.SourceTag
	keywords []string
}{
	{
		source: models.SourceStructuredTable,
		keywords: []string{
			"precio", "cuanto cuesta", "cuanto sale", "menos de", "mas de",
			"m2", "metros cuadrados", "ambiente", "monoambiente", "dormitorio",
			"habitacion", "piso", "direccion", "pileta", "piscina", "parrilla",
			"cochera", "balcon", "terraza", "amenities", "sum", "gimnasio",
			"cuantos departamentos", "que propiedades", "que departamentos",
		},
	},
	{
		source: models.SourceDocumentCorpus,
		keywords: []string{
			"ventaja", "desventaja", "consejo", "conviene", "recomend",
			"legal", "escritur", "boleto", "fideicomiso", "hipotecario",
			"credito", "financia", "pozo", "posesion", "riesgo", "tramite",
			"impuesto", "inversion",
		},
	},
	{
		source: models.SourceGeneralKnowledge,
		keywords: []string{
			"barrio", "zona", "cerca de", "cercania", "transporte", "subte",
			"colectivo", "tren", "colegio", "escuela", "universidad",
			"hospital", "seguro", "seguridad", "parque", "comercio", "vivir",
		},
	},
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func normalize(s string) string {
	return accentReplacer.Replace(strings.ToLower(s))
}

// Execute routes every sub-question independently. Routing never fails;
// a sub-question no rule or classification covers gets an empty source set.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	routes := make([]models.RoutedQuestion, 0, len(input.SubQuestions))
	for _, sq := range input.SubQuestions {
		routes = append(routes, models.RoutedQuestion{
			Question: sq,
			Sources:  h.Route(ctx, sq.Text),
		})
	}
	return &Output{Routes: routes}, nil
}

// Route decides the source set for one question. Classifier output and
// keyword matches are merged; on a tie the source is included rather than
// dropped, so merging only ever widens the set.
func (h *Handler) Route(ctx context.Context, question string) []models.SourceTag {
	question = strings.TrimSpace(question)
	if question == "" || question == models.UnableToAnswer {
		return nil
	}

	if cached, ok := h.cachedDecision(ctx, question); ok {
		return cached
	}

	tags := keywordSources(question)

	classified, err := h.classifier.ClassifySources(ctx, question)
	if err != nil {
		h.logger.Warn("Source classification failed, using keyword rules only", map[string]interface{}{
			"question": question,
			"error":    err.Error(),
		})
	}
	for _, name := range classified {
		tag, ok := models.ParseSourceTag(strings.TrimSpace(name))
		if !ok {
			h.logger.Debug("Ignoring unknown source tag", map[string]interface{}{
				"tag": name,
			})
			continue
		}
		tags = append(tags, tag)
	}

	tags = models.NormalizeSources(tags)
	h.storeDecision(ctx, question, tags)

	h.logger.Info("Question routed", map[string]interface{}{
		"question": question,
		"sources":  tags,
	})
	return tags
}

// "sum" (salon de usos multiples) only counts as a standalone word;
// substring matching would fire inside "resumen" or "consumo".
var wholeWordKeywords = map[string]*regexp.Regexp{
	"sum": regexp.MustCompile(`\bsum\b`),
}

func matchKeyword(text, kw string) bool {
	if re, ok := wholeWordKeywords[kw]; ok {
		return re.MatchString(text)
	}
	return strings.Contains(text, kw)
}

func keywordSources(question string) []models.SourceTag {
	text := normalize(question)
	var tags []models.SourceTag
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if matchKeyword(text, kw) {
				tags = append(tags, rule.source)
				break
			}
		}
	}
	return tags
}

func decisionKey(question string) string {
	sum := sha1.Sum([]byte(normalize(question)))
	return "route:" + hex.EncodeToString(sum[:])
}

func (h *Handler) cachedDecision(ctx context.Context, question string) ([]models.SourceTag, bool) {
	if h.cache == nil {
		return nil, false
	}
	raw, err := h.cache.Get(ctx, decisionKey(question)).Result()
	if err != nil {
		return nil, false
	}
	if raw == "" {
		return nil, true
	}
	var tags []models.SourceTag
	for _, name := range strings.Split(raw, ",") {
		tag, ok := models.ParseSourceTag(name)
		if !ok {
			return nil, false
		}
		tags = append(tags, tag)
	}
	return models.NormalizeSources(tags), true
}

func (h *Handler) storeDecision(ctx context.Context, question string, tags []models.SourceTag) {
	if h.cache == nil {
		return
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, string(t))
	}
	// Best effort: a failed write only costs a re-classification.
	if err := h.cache.Set(ctx, decisionKey(question), strings.Join(names, ","), h.cacheTTL).Err(); err != nil {
		h.logger.Debug("Routing decision cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
