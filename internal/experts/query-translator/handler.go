// internal/experts/query-translator/handler.go
package querytranslator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/models"
)

// QueryGenerator turns a natural-language question plus a column description
// block into a SQL query.
type QueryGenerator interface {
	GenerateQuery(ctx context.Context, question, schemaDescription string) (string, error)
}

type Handler struct {
	config    *Config
	generator QueryGenerator
	logger    logger.Logger
}

func NewHandler(cfg *Config, generator QueryGenerator, log logger.Logger) *Handler {
	return &Handler{
		config:    cfg,
		generator: generator,
		logger:    log,
	}
}

// Execute translates one sub-question into a guarded read-only SQL query.
// An empty query is a normal outcome meaning "not expressible against the
// listings table"; Execute never returns an error for untranslatable input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" || input.Schema == nil {
		return &Output{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	limit := requestedLimit(question, h.config.MaxResults)

	query, err := h.generator.GenerateQuery(ctx, question, input.Schema.Describe())
	if err != nil {
		h.logger.Warn("Query generation failed, using rule-based builder", map[string]interface{}{
			"question": question,
			"error":    err.Error(),
		})
		query = ""
	}
	query = sanitize(query)

	if query == "" {
		query = h.buildRuleBased(question, limit)
	} else {
		query = ensureTraceable(query)
		query = ensureLimit(query, limit)
	}

	if query != "" {
		h.logger.Info("Question translated", map[string]interface{}{
			"question": question,
			"query":    query,
		})
	}
	return &Output{Query: query}, nil
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	limitRe      = regexp.MustCompile(`(?i)\blimit\s+\d+`)
	selectRe     = regexp.MustCompile(`(?i)^select\s`)
	selectHeadRe = regexp.MustCompile(`(?i)^select\s+`)
)

// sanitize strips markdown fences and trailing semicolons from a generated
// statement and rejects anything that is not a single SELECT.
func sanitize(query string) string {
	if m := codeFenceRe.FindStringSubmatch(query); m != nil {
		query = m[1]
	}
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ";")
	query = strings.TrimSpace(query)
	if query == "" || !selectRe.MatchString(query) {
		return ""
	}
	if strings.Contains(query, ";") {
		return ""
	}
	return query
}

// ensureTraceable rewrites the projection so every result row can be linked
// back to its listing and project pages.
func ensureTraceable(query string) string {
	lower := strings.ToLower(query)
	if strings.Contains(lower, "select *") {
		return query
	}
	if strings.Contains(lower, models.ColPropURL) && strings.Contains(lower, models.ColProjectURL) {
		return query
	}
	// generated statements may break the line after SELECT, so the splice
	// point comes from the regexp match, not a literal "select "
	loc := selectHeadRe.FindStringIndex(query)
	if loc == nil {
		return query
	}
	return query[:loc[1]] + models.ColPropURL + ", " + models.ColProjectURL + ", " + query[loc[1]:]
}

func ensureLimit(query string, limit int) string {
	if limitRe.MatchString(query) {
		return query
	}
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

var countRe = regexp.MustCompile(`(?i)(\d+)\s+(?:resultados?|propiedades|departamentos|opciones|avisos)`)

// requestedLimit honors an explicit result count in the question, falling
// back to the configured default.
func requestedLimit(question string, def int) int {
	if m := countRe.FindStringSubmatch(question); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return def
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func normalize(s string) string {
	return accentReplacer.Replace(strings.ToLower(s))
}

var (
	roomsRe    = regexp.MustCompile(`(\d+)\s*amb(?:ientes?)?`)
	bedroomsRe = regexp.MustCompile(`(\d+)\s*dormitorios?`)
	m2MinRe    = regexp.MustCompile(`(?:mas de|minimo|al menos|desde)\s*(\d+)\s*(?:m2|metros)`)
	priceMaxRe = regexp.MustCompile(`(?:menos de|hasta|maximo|por debajo de)\s*(u\$s|usd|us\$|\$)?\s*([\d.,]+)\s*(dolares|pesos|usd)?`)
	priceMinRe = regexp.MustCompile(`(?:mas de|desde|a partir de|minimo)\s*(u\$s|usd|us\$|\$)?\s*([\d.,]+)\s*(dolares|pesos|usd)?`)
)

// neighborhoods the corpus actually covers; matched against the normalized
// question text.
var knownLocations = []string{
	"palermo", "belgrano", "recoleta", "caballito", "nunez", "villa urquiza",
	"villa crespo", "colegiales", "almagro", "flores", "saavedra", "chacarita",
	"barracas", "san telmo", "boedo", "retiro", "puerto madero", "villa devoto",
}

var amenityKeywords = []string{
	"pileta", "piscina", "parrilla", "cochera", "balcon", "terraza",
	"gimnasio", "laundry", "solarium",
}

// buildRuleBased derives a query directly from question patterns. It is the
// translation path of record when the generator is unavailable; no matching
// pattern means the question is not expressible and yields "".
func (h *Handler) buildRuleBased(question string, limit int) string {
	text := normalize(question)
	var conds []string

	if strings.Contains(text, "monoambiente") {
		conds = append(conds, fmt.Sprintf("%s = 1", models.ColPropRooms))
	} else if m := roomsRe.FindStringSubmatch(text); m != nil {
		conds = append(conds, fmt.Sprintf("%s = %s", models.ColPropRooms, m[1]))
	}
	if m := bedroomsRe.FindStringSubmatch(text); m != nil {
		conds = append(conds, fmt.Sprintf("%s = %s", models.ColPropBedrooms, m[1]))
	}
	for _, loc := range knownLocations {
		if strings.Contains(text, loc) {
			conds = append(conds, fmt.Sprintf("%s LIKE '%%%s%%'", models.ColPropLocation, titleCase(loc)))
			break
		}
	}
	// prices are stored as text ('nan' when unpublished), so numeric
	// comparisons go through CAST
	if n, ok := priceFigure(priceMaxRe, text); ok {
		conds = append(conds, fmt.Sprintf("CAST(%s AS REAL) < %d", models.ColPropPrice, n))
	} else if n, ok := priceFigure(priceMinRe, text); ok {
		conds = append(conds, fmt.Sprintf("CAST(%s AS REAL) > %d", models.ColPropPrice, n))
	}
	if m := m2MinRe.FindStringSubmatch(text); m != nil {
		conds = append(conds, fmt.Sprintf("%s > %s", models.ColPropM2, m[1]))
	}
	if strings.Contains(text, "piso alto") {
		conds = append(conds, fmt.Sprintf("CAST(%s AS INTEGER) > 5", models.ColPropFloor))
	}
	for _, kw := range amenityKeywords {
		if strings.Contains(text, kw) {
			conds = append(conds, fmt.Sprintf("%s LIKE '%%%s%%'", models.ColPropDescription, kw))
		}
	}

	if len(conds) == 0 {
		return ""
	}

	projection := strings.Join([]string{
		models.ColPropURL, models.ColProjectURL, models.ColPropAddress,
		models.ColPropPrice, models.ColPropRooms, models.ColPropM2,
		models.ColPropLocation,
	}, ", ")
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT %d",
		projection, h.config.Table, strings.Join(conds, " AND "), limit)
}

// priceFigure extracts a money figure from a threshold phrase. Without a
// currency marker the figure must be at least four digits, so "hasta 3
// ambientes" never reads as a price ceiling.
func priceFigure(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, ok := parseAmount(m[2])
	if !ok {
		return 0, false
	}
	if m[1] == "" && m[3] == "" && n < 1000 {
		return 0, false
	}
	return n, true
}

// parseAmount reads a money figure written with thousands separators
// ("200.000", "200,000") as a plain integer.
func parseAmount(s string) (int, bool) {
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
