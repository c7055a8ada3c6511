// internal/models/query.go
package models

// UnableToAnswer is the only user-visible failure text, returned when every
// source of every sub-question degraded at once.
const UnableToAnswer = "Mi conocimiento no me permite responder a esa pregunta en este momento."

// NoListingData replaces the translated-query section of the final prompt when
// no sub-question produced an executable query, so the generation never claims
// live listings were checked.
const NoListingData = "NO specific listing data available"

// SubQuestion is one atomic fragment produced by decomposition. Origin keeps
// the full user question for traceability, Strategy names the rewriting
// strategy that produced the fragment; instances are never mutated after
// creation.
type SubQuestion struct {
	Text     string `json:"text"`
	Origin   string `json:"origin"`
	Strategy string `json:"strategy"`
}

// RoutedQuestion pairs a sub-question with its routing decision for one
// pipeline run. Decisions are not persisted.
type RoutedQuestion struct {
	Question SubQuestion `json:"question"`
	Sources  []SourceTag `json:"sources"`
}

// Row is one result record as column name to value, keyed by the listings
// table column names. Values keep whatever the driver returned, including the
// textual "nan" price sentinel.
type Row map[string]interface{}

// QueryResult is the outcome of executing one translated query. Failed results
// keep their position so callers can line results up with the query list.
type QueryResult struct {
	Query  string `json:"query"`
	Rows   []Row  `json:"rows,omitempty"`
	Failed bool   `json:"failed"`
	Err    string `json:"error,omitempty"`
}

// Snippet is one relevance-ranked fragment retrieved from the advice corpus.
type Snippet struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
