// internal/models/source.go
package models

// SourceTag identifies one of the three data sources a sub-question can be
// answered from. The set is closed: routing decisions are built from these
// constants only, never from free user-provided strings.
type SourceTag string

const (
	SourceStructuredTable  SourceTag = "structured_table"
	SourceDocumentCorpus   SourceTag = "document_corpus"
	SourceGeneralKnowledge SourceTag = "general_knowledge"
)

// sourceRank fixes the presentation order of tags inside a routing decision.
var sourceRank = map[SourceTag]int{
	SourceStructuredTable:  0,
	SourceDocumentCorpus:   1,
	SourceGeneralKnowledge: 2,
}

// Valid reports whether the tag belongs to the closed enumeration.
func (s SourceTag) Valid() bool {
	_, ok := sourceRank[s]
	return ok
}

// ParseSourceTag maps the wire names used by the capability API (including the
// legacy names of the original corpus) onto the enum. Unknown names return
// ok=false so a typo can never create an unroutable category.
func ParseSourceTag(s string) (SourceTag, bool) {
	switch s {
	case "structured_table", "properties_table":
		return SourceStructuredTable, true
	case "document_corpus", "pdf_docs":
		return SourceDocumentCorpus, true
	case "general_knowledge", "llm_expertise":
		return SourceGeneralKnowledge, true
	}
	return "", false
}

// NormalizeSources deduplicates and orders a routing decision by the fixed
// source rank. An empty result is valid and means "no grounding available".
func NormalizeSources(tags []SourceTag) []SourceTag {
	seen := make(map[SourceTag]bool, len(tags))
	out := make([]SourceTag, 0, len(tags))
	for _, t := range tags {
		if !t.Valid() || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	// insertion sort over at most three elements
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && sourceRank[out[j]] < sourceRank[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// HasSource reports whether a routing decision contains the given tag.
func HasSource(tags []SourceTag, want SourceTag) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
