// internal/experts/query-translator/models.go
package querytranslator

import "brickland-expert/pkg/schema"

type Input struct {
	Question string           `json:"question"`
	Schema   *schema.Metadata `json:"-"`
}

type Output struct {
	// Query is the guarded SQL statement, or "" when the question is not
	// expressible against the listings table.
	Query string `json:"query"`
}
