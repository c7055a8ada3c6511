// internal/experts/query-executor/models.go
package queryexecutor

import "brickland-expert/internal/models"

type Input struct {
	Queries []string `json:"queries"`
}

type Output struct {
	// Results is positionally aligned with Input.Queries.
	Results []models.QueryResult `json:"results"`
}
