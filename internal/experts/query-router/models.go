// internal/experts/query-router/models.go
package queryrouter

import "brickland-expert/internal/models"

type Input struct {
	SubQuestions []models.SubQuestion `json:"subQuestions"`
}

type Output struct {
	Routes []models.RoutedQuestion `json:"routes"`
}
