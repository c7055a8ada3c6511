// internal/experts/query-decomposer/models.go
package querydecomposer

import "brickland-expert/internal/models"

type Input struct {
	Question string `json:"question"`
}

type Output struct {
	SubQuestions []models.SubQuestion `json:"subQuestions"`
}
