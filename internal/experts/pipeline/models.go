// internal/experts/pipeline/models.go
package pipeline

import "brickland-expert/internal/models"

type Request struct {
	Question string `json:"question"`
}

type Response struct {
	RunID        string                  `json:"runId"`
	Question     string                  `json:"question"`
	Answer       string                  `json:"answer"`
	Grounded     bool                    `json:"grounded"`
	SubQuestions []models.SubQuestion    `json:"subQuestions"`
	Routes       []models.RoutedQuestion `json:"routes"`
}
