// internal/experts/answer-composer/models.go
package answercomposer

import "brickland-expert/internal/models"

// QueryOutcome pairs one translated query with its execution result.
type QueryOutcome struct {
	Question string             `json:"question"`
	Query    string             `json:"query"`
	Result   models.QueryResult `json:"result"`
}

type Input struct {
	Question     string               `json:"question"`
	SubQuestions []models.SubQuestion `json:"subQuestions"`
	Queries      []QueryOutcome       `json:"queries"`
	Snippets     []models.Snippet     `json:"snippets"`
}

type Output struct {
	Answer string `json:"answer"`
	// Grounded is false when the answer is the unable-to-answer text.
	Grounded bool `json:"grounded"`
}
