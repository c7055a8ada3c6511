// internal/experts/advice-retriever/models.go
package adviceretriever

import "brickland-expert/internal/models"

type Input struct {
	Question string `json:"question"`
	// TopK overrides the configured snippet count when > 0.
	TopK int `json:"topK,omitempty"`
}

type Output struct {
	Snippets []models.Snippet `json:"snippets"`
}
