// internal/experts/advice-retriever/config.go
package adviceretriever

import "time"

type Config struct {
	Timeout time.Duration
	Index   string
	TopK    int
}
