// internal/experts/pipeline/config.go
package pipeline

import "time"

type Config struct {
	Timeout        time.Duration
	MaxConcurrency int
}
