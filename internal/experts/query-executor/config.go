// internal/experts/query-executor/config.go
package queryexecutor

import "time"

type Config struct {
	Timeout        time.Duration
	MaxConcurrency int
	CacheTTL       time.Duration
}
