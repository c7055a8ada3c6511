// internal/experts/query-decomposer/config.go
package querydecomposer

import "time"

type Config struct {
	Timeout time.Duration
}
