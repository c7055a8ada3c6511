// internal/experts/query-router/config.go
package queryrouter

import "time"

type Config struct {
	Timeout time.Duration
}
