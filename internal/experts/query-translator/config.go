// internal/experts/query-translator/config.go
package querytranslator

import "time"

type Config struct {
	Timeout    time.Duration
	Table      string
	MaxResults int
}
