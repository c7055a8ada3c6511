// internal/experts/answer-composer/config.go
package answercomposer

import "time"

type Config struct {
	Timeout time.Duration
}
