// internal/experts/schema-loader/handler.go
package schemaloader

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	apperrors "brickland-expert/internal/common/errors"
	"brickland-expert/internal/common/logger"
	"brickland-expert/pkg/schema"
)

// Handler reads the column-metadata document at most once per process and
// hands the same result to every caller. A missing or invalid document is a
// logged degradation, never an error: callers receive nil and translate
// without column descriptions.
type Handler struct {
	config *Config
	logger logger.Logger

	once sync.Once
	meta *schema.Metadata
}

func NewHandler(cfg *Config, log logger.Logger) *Handler {
	return &Handler{
		config: cfg,
		logger: log,
	}
}

// Load returns the schema metadata, or nil when the document cannot be used.
func (h *Handler) Load(ctx context.Context) *schema.Metadata {
	h.once.Do(func() {
		meta, err := schema.Load(h.config.Path)
		if err != nil {
			stdErr := apperrors.NewSchemaInvalidError(err.Error())
			if errors.Is(err, fs.ErrNotExist) {
				stdErr = apperrors.NewSchemaNotFoundError(err.Error())
			}
			h.logger.WithError(stdErr).Warn("Schema metadata unavailable", map[string]interface{}{
				"path": h.config.Path,
				"code": string(stdErr.Code),
			})
			return
		}
		h.logger.Info("Schema metadata loaded", map[string]interface{}{
			"path":    h.config.Path,
			"columns": len(meta.Columns),
		})
		h.meta = meta
	})
	return h.meta
}
