// internal/experts/schema-loader/config.go
package schemaloader

type Config struct {
	Path string
}
