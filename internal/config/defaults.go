package config

// Default configuration values.
const (
	DefaultInt64Mode        = "exact"
	DefaultJSONStrategy     = "direct"
	DefaultDatabaseEncoding = "UTF8"
	DefaultCatalogBackend   = "memory"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// defaults is the lowest-precedence configuration layer.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"check_integer_overflow": false,
		"int64_mode":             DefaultInt64Mode,
		"json_strategy":          DefaultJSONStrategy,
		"strict_json_leaves":     false,
		"database_encoding":      DefaultDatabaseEncoding,
		"catalog.backend":        DefaultCatalogBackend,
		"catalog.path":           "",
		"logging.level":          DefaultLogLevel,
		"logging.format":         DefaultLogFormat,
	}
}
