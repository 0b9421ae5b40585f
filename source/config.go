package source

// Config holds configuration for the Loader.
type Config struct {
	// TableName is the DynamoDB table holding the records.
	// Default: "forest_records"
	TableName string

	// IndexName is an optional GSI/LSI to scan instead of the base table.
	IndexName string

	// ConsistentRead requests strongly consistent reads.
	// Ignored by DynamoDB for global secondary indexes.
	ConsistentRead bool

	// PageSize caps the number of items evaluated per Scan request.
	// Default: 0 (service default, up to 1 MB per page)
	// Max: 1000
	PageSize int32
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TableName: "forest_records",
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "forest_records"
	}
	if c.PageSize < 0 {
		c.PageSize = 0
	}
	if c.PageSize > 1000 {
		c.PageSize = 1000
	}
}
