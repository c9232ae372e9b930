package workbookapi

const defaultMaxBodyBytes int64 = 4 << 20

// Config holds HTTP-level limits for the workbook endpoints.
type Config struct {
	// MaxBodyBytes caps POST bodies for config and records.
	MaxBodyBytes int64
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: defaultMaxBodyBytes}
}

func (c Config) maxBody() int64 {
	if c.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}
