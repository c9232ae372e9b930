package authapi

// Config controls auth API behavior.
type Config struct {
	MaxBodyBytes int64
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: 1 << 20} // 1 MiB
}

func (c Config) maxBody() int64 {
	if c.MaxBodyBytes <= 0 {
		return DefaultConfig().MaxBodyBytes
	}
	return c.MaxBodyBytes
}
