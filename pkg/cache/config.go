package cache

import (
	"time"

	"PolyPulse/pkg/logger"
)

// MemoryOption configures the memory tier.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory tier configuration.
type MemoryConfig struct {
	MaxAge          time.Duration
	CleanupInterval time.Duration
	Now             func() time.Time
}

// WithMemoryMaxAge sets the janitor age bound.
func WithMemoryMaxAge(age time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxAge = age
	}
}

// WithMemoryCleanup sets the janitor interval. Zero disables the sweep.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		c.CleanupInterval = interval
	}
}

// WithMemoryClock overrides the clock. Used in tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryConfig) {
		c.Now = now
	}
}

// FileOption configures the file tier.
type FileOption func(*FileConfig)

// FileConfig holds file tier configuration.
type FileConfig struct {
	MaxEntries int
	Logger     *logger.Logger
}

// WithFileMaxEntries sets the on-disk entry budget.
func WithFileMaxEntries(n int) FileOption {
	return func(c *FileConfig) {
		c.MaxEntries = n
	}
}

// WithFileLogger sets the file tier logger.
func WithFileLogger(l *logger.Logger) FileOption {
	return func(c *FileConfig) {
		c.Logger = l
	}
}

// RedisOption configures the Redis tier.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis tier configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
	MaxAge   time.Duration
}

// WithRedisHost sets Redis host.
func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
	}
}

// WithRedisPort sets Redis port.
func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) {
		c.Port = port
	}
}

// WithRedisPassword sets Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithRedisDB sets Redis database number.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// LayeredOption configures the layered cache.
type LayeredOption func(*LayeredConfig)

// LayeredConfig holds layered cache configuration.
type LayeredConfig struct {
	Now    func() time.Time
	Logger *logger.Logger
}

// WithClock overrides the clock. Used in tests.
func WithClock(now func() time.Time) LayeredOption {
	return func(c *LayeredConfig) {
		c.Now = now
	}
}

// WithLogger sets the layered cache logger.
func WithLogger(l *logger.Logger) LayeredOption {
	return func(c *LayeredConfig) {
		c.Logger = l
	}
}
