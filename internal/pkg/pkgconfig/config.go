package pkgconfig

// Config reads typed configuration values by dotted key.
//
// Implementations may hot-reload underlying sources; callers should read
// values at use time rather than caching them at startup.
type Config interface {
	// GetInt returns the value for key as int64.
	GetInt(key string) int64
	// GetBool returns the value for key as bool.
	GetBool(key string) bool
	// GetFloat returns the value for key as float64.
	GetFloat(key string) float64
	// GetString returns the value for key as string.
	GetString(key string) string
	// GetBinary returns the value for key decoded from base64.
	GetBinary(key string) []byte
	// GetArray returns the value for key split by commas.
	GetArray(key string) []string
	// GetMap returns the value for key parsed from "k:v,k:v" pairs.
	GetMap(key string) map[string]string
	// Close releases any resources held by the implementation.
	Close() error
}
