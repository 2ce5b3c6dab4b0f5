// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the filedrop client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the filedrop server.
//   - Duration: default share lifetime ("1hour", "3day", "never", ...).
//   - ChunkSize: chunk size for chunked uploads, bytes.
//   - SuperChunkSize: super-chunk size for very large uploads, bytes.
//   - MaxUploadSize: upper bound on shareable content, bytes.
type Config struct {
	ServerEndpointAddr string
	Duration           string
	ChunkSize          int64
	SuperChunkSize     int64
	MaxUploadSize      int64
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://localhost:8080"
	c.Duration = "1hour"
	c.ChunkSize = 5 << 20
	c.SuperChunkSize = 25 << 20
	c.MaxUploadSize = 100 << 20
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
