package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
	"github.com/dmitrijs2005/filedrop/internal/timex"
)

// JsonConfig is an intermediate DTO for reading JSON configuration files.
// Interval fields use timex.Duration so both "5m" and integer nanoseconds
// parse. Absent fields leave the corresponding defaults untouched.
type JsonConfig struct {
	EndpointAddr    string         `json:"endpoint_addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	AdminToken      string         `json:"admin_token"`
	BlobBackend     string         `json:"blob_backend"`
	BadgerDir       string         `json:"badger_dir"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	ShareDuration   string         `json:"share_duration"`
	ShareMaxSizeMB  int64          `json:"share_max_size_mb"`
	ChunkSessionTTL timex.Duration `json:"chunk_session_ttl"`
	TokenTTL        timex.Duration `json:"token_ttl"`
	SweepInterval   timex.Duration `json:"sweep_interval"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. Nothing is loaded when the
// flags are absent. Malformed files panic: a broken config should stop the
// server at startup, not let it run half-configured.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.AdminToken != "" {
		config.AdminToken = c.AdminToken
	}
	if c.BlobBackend != "" {
		config.BlobBackend = c.BlobBackend
	}
	if c.BadgerDir != "" {
		config.BadgerDir = c.BadgerDir
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.ShareDuration != "" {
		config.ShareDuration = c.ShareDuration
	}
	if c.ShareMaxSizeMB > 0 {
		config.ShareMaxSizeMB = c.ShareMaxSizeMB
	}
	if c.ChunkSessionTTL.Duration > 0 {
		config.ChunkSessionTTL = c.ChunkSessionTTL.Duration
	}
	if c.TokenTTL.Duration > 0 {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.SweepInterval.Duration > 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
}
