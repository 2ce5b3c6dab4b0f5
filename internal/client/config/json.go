package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
)

// JsonConfig is an intermediate DTO for reading JSON configuration files.
// Absent fields leave the corresponding defaults untouched.
type JsonConfig struct {
	ServerEndpointAddr string `json:"server_endpoint_addr"`
	Duration           string `json:"duration"`
	ChunkSize          int64  `json:"chunk_size"`
	SuperChunkSize     int64  `json:"super_chunk_size"`
	MaxUploadSize      int64  `json:"max_upload_size"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. Nothing is loaded when the
// flags are absent.
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

	if c.ServerEndpointAddr != "" {
		config.ServerEndpointAddr = c.ServerEndpointAddr
	}
	if c.Duration != "" {
		config.Duration = c.Duration
	}
	if c.ChunkSize > 0 {
		config.ChunkSize = c.ChunkSize
	}
	if c.SuperChunkSize > 0 {
		config.SuperChunkSize = c.SuperChunkSize
	}
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
}
