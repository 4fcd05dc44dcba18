// Package config loads the daemon and client JSON configuration file:
// bug level, per-task log directory, and unix socket path.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
)

// Config holds the three fields the wire contract requires. The client
// reads only SockPath; the daemon reads all three. LogPath is the
// per-task log directory ("<log_dir>/<task_id>.log") — the daemon's
// own structured log goes to stdout via internal/logging.
type Config struct {
	BugLevel string `json:"bug-level" mapstructure:"bug-level"`
	LogPath  string `json:"log-path" mapstructure:"log-path"`
	SockPath string `json:"sock-path" mapstructure:"sock-path"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		BugLevel: "info",
		LogPath:  "/var/log/gaveld/tasks",
		SockPath: "/var/run/gaveld.sock",
	}
}

// Load reads and parses the JSON config file at path. An explicitly
// supplied path that cannot be read or parsed is returned as an error;
// an empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	// Decode into a generic map first and run it through mapstructure so
	// unknown/renamed fields in an older config file are tolerated rather
	// than causing a hard decode failure.
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return Config{}, fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(generic); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	if cfg.SockPath == "" {
		return Config{}, fmt.Errorf("config %s: sock-path must not be empty", path)
	}
	return cfg, nil
}
