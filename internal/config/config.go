// Package config loads the daemon's configuration: per-neighbor session
// parameters and per-process API bridge definitions, read from a YAML
// file and overlaid with environment variables, validated before the
// reactor ever sees it (spec's "Configuration model: consumed, not
// parsed by the core"). Unlike the path/address codecs, this layer is
// plain data plus validation tags — no wire format of its own.
package config

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// NeighborConfig is one configured peer (spec §4.9 "Configuration
// model": per-neighbor fields).
type NeighborConfig struct {
	Description     string            `koanf:"description" validate:"omitempty"`
	LocalAddress    string            `koanf:"local-address" validate:"omitempty,ip"`
	LocalASN        uint32            `koanf:"local-as" validate:"required"`
	PeerAddress     string            `koanf:"peer-address" validate:"required"`
	PeerASN         uint32            `koanf:"peer-as" validate:"required"`
	RouterID        string            `koanf:"router-id" validate:"required,ip"`
	HoldTime        uint16            `koanf:"hold-time" default:"180"`
	MD5Key          string            `koanf:"md5" validate:"omitempty"`
	Passive         bool              `koanf:"passive" default:"false"`
	Families        []string          `koanf:"families" validate:"required,min=1,dive,required"`
	AddPathSend     []string          `koanf:"add-path-send"`
	AddPathReceive  []string          `koanf:"add-path-receive"`
	GracefulRestart bool              `koanf:"graceful-restart" default:"false"`
	GRStaleTime     uint16            `koanf:"graceful-restart-time" default:"120"`
}

// APIProcessConfig is one configured subprocess API bridge (spec
// §4.8/§4.9).
type APIProcessConfig struct {
	Name     string   `koanf:"name" validate:"required"`
	Command  []string `koanf:"command" validate:"required,min=1"`
	Encoder  string   `koanf:"encoder" default:"text" validate:"oneof=text json"`
	Respawn  bool     `koanf:"respawn" default:"true"`
	Neighbor []string `koanf:"neighbor"`
}

// Config is the whole daemon configuration (spec §4.9).
type Config struct {
	Neighbors []NeighborConfig   `koanf:"neighbors"`
	Processes []APIProcessConfig `koanf:"processes"`

	TCPPort   int    `koanf:"tcp-port" default:"179"`
	CLISocket string `koanf:"cli-socket"`
	CLIPipe   string `koanf:"cli-pipe"`
}

var validate = validator.New()

// Load reads path as YAML, overlays environment variables using the
// exabgp_* names spec §4.9 recognises, applies struct-tag defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue("exabgp_", ".", mapEnv), nil); err != nil {
		return nil, fmt.Errorf("loading environment overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	for i := range cfg.Neighbors {
		if err := defaults.Set(&cfg.Neighbors[i]); err != nil {
			return nil, fmt.Errorf("applying neighbor defaults: %w", err)
		}
	}
	for i := range cfg.Processes {
		if err := defaults.Set(&cfg.Processes[i]); err != nil {
			return nil, fmt.Errorf("applying process defaults: %w", err)
		}
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	for i := range cfg.Neighbors {
		if err := validate.Struct(&cfg.Neighbors[i]); err != nil {
			return nil, fmt.Errorf("validating neighbor %d: %w", i, err)
		}
	}

	return &cfg, nil
}

// mapEnv maps exabgp_tcp_port, exabgp_cli_socket and exabgp_cli_pipe
// onto their koanf keys; every other exabgp_* variable is passed through
// under its own unchanged name, which no Config field reads.
func mapEnv(key, value string) (string, interface{}) {
	switch key {
	case "exabgp_tcp_port":
		return "tcp-port", value
	case "exabgp_cli_socket":
		return "cli-socket", value
	case "exabgp_cli_pipe":
		return "cli-pipe", value
	default:
		// exabgp_api_socketname, exabgp_api_socketpath, exabgp_cli_transport,
		// exabgp_reactor_speed, exabgp_daemon_*, exabgp_log_* and the rest
		// land under their raw names and have no effect on Config.
		return key, value
	}
}
