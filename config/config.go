package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleettrack/infra/mqtt"
)

type Config struct {
	HTTP       HTTPConfig       `json:"http"`
	Auth       AuthConfig       `json:"auth"`
	Storage    StorageConfig    `json:"storage"`
	MQTT       mqtt.Config      `json:"mqtt"`
	Metrics    MetricsConfig    `json:"metrics"`
	Assignment AssignmentConfig `json:"assignment"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("FT_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ft_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Storage.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Assignment.SetDefaults()
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Assignment.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
