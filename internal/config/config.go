package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or text
	} `yaml:"log"`
	Source struct {
		// Location overrides BaseURL/File with a full URL or a local path.
		Location string `yaml:"location"`
		BaseURL  string `yaml:"base_url"`
		File     string `yaml:"file"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"source"`
	Output struct {
		Dir    string `yaml:"dir"`
		XLSX   string `yaml:"xlsx"`
		SQLite string `yaml:"sqlite"`
	} `yaml:"output"`
	Dataset struct {
		IDPrefix   string `yaml:"id_prefix"`
		Subject    string `yaml:"subject"`
		ExamType   string `yaml:"exam_type"`
		SourceRepo string `yaml:"source_repo"`
	} `yaml:"dataset"`
	Taxonomy struct {
		Path string `yaml:"path"`
	} `yaml:"taxonomy"`
	Import struct {
		Workers int    `yaml:"workers"`
		LockTTL string `yaml:"lock_ttl"`
	} `yaml:"import"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
}

// Default returns the settings used when no config file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Source.Timeout = "30s"
	cfg.Output.Dir = "data/questions/aws"
	cfg.Import.Workers = 1
	cfg.Import.LockTTL = "10m"
	cfg.Cache.TTL = "10m"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// idPrefixPattern matches the record id format "<prefix>-<ordinal>" required of written files.
var idPrefixPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Validate rejects settings that would only fail later, during an import.
func (c Config) Validate() error {
	if c.Dataset.IDPrefix != "" && !idPrefixPattern.MatchString(c.Dataset.IDPrefix) {
		return fmt.Errorf("dataset.id_prefix %q: only lowercase letters, digits and dashes are allowed", c.Dataset.IDPrefix)
	}
	return nil
}

// LoadOptional is Load, except that a missing file yields Default.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
