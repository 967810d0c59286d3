package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Token      string `toml:"token" mapstructure:"token"`
	Host       string `toml:"host" mapstructure:"host"`
	Port       string `toml:"port" mapstructure:"port"`
	Debug      bool   `toml:"debug" mapstructure:"debug"`
	Libonnx    string `toml:"libonnx" mapstructure:"libonnx"`
	CorsOrigin string `toml:"cors_origin" mapstructure:"cors_origin"`

	ModelDir        string `toml:"model_dir" mapstructure:"model_dir"`
	ModelFileName   string `toml:"model_file_name" mapstructure:"model_file_name"`
	ModelLabelsName string `toml:"model_labels_name" mapstructure:"model_labels_name"`
	Backend         string `toml:"backend" mapstructure:"backend"`
	PoolSize        int    `toml:"pool_size" mapstructure:"pool_size"`
	Threads         int    `toml:"threads" mapstructure:"threads"`

	DecodeFallback bool `toml:"decode_fallback" mapstructure:"decode_fallback"`
	FallbackWidth  int  `toml:"fallback_width" mapstructure:"fallback_width"`
	FallbackHeight int  `toml:"fallback_height" mapstructure:"fallback_height"`

	MaxBatch  int `toml:"max_batch" mapstructure:"max_batch"`
	MaxBodyMB int `toml:"max_body_mb" mapstructure:"max_body_mb"`
}

const envPrefix = "HANDSIGN_"

var (
	cfg      = Default()
	loadOnce sync.Once
)

// Default returns the configuration used when no config.toml is present.
func Default() Config {
	return Config{
		Token:          "",
		Host:           "0.0.0.0",
		Port:           "5000",
		CorsOrigin:     "*",
		ModelDir:       "models",
		ModelFileName:  "model.tflite",
		PoolSize:       2,
		Threads:        1,
		FallbackWidth:  640,
		FallbackHeight: 480,
		MaxBatch:       64,
		MaxBodyMB:      16,
	}
}

// C returns the process configuration, loading it on first use.
func C() Config {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to load .env", slog.String("error", err.Error()))
		}
		path := os.Getenv(envPrefix + "CONFIG")
		if path == "" {
			path = "config.toml"
		}
		loaded, err := Load(path)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	})
	return cfg
}

// Load reads a TOML file over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return c, fmt.Errorf("failed to read %s: %w", path, err)
	}
	applyEnv(&c)
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func applyEnv(c *Config) {
	str := map[string]*string{
		"HOST":       &c.Host,
		"PORT":       &c.Port,
		"TOKEN":      &c.Token,
		"MODEL_DIR":  &c.ModelDir,
		"MODEL_FILE": &c.ModelFileName,
		"LIBONNX":    &c.Libonnx,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// Validate normalises soft limits and rejects settings the server cannot run with.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "", "tflite", "onnx":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.FallbackWidth < 0 || c.FallbackHeight < 0 {
		return fmt.Errorf("fallback dimensions must not be negative")
	}
	if c.PoolSize < 1 {
		c.PoolSize = 1
	}
	if c.Threads < 0 {
		c.Threads = 0
	}
	if c.MaxBatch < 0 {
		c.MaxBatch = 0
	}
	if c.MaxBodyMB <= 0 {
		c.MaxBodyMB = Default().MaxBodyMB
	}
	return nil
}

func (c Config) ModelPath() string {
	return filepath.Join(c.ModelDir, c.ModelFileName)
}

// LabelsPath is empty when the built-in alphabet is used.
func (c Config) LabelsPath() string {
	if c.ModelLabelsName == "" {
		return ""
	}
	return filepath.Join(c.ModelDir, c.ModelLabelsName)
}

func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}
