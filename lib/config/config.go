// Package config loads hxview application settings from YAML files and
// HXVIEW_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pthm/hxview"
)

// FileName is the config file searched for when no path is given.
const FileName = "hxview.yaml"

// EnvPrefix prefixes environment overrides, e.g. HXVIEW_SERVER_ADDR.
const EnvPrefix = "HXVIEW"

// Config holds application configuration.
type Config struct {
	ViewsPath string         `mapstructure:"views_path" yaml:"views_path"`
	Root      string         `mapstructure:"root" yaml:"root"`
	Routes    []hxview.Route `mapstructure:"routes" yaml:"routes"`
	Server    ServerConfig   `mapstructure:"server" yaml:"server"`
	Log       LogConfig      `mapstructure:"log" yaml:"log"`
	Session   SessionConfig  `mapstructure:"session" yaml:"session"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// SessionConfig holds per-client application settings.
type SessionConfig struct {
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Cleanup time.Duration `mapstructure:"cleanup" yaml:"cleanup"`
	Cookie  string        `mapstructure:"cookie" yaml:"cookie"`
}

// MarshalYAML writes durations in their readable form.
func (s SessionConfig) MarshalYAML() (any, error) {
	return struct {
		TTL     string `yaml:"ttl"`
		Cleanup string `yaml:"cleanup"`
		Cookie  string `yaml:"cookie"`
	}{s.TTL.String(), s.Cleanup.String(), s.Cookie}, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ViewsPath: hxview.DefaultViewsPath,
		Root:      hxview.DefaultRoot,
		Server:    ServerConfig{Addr: ":8080"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Session: SessionConfig{
			TTL:     30 * time.Minute,
			Cleanup: 5 * time.Minute,
			Cookie:  "hxview_session",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("views_path", d.ViewsPath)
	v.SetDefault("root", d.Root)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.cleanup", d.Session.Cleanup)
	v.SetDefault("session.cookie", d.Session.Cookie)
}

// Load reads configuration from path, or from ./hxview.yaml and
// ~/.config/hxview/hxview.yaml when path is empty. An explicit path must
// exist; the search locations are optional. Env var overrides use prefix
// HXVIEW_.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "hxview"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the route table and log settings.
func (c Config) Validate() error {
	for i, r := range c.Routes {
		if r.View == "" {
			return fmt.Errorf("route %d (%q): view is required", i, r.URL)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// Logger builds the logger described by the log section, writing to w.
func (c Config) Logger(w io.Writer) *logrus.Logger {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l := hxview.NewLogger(w, level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".hxview.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
