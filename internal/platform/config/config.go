package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "15s" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	Issuer   IssuerConfig   `yaml:"issuer"`
	Token    TokenConfig    `yaml:"token"`
	Store    StoreConfig    `yaml:"store"`
	Upstream UpstreamConfig `yaml:"upstream"`
}

type ServerConfig struct {
	IP     string `yaml:"ip"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StaticDir string `yaml:"static_dir"`
}

// IssuerConfig controls server-side credential issuance.
type IssuerConfig struct {
	Secret   string   `yaml:"secret"`
	TTL      Duration `yaml:"ttl"`
	Audience string   `yaml:"audience"`
}

// TokenConfig controls the client-side lifecycle manager embedded in the
// playlist gateway.
type TokenConfig struct {
	RefreshThreshold Duration `yaml:"refresh_threshold"`
}

type StoreConfig struct {
	Driver  string            `yaml:"driver"`
	TTL     Duration          `yaml:"ttl"`
	Redis   RedisStoreConfig  `yaml:"redis,omitempty"`
	SQLite  SQLiteStoreConfig `yaml:"sqlite,omitempty"`
	Memory  MemoryStoreConfig `yaml:"memory,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SQLiteStoreConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

type MemoryStoreConfig struct {
	GCInterval Duration `yaml:"gc_interval"`
}

// UpstreamConfig restricts which origins the playlist gateway will proxy.
type UpstreamConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts"`
	Timeout      Duration `yaml:"timeout"`
}
