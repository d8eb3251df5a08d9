package config

import "time"

// Default returns the baseline configuration applied before the YAML file
// and environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8090,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
			File:  "streamgate.log",
		},
		Web: WebConfig{
			Enabled:   true,
			StaticDir: "./web",
		},
		Issuer: IssuerConfig{
			TTL:      Duration(time.Hour),
			Audience: "streamgate",
		},
		Token: TokenConfig{
			RefreshThreshold: Duration(15 * time.Second),
		},
		Store: StoreConfig{
			Driver: "memory",
			TTL:    Duration(time.Hour),
			Memory: MemoryStoreConfig{
				GCInterval: Duration(5 * time.Minute),
			},
		},
		Upstream: UpstreamConfig{
			Timeout: Duration(10 * time.Second),
		},
	}
}
