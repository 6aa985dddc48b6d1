package redis

import (
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default", mutate: func(c *Config) {}},
		{name: "no addrs", mutate: func(c *Config) { c.Addrs = nil }, wantErr: true},
		{name: "single with two addrs", mutate: func(c *Config) { c.Addrs = []string{"a:1", "b:2"} }, wantErr: true},
		{name: "sentinel without master", mutate: func(c *Config) { c.Mode = ModeSentinel }, wantErr: true},
		{name: "sentinel", mutate: func(c *Config) { c.Mode = ModeSentinel; c.MasterName = "mymaster" }},
		{name: "cluster with db", mutate: func(c *Config) { c.Mode = ModeCluster; c.DB = 2 }, wantErr: true},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "read-write" }, wantErr: true},
		{name: "bad db", mutate: func(c *Config) { c.DB = 16 }, wantErr: true},
		{name: "zero pool", mutate: func(c *Config) { c.PoolSize = 0 }, wantErr: true},
		{name: "idle exceeds pool", mutate: func(c *Config) { c.MinIdleConns = 20 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
