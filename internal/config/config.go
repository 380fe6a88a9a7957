// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the runtime settings of the sales service.
type Config struct {
	Addr         string
	LogMode      string
	DBDriver     string
	DBDSN        string
	NodeID       int64
	RedisAddr    string
	RedisChannel string
	TraceStdout  bool
}

// Load reads the SALES_* environment variables, falling back to defaults.
func Load() (Config, error) {
	cfg := Config{
		Addr:         String("SALES_ADDR", ":8081"),
		LogMode:      String("SALES_LOG_MODE", "production"),
		DBDriver:     String("SALES_DB_DRIVER", "memory"),
		DBDSN:        String("SALES_DB_DSN", "sales.db"),
		NodeID:       int64(Int("SALES_NODE_ID", 1)),
		RedisAddr:    String("SALES_REDIS_ADDR", ""),
		RedisChannel: String("SALES_REDIS_CHANNEL", "sales.events"),
		TraceStdout:  Bool("SALES_TRACE_STDOUT", false),
	}
	return cfg, cfg.Validate()
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("SALES_DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("SALES_NODE_ID: %d out of range 0-1023", c.NodeID)
	}
	if c.Addr == "" {
		return fmt.Errorf("SALES_ADDR: empty listen address")
	}
	return nil
}

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Bool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
