package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds daemon configuration
type Config struct {
	// Identity
	NodeID string

	// HTTP
	ListenAddr string

	// Prometheus probe
	PrometheusURL    string
	UtilizationQuery string
	RaiseThreshold   float64 // utilization above this requests a raise
	LowerThreshold   float64 // utilization below this requests a lower
	ProbeInterval    time.Duration
	SampleInterval   time.Duration

	// Peers
	PeerMaxAge time.Duration

	// Fee parameters
	BaseFee           uint64
	ReferenceFeeUnits uint32

	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Output
	Verbose bool
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		NodeID:            getEnv("NODE_ID", "local"),
		ListenAddr:        getEnv("LISTEN_ADDR", ":9610"),
		PrometheusURL:     getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		UtilizationQuery:  getEnv("UTILIZATION_QUERY", `1 - avg(rate(node_cpu_seconds_total{mode="idle"}[1m]))`),
		RaiseThreshold:    getEnvFloat("RAISE_THRESHOLD", 0.85),
		LowerThreshold:    getEnvFloat("LOWER_THRESHOLD", 0.50),
		ProbeInterval:     getEnvDuration("PROBE_INTERVAL", 5*time.Second),
		SampleInterval:    getEnvDuration("SAMPLE_INTERVAL", 15*time.Second),
		PeerMaxAge:        getEnvDuration("PEER_MAX_AGE", time.Minute),
		BaseFee:           getEnvUint64("BASE_FEE", 10),
		ReferenceFeeUnits: uint32(getEnvUint64("REFERENCE_FEE_UNITS", 10)),
		StorageEnabled:    getEnvBool("STORAGE_ENABLED", false),
		DatabaseURL:       getEnv("DATABASE_URL", "host=localhost port=5432 user=feetrack password=devpassword dbname=feetrack sslmode=disable"),
		Verbose:           getEnvBool("VERBOSE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("NODE_ID must not be empty")
	}
	if c.ReferenceFeeUnits == 0 {
		return fmt.Errorf("REFERENCE_FEE_UNITS must be positive")
	}
	if c.RaiseThreshold <= c.LowerThreshold {
		return fmt.Errorf("RAISE_THRESHOLD (%.2f) must be above LOWER_THRESHOLD (%.2f)",
			c.RaiseThreshold, c.LowerThreshold)
	}
	if c.RaiseThreshold > 1.0 {
		return fmt.Errorf("RAISE_THRESHOLD must be a utilization fraction <= 1.0")
	}
	if c.ProbeInterval < time.Second {
		return fmt.Errorf("probe interval must be at least 1s")
	}
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	return nil
}
