package config

import (
	"os"
	"strconv"
	"strings"
)

// LoadConfig loads configuration from file - alias for LoadEnv for compatibility
func LoadConfig(configFile string) error {
	return LoadEnv()
}

// LoadEnv loads environment variables from .env file
func LoadEnv() error {
	// Try to load from .env file in current directory first, then parent directories
	envPaths := []string{".env", "../.env", "../../.env"}

	for _, envPath := range envPaths {
		if data, err := os.ReadFile(envPath); err == nil {
			lines := strings.Split(string(data), "\n")
			for _, line := range lines {
				line = strings.TrimSpace(line)
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}

				parts := strings.SplitN(line, "=", 2)
				if len(parts) == 2 {
					key := strings.TrimSpace(parts[0])
					value := strings.TrimSpace(parts[1])

					// Only set if not already set
					if os.Getenv(key) == "" {
						os.Setenv(key, value)
					}
				}
			}
			break // Successfully loaded, don't try other paths
		}
	}
	return nil
}

// GetEnv gets environment variable with default
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets integer environment variable with default
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvFloat gets float environment variable with default
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvBool gets boolean environment variable with default
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

// Paths holds the data directories shared by every migration job.
type Paths struct {
	MappingDir   string
	ExportsDir   string
	ReferenceDir string
	CacheDir     string
	OutputDir    string
}

// LoadPaths resolves the standard data directories from the environment.
func LoadPaths() Paths {
	mapping := GetEnv("NMS_MAPPING_DIR", "mapping")
	return Paths{
		MappingDir:   mapping,
		ExportsDir:   GetEnv("NMS_EXPORTS_DIR", mapping+"/legacy-exports"),
		ReferenceDir: GetEnv("NMS_REFERENCE_DIR", "reference"),
		CacheDir:     GetEnv("NMS_CACHE_DIR", "cache"),
		OutputDir:    GetEnv("NMS_OUTPUT_DIR", "output"),
	}
}

// Thresholds holds the fuzzy-matching cutoffs used across jobs. Districts
// carry their own cutoffs so tuning the review or school thresholds never
// changes district matching.
type Thresholds struct {
	Cluster          int
	Regional         int
	National         int
	DistrictRegional int
	DistrictNational int
}

// LoadThresholds resolves matching thresholds from the environment.
func LoadThresholds() Thresholds {
	return Thresholds{
		Cluster:          GetEnvInt("NMS_CLUSTER_THRESHOLD", 85),
		Regional:         GetEnvInt("NMS_REGIONAL_THRESHOLD", 90),
		National:         GetEnvInt("NMS_NATIONAL_THRESHOLD", 95),
		DistrictRegional: GetEnvInt("NMS_DISTRICT_REGIONAL_THRESHOLD", 85),
		DistrictNational: GetEnvInt("NMS_DISTRICT_NATIONAL_THRESHOLD", 90),
	}
}
