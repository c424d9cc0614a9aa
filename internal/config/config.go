// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aidirector/studio/internal/utils"
)

// Config holds the application configuration loaded from the environment.
// Provider credentials are optional at startup: a missing key surfaces as a
// per-request config error, never as a crash.
type Config struct {
	Port      string
	DataDir   string
	LogDir    string
	DebugMode bool

	// Outline (LLM) provider.
	LLMProvider   string
	GeminiAPIKeys []string

	// Image provider. "stability" returns bytes synchronously, "modelslab"
	// may return a future handle that needs polling.
	ImageProvider    string
	StabilityAPIKeys []string
	ModelsLabAPIKeys []string
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:             getEnv("PORT", "8080"),
		DataDir:          getEnvPath("DATA_DIR", "data"),
		LogDir:           getEnvPath("LOG_DIR", "logs"),
		DebugMode:        getEnvBool("DEBUG_MODE", false),
		LLMProvider:      getEnv("LLM_PROVIDER", "google"),
		GeminiAPIKeys:    getEnvKeyList("GEMINI_API_KEYS", "GEMINI_API_KEY"),
		ImageProvider:    getEnv("IMAGE_PROVIDER", "stability"),
		StabilityAPIKeys: getEnvKeyList("STABILITY_API_KEYS", "STABILITY_API_KEY"),
		ModelsLabAPIKeys: getEnvKeyList("MODELSLAB_API_KEYS", "MODELSLAB_API_KEY"),
	}

	if len(config.GeminiAPIKeys) == 0 {
		utils.GetLogger().Warning("no Gemini API key configured, outline generation will be unavailable", nil)
	}
	if len(config.StabilityAPIKeys) == 0 && len(config.ModelsLabAPIKeys) == 0 {
		utils.GetLogger().Warning("no image API key configured, image generation will be unavailable", nil)
	}

	return config, nil
}

// ImageAPIKeys returns the credential rotation list for the configured image
// provider.
func (c *Config) ImageAPIKeys() []string {
	switch c.ImageProvider {
	case "modelslab":
		return c.ModelsLabAPIKeys
	default:
		return c.StabilityAPIKeys
	}
}

// getEnv returns the environment variable or a default.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns a directory path from the environment, creating it when
// absent.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			utils.GetLogger().Warning("failed to create directory", map[string]interface{}{
				"path": filepath.Clean(path), "err": err,
			})
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvKeyList reads a comma-delimited credential list, falling back to a
// single-key variable. Blank entries are dropped, order is preserved: the
// rotation policy tries keys exactly in this order.
func getEnvKeyList(listKey, singleKey string) []string {
	raw := os.Getenv(listKey)
	if raw == "" {
		raw = os.Getenv(singleKey)
	}
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
