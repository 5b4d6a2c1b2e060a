// Package profile holds the runtime configuration assembled from flags and
// environment variables at startup.
package profile

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main process.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Driver is the storage backend, "postgres" or "sqlite".
	Driver string
	// DSN is the database source name.
	DSN string
	// Data is the data directory, used to derive a default sqlite DSN.
	Data string

	// Embedding collaborator configuration (OpenAI-compatible protocol).
	// The similarity core never computes embeddings itself; this is only
	// used by callers that need to turn a text query into a vector.
	EmbedAPIKey     string
	EmbedBaseURL    string
	EmbedModel      string
	EmbedDimensions int

	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.EmbedAPIKey = getEnvOrDefault("GLOWMATCH_EMBED_API_KEY", p.EmbedAPIKey)
	p.EmbedBaseURL = getEnvOrDefault("GLOWMATCH_EMBED_BASE_URL", p.EmbedBaseURL)
	p.EmbedModel = getEnvOrDefault("GLOWMATCH_EMBED_MODEL", p.EmbedModel)
	p.EmbedDimensions = getEnvOrDefaultInt("GLOWMATCH_EMBED_DIMENSIONS", p.EmbedDimensions)
	if p.DSN == "" {
		p.DSN = getEnvOrDefault("GLOWMATCH_DSN", "")
	}
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("GLOWMATCH_DRIVER", "")
	}
}

// Validate normalizes and checks the profile, deriving a sqlite DSN from the
// data directory when none is given.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}

	switch p.Driver {
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn required for postgres driver")
		}
	case "sqlite":
		if p.DSN == "" {
			if p.Data == "" {
				dir, err := os.Getwd()
				if err != nil {
					return errors.Wrap(err, "failed to get current working directory")
				}
				p.Data = dir
			}
			p.DSN = filepath.Join(p.Data, "glowmatch_"+p.Mode+".db")
		}
	default:
		return errors.Errorf(`unsupported driver %q, expected "postgres" or "sqlite"`, p.Driver)
	}

	if p.EmbedDimensions == 0 {
		p.EmbedDimensions = 512
	}

	return nil
}
