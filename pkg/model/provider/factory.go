package provider

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/threadkit/threadkit/pkg/config"
	"github.com/threadkit/threadkit/pkg/model/provider/anthropic"
	"github.com/threadkit/threadkit/pkg/model/provider/openai"
)

// New creates the provider selected by cfg.Provider.
func New(cfg *config.ModelConfig) (Provider, error) {
	slog.Debug("Creating model provider", "type", cfg.Provider, "model", cfg.Model)

	switch cfg.Provider {
	case "openai":
		return openai.NewClient(cfg, apiKey(cfg, "OPENAI_API_KEY"))
	case "anthropic":
		return anthropic.NewClient(cfg, apiKey(cfg, "ANTHROPIC_API_KEY"))
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Provider)
	}
}

func apiKey(cfg *config.ModelConfig, defaultEnv string) string {
	env := cfg.TokenEnv
	if env == "" {
		env = defaultEnv
	}
	return os.Getenv(env)
}
