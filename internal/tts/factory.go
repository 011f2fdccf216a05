package tts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/podgen/podgen/internal/config"
)

// ProviderNames lists the providers the factory can build.
func ProviderNames() []string {
	return []string{"qwen", "siliconflow", "minimax", "polly", "gcp"}
}

// New builds the provider named in the configuration. All vendor selection
// happens here; callers hold only the Provider interface.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.API.Model).Msg("Creating TTS provider")

	switch cfg.Provider {
	case "qwen":
		return NewQwenProvider(cfg.API.APIKey, cfg.API.Model, cfg.API.BaseURL)
	case "siliconflow":
		return NewSiliconFlowProvider(cfg.API.APIKey, cfg.API.Model, cfg.API.BaseURL)
	case "minimax":
		return NewMiniMaxProvider(cfg.API.APIKey, cfg.API.Model, cfg.API.BaseURL, cfg.API.GroupID)
	case "polly":
		return NewPollyProvider(cfg.API.Region)
	case "gcp":
		var opts []GCPProviderOption
		if cfg.Voices.Male.Voice != "" {
			opts = append(opts, WithGCPVoice(cfg.Voices.Male.Voice))
		}
		if cfg.Voices.Male.LanguageType != "" {
			opts = append(opts, WithGCPLanguage(cfg.Voices.Male.LanguageType))
		}
		return NewGCPProvider(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown provider: %s (want one of %v)", cfg.Provider, ProviderNames())
	}
}
