package tts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podgen/podgen/internal/config"
)

func TestFactoryBuildsHTTPProviders(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{"qwen", "qwen"},
		{"siliconflow", "siliconflow"},
		{"minimax", "minimax"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := config.Default()
			cfg.Provider = tt.provider
			cfg.API.APIKey = "test-key"
			cfg.API.GroupID = "g"

			p, err := New(context.Background(), cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "espeak"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestFactoryRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "qwen"
	cfg.API.APIKey = ""

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
