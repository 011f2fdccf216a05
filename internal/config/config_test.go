package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podgen/podgen/internal/dialogue"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
provider: minimax
api:
  api_key: test-key
  group_id: "12345"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "minimax", cfg.Provider)
	assert.Equal(t, "test-key", cfg.API.APIKey)
	// Unset sections keep their defaults.
	assert.Equal(t, 500, cfg.Text.MaxTextLength)
	assert.Equal(t, 3, cfg.Rate.MaxRetries)
	assert.Equal(t, "wav", cfg.Output.Format)
	assert.True(t, cfg.Emotion.UseEmotion)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("PODGEN_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `
provider: qwen
api:
  api_key: ${PODGEN_TEST_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.API.APIKey)
}

func TestLoadMissingEnvVarBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
provider: qwen
api:
  api_key: ${PODGEN_DEFINITELY_UNSET_VAR}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.API.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "festival" },
			problem: "provider 'festival' is not recognized",
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.API.APIKey = "" },
			problem: "api.api_key is required",
		},
		{
			name: "minimax without group id",
			mutate: func(c *Config) {
				c.Provider = "minimax"
				c.API.APIKey = "k"
				c.API.GroupID = ""
			},
			problem: "group_id is required",
		},
		{
			name:    "bad default emotion",
			mutate:  func(c *Config) { c.Emotion.DefaultEmotion = "giddy" },
			problem: "default_emotion",
		},
		{
			name:    "speed out of range",
			mutate:  func(c *Config) { c.Voices.Female.Speed = 9 },
			problem: "voices.female: speed",
		},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Output.Format = "ogg" },
			problem: "output.format 'ogg'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.API.APIKey = "k"
			tt.mutate(cfg)

			problems := cfg.Validate()
			require.NotEmpty(t, problems)
			found := false
			for _, p := range problems {
				if strings.Contains(p, tt.problem) {
					found = true
				}
			}
			assert.True(t, found, "expected a problem containing %q, got %v", tt.problem, problems)
		})
	}
}

func TestValidateCleanConfig(t *testing.T) {
	cfg := Default()
	cfg.API.APIKey = "k"
	assert.Empty(t, cfg.Validate())
}

func TestMaskSecrets(t *testing.T) {
	cfg := Default()
	cfg.API.APIKey = "sk-abcdef123456"

	masked := cfg.MaskSecrets()
	assert.Equal(t, "[set, 15 chars]", masked.API.APIKey)
	// Original is untouched.
	assert.Equal(t, "sk-abcdef123456", cfg.API.APIKey)
}

func TestGenerateExampleConfigRoundTrips(t *testing.T) {
	path := writeConfig(t, GenerateExampleConfig())
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen", cfg.Provider)
}

func TestForSpeaker(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "Ethan", cfg.Voices.ForSpeaker(dialogue.SpeakerMale).Voice)
	assert.Equal(t, "Chelsie", cfg.Voices.ForSpeaker(dialogue.SpeakerFemale).Voice)
}
