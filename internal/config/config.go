package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/podgen/podgen/internal/dialogue"
)

// Config is the full YAML configuration for a synthesis run.
type Config struct {
	Provider string               `yaml:"provider"`
	API      APIConfig            `yaml:"api"`
	Voices   VoicesBlock          `yaml:"voices"`
	Emotion  EmotionConfig        `yaml:"emotion"`
	Mood     MoodConfig           `yaml:"mood"`
	Text     TextProcessingConfig `yaml:"text_processing"`
	Rate     RateLimitConfig      `yaml:"rate_limit"`
	Output   OutputConfig         `yaml:"output"`
	Video    VideoConfig          `yaml:"video"`
}

// APIConfig holds vendor credentials and endpoint overrides.
type APIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	GroupID string `yaml:"group_id"` // MiniMax account group
	Region  string `yaml:"region"`   // Polly
}

// VoicesBlock maps the two dialogue roles to their voice parameters.
type VoicesBlock struct {
	Male   VoiceConfig `yaml:"male"`
	Female VoiceConfig `yaml:"female"`
}

// ForSpeaker returns the voice parameters for a role.
func (v VoicesBlock) ForSpeaker(s dialogue.Speaker) VoiceConfig {
	if s == dialogue.SpeakerFemale {
		return v.Female
	}
	return v.Male
}

// VoiceConfig is one speaker's voice, with vendor-neutral knobs. Vendors
// ignore fields they do not support.
type VoiceConfig struct {
	Voice        string  `yaml:"voice"`
	Speed        float64 `yaml:"speed"`
	Gain         float64 `yaml:"gain"`
	Pitch        int     `yaml:"pitch"`
	SampleRate   int     `yaml:"sample_rate"`
	LanguageType string  `yaml:"language_type"`
	Instructions string  `yaml:"instructions"`
	// References enables voice cloning on vendors that support it. Audio is
	// a URL or a base64 data URI; Text is the transcript of the clip.
	References []Reference `yaml:"references"`
}

// Reference is a voice-cloning reference clip.
type Reference struct {
	Audio string `yaml:"audio"`
	Text  string `yaml:"text"`
}

// EmotionConfig controls how script emotion tags are applied.
type EmotionConfig struct {
	UseEmotion      bool   `yaml:"use_emotion"`
	DefaultEmotion  string `yaml:"default_emotion"`
	PassVoiceParams bool   `yaml:"pass_voice_params"`
}

// MoodConfig toggles mood-derived prosody overrides.
type MoodConfig struct {
	Enable bool `yaml:"enable"`
}

// TextProcessingConfig controls utterance normalization.
type TextProcessingConfig struct {
	RemoveParentheses bool `yaml:"remove_parentheses"`
	LocalizeFigures   bool `yaml:"localize_figures"`
	MaxTextLength     int  `yaml:"max_text_length"`
}

// RateLimitConfig paces and retries vendor requests.
type RateLimitConfig struct {
	Delay         float64 `yaml:"delay"`       // seconds between request starts
	MaxRetries    int     `yaml:"max_retries"` // attempts beyond the first
	RetryDelay    float64 `yaml:"retry_delay"` // initial backoff, seconds
	MaxConcurrent int     `yaml:"max_concurrent"`
}

// OutputConfig controls where and how clips are written.
type OutputConfig struct {
	OutputDir          string  `yaml:"output_dir"`
	Prefix             string  `yaml:"prefix"`
	Format             string  `yaml:"format"`
	UseTimestampSubdir bool    `yaml:"use_timestamp_subdir"`
	MergeAudio         bool    `yaml:"merge_audio"`
	SilenceBetween     float64 `yaml:"silence_between"` // seconds
}

// VideoConfig controls ffmpeg composition.
type VideoConfig struct {
	Width           int               `yaml:"width"`
	Height          int               `yaml:"height"`
	BackgroundColor string            `yaml:"background_color"`
	BackgroundImage string            `yaml:"background_image"`
	FontFile        string            `yaml:"font_file"`
	FontSize        int               `yaml:"font_size"`
	SubtitleMargin  int               `yaml:"subtitle_margin"`
	Title           string            `yaml:"title"`
	MoodAvatars     bool              `yaml:"mood_avatars"`
	Avatars         map[string]string `yaml:"avatars"` // "male", "female", or "male_happy" etc.
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Provider: "qwen",
		API: APIConfig{
			Model: "qwen3-tts-flash",
		},
		Voices: VoicesBlock{
			Male:   VoiceConfig{Voice: "Ethan", Speed: 1.0, Gain: 1.0, SampleRate: 24000, LanguageType: "Chinese"},
			Female: VoiceConfig{Voice: "Chelsie", Speed: 1.0, Gain: 1.0, SampleRate: 24000, LanguageType: "Chinese"},
		},
		Emotion: EmotionConfig{
			UseEmotion:      true,
			DefaultEmotion:  string(dialogue.EmotionGentle),
			PassVoiceParams: true,
		},
		Mood: MoodConfig{Enable: true},
		Text: TextProcessingConfig{
			RemoveParentheses: true,
			LocalizeFigures:   true,
			MaxTextLength:     500,
		},
		Rate: RateLimitConfig{
			Delay:         1.0,
			MaxRetries:    3,
			RetryDelay:    5.0,
			MaxConcurrent: 2,
		},
		Output: OutputConfig{
			OutputDir:          "output",
			Prefix:             "dialogue",
			Format:             "wav",
			UseTimestampSubdir: true,
			MergeAudio:         true,
			SilenceBetween:     0.5,
		},
		Video: VideoConfig{
			Width:           1920,
			Height:          1080,
			BackgroundColor: "0x1e1e2e",
			FontSize:        44,
			SubtitleMargin:  120,
		},
	}
}

// Load reads a YAML configuration file, expands ${VAR} references, and
// fills unset fields from the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	checkFilePermissions(path)

	log.Debug().Str("path", path).Str("provider", cfg.Provider).Msg("Loaded config")
	return cfg, nil
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(input, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Don't log variable names for security reasons
		log.Debug().Msg("Referenced environment variable not set in config")
		return ""
	})
}

func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		log.Warn().
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Config file may contain secrets but has permissive permissions. Consider: chmod 600")
	}
}

var knownProviders = []string{"qwen", "siliconflow", "minimax", "polly", "gcp"}

// Validate returns a list of configuration problems, empty when the
// config is usable.
func (c *Config) Validate() []string {
	var problems []string

	if !contains(knownProviders, c.Provider) {
		problems = append(problems, fmt.Sprintf("provider '%s' is not recognized (want one of %v)", c.Provider, knownProviders))
	}

	switch c.Provider {
	case "qwen", "siliconflow":
		if c.API.APIKey == "" {
			problems = append(problems, fmt.Sprintf("%s: api.api_key is required (use ${%s_API_KEY} for env var)", c.Provider, envPrefix(c.Provider)))
		}
	case "minimax":
		if c.API.APIKey == "" {
			problems = append(problems, "minimax: api.api_key is required (use ${MINIMAX_API_KEY} for env var)")
		}
		if c.API.GroupID == "" {
			problems = append(problems, "minimax: api.group_id is required")
		}
	}

	if _, err := dialogue.EmotionFromString(c.Emotion.DefaultEmotion); err != nil {
		problems = append(problems, fmt.Sprintf("emotion.default_emotion: %v", err))
	}

	for _, v := range []struct {
		role string
		cfg  VoiceConfig
	}{{"male", c.Voices.Male}, {"female", c.Voices.Female}} {
		if v.cfg.Speed != 0 && (v.cfg.Speed < 0.25 || v.cfg.Speed > 4.0) {
			problems = append(problems, fmt.Sprintf("voices.%s: speed must be between 0.25 and 4.0", v.role))
		}
		if v.cfg.Gain < 0 || v.cfg.Gain > 10 {
			problems = append(problems, fmt.Sprintf("voices.%s: gain must be between 0 and 10", v.role))
		}
	}

	if c.Text.MaxTextLength < 0 {
		problems = append(problems, "text_processing.max_text_length must not be negative")
	}
	if c.Rate.MaxConcurrent < 1 {
		problems = append(problems, "rate_limit.max_concurrent must be at least 1")
	}
	if c.Rate.MaxRetries < 0 {
		problems = append(problems, "rate_limit.max_retries must not be negative")
	}
	if c.Output.Format != "wav" && c.Output.Format != "mp3" {
		problems = append(problems, fmt.Sprintf("output.format '%s' is not supported (want wav or mp3)", c.Output.Format))
	}

	return problems
}

func envPrefix(provider string) string {
	switch provider {
	case "qwen":
		return "DASHSCOPE"
	case "siliconflow":
		return "SILICONFLOW"
	default:
		return "TTS"
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// MaskSecrets returns a copy safe for display. Only presence and length
// of a key are shown, never its contents.
func (c *Config) MaskSecrets() *Config {
	if c == nil {
		return nil
	}

	masked := *c
	if c.API.APIKey != "" {
		masked.API.APIKey = fmt.Sprintf("[set, %d chars]", len(c.API.APIKey))
	}
	return &masked
}

// GenerateExampleConfig returns a commented example configuration.
func GenerateExampleConfig() string {
	example := Default()
	example.API.APIKey = "${DASHSCOPE_API_KEY}"

	data, _ := yaml.Marshal(example)
	return string(data)
}
