package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPProvider implements the Provider interface for Google Cloud
// Text-to-Speech. Emotion is expressed through speaking rate, pitch and
// volume gain derived from the mood table.
type GCPProvider struct {
	client   *texttospeech.Client
	voice    string
	language string
}

// GCPProviderOption is a functional option for configuring GCPProvider
type GCPProviderOption func(*GCPProvider)

// WithGCPVoice sets the default voice
func WithGCPVoice(voice string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.voice = voice
	}
}

// WithGCPLanguage sets the default language code
func WithGCPLanguage(language string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.language = language
	}
}

// NewGCPProvider creates a new Google Cloud TTS provider.
// Authentication is handled via GOOGLE_APPLICATION_CREDENTIALS or
// Application Default Credentials (ADC).
func NewGCPProvider(ctx context.Context, opts ...GCPProviderOption) (*GCPProvider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP TTS client: %w", err)
	}

	p := &GCPProvider{
		client:   client,
		voice:    "cmn-CN-Wavenet-B",
		language: "cmn-CN",
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Name returns the provider name
func (p *GCPProvider) Name() string {
	return "gcp"
}

// IsAvailable checks if the GCP TTS service is available. Credential
// failures surface as Unauthenticated or PermissionDenied status codes.
func (p *GCPProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		if s, ok := status.FromError(err); ok {
			log.Debug().Str("code", s.Code().String()).Msg("GCP TTS availability check failed")
			return s.Code() != codes.Unauthenticated && s.Code() != codes.PermissionDenied && s.Code() != codes.Unavailable
		}
		return false
	}
	return true
}

// ListVoices returns available voices from Google Cloud TTS
func (p *GCPProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{
		LanguageCode: p.language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list GCP voices: %w", err)
	}

	var voices []Voice
	for _, v := range resp.Voices {
		gender := "unknown"
		switch v.SsmlGender {
		case texttospeechpb.SsmlVoiceGender_MALE:
			gender = "male"
		case texttospeechpb.SsmlVoiceGender_FEMALE:
			gender = "female"
		case texttospeechpb.SsmlVoiceGender_NEUTRAL:
			gender = "neutral"
		}

		voices = append(voices, Voice{
			ID:          v.Name,
			Name:        v.Name,
			Language:    p.language,
			Gender:      gender,
			Description: fmt.Sprintf("%s voice (%s)", detectEngineType(v.Name), strings.Join(v.LanguageCodes, ", ")),
		})
	}

	log.Debug().Int("count", len(voices)).Msg("Listed GCP TTS voices")
	return voices, nil
}

// detectEngineType determines the engine type from voice name
func detectEngineType(voiceName string) string {
	name := strings.ToLower(voiceName)
	switch {
	case strings.Contains(name, "wavenet"):
		return "WaveNet"
	case strings.Contains(name, "neural2"):
		return "Neural2"
	case strings.Contains(name, "studio"):
		return "Studio"
	case strings.Contains(name, "chirp"):
		return "Chirp"
	default:
		return "Standard"
	}
}

// Synthesize generates audio from text using Google Cloud TTS
func (p *GCPProvider) Synthesize(ctx context.Context, text string, options *SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := p.voice
	format := ""
	speed := 0.0
	pitch := 0
	volume := 0.0
	sampleRate := 0
	if options != nil {
		if options.Voice != "" {
			voice = options.Voice
		}
		format = options.Format
		speed = options.Speed
		pitch = options.Pitch
		volume = options.Volume
		sampleRate = options.SampleRate
	}

	// Extract language from voice name (e.g. cmn-CN-Wavenet-B -> cmn-CN)
	language := p.language
	if parts := strings.Split(voice, "-"); len(parts) >= 2 {
		language = parts[0] + "-" + parts[1]
	}

	audioConfig := &texttospeechpb.AudioConfig{
		AudioEncoding:   audioEncoding(format),
		SpeakingRate:    clampSpeakingRate(speed),
		Pitch:           gcpPitch(pitch),
		VolumeGainDb:    gcpVolumeGain(volume),
		SampleRateHertz: int32(sampleRate),
	}

	log.Debug().
		Str("voice", voice).
		Str("language", language).
		Float64("speaking_rate", audioConfig.SpeakingRate).
		Float64("pitch", audioConfig.Pitch).
		Msg("Making GCP TTS synthesis request")

	resp, err := p.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			Name:         voice,
		},
		AudioConfig: audioConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	log.Debug().Int("audio_bytes", len(resp.AudioContent)).Msg("GCP TTS synthesis successful")
	return io.NopCloser(bytes.NewReader(resp.AudioContent)), nil
}

// Close closes the GCP client
func (p *GCPProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// audioEncoding converts format string to GCP audio encoding
func audioEncoding(format string) texttospeechpb.AudioEncoding {
	switch strings.ToLower(format) {
	case "wav", "linear16":
		return texttospeechpb.AudioEncoding_LINEAR16
	case "ogg", "ogg_opus":
		return texttospeechpb.AudioEncoding_OGG_OPUS
	default:
		return texttospeechpb.AudioEncoding_MP3
	}
}

// clampSpeakingRate converts speed to GCP speaking rate (0.25 to 4.0)
func clampSpeakingRate(speed float64) float64 {
	if speed <= 0 {
		return 1.0
	}
	if speed < 0.25 {
		return 0.25
	}
	if speed > 4.0 {
		return 4.0
	}
	return speed
}

// gcpPitch maps the mood pitch offset onto GCP semitones (-20.0 to 20.0).
func gcpPitch(pitch int) float64 {
	p := float64(pitch)
	if p > 20 {
		p = 20
	}
	if p < -20 {
		p = -20
	}
	return p
}

// gcpVolumeGain converts a loudness multiplier to dB gain (-96.0 to 16.0).
func gcpVolumeGain(volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	db := 20 * (volume - 1)
	if db > 16 {
		db = 16
	}
	if db < -96 {
		db = -96
	}
	return db
}
