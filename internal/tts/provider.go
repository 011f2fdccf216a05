package tts

import (
	"context"
	"errors"
	"io"

	"github.com/podgen/podgen/internal/dialogue"
)

// ErrRateLimited marks vendor responses caused by request pacing. The
// dispatcher backs off longer when it sees this.
var ErrRateLimited = errors.New("vendor rate limit exceeded")

// Provider defines the interface for TTS vendors.
type Provider interface {
	// Name returns the provider name
	Name() string

	// ListVoices returns available voices for this provider
	ListVoices(ctx context.Context) ([]Voice, error)

	// Synthesize generates audio for one utterance and returns the stream
	Synthesize(ctx context.Context, text string, options *SynthesizeOptions) (io.ReadCloser, error)

	// IsAvailable checks if the provider is available (can be used)
	IsAvailable(ctx context.Context) bool
}

// DialogueSynthesizer is implemented by providers whose models accept a
// whole two-speaker dialogue in one request.
type DialogueSynthesizer interface {
	SynthesizeDialogue(ctx context.Context, turns []dialogue.Turn, options *SynthesizeOptions) (io.ReadCloser, error)
}

// Voice represents a voice option
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

// SynthesizeOptions carries vendor-neutral synthesis parameters. Each
// provider reads the fields its API supports and ignores the rest.
type SynthesizeOptions struct {
	Voice        string
	Speed        float64 // multiplier, 0.25-4.0
	Pitch        int     // semitone-ish offset, vendor scaled
	Volume       float64 // loudness multiplier
	Gain         float64
	SampleRate   int
	Format       string // wav, mp3
	LanguageType string
	Instructions string // style prompt for instruction-following models

	// Emotion is the vendor-side emotion label derived from the mood table.
	Emotion string
	// EmoVector and EmoAlpha drive IndexTTS-2 emotion control.
	EmoVector string
	EmoAlpha  float64

	// References enables voice cloning from reference clips.
	References []Reference
}

// Reference is a voice-cloning reference clip: a URL or base64 data URI
// plus the transcript of the clip.
type Reference struct {
	Audio string `json:"audio"`
	Text  string `json:"text"`
}
