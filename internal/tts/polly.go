package tts

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PollyClient interface defines the methods we need from the Polly client
type PollyClient interface {
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyProvider implements the Provider interface for Amazon Polly.
// Emotion is expressed through SSML prosody built from the mood table,
// since Polly has no emotion parameter.
type PollyProvider struct {
	client PollyClient
	region string
}

// NewPollyProvider creates a new Amazon Polly TTS provider
func NewPollyProvider(region string) (*PollyProvider, error) {
	if region == "" {
		region = "us-east-1" // Default region
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &PollyProvider{
		client: polly.NewFromConfig(cfg),
		region: region,
	}, nil
}

// Name returns the provider name
func (p *PollyProvider) Name() string {
	return "polly"
}

// IsAvailable checks if Amazon Polly provider is available
func (p *PollyProvider) IsAvailable(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.DescribeVoices(checkCtx, &polly.DescribeVoicesInput{})
	return err == nil
}

// ListVoices returns available Amazon Polly voices
func (p *PollyProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	result, err := p.client.DescribeVoices(ctx, &polly.DescribeVoicesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list Polly voices: %w", err)
	}

	voices := make([]Voice, 0, len(result.Voices))
	for _, v := range result.Voices {
		voice := Voice{
			ID:       string(v.Id),
			Name:     aws.ToString(v.Name),
			Language: string(v.LanguageCode),
			Description: fmt.Sprintf("%s voice, %s engine supported",
				cases.Title(language.English).String(string(v.Gender)),
				formatSupportedEngines(v.SupportedEngines)),
		}

		switch v.Gender {
		case types.GenderFemale:
			voice.Gender = "female"
		case types.GenderMale:
			voice.Gender = "male"
		}

		voices = append(voices, voice)
	}

	return voices, nil
}

// Synthesize generates audio from text using Amazon Polly
func (p *PollyProvider) Synthesize(ctx context.Context, text string, options *SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := "Zhiyu" // Default Mandarin voice
	outputFormat := "mp3"
	sampleRate := 0
	if options != nil {
		if options.Voice != "" {
			voiceID = options.Voice
		}
		if options.Format != "" {
			outputFormat = options.Format
		}
		sampleRate = options.SampleRate
	}

	var pollyFormat types.OutputFormat
	switch strings.ToLower(outputFormat) {
	case "mp3":
		pollyFormat = types.OutputFormatMp3
	case "ogg":
		pollyFormat = types.OutputFormatOggVorbis
	case "wav", "pcm":
		pollyFormat = types.OutputFormatPcm
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", outputFormat)
	}

	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(voiceID),
		OutputFormat: pollyFormat,
		Engine:       types.EngineNeural,
	}

	switch sampleRate {
	case 0:
	case 8000, 16000, 22050, 24000:
		input.SampleRate = aws.String(strconv.Itoa(sampleRate))
	default:
		log.Warn().Int("sample_rate", sampleRate).Msg("Unsupported Polly sample rate, using default")
	}

	if strings.Contains(text, "<speak>") || strings.Contains(text, "<prosody") {
		input.TextType = types.TextTypeSsml
	} else if options != nil && hasProsody(options) {
		// Polly has no numeric prosody knobs, so mood parameters become an
		// SSML wrapper.
		input.Text = aws.String(ProsodySSML(text, MoodParams{
			Speed:  options.Speed,
			Pitch:  options.Pitch,
			Volume: options.Volume,
		}))
		input.TextType = types.TextTypeSsml
	} else {
		input.TextType = types.TextTypeText
	}

	log.Debug().
		Str("voice_id", voiceID).
		Str("output_format", string(pollyFormat)).
		Str("text_type", string(input.TextType)).
		Msg("Making Polly synthesis request")

	result, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	return result.AudioStream, nil
}

// hasProsody reports whether the options carry non-neutral prosody.
func hasProsody(options *SynthesizeOptions) bool {
	return (options.Speed != 0 && options.Speed != 1.0) ||
		options.Pitch != 0 ||
		(options.Volume != 0 && options.Volume != 1.0)
}

// formatSupportedEngines formats the list of supported engines for display
func formatSupportedEngines(engines []types.Engine) string {
	if len(engines) == 0 {
		return "unknown"
	}

	engineNames := make([]string, len(engines))
	for i, engine := range engines {
		engineNames[i] = string(engine)
	}

	return strings.Join(engineNames, ", ")
}
