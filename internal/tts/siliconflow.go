package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/podgen/podgen/internal/dialogue"
)

const defaultSiliconFlowBaseURL = "https://api.siliconflow.cn"

// SiliconFlowProvider implements TTS using the SiliconFlow
// OpenAI-compatible /v1/audio/speech endpoint. IndexTTS-2 models take
// emotion vectors, and MOSS-TTSD models synthesize a whole two-speaker
// dialogue from [S1]/[S2]-tagged text in one request.
type SiliconFlowProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewSiliconFlowProvider creates a new SiliconFlow TTS provider
func NewSiliconFlowProvider(apiKey, model, baseURL string) (*SiliconFlowProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SiliconFlow API key is required")
	}
	if model == "" {
		model = "IndexTeam/IndexTTS-2"
	}
	if baseURL == "" {
		baseURL = defaultSiliconFlowBaseURL
	}

	return &SiliconFlowProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}, nil
}

// Name returns the provider name
func (p *SiliconFlowProvider) Name() string {
	return "siliconflow"
}

// IsAvailable checks if the SiliconFlow API accepts our credentials.
func (p *SiliconFlowProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("SiliconFlow availability check failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ListVoices returns the preset voices for the configured model family.
func (p *SiliconFlowProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	if p.isMossModel() {
		return []Voice{
			{ID: "alex", Name: "Alex", Language: "zh-CN", Gender: "male"},
			{ID: "anna", Name: "Anna", Language: "zh-CN", Gender: "female"},
			{ID: "benjamin", Name: "Benjamin", Language: "zh-CN", Gender: "male"},
			{ID: "bella", Name: "Bella", Language: "zh-CN", Gender: "female"},
		}, nil
	}
	return []Voice{
		{ID: "alex", Name: "Alex", Language: "zh-CN", Gender: "male"},
		{ID: "anna", Name: "Anna", Language: "zh-CN", Gender: "female"},
		{ID: "charles", Name: "Charles", Language: "zh-CN", Gender: "male"},
		{ID: "claire", Name: "Claire", Language: "zh-CN", Gender: "female"},
		{ID: "david", Name: "David", Language: "zh-CN", Gender: "male"},
		{ID: "diana", Name: "Diana", Language: "zh-CN", Gender: "female"},
	}, nil
}

func (p *SiliconFlowProvider) isMossModel() bool {
	return strings.Contains(p.model, "MOSS-TTSD")
}

func (p *SiliconFlowProvider) isIndexTTSModel() bool {
	return strings.Contains(p.model, "IndexTTS")
}

type siliconFlowRequest struct {
	Model          string      `json:"model"`
	Input          string      `json:"input"`
	Voice          string      `json:"voice,omitempty"`
	ResponseFormat string      `json:"response_format"`
	Speed          float64     `json:"speed,omitempty"`
	Gain           float64     `json:"gain,omitempty"`
	SampleRate     int         `json:"sample_rate,omitempty"`
	References     []Reference `json:"references,omitempty"`
	EmoVector      string      `json:"emo_vector,omitempty"`
	EmoAlpha       float64     `json:"emo_alpha,omitempty"`
}

// Synthesize converts text to speech. The response body is raw audio.
func (p *SiliconFlowProvider) Synthesize(ctx context.Context, text string, options *SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	payload := siliconFlowRequest{
		Model:          p.model,
		Input:          text,
		ResponseFormat: "wav",
	}

	if options != nil {
		payload.Voice = p.qualifyVoice(options.Voice)
		payload.Speed = options.Speed
		payload.Gain = options.Gain
		payload.SampleRate = options.SampleRate
		payload.References = options.References
		if options.Format != "" {
			payload.ResponseFormat = options.Format
		}
		if p.isIndexTTSModel() {
			payload.EmoVector = options.EmoVector
			payload.EmoAlpha = options.EmoAlpha
		}
	}

	// Cloning references replace the preset voice.
	if len(payload.References) > 0 {
		payload.Voice = ""
	}

	return p.post(ctx, payload)
}

// SynthesizeDialogue sends a whole dialogue in one MOSS-TTSD request.
// Male turns become [S1], female turns [S2]; the references carry the two
// speaker voices.
func (p *SiliconFlowProvider) SynthesizeDialogue(ctx context.Context, turns []dialogue.Turn, options *SynthesizeOptions) (io.ReadCloser, error) {
	if !p.isMossModel() {
		return nil, fmt.Errorf("model %s does not support dialogue synthesis", p.model)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("dialogue is empty")
	}

	var b strings.Builder
	for _, t := range turns {
		tag := "[S1]"
		if t.Speaker == dialogue.SpeakerFemale {
			tag = "[S2]"
		}
		b.WriteString(tag)
		b.WriteString(t.Text)
	}

	payload := siliconFlowRequest{
		Model:          p.model,
		Input:          b.String(),
		ResponseFormat: "wav",
	}
	voice := ""
	if options != nil {
		payload.Speed = options.Speed
		payload.Gain = options.Gain
		payload.References = options.References
		voice = options.Voice
		if options.Format != "" {
			payload.ResponseFormat = options.Format
		}
	}
	if len(payload.References) == 0 {
		// No cloning clips configured; fall back to the published
		// voice-template clips so dialogue mode works with preset voices.
		payload.References = presetDialogueReferences(voice)
	}
	if len(payload.References) != 2 {
		return nil, fmt.Errorf("dialogue synthesis needs exactly two references, got %d", len(payload.References))
	}

	log.Debug().
		Int("turns", len(turns)).
		Int("text_len", b.Len()).
		Msg("Synthesizing dialogue with MOSS-TTSD")

	return p.post(ctx, payload)
}

// presetDialogueReferences pairs two of SiliconFlow's voice-template clips
// as the [S1]/[S2] references: the configured male preset (alex when the
// name is not a known male voice) and anna as the female side.
func presetDialogueReferences(voice string) []Reference {
	const templateText = "在一无所知中，梦里的一天结束了，一个新的轮回便会开始"

	if i := strings.LastIndex(voice, ":"); i >= 0 {
		voice = voice[i+1:]
	}

	maleVoices := map[string]bool{"alex": true, "benjamin": true, "charles": true, "david": true}
	s1 := "alex"
	if maleVoices[voice] {
		s1 = voice
	}
	s2 := "anna"

	clip := func(name string) Reference {
		return Reference{
			Audio: fmt.Sprintf("https://sf-maas-uat-prod.oss-cn-shanghai.aliyuncs.com/voice_template/fish_audio-%s.mp3",
				cases.Title(language.English).String(name)),
			Text: templateText,
		}
	}
	return []Reference{clip(s1), clip(s2)}
}

// qualifyVoice prefixes a bare preset name with the model path, the form
// the API expects.
func (p *SiliconFlowProvider) qualifyVoice(voice string) string {
	if voice == "" || strings.HasPrefix(voice, p.model) {
		return voice
	}
	return p.model + ":" + voice
}

func (p *SiliconFlowProvider) post(ctx context.Context, payload siliconFlowRequest) (io.ReadCloser, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/audio/speech", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, fmt.Errorf("siliconflow: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("SiliconFlow API error: status %d, body: %s", resp.StatusCode, apiErrorMessage(body))
	}

	return resp.Body, nil
}

// apiErrorMessage extracts the OpenAI-style error message when the body is
// JSON, falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}
