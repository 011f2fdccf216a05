package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultQwenBaseURL = "https://dashscope.aliyuncs.com/api/v1"

// QwenProvider implements TTS using the Alibaba DashScope
// multimodal-generation API (qwen-tts family).
type QwenProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewQwenProvider creates a new DashScope TTS provider
func NewQwenProvider(apiKey, model, baseURL string) (*QwenProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DashScope API key is required")
	}
	if model == "" {
		model = "qwen3-tts-flash"
	}
	if baseURL == "" {
		baseURL = defaultQwenBaseURL
	}

	return &QwenProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Name returns the provider name
func (p *QwenProvider) Name() string {
	return "qwen"
}

// IsAvailable checks that credentials are present. DashScope has no cheap
// unauthenticated health endpoint, so a configured key counts as available.
func (p *QwenProvider) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}

// ListVoices returns the documented qwen-tts voice set.
func (p *QwenProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return []Voice{
		{ID: "Ethan", Name: "Ethan", Language: "zh-CN", Gender: "male"},
		{ID: "Chelsie", Name: "Chelsie", Language: "zh-CN", Gender: "female"},
		{ID: "Cherry", Name: "Cherry", Language: "zh-CN", Gender: "female"},
		{ID: "Serena", Name: "Serena", Language: "zh-CN", Gender: "female"},
		{ID: "Dylan", Name: "Dylan", Language: "zh-CN", Gender: "male", Description: "Beijing dialect"},
		{ID: "Jada", Name: "Jada", Language: "zh-CN", Gender: "female", Description: "Wu dialect"},
		{ID: "Sunny", Name: "Sunny", Language: "zh-CN", Gender: "female", Description: "Sichuan dialect"},
	}, nil
}

type qwenInput struct {
	Text                 string `json:"text"`
	Voice                string `json:"voice"`
	LanguageType         string `json:"language_type,omitempty"`
	Instructions         string `json:"instructions,omitempty"`
	OptimizeInstructions *bool  `json:"optimize_instructions,omitempty"`
}

type qwenRequest struct {
	Model string    `json:"model"`
	Input qwenInput `json:"input"`
}

type qwenAudio struct {
	URL  string `json:"url"`
	Data string `json:"data"`
}

type qwenResponse struct {
	Output struct {
		Audio qwenAudio `json:"audio"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Synthesize converts text to speech via DashScope. The API returns either
// a short-lived URL to download or inline base64 audio; the URL is
// preferred when both are present.
func (p *QwenProvider) Synthesize(ctx context.Context, text string, options *SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	input := qwenInput{
		Text:         text,
		Voice:        "Ethan",
		LanguageType: "Chinese",
	}
	if options != nil {
		if options.Voice != "" {
			input.Voice = options.Voice
		}
		if options.LanguageType != "" {
			input.LanguageType = options.LanguageType
		}
		// Instruction-following models express style through a prompt.
		if options.Instructions != "" && strings.Contains(p.model, "instruct") {
			optimize := true
			input.Instructions = options.Instructions
			input.OptimizeInstructions = &optimize
		}
	}

	payloadBytes, err := json.Marshal(qwenRequest{Model: p.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	log.Debug().
		Str("model", p.model).
		Str("voice", input.Voice).
		Int("text_len", len(text)).
		Msg("Synthesizing with DashScope")

	req, err := http.NewRequestWithContext(ctx, "POST",
		p.baseURL+"/services/aigc/multimodal-generation/generation",
		bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("dashscope: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("DashScope API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed qwenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode DashScope response: %w", err)
	}
	if parsed.Code != "" {
		if strings.Contains(strings.ToLower(parsed.Message), "throttl") {
			return nil, fmt.Errorf("dashscope: %s: %w", parsed.Message, ErrRateLimited)
		}
		return nil, fmt.Errorf("DashScope API error %s: %s", parsed.Code, parsed.Message)
	}

	audio := parsed.Output.Audio
	switch {
	case audio.URL != "":
		return p.download(ctx, audio.URL)
	case audio.Data != "":
		raw, err := base64.StdEncoding.DecodeString(audio.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline audio: %w", err)
		}
		return io.NopCloser(bytes.NewReader(raw)), nil
	default:
		return nil, fmt.Errorf("DashScope response contained no audio")
	}
}

func (p *QwenProvider) download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("audio download failed: status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
