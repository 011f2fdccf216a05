package tts

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultMiniMaxBaseURL = "https://api.minimax.chat"

// MiniMaxProvider implements TTS using the MiniMax t2a_v2 API. Audio comes
// back hex-encoded in a JSON envelope.
type MiniMaxProvider struct {
	apiKey     string
	model      string
	baseURL    string
	groupID    string
	httpClient *http.Client
}

// NewMiniMaxProvider creates a new MiniMax TTS provider
func NewMiniMaxProvider(apiKey, model, baseURL, groupID string) (*MiniMaxProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("MiniMax API key is required")
	}
	if model == "" {
		model = "speech-2.6-hd"
	}
	if baseURL == "" {
		baseURL = defaultMiniMaxBaseURL
	}
	if groupID == "" {
		log.Warn().Msg("MiniMax group_id not set; API requests may be rejected")
	}

	return &MiniMaxProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		groupID: groupID,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Name returns the provider name
func (p *MiniMaxProvider) Name() string {
	return "minimax"
}

// IsAvailable checks that credentials are present.
func (p *MiniMaxProvider) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}

// ListVoices returns commonly used system voice ids. MiniMax has no public
// voice-listing endpoint.
func (p *MiniMaxProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return []Voice{
		{ID: "Chinese (Mandarin)_Reliable_Executive", Name: "Reliable Executive", Language: "zh-CN", Gender: "male"},
		{ID: "Chinese (Mandarin)_Gentle_Senior", Name: "Gentle Senior", Language: "zh-CN", Gender: "female"},
		{ID: "Chinese (Mandarin)_News_Anchor", Name: "News Anchor", Language: "zh-CN", Gender: "male"},
		{ID: "Chinese (Mandarin)_Warm_Girl", Name: "Warm Girl", Language: "zh-CN", Gender: "female"},
	}, nil
}

type minimaxVoiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Vol     float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
	Emotion string  `json:"emotion,omitempty"`
}

type minimaxAudioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

type minimaxRequest struct {
	Model        string              `json:"model"`
	Text         string              `json:"text"`
	Stream       bool                `json:"stream"`
	VoiceSetting minimaxVoiceSetting `json:"voice_setting"`
	AudioSetting minimaxAudioSetting `json:"audio_setting"`
}

type minimaxResponse struct {
	Data struct {
		Audio string `json:"audio"`
	} `json:"data"`
	BaseResp struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

// Synthesize converts text to speech via MiniMax t2a_v2.
func (p *MiniMaxProvider) Synthesize(ctx context.Context, text string, options *SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceSetting := minimaxVoiceSetting{
		VoiceID: "Chinese (Mandarin)_Reliable_Executive",
		Speed:   1.0,
		Vol:     1.0,
	}
	audioSetting := minimaxAudioSetting{
		SampleRate: 32000,
		Bitrate:    128000,
		Format:     "mp3",
		Channel:    1,
	}

	if options != nil {
		if options.Voice != "" {
			voiceSetting.VoiceID = options.Voice
		}
		if options.Speed > 0 {
			voiceSetting.Speed = options.Speed
		}
		if options.Volume > 0 {
			voiceSetting.Vol = options.Volume
		}
		voiceSetting.Pitch = options.Pitch
		voiceSetting.Emotion = options.Emotion
		if options.SampleRate > 0 {
			audioSetting.SampleRate = options.SampleRate
		}
		if options.Format != "" {
			audioSetting.Format = options.Format
		}
	}

	payloadBytes, err := json.Marshal(minimaxRequest{
		Model:        p.model,
		Text:         text,
		Stream:       false,
		VoiceSetting: voiceSetting,
		AudioSetting: audioSetting,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpoint := p.baseURL + "/v1/t2a_v2"
	if p.groupID != "" {
		endpoint += "?GroupId=" + url.QueryEscape(p.groupID)
	}

	log.Debug().
		Str("model", p.model).
		Str("voice_id", voiceSetting.VoiceID).
		Str("emotion", voiceSetting.Emotion).
		Msg("Synthesizing with MiniMax")

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payloadBytes))
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
		return nil, fmt.Errorf("minimax: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("MiniMax API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed minimaxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode MiniMax response: %w", err)
	}

	if parsed.Data.Audio == "" {
		if parsed.BaseResp.StatusCode != 0 {
			msg := parsed.BaseResp.StatusMsg
			lower := strings.ToLower(msg)
			if strings.Contains(lower, "rate limit") || strings.Contains(lower, "rpm") {
				return nil, fmt.Errorf("minimax: %s: %w", msg, ErrRateLimited)
			}
			return nil, fmt.Errorf("MiniMax API error %d: %s", parsed.BaseResp.StatusCode, msg)
		}
		return nil, fmt.Errorf("MiniMax response contained no audio")
	}

	audioHex := strings.TrimPrefix(parsed.Data.Audio, "0x")
	raw, err := hex.DecodeString(audioHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex audio: %w", err)
	}

	log.Debug().Int("audio_bytes", len(raw)).Msg("MiniMax synthesis successful")
	return io.NopCloser(bytes.NewReader(raw)), nil
}
