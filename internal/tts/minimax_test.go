package tts

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimaxAudioResponse(audio []byte, withPrefix bool) minimaxResponse {
	resp := minimaxResponse{}
	resp.Data.Audio = hex.EncodeToString(audio)
	if withPrefix {
		resp.Data.Audio = "0x" + resp.Data.Audio
	}
	return resp
}

func TestMiniMaxSynthesize(t *testing.T) {
	audio := []byte("fake-mp3-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "grp-1", r.URL.Query().Get("GroupId"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req minimaxRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "speech-2.6-hd", req.Model)
		assert.Equal(t, "voice-x", req.VoiceSetting.VoiceID)
		assert.Equal(t, "happy", req.VoiceSetting.Emotion)
		assert.Equal(t, 2, req.VoiceSetting.Pitch)

		json.NewEncoder(w).Encode(minimaxAudioResponse(audio, false))
	}))
	defer server.Close()

	p, err := NewMiniMaxProvider("test-key", "", server.URL, "grp-1")
	require.NoError(t, err)

	stream, err := p.Synthesize(context.Background(), "你好", &SynthesizeOptions{
		Voice:   "voice-x",
		Speed:   1.1,
		Pitch:   2,
		Volume:  1.0,
		Emotion: "happy",
	})
	require.NoError(t, err)
	defer stream.Close()

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestMiniMaxHexPrefixStripped(t *testing.T) {
	audio := []byte{0xde, 0xad, 0xbe, 0xef}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(minimaxAudioResponse(audio, true))
	}))
	defer server.Close()

	p, err := NewMiniMaxProvider("k", "", server.URL, "")
	require.NoError(t, err)

	stream, err := p.Synthesize(context.Background(), "你好", nil)
	require.NoError(t, err)
	defer stream.Close()

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestMiniMaxRateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := minimaxResponse{}
		resp.BaseResp.StatusCode = 1002
		resp.BaseResp.StatusMsg = "request frequency exceeds RPM limit"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewMiniMaxProvider("k", "", server.URL, "")
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "你好", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestMiniMaxAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := minimaxResponse{}
		resp.BaseResp.StatusCode = 2013
		resp.BaseResp.StatusMsg = "invalid voice_id"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewMiniMaxProvider("k", "", server.URL, "")
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "你好", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.Contains(t, err.Error(), "invalid voice_id")
}

func TestMiniMaxRequiresAPIKey(t *testing.T) {
	_, err := NewMiniMaxProvider("", "", "", "")
	assert.Error(t, err)
}
