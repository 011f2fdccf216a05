package tts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podgen/podgen/internal/dialogue"
)

func TestMoodTableCoversAllEmotions(t *testing.T) {
	for _, e := range dialogue.Emotions() {
		params, ok := MoodFor(e)
		require.True(t, ok, "no mood params for %s", e)
		assert.NotEmpty(t, params.Emotion)
		assert.NotEmpty(t, params.Instruction)
		assert.Greater(t, params.Speed, 0.0)
	}
}

func TestMoodForShocked(t *testing.T) {
	params, ok := MoodFor(dialogue.EmotionShocked)
	require.True(t, ok)
	assert.Equal(t, 1.2, params.Speed)
	assert.Equal(t, 8, params.Pitch)
	assert.Equal(t, "surprised", params.Emotion)
}

func TestIndexTTSEmotion(t *testing.T) {
	assert.Equal(t, "Neutral", IndexTTSEmotion(dialogue.EmotionGentle))
	assert.Equal(t, "Angry", IndexTTSEmotion(dialogue.EmotionAngry))
	assert.Equal(t, "Sad", IndexTTSEmotion(dialogue.EmotionResigned))
	assert.Equal(t, "Surprised", IndexTTSEmotion(dialogue.EmotionConfused))
	assert.Equal(t, "Neutral", IndexTTSEmotion(dialogue.Emotion("unknown")))
}

func TestProsodySSML(t *testing.T) {
	params, _ := MoodFor(dialogue.EmotionSad)
	ssml := ProsodySSML("难过的话。", params)

	assert.True(t, strings.HasPrefix(ssml, "<speak>"))
	assert.Contains(t, ssml, `rate="80%"`)
	assert.Contains(t, ssml, `pitch="-6%"`)
	assert.Contains(t, ssml, "难过的话。")
}

func TestVolumeDBClamped(t *testing.T) {
	assert.Equal(t, 0.0, volumeDB(0))
	assert.Equal(t, 0.0, volumeDB(1.0))
	assert.Equal(t, 6.0, volumeDB(3.0))
	assert.InDelta(t, -2.0, volumeDB(0.9), 0.001)
}
