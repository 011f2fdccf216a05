package tts

import (
	"fmt"

	"github.com/podgen/podgen/internal/dialogue"
)

// MoodParams are the prosody overrides one emotion tag maps to. Emotion is
// the generic vendor label (MiniMax accepts it directly); Instruction is a
// Chinese style prompt for instruction-following models.
type MoodParams struct {
	Speed       float64
	Pitch       int
	Volume      float64
	Emotion     string
	Instruction string
}

var moodTable = map[dialogue.Emotion]MoodParams{
	dialogue.EmotionGentle:    {Speed: 1.0, Pitch: 0, Volume: 1.0, Emotion: "neutral", Instruction: "语速适中，语气温柔平和"},
	dialogue.EmotionHappy:     {Speed: 1.1, Pitch: 2, Volume: 1.0, Emotion: "happy", Instruction: "语速稍快，语气轻快愉悦"},
	dialogue.EmotionConfident: {Speed: 1.0, Pitch: 0, Volume: 1.1, Emotion: "neutral", Instruction: "语速适中，语气坚定自信"},
	dialogue.EmotionExpectant: {Speed: 1.1, Pitch: 4, Volume: 1.0, Emotion: "happy", Instruction: "语速稍快，语气充满期待和好奇"},
	dialogue.EmotionConfused:  {Speed: 0.9, Pitch: 2, Volume: 1.0, Emotion: "surprised", Instruction: "语速稍慢，语气带有疑问和困惑"},
	dialogue.EmotionShocked:   {Speed: 1.2, Pitch: 8, Volume: 1.1, Emotion: "surprised", Instruction: "语速较快，语气惊讶震惊"},
	dialogue.EmotionAngry:     {Speed: 1.2, Pitch: -4, Volume: 1.2, Emotion: "angry", Instruction: "语速较快，语气愤怒不满"},
	dialogue.EmotionSad:       {Speed: 0.8, Pitch: -6, Volume: 0.9, Emotion: "sad", Instruction: "语速较慢，语气悲伤低沉"},
	dialogue.EmotionResigned:  {Speed: 1.0, Pitch: -2, Volume: 1.0, Emotion: "sad", Instruction: "语速适中，语气无奈平淡"},
}

// MoodFor returns the prosody parameters for an emotion tag.
func MoodFor(e dialogue.Emotion) (MoodParams, bool) {
	p, ok := moodTable[e]
	return p, ok
}

// indexTTSEmotions maps our tags onto the seven emotion vectors IndexTTS-2
// understands.
var indexTTSEmotions = map[dialogue.Emotion]string{
	dialogue.EmotionGentle:    "Neutral",
	dialogue.EmotionHappy:     "Happy",
	dialogue.EmotionConfident: "Neutral",
	dialogue.EmotionExpectant: "Happy",
	dialogue.EmotionConfused:  "Surprised",
	dialogue.EmotionShocked:   "Surprised",
	dialogue.EmotionAngry:     "Angry",
	dialogue.EmotionSad:       "Sad",
	dialogue.EmotionResigned:  "Sad",
}

// IndexTTSEmotion returns the IndexTTS-2 emotion vector for a tag,
// defaulting to Neutral.
func IndexTTSEmotion(e dialogue.Emotion) string {
	if v, ok := indexTTSEmotions[e]; ok {
		return v
	}
	return "Neutral"
}

// ProsodySSML wraps text in an SSML prosody element expressing the mood
// parameters, for vendors that take SSML instead of numeric knobs.
func ProsodySSML(text string, p MoodParams) string {
	if p.Speed <= 0 {
		p.Speed = 1.0
	}
	rate := int(p.Speed * 100)
	return fmt.Sprintf(`<speak><prosody rate="%d%%" pitch="%+d%%" volume="%+.1fdB">%s</prosody></speak>`,
		rate, p.Pitch, volumeDB(p.Volume), text)
}

// volumeDB converts a loudness multiplier to decibels, clamped to a range
// SSML engines accept.
func volumeDB(vol float64) float64 {
	if vol <= 0 {
		return 0
	}
	db := 20 * (vol - 1)
	if db > 6 {
		db = 6
	}
	if db < -12 {
		db = -12
	}
	return db
}
