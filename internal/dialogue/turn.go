package dialogue

import "fmt"

// Speaker identifies which voice and avatar configuration applies to a turn.
type Speaker string

const (
	SpeakerMale   Speaker = "male"
	SpeakerFemale Speaker = "female"
)

// Speakers returns all recognized speaker roles.
func Speakers() []Speaker {
	return []Speaker{SpeakerMale, SpeakerFemale}
}

// SpeakerFromString parses a speaker role. Unknown roles are an error,
// never a silent default.
func SpeakerFromString(s string) (Speaker, error) {
	switch Speaker(s) {
	case SpeakerMale:
		return SpeakerMale, nil
	case SpeakerFemale:
		return SpeakerFemale, nil
	default:
		return "", fmt.Errorf("unrecognized speaker role: %q", s)
	}
}

// Other returns the opposite role. Used when only one reference voice is
// configured and the other speaker falls back to it.
func (s Speaker) Other() Speaker {
	if s == SpeakerMale {
		return SpeakerFemale
	}
	return SpeakerMale
}

// Emotion is one of the nine mood tags recognized in dialogue scripts.
// The tag controls vendor-side prosody and, downstream, avatar selection.
type Emotion string

const (
	EmotionGentle    Emotion = "gentle"
	EmotionHappy     Emotion = "happy"
	EmotionConfident Emotion = "confident"
	EmotionExpectant Emotion = "expectant"
	EmotionConfused  Emotion = "confused"
	EmotionShocked   Emotion = "shocked"
	EmotionAngry     Emotion = "angry"
	EmotionSad       Emotion = "sad"
	EmotionResigned  Emotion = "resigned"
)

// Emotions returns the closed set of recognized emotion tags.
func Emotions() []Emotion {
	return []Emotion{
		EmotionGentle,
		EmotionHappy,
		EmotionConfident,
		EmotionExpectant,
		EmotionConfused,
		EmotionShocked,
		EmotionAngry,
		EmotionSad,
		EmotionResigned,
	}
}

var emotionSet = func() map[Emotion]struct{} {
	m := make(map[Emotion]struct{}, len(Emotions()))
	for _, e := range Emotions() {
		m[e] = struct{}{}
	}
	return m
}()

// IsEmotion reports whether s (already lowercased and trimmed) is a
// recognized emotion tag.
func IsEmotion(s string) bool {
	_, ok := emotionSet[Emotion(s)]
	return ok
}

// EmotionFromString parses an emotion tag arriving from configuration or
// CLI flags. Unknown tags are rejected.
func EmotionFromString(s string) (Emotion, error) {
	if IsEmotion(s) {
		return Emotion(s), nil
	}
	return "", fmt.Errorf("unrecognized emotion tag: %q", s)
}

// Turn is one speaker utterance in a dialogue. Turns are constructed by the
// parser and immutable thereafter; Index is zero-based and gap-free across
// the parsed document.
type Turn struct {
	Speaker Speaker
	Emotion Emotion
	Text    string
	Index   int
}

// Number returns the 1-based turn number used in output filenames.
func (t Turn) Number() int {
	return t.Index + 1
}
