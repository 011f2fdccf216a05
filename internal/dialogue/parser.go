package dialogue

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
)

// ErrorKind classifies parse failures.
type ErrorKind string

const (
	UnrecognizedSpeaker ErrorKind = "unrecognized_speaker"
	UnrecognizedEmotion ErrorKind = "unrecognized_emotion"
	EmptyUtterance      ErrorKind = "empty_utterance"
	MalformedBlock      ErrorKind = "malformed_block"
)

// ParseError reports the first structural error in a script. The parser
// does not attempt recovery: downstream synthesis is billed per request,
// so silently dropping turns is worse than an explicit stop.
type ParseError struct {
	Kind ErrorKind
	Line int // 1-based line number of the offending line
	Turn int // nearest enclosing turn index (zero-based)
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d (turn %d): %s: %s", e.Line, e.Turn, e.Kind, e.Msg)
}

// Options controls parsing and text normalization.
type Options struct {
	// DefaultEmotion is assigned to turns without an emotion line.
	DefaultEmotion Emotion
	// UseEmotion, when false, replaces every script emotion tag with the
	// default. The tag line is still consumed so the block shape does not
	// change.
	UseEmotion bool
	// RemoveParentheses strips parenthesized stage directions like （打断）.
	RemoveParentheses bool
	// LocalizeFigures rewrites "Figure 3" as "图3".
	LocalizeFigures bool
}

// DefaultOptions mirrors the tool's shipped configuration.
func DefaultOptions() Options {
	return Options{
		DefaultEmotion:    EmotionGentle,
		UseEmotion:        true,
		RemoveParentheses: true,
		LocalizeFigures:   true,
	}
}

// Parser converts a triple-hash dialogue script into an ordered turn list.
// It is a pure single pass over the input; all state is per-call.
type Parser struct {
	opts Options
}

// NewParser validates the options and returns a parser.
func NewParser(opts Options) (*Parser, error) {
	if opts.DefaultEmotion == "" {
		opts.DefaultEmotion = EmotionGentle
	}
	if _, err := EmotionFromString(string(opts.DefaultEmotion)); err != nil {
		return nil, fmt.Errorf("invalid default emotion: %w", err)
	}
	return &Parser{opts: opts}, nil
}

var (
	reSpeaker     = regexp.MustCompile(`^(?i)(\S+)\s+speaker$`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reParenthesis = regexp.MustCompile(`[（(][^）)]*[）)]`)
	reFigure      = regexp.MustCompile(`(?i)Figure\s*(\d+)`)
)

// delimitedLine is one `### inner ###` line with its 1-based position.
type delimitedLine struct {
	inner string
	line  int
}

// Parse converts the script into an ordered turn list or returns the first
// structural error. A document without any delimited blocks yields an
// empty list, not an error.
func (p *Parser) Parse(input string) ([]Turn, error) {
	delimited := collectDelimited(input)

	var turns []Turn
	for i := 0; i < len(delimited); i++ {
		cur := delimited[i]

		role, ok, err := p.speakerRole(cur, len(turns))
		if err != nil {
			return nil, err
		}
		if !ok {
			// Stray delimited line between blocks; the grammar tolerates
			// surrounding prose and headings.
			log.Debug().Int("line", cur.line).Str("content", cur.inner).Msg("Skipping stray delimited line")
			continue
		}

		emotion := p.opts.DefaultEmotion
		next, hasNext := peek(delimited, i+1)
		if !hasNext || isSpeakerDecl(next.inner) {
			return nil, &ParseError{
				Kind: MalformedBlock,
				Line: cur.line,
				Turn: len(turns),
				Msg:  fmt.Sprintf("speaker %q has no text line", role),
			}
		}

		// Lookahead of one line: membership in the closed emotion set
		// decides whether the next line is the emotion or the text. A text
		// line whose sole content is an emotion word is consumed as a tag;
		// this ambiguity is inherent to the format and preserved as-is.
		if IsEmotion(strings.ToLower(strings.TrimSpace(next.inner))) {
			if p.opts.UseEmotion {
				emotion = Emotion(strings.ToLower(strings.TrimSpace(next.inner)))
			}
			i++
			next, hasNext = peek(delimited, i+1)
			if !hasNext || isSpeakerDecl(next.inner) {
				return nil, &ParseError{
					Kind: MalformedBlock,
					Line: delimited[i].line,
					Turn: len(turns),
					Msg:  fmt.Sprintf("emotion tag %q is not followed by a text line", emotion),
				}
			}
		}
		i++

		text := p.cleanText(next.inner)
		if text == "" {
			return nil, &ParseError{
				Kind: EmptyUtterance,
				Line: next.line,
				Turn: len(turns),
				Msg:  "utterance is empty after trimming",
			}
		}

		turns = append(turns, Turn{
			Speaker: role,
			Emotion: emotion,
			Text:    text,
			Index:   len(turns),
		})
	}

	log.Debug().Int("turns", len(turns)).Msg("Parsed dialogue script")
	return turns, nil
}

// speakerRole matches a speaker declaration. ok is false for delimited
// lines that are not declarations at all; a declaration with an unknown
// role is an error.
func (p *Parser) speakerRole(l delimitedLine, turn int) (Speaker, bool, error) {
	m := reSpeaker.FindStringSubmatch(strings.TrimSpace(l.inner))
	if m == nil {
		return "", false, nil
	}
	role, err := SpeakerFromString(strings.ToLower(m[1]))
	if err != nil {
		return "", false, &ParseError{
			Kind: UnrecognizedSpeaker,
			Line: l.line,
			Turn: turn,
			Msg:  err.Error(),
		}
	}
	return role, true, nil
}

// cleanText normalizes an utterance: NFC, whitespace collapse, optional
// stage-direction removal and figure localization.
func (p *Parser) cleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\n", " ")
	if p.opts.RemoveParentheses {
		s = reParenthesis.ReplaceAllString(s, "")
	}
	if p.opts.LocalizeFigures {
		s = reFigure.ReplaceAllString(s, "图$1")
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func collectDelimited(input string) []delimitedLine {
	var out []delimitedLine
	for i, raw := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(raw)
		if len(trimmed) < 7 || !strings.HasPrefix(trimmed, "###") || !strings.HasSuffix(trimmed, "###") {
			continue
		}
		inner := strings.TrimSpace(trimmed[3 : len(trimmed)-3])
		out = append(out, delimitedLine{inner: inner, line: i + 1})
	}
	return out
}

func isSpeakerDecl(inner string) bool {
	return reSpeaker.MatchString(strings.TrimSpace(inner))
}

func peek(lines []delimitedLine, i int) (delimitedLine, bool) {
	if i >= len(lines) {
		return delimitedLine{}, false
	}
	return lines[i], true
}
