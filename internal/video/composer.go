package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/podgen/podgen/internal/audio"
	"github.com/podgen/podgen/internal/config"
	"github.com/podgen/podgen/internal/dialogue"
)

// Clip pairs a turn with its audio file and timeline position.
type Clip struct {
	Turn     dialogue.Turn
	Path     string
	Start    float64 // seconds into the merged track
	Duration float64
}

// Composer turns synthesized clips into an MP4 via ffmpeg: background,
// burned-in subtitles, and per-turn avatar overlays.
type Composer struct {
	cfg *config.Config

	// Injectable for tests.
	probeDuration func(ctx context.Context, path string) (float64, error)
	runCommand    func(ctx context.Context, name string, args ...string) error
}

// NewComposer creates a composer. It fails fast when ffmpeg is missing
// rather than at the end of a long run.
func NewComposer(cfg *config.Config) (*Composer, error) {
	if !isCommandAvailable("ffmpeg") {
		return nil, fmt.Errorf("ffmpeg not found in PATH")
	}

	return &Composer{
		cfg:           cfg,
		probeDuration: probeDuration,
		runCommand:    runCommand,
	}, nil
}

// MatchClips locates each turn's audio file in the directory and lays the
// clips out on the timeline with the configured inter-turn silence.
func (c *Composer) MatchClips(ctx context.Context, turns []dialogue.Turn, audioDir string) ([]Clip, error) {
	clips := make([]Clip, 0, len(turns))
	cursor := 0.0

	for _, t := range turns {
		path := filepath.Join(audioDir, fmt.Sprintf("%s_%03d_%s.%s",
			c.cfg.Output.Prefix, t.Number(), t.Speaker, c.cfg.Output.Format))
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("missing audio for turn %d: %w", t.Number(), err)
		}

		duration, err := c.clipDuration(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to measure %s: %w", path, err)
		}

		clips = append(clips, Clip{Turn: t, Path: path, Start: cursor, Duration: duration})
		cursor += duration + c.cfg.Output.SilenceBetween
	}

	return clips, nil
}

// clipDuration measures one clip. WAV files are read directly; other
// formats go through ffprobe.
func (c *Composer) clipDuration(ctx context.Context, path string) (float64, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		format, data, err := audio.ReadWAV(path)
		if err != nil {
			return 0, err
		}
		return audio.Duration(format, len(data)), nil
	}
	return c.probeDuration(ctx, path)
}

// GenerateSRT renders the turns as an SRT subtitle track aligned with the
// clip timeline.
func GenerateSRT(clips []Clip) string {
	var b strings.Builder
	for i, clip := range clips {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTimestamp(clip.Start), srtTimestamp(clip.Start+clip.Duration))
		b.WriteString(clip.Turn.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int(seconds*1000 + 0.5)
	h := ms / 3600000
	m := ms / 60000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// AvatarFor picks the image for a speaker and mood. Mood-specific avatars
// (e.g. "male_happy") win when enabled, falling back to the speaker's base
// image. Empty string means no avatar configured.
func (c *Composer) AvatarFor(speaker dialogue.Speaker, mood dialogue.Emotion) string {
	if c.cfg.Video.MoodAvatars {
		if path, ok := c.cfg.Video.Avatars[fmt.Sprintf("%s_%s", speaker, mood)]; ok && path != "" {
			return path
		}
	}
	return c.cfg.Video.Avatars[string(speaker)]
}

// Compose runs ffmpeg to build the MP4 from the merged audio track and the
// clip timeline.
func (c *Composer) Compose(ctx context.Context, clips []Clip, audioPath, outputPath string) error {
	if len(clips) == 0 {
		return fmt.Errorf("no clips to compose")
	}

	workDir, err := os.MkdirTemp("", "podgen-video-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	srtPath := filepath.Join(workDir, "subtitles.srt")
	if err := os.WriteFile(srtPath, []byte(GenerateSRT(clips)), 0644); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	args := c.ffmpegArgs(clips, audioPath, srtPath, outputPath)

	log.Info().Str("output", outputPath).Int("clips", len(clips)).Msg("Composing video with ffmpeg")
	log.Debug().Strs("args", args).Msg("ffmpeg invocation")

	if err := c.runCommand(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// ffmpegArgs builds the full ffmpeg argument list: background input, audio
// input, one input per avatar image, then the filter graph.
func (c *Composer) ffmpegArgs(clips []Clip, audioPath, srtPath, outputPath string) []string {
	v := c.cfg.Video
	total := clips[len(clips)-1].Start + clips[len(clips)-1].Duration

	args := []string{"-y"}

	if v.BackgroundImage != "" {
		args = append(args, "-loop", "1", "-i", v.BackgroundImage)
	} else {
		args = append(args, "-f", "lavfi",
			"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=25", v.BackgroundColor, v.Width, v.Height))
	}
	args = append(args, "-i", audioPath)

	avatarInputs, avatarIndex := c.avatarInputs(clips)
	args = append(args, avatarInputs...)

	args = append(args, "-filter_complex", c.filterGraph(clips, srtPath, avatarIndex))

	args = append(args,
		"-map", "[vout]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", "medium",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		"-t", strconv.FormatFloat(total, 'f', 3, 64),
		outputPath,
	)
	return args
}

// avatarInputs returns one -i argument pair per distinct avatar image and
// the image's ffmpeg input index.
func (c *Composer) avatarInputs(clips []Clip) ([]string, map[string]int) {
	var args []string
	index := make(map[string]int)
	next := 2 // 0 is background, 1 is audio

	for _, clip := range clips {
		path := c.AvatarFor(clip.Turn.Speaker, clip.Turn.Emotion)
		if path == "" {
			continue
		}
		if _, ok := index[path]; ok {
			continue
		}
		index[path] = next
		args = append(args, "-i", path)
		next++
	}
	return args, index
}

// filterGraph chains background scaling, timed avatar overlays, and the
// subtitle burn into one filter_complex expression.
func (c *Composer) filterGraph(clips []Clip, srtPath string, avatarIndex map[string]int) string {
	v := c.cfg.Video

	var filters []string
	filters = append(filters, fmt.Sprintf("[0:v]scale=%d:%d,setsar=1[bg]", v.Width, v.Height))

	// Scale each avatar once, in input order.
	indexes := make([]int, 0, len(avatarIndex))
	for _, idx := range avatarIndex {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		filters = append(filters, fmt.Sprintf("[%d:v]scale=200:-1[av%d]", idx, idx))
	}

	current := "[bg]"
	overlayCount := 0
	for _, clip := range clips {
		path := c.AvatarFor(clip.Turn.Speaker, clip.Turn.Emotion)
		if path == "" {
			continue
		}
		idx := avatarIndex[path]
		next := fmt.Sprintf("[ov%d]", overlayCount)
		filters = append(filters, fmt.Sprintf("%s[av%d]overlay=60:H-280:enable='between(t,%.3f,%.3f)'%s",
			current, idx, clip.Start, clip.Start+clip.Duration, next))
		current = next
		overlayCount++
	}

	style := fmt.Sprintf("FontSize=%d,MarginV=%d", v.FontSize, v.SubtitleMargin)
	if v.FontFile != "" {
		style += ",FontName=" + strings.TrimSuffix(filepath.Base(v.FontFile), filepath.Ext(v.FontFile))
	}
	filters = append(filters, fmt.Sprintf("%ssubtitles=%s:force_style='%s'[vout]",
		current, escapeFilterPath(srtPath), style))

	return strings.Join(filters, ";")
}

// escapeFilterPath escapes characters ffmpeg's filter parser treats
// specially in file paths.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, ":", `\:`)
	path = strings.ReplaceAll(path, "'", `\'`)
	return path
}

// probeDuration asks ffprobe for a media file's duration in seconds.
func probeDuration(ctx context.Context, path string) (float64, error) {
	if !isCommandAvailable("ffprobe") {
		return 0, fmt.Errorf("ffprobe not found in PATH")
	}

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", out, err)
	}
	return duration, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, truncateOutput(out))
	}
	return nil
}

func truncateOutput(out []byte) string {
	const limit = 500
	s := strings.TrimSpace(string(out))
	if len(s) > limit {
		return "..." + s[len(s)-limit:]
	}
	return s
}

// isCommandAvailable checks if a command is available
func isCommandAvailable(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
