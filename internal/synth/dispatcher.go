package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/podgen/podgen/internal/audio"
	"github.com/podgen/podgen/internal/config"
	"github.com/podgen/podgen/internal/dialogue"
	"github.com/podgen/podgen/internal/tts"
)

// segmentSilence separates segments of one split utterance when merging.
const segmentSilence = 0.2

// Event reports the outcome of one turn to the progress callback.
type Event struct {
	Turn    dialogue.Turn
	Path    string
	Skipped bool
	Err     error
}

// RunOptions controls one synthesis run.
type RunOptions struct {
	// Document is the full script source, used as the resume fingerprint.
	Document string
	OutDir   string
	// Start and End restrict the run to a range of 1-based turn numbers,
	// inclusive. Zero means unbounded.
	Start int
	End   int
}

// RunResult summarizes a synthesis run.
type RunResult struct {
	Files  []string // per-turn clips in turn order
	Merged string   // path of the merged track, when produced
	Failed int
}

// Dispatcher drives per-turn synthesis against a provider: pacing,
// concurrency, retries, resume, and the final merge.
type Dispatcher struct {
	cfg      *config.Config
	provider tts.Provider
	limiter  *rate.Limiter

	// OnEvent, when set, is called once per turn. Calls may come from
	// concurrent worker goroutines.
	OnEvent func(Event)
}

// NewDispatcher creates a dispatcher for the given provider.
func NewDispatcher(cfg *config.Config, provider tts.Provider) *Dispatcher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Rate.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.Rate.Delay*float64(time.Second))), 1)
	}

	return &Dispatcher{
		cfg:      cfg,
		provider: provider,
		limiter:  limiter,
	}
}

// ResolveOutputDir returns the directory clips go into, appending a
// timestamp subdirectory when configured.
func ResolveOutputDir(cfg *config.Config, now time.Time) string {
	if !cfg.Output.UseTimestampSubdir {
		return cfg.Output.OutputDir
	}
	return filepath.Join(cfg.Output.OutputDir, now.Format("20060102_150405"))
}

// ClipFilename returns the output filename for a turn, carrying the
// 1-based turn number and the speaker role.
func ClipFilename(cfg *config.Config, t dialogue.Turn) string {
	return fmt.Sprintf("%s_%03d_%s.%s", cfg.Output.Prefix, t.Number(), t.Speaker, cfg.Output.Format)
}

// Run synthesizes every turn in range and returns the produced files in
// turn order. Turns fail independently; the first error is returned after
// all turns have been attempted.
func (d *Dispatcher) Run(ctx context.Context, turns []dialogue.Turn, opts RunOptions) (*RunResult, error) {
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if ds, ok := d.provider.(tts.DialogueSynthesizer); ok && strings.Contains(d.cfg.API.Model, "MOSS-TTSD") {
		return d.runDialogue(ctx, ds, turns, opts)
	}

	selected := make([]dialogue.Turn, 0, len(turns))
	for _, t := range turns {
		if opts.Start > 0 && t.Number() < opts.Start {
			continue
		}
		if opts.End > 0 && t.Number() > opts.End {
			continue
		}
		selected = append(selected, t)
	}

	progress := LoadProgress(opts.OutDir, opts.Document)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		failed   int
	)
	paths := make([]string, len(selected))
	sem := make(chan struct{}, d.cfg.Rate.MaxConcurrent)

	for i, t := range selected {
		path := filepath.Join(opts.OutDir, ClipFilename(d.cfg, t))

		if progress.IsDone(t.Index) && fileNonEmpty(path) {
			paths[i] = path
			d.emit(Event{Turn: t, Path: path, Skipped: true})
			continue
		}
		if fileNonEmpty(path) {
			progress.MarkDone(t.Index)
			paths[i] = path
			d.emit(Event{Turn: t, Path: path, Skipped: true})
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, t dialogue.Turn, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := d.synthesizeTurn(ctx, t, path)
			mu.Lock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = fmt.Errorf("turn %d: %w", t.Number(), err)
				}
			} else {
				paths[i] = path
				progress.MarkDone(t.Index)
			}
			mu.Unlock()
			d.emit(Event{Turn: t, Path: path, Err: err})
		}(i, t, path)
	}
	wg.Wait()

	result := &RunResult{Failed: failed}
	for _, p := range paths {
		if p != "" {
			result.Files = append(result.Files, p)
		}
	}

	if failed > 0 {
		return result, fmt.Errorf("%d of %d turns failed: %w", failed, len(selected), firstErr)
	}

	if allDone(progress, turns) {
		progress.Clear()
	}

	if d.cfg.Output.MergeAudio && len(result.Files) > 1 && d.cfg.Output.Format == "wav" {
		merged, err := d.mergeAll(result.Files, opts.OutDir)
		if err != nil {
			return result, err
		}
		result.Merged = merged
	}

	return result, nil
}

// runDialogue sends the whole turn list in one dialogue-mode request.
func (d *Dispatcher) runDialogue(ctx context.Context, ds tts.DialogueSynthesizer, turns []dialogue.Turn, opts RunOptions) (*RunResult, error) {
	path := filepath.Join(opts.OutDir, fmt.Sprintf("%s_complete.%s", d.cfg.Output.Prefix, d.cfg.Output.Format))
	if fileNonEmpty(path) {
		log.Info().Str("path", path).Msg("Dialogue audio already exists, skipping")
		return &RunResult{Merged: path}, nil
	}

	synthOpts := d.synthesizeOptions(dialogue.Turn{Speaker: dialogue.SpeakerMale, Emotion: dialogue.Emotion(d.cfg.Emotion.DefaultEmotion)})
	synthOpts.References = dialogueReferences(d.cfg)

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	log.Info().Int("turns", len(turns)).Msg("Synthesizing full dialogue in one request")
	stream, err := ds.SynthesizeDialogue(ctx, turns, synthOpts)
	if err != nil {
		return nil, fmt.Errorf("dialogue synthesis failed: %w", err)
	}
	defer stream.Close()

	if err := writeStream(path, stream); err != nil {
		return nil, err
	}
	return &RunResult{Merged: path}, nil
}

// dialogueReferences pairs one cloning reference per speaker, falling back
// to the other speaker's clip when only one side is configured.
func dialogueReferences(cfg *config.Config) []tts.Reference {
	male := firstReference(cfg.Voices.Male)
	female := firstReference(cfg.Voices.Female)
	if male == nil && female == nil {
		return nil
	}
	if male == nil {
		male = female
	}
	if female == nil {
		female = male
	}
	return []tts.Reference{*male, *female}
}

func firstReference(v config.VoiceConfig) *tts.Reference {
	if len(v.References) == 0 {
		return nil
	}
	return &tts.Reference{Audio: v.References[0].Audio, Text: v.References[0].Text}
}

// synthesizeTurn produces one turn's clip, splitting long text and merging
// the segment files back together.
func (d *Dispatcher) synthesizeTurn(ctx context.Context, t dialogue.Turn, path string) error {
	segments := SplitText(t.Text, d.cfg.Text.MaxTextLength)
	opts := d.synthesizeOptions(t)

	if len(segments) == 1 {
		return d.synthesizeSegment(ctx, segments[0], opts, path)
	}

	log.Debug().Int("turn", t.Number()).Int("segments", len(segments)).Msg("Splitting long utterance")

	partFiles := make([]string, 0, len(segments))
	for i, segment := range segments {
		partPath := fmt.Sprintf("%s.part%d", path, i+1)
		if err := d.synthesizeSegment(ctx, segment, opts, partPath); err != nil {
			return err
		}
		partFiles = append(partFiles, partPath)
	}

	if err := d.mergeSegments(partFiles, path); err != nil {
		return err
	}
	for _, f := range partFiles {
		if err := os.Remove(f); err != nil {
			log.Debug().Err(err).Str("path", f).Msg("Failed to remove segment file")
		}
	}
	return nil
}

// mergeSegments joins split-utterance parts. WAV parts get a short silence
// between them; compressed formats are concatenated as-is.
func (d *Dispatcher) mergeSegments(parts []string, path string) error {
	if d.cfg.Output.Format == "wav" {
		return audio.MergeWAV(parts, path, segmentSilence)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	for _, p := range parts {
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if _, err := out.Write(raw); err != nil {
			return err
		}
	}
	return nil
}

// synthesizeSegment performs one paced, retried provider call and writes
// the audio to path.
func (d *Dispatcher) synthesizeSegment(ctx context.Context, text string, opts *tts.SynthesizeOptions, path string) error {
	retryDelay := time.Duration(d.cfg.Rate.RetryDelay * float64(time.Second))

	b := backoff.NewExponentialBackOff()
	if retryDelay > 0 {
		b.InitialInterval = retryDelay
	}

	operation := func() error {
		if err := d.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		stream, err := d.provider.Synthesize(ctx, text, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			if errors.Is(err, tts.ErrRateLimited) {
				log.Warn().Msg("Rate limited by vendor, backing off")
				time.Sleep(retryDelay)
			}
			return err
		}
		defer stream.Close()

		return writeStream(path, stream)
	}

	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.cfg.Rate.MaxRetries)), ctx))
}

// synthesizeOptions resolves the speaker's voice parameters plus the
// mood-derived overrides into vendor-neutral options. Every vendor knob is
// populated; each provider applies the ones its API supports.
func (d *Dispatcher) synthesizeOptions(t dialogue.Turn) *tts.SynthesizeOptions {
	v := d.cfg.Voices.ForSpeaker(t.Speaker)

	opts := &tts.SynthesizeOptions{
		Voice:        v.Voice,
		Speed:        v.Speed,
		Gain:         v.Gain,
		Pitch:        v.Pitch,
		SampleRate:   v.SampleRate,
		Format:       d.cfg.Output.Format,
		LanguageType: v.LanguageType,
		Instructions: v.Instructions,
	}
	for _, r := range v.References {
		opts.References = append(opts.References, tts.Reference{Audio: r.Audio, Text: r.Text})
	}

	if !d.cfg.Mood.Enable {
		return opts
	}
	params, ok := tts.MoodFor(t.Emotion)
	if !ok {
		return opts
	}

	switch {
	case d.cfg.Emotion.UseEmotion:
		opts.Speed = params.Speed
		opts.Pitch = params.Pitch
		opts.Volume = params.Volume
		opts.Emotion = params.Emotion
		opts.EmoVector = tts.IndexTTSEmotion(t.Emotion)
		opts.EmoAlpha = 0.7
		if v.Instructions != "" {
			opts.Instructions = v.Instructions + "，" + params.Instruction
		} else {
			opts.Instructions = params.Instruction
		}
	case d.cfg.Emotion.PassVoiceParams:
		// Prosody only; the vendor infers emotion from the text.
		opts.Speed = params.Speed
		opts.Pitch = params.Pitch
		opts.Volume = params.Volume
	}

	return opts
}

// mergeAll builds the final dialogue track from the per-turn clips.
func (d *Dispatcher) mergeAll(files []string, outDir string) (string, error) {
	path := filepath.Join(outDir, fmt.Sprintf("%s_complete.%s", d.cfg.Output.Prefix, d.cfg.Output.Format))
	if fileNonEmpty(path) {
		log.Info().Str("path", path).Msg("Merged track already exists, skipping")
		return path, nil
	}

	if err := audio.MergeWAV(files, path, d.cfg.Output.SilenceBetween); err != nil {
		return "", fmt.Errorf("failed to merge audio: %w", err)
	}
	log.Info().Str("path", path).Int("clips", len(files)).Msg("Merged dialogue track")
	return path, nil
}

func (d *Dispatcher) emit(e Event) {
	if d.OnEvent != nil {
		d.OnEvent(e)
	}
}

func allDone(p *Progress, turns []dialogue.Turn) bool {
	for _, t := range turns {
		if !p.IsDone(t.Index) {
			return false
		}
	}
	return true
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// writeStream stages the audio in a temp file and renames it into place
// only after the full stream arrived. A vendor disconnect mid-stream must
// not leave a truncated clip that a later run would skip as complete.
func writeStream(path string, stream io.Reader) error {
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if _, err := io.Copy(out, stream); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
