package synth

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const progressFile = ".podgen-progress.json"

// Progress persists the set of completed turn indices so an interrupted
// run can resume. The state is keyed by a fingerprint of the parsed
// document; editing the script invalidates it.
type Progress struct {
	mu          sync.Mutex
	path        string
	fingerprint string
	completed   map[int]bool
}

type progressState struct {
	Fingerprint string    `json:"fingerprint"`
	Completed   []int     `json:"completed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fingerprint returns the resume key for a document.
func Fingerprint(document string) string {
	h := sha256.Sum256([]byte(document))
	return fmt.Sprintf("%x", h)
}

// LoadProgress reads resume state from the output directory. State written
// for a different document is discarded.
func LoadProgress(outputDir, document string) *Progress {
	p := &Progress{
		path:        filepath.Join(outputDir, progressFile),
		fingerprint: Fingerprint(document),
		completed:   make(map[int]bool),
	}

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return p
	}

	var state progressState
	if err := json.Unmarshal(raw, &state); err != nil {
		log.Debug().Err(err).Str("path", p.path).Msg("Ignoring unreadable progress file")
		return p
	}
	if state.Fingerprint != p.fingerprint {
		log.Debug().Str("path", p.path).Msg("Document changed, discarding previous progress")
		return p
	}

	for _, i := range state.Completed {
		p.completed[i] = true
	}
	log.Debug().Int("completed", len(p.completed)).Msg("Loaded resume state")
	return p
}

// IsDone reports whether a turn index was completed in a previous run.
func (p *Progress) IsDone(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed[index]
}

// MarkDone records a completed turn and persists the state immediately, so
// a crash loses at most the in-flight turns. The file write stays under
// the lock: concurrent workers must not interleave writes to the same
// path and persist stale state.
func (p *Progress) MarkDone(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed[index] = true
	state := progressState{
		Fingerprint: p.fingerprint,
		Completed:   make([]int, 0, len(p.completed)),
		UpdatedAt:   time.Now(),
	}
	for i := range p.completed {
		state.Completed = append(state.Completed, i)
	}
	sort.Ints(state.Completed)

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(p.path, raw, 0644); err != nil {
		log.Debug().Err(err).Msg("Failed to write progress file")
	}
}

// Clear removes the resume state, used after a successful full run.
func (p *Progress) Clear() {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("Failed to remove progress file")
	}
}
