package synth

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc := "### male speaker ###\n### 你好 ###\n"

	p := LoadProgress(dir, doc)
	assert.False(t, p.IsDone(0))

	p.MarkDone(0)
	p.MarkDone(2)

	reloaded := LoadProgress(dir, doc)
	assert.True(t, reloaded.IsDone(0))
	assert.False(t, reloaded.IsDone(1))
	assert.True(t, reloaded.IsDone(2))
}

func TestProgressDiscardedWhenDocumentChanges(t *testing.T) {
	dir := t.TempDir()

	p := LoadProgress(dir, "version one")
	p.MarkDone(0)

	reloaded := LoadProgress(dir, "version two")
	assert.False(t, reloaded.IsDone(0))
}

func TestProgressIgnoresCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, progressFile), []byte("not json"), 0644))

	p := LoadProgress(dir, "doc")
	assert.False(t, p.IsDone(0))

	// And recovers by overwriting on the next save.
	p.MarkDone(1)
	assert.True(t, LoadProgress(dir, "doc").IsDone(1))
}

func TestProgressConcurrentMarkDone(t *testing.T) {
	dir := t.TempDir()
	p := LoadProgress(dir, "doc")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.MarkDone(i)
		}(i)
	}
	wg.Wait()

	// Every index survives in the persisted file, not just the last writer's
	// snapshot.
	reloaded := LoadProgress(dir, "doc")
	for i := 0; i < 20; i++ {
		assert.True(t, reloaded.IsDone(i), "index %d lost", i)
	}
}

func TestProgressClear(t *testing.T) {
	dir := t.TempDir()

	p := LoadProgress(dir, "doc")
	p.MarkDone(0)
	p.Clear()

	_, err := os.Stat(filepath.Join(dir, progressFile))
	assert.True(t, os.IsNotExist(err))
}

func TestFingerprintStable(t *testing.T) {
	assert.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	assert.NotEqual(t, Fingerprint("abc"), Fingerprint("abd"))
	assert.Len(t, Fingerprint("abc"), 64)
}
