package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFormat = Format{Channels: 1, SampleRate: 8000, BitsPerSample: 16}

func writeClip(t *testing.T, dir, name string, format Format, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, WriteWAV(path, format, data))
	return path
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	format, decoded, err := DecodeWAV(EncodeWAV(testFormat, data))
	require.NoError(t, err)
	assert.Equal(t, testFormat, format)
	assert.Equal(t, data, decoded)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := DecodeWAV([]byte("definitely not audio"))
	assert.Error(t, err)
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	raw := EncodeWAV(testFormat, data)

	// Append a LIST chunk after data; decoders must skip it.
	raw = append(raw, []byte("LIST")...)
	raw = append(raw, []byte{4, 0, 0, 0, 'I', 'N', 'F', 'O'}...)
	raw[4] = byte(len(raw) - 8)

	format, decoded, err := DecodeWAV(raw)
	require.NoError(t, err)
	assert.Equal(t, testFormat, format)
	assert.Equal(t, data, decoded)
}

func TestMergeWAVInsertsSilence(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.wav", testFormat, []byte{1, 1, 2, 2})
	b := writeClip(t, dir, "b.wav", testFormat, []byte{3, 3, 4, 4})
	out := filepath.Join(dir, "merged.wav")

	// 0.001s at 8kHz mono 16-bit = 8 frames = 16 bytes of silence
	require.NoError(t, MergeWAV([]string{a, b}, out, 0.001))

	format, data, err := ReadWAV(out)
	require.NoError(t, err)
	assert.Equal(t, testFormat, format)
	require.Len(t, data, 4+16+4)
	assert.Equal(t, []byte{1, 1, 2, 2}, data[:4])
	assert.Equal(t, make([]byte, 16), data[4:20])
	assert.Equal(t, []byte{3, 3, 4, 4}, data[20:])
}

func TestMergeWAVRejectsMismatchedFormats(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.wav", testFormat, []byte{1, 1})
	b := writeClip(t, dir, "b.wav", Format{Channels: 2, SampleRate: 44100, BitsPerSample: 16}, []byte{1, 1, 2, 2})

	err := MergeWAV([]string{a, b}, filepath.Join(dir, "out.wav"), 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestMergeWAVEmptyList(t *testing.T) {
	err := MergeWAV(nil, "out.wav", 0.5)
	assert.Error(t, err)
}

func TestMergeWAVSingleFile(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.wav", testFormat, []byte{9, 9})
	out := filepath.Join(dir, "out.wav")

	require.NoError(t, MergeWAV([]string{a}, out, 0.5))

	_, data, err := ReadWAV(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, data)
}

func TestDuration(t *testing.T) {
	// 16000 bytes at 16-bit mono 8kHz = 8000 frames = 1 second
	assert.Equal(t, 1.0, Duration(testFormat, 16000))
	assert.Equal(t, 0.0, Duration(Format{}, 100))
}

func TestReadWAVMissingFile(t *testing.T) {
	_, _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.True(t, os.IsNotExist(err))
}
