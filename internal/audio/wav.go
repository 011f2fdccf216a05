package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Format holds the PCM parameters shared by every clip in a merge.
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

func (f Format) bytesPerFrame() int {
	return f.Channels * f.BitsPerSample / 8
}

// silenceBytes returns zeroed PCM covering the given duration.
func (f Format) silenceBytes(seconds float64) []byte {
	frames := int(float64(f.SampleRate) * seconds)
	return make([]byte, frames*f.bytesPerFrame())
}

// MergeWAV concatenates WAV files into one, inserting silence between
// clips. All inputs must share the format of the first file.
func MergeWAV(files []string, outputPath string, silenceSeconds float64) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to merge")
	}

	first, data, err := ReadWAV(files[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", files[0], err)
	}

	silence := first.silenceBytes(silenceSeconds)

	var merged bytes.Buffer
	merged.Write(data)
	for _, path := range files[1:] {
		format, data, err := ReadWAV(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if format != first {
			return fmt.Errorf("%s format %+v does not match first clip %+v", path, format, first)
		}
		merged.Write(silence)
		merged.Write(data)
	}

	log.Debug().
		Int("clips", len(files)).
		Int("bytes", merged.Len()).
		Str("output", outputPath).
		Msg("Merged WAV clips")

	return WriteWAV(outputPath, first, merged.Bytes())
}

// ReadWAV parses a RIFF/WAVE file and returns its format and raw PCM data.
func ReadWAV(path string) (Format, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Format{}, nil, err
	}
	return DecodeWAV(raw)
}

// DecodeWAV parses RIFF/WAVE bytes. Chunks other than fmt and data are
// skipped.
func DecodeWAV(raw []byte) (Format, []byte, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return Format{}, nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	var format Format
	var data []byte
	haveFmt := false

	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(raw) {
			return Format{}, nil, fmt.Errorf("truncated %s chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format = Format{
				Channels:      int(binary.LittleEndian.Uint16(raw[body+2 : body+4])),
				SampleRate:    int(binary.LittleEndian.Uint32(raw[body+4 : body+8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(raw[body+14 : body+16])),
			}
			haveFmt = true
		case "data":
			data = raw[body : body+size]
		}

		// Chunks are word aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return Format{}, nil, fmt.Errorf("missing fmt chunk")
	}
	if data == nil {
		return Format{}, nil, fmt.Errorf("missing data chunk")
	}
	return format, data, nil
}

// WriteWAV writes PCM data as a RIFF/WAVE file.
func WriteWAV(path string, format Format, data []byte) error {
	return os.WriteFile(path, EncodeWAV(format, data), 0644)
}

// EncodeWAV builds RIFF/WAVE bytes around PCM data.
func EncodeWAV(format Format, data []byte) []byte {
	var buf bytes.Buffer

	byteRate := format.SampleRate * format.bytesPerFrame()

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(format.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(format.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(format.bytesPerFrame()))
	binary.Write(&buf, binary.LittleEndian, uint16(format.BitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}

// Duration returns the play time of PCM data in seconds.
func Duration(format Format, dataLen int) float64 {
	bpf := format.bytesPerFrame()
	if bpf == 0 || format.SampleRate == 0 {
		return 0
	}
	return float64(dataLen) / float64(bpf) / float64(format.SampleRate)
}
