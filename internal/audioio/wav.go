// Package audioio provides the WAV framing and PCM conditioning used by the
// transcription pipeline: encoding chunks as self-contained WAV files,
// decoding WAV input into 16kHz mono PCM, peak normalization and silence
// padding around chunk boundaries.
package audioio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	riffHeaderSize = 44
	pcmFormat      = 1
	bitsPerSample  = 16

	// minFmtChunkSize is the size of a plain PCM fmt chunk. Extensible
	// variants are larger; anything smaller is malformed.
	minFmtChunkSize = 16

	// maxChunkBytes caps per-chunk allocations. The 32-bit size field of a
	// malformed file can claim up to 4 GiB; no real recording input here
	// comes anywhere near this.
	maxChunkBytes = 256 << 20
)

// EncodeWAV frames mono 16-bit PCM samples as a WAV file.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, riffHeaderSize+dataSize))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(pcmFormat))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// DecodeWAV reads a 16-bit PCM WAV stream and returns mono samples resampled
// to targetRate. Stereo input is downmixed by averaging channels.
func DecodeWAV(r io.Reader, targetRate int) ([]int16, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE stream")
	}

	var (
		channels   int
		sampleRate int
		haveFmt    bool
	)

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, errors.New("missing data chunk")
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			if chunkSize < minFmtChunkSize {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", chunkSize)
			}
			if chunkSize > maxChunkBytes {
				return nil, fmt.Errorf("fmt chunk size %d exceeds limit", chunkSize)
			}
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, fmtData); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			format := binary.LittleEndian.Uint16(fmtData[0:2])
			if format != pcmFormat {
				return nil, fmt.Errorf("unsupported audio format %d, want PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bits := binary.LittleEndian.Uint16(fmtData[14:16])
			if bits != bitsPerSample {
				return nil, fmt.Errorf("unsupported sample width %d bits, want 16", bits)
			}
			if channels < 1 || channels > 2 {
				return nil, fmt.Errorf("unsupported channel count %d", channels)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			if chunkSize > maxChunkBytes {
				return nil, fmt.Errorf("data chunk size %d exceeds limit", chunkSize)
			}
			raw := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("read data chunk: %w", err)
			}
			samples := toMono(raw, channels)
			if sampleRate != targetRate {
				samples = resample(samples, sampleRate, targetRate)
			}
			return samples, nil
		default:
			// Skip informational chunks (LIST, fact, ...).
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, fmt.Errorf("skip %q chunk: %w", chunkID, err)
			}
		}
	}
}

func toMono(raw []byte, channels int) []int16 {
	frames := len(raw) / (2 * channels)
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sum += int32(int16(binary.LittleEndian.Uint16(raw[off : off+2])))
		}
		samples[i] = int16(sum / int32(channels))
	}
	return samples
}

// resample performs linear interpolation between source samples. Good enough
// for speech fed into a recognizer; this is not a mastering-grade resampler.
func resample(samples []int16, fromRate, toRate int) []int16 {
	if len(samples) == 0 || fromRate == toRate {
		return samples
	}
	outLen := int(float64(len(samples)) * float64(toRate) / float64(fromRate))
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	ratio := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		a, b := float64(samples[idx]), float64(samples[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
