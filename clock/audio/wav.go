package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Mix format shared by every player created from one context. Assets are
// converted to this format once, at load time.
const (
	MixSampleRate = 44100
	MixChannels   = 2
	MixBitDepth   = 16
)

var (
	ErrNotWAV            = errors.New("not a RIFF/WAVE file")
	ErrUnsupportedFormat = errors.New("unsupported WAV encoding")
	ErrEmptyAudio        = errors.New("empty audio data")
)

// Asset is a decoded, playback-ready sound. PCM is signed 16-bit
// little-endian interleaved at the mix format above.
type Asset struct {
	Path     string
	PCM      []byte
	Duration time.Duration
}

// LoadAsset reads a WAV file and converts it to the mix format.
func LoadAsset(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read audio file: %w", err)
	}

	pcm, rate, channels, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	pcm = ConvertPCM(pcm, rate, channels, MixSampleRate, MixChannels)

	return &Asset{
		Path:     path,
		PCM:      pcm,
		Duration: PCMDuration(len(pcm), MixSampleRate, MixChannels),
	}, nil
}

// AssetFromWAV decodes in-memory WAV data and converts it to the mix
// format. Used for synthesized audio that never touches disk.
func AssetFromWAV(data []byte) (*Asset, error) {
	pcm, rate, channels, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}

	pcm = ConvertPCM(pcm, rate, channels, MixSampleRate, MixChannels)

	return &Asset{
		PCM:      pcm,
		Duration: PCMDuration(len(pcm), MixSampleRate, MixChannels),
	}, nil
}

// DecodeWAV parses a canonical RIFF/WAVE container and returns raw PCM16LE
// samples plus the source sample rate and channel count. 8-bit unsigned
// input is widened to 16-bit.
func DecodeWAV(data []byte) (pcm []byte, sampleRate, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, ErrNotWAV
	}

	var (
		bitDepth  int
		format    uint16
		haveFmt   bool
		dataChunk []byte
	)

	// Walk chunks; ignore anything that isn't fmt or data.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, ErrUnsupportedFormat
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			dataChunk = data[body : body+size]
		}

		// Chunks are word-aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt || dataChunk == nil {
		return nil, 0, 0, ErrNotWAV
	}
	if format != 1 { // PCM only
		return nil, 0, 0, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, format)
	}
	if channels < 1 || channels > 2 || sampleRate <= 0 {
		return nil, 0, 0, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, sampleRate)
	}

	switch bitDepth {
	case 16:
		pcm = dataChunk
	case 8:
		pcm = make([]byte, len(dataChunk)*2)
		for i, b := range dataChunk {
			s := (int16(b) - 128) << 8
			binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
		}
	default:
		return nil, 0, 0, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, bitDepth)
	}

	if len(pcm) == 0 {
		return nil, 0, 0, ErrEmptyAudio
	}

	return pcm, sampleRate, channels, nil
}

// EncodeWAV wraps PCM16LE samples in a canonical WAV container.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	var buf bytes.Buffer
	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm))) //nolint:errcheck
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))         //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(1))          //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(channels))   //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate)) //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))   //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign)) //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(16))         //nolint:errcheck

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm))) //nolint:errcheck
	buf.Write(pcm)

	return buf.Bytes()
}

// ConvertPCM resamples PCM16LE audio to the target rate and channel count.
// Resampling is linear; chime and tick sounds are short enough that the
// quality difference against a windowed sinc is inaudible.
func ConvertPCM(pcm []byte, rate, channels, targetRate, targetChannels int) []byte {
	if rate == targetRate && channels == targetChannels {
		return pcm
	}

	frames := len(pcm) / (2 * channels)
	if frames == 0 {
		return nil
	}

	sample := func(frame, ch int) int16 {
		if ch >= channels {
			ch = channels - 1
		}
		off := (frame*channels + ch) * 2
		return int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
	}

	outFrames := frames
	if rate != targetRate {
		outFrames = int(int64(frames) * int64(targetRate) / int64(rate))
		if outFrames == 0 {
			outFrames = 1
		}
	}

	out := make([]byte, outFrames*targetChannels*2)
	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) * float64(rate) / float64(targetRate)
		f0 := int(srcPos)
		if f0 >= frames-1 {
			f0 = frames - 1
		}
		frac := srcPos - float64(f0)

		for ch := 0; ch < targetChannels; ch++ {
			s0 := float64(sample(f0, ch))
			s1 := s0
			if f0+1 < frames {
				s1 = float64(sample(f0+1, ch))
			}
			v := int16(s0 + (s1-s0)*frac)
			binary.LittleEndian.PutUint16(out[(i*targetChannels+ch)*2:], uint16(v))
		}
	}

	return out
}

// PCMDuration returns the playback duration of PCM16LE data.
func PCMDuration(dataLen, sampleRate, channels int) time.Duration {
	if sampleRate == 0 || channels == 0 {
		return 0
	}
	frames := dataLen / (2 * channels)
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// Reader returns a fresh reader over the asset's samples. Each playback
// needs its own reader so concurrent plays never share a position.
func (a *Asset) Reader() io.Reader {
	return bytes.NewReader(a.PCM)
}
