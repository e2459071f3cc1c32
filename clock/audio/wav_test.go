package audio

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sinePCM(frames, channels int) []byte {
	pcm := make([]byte, frames*channels*2)
	for i := 0; i < frames*channels; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i%2000-1000)))
	}
	return pcm
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		rate     int
		channels int
	}{
		{"mono 22k", 22050, 1},
		{"stereo 44k", 44100, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := sinePCM(1000, tc.channels)
			wav := EncodeWAV(in, tc.rate, tc.channels)

			out, rate, channels, err := DecodeWAV(wav)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if rate != tc.rate || channels != tc.channels {
				t.Errorf("expected %dHz/%dch, got %dHz/%dch", tc.rate, tc.channels, rate, channels)
			}
			if len(out) != len(in) {
				t.Fatalf("expected %d bytes, got %d", len(in), len(out))
			}
			for i := range in {
				if in[i] != out[i] {
					t.Fatalf("sample data differs at byte %d", i)
				}
			}
		})
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, _, err := DecodeWAV([]byte("definitely not audio")); !errors.Is(err, ErrNotWAV) {
		t.Errorf("expected ErrNotWAV, got %v", err)
	}
	if _, _, _, err := DecodeWAV(nil); !errors.Is(err, ErrNotWAV) {
		t.Errorf("expected ErrNotWAV for empty input, got %v", err)
	}
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	wav := EncodeWAV(sinePCM(10, 1), 22050, 1)
	// Flip the format tag to 3 (IEEE float).
	wav[20] = 3

	if _, _, _, err := DecodeWAV(wav); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeWAVRejectsEmptyData(t *testing.T) {
	wav := EncodeWAV(nil, 22050, 1)
	if _, _, _, err := DecodeWAV(wav); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestDecodeWAVWidens8Bit(t *testing.T) {
	wav := EncodeWAV(sinePCM(4, 1), 22050, 1)
	// Rewrite the header to claim 8-bit samples.
	binary.LittleEndian.PutUint16(wav[34:], 8)

	pcm, _, _, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(pcm) != 16 { // 8 source bytes widened to 16
		t.Errorf("expected 16 bytes of widened samples, got %d", len(pcm))
	}
}

func TestConvertPCMPassthrough(t *testing.T) {
	in := sinePCM(100, 2)
	out := ConvertPCM(in, 44100, 2, 44100, 2)
	if len(out) != len(in) {
		t.Errorf("identity conversion changed the length: %d != %d", len(out), len(in))
	}
}

func TestConvertPCMMonoToStereo(t *testing.T) {
	in := sinePCM(100, 1)
	out := ConvertPCM(in, 44100, 1, 44100, 2)

	if len(out) != len(in)*2 {
		t.Fatalf("expected doubled length, got %d", len(out))
	}
	// Both output channels carry the mono source.
	l := binary.LittleEndian.Uint16(out[0:2])
	r := binary.LittleEndian.Uint16(out[2:4])
	if l != r {
		t.Errorf("expected identical channels, got %d and %d", l, r)
	}
}

func TestConvertPCMResamples(t *testing.T) {
	in := sinePCM(1000, 1)
	out := ConvertPCM(in, 22050, 1, 44100, 1)

	if len(out) != len(in)*2 {
		t.Errorf("expected 2000 frames after upsampling, got %d", len(out)/2)
	}
}

func TestPCMDuration(t *testing.T) {
	// One second of 44.1kHz stereo.
	d := PCMDuration(44100*2*2, 44100, 2)
	if d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}
	if PCMDuration(100, 0, 2) != 0 {
		t.Error("expected zero duration for zero sample rate")
	}
}

func TestLoadAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chime.wav")
	if err := os.WriteFile(path, EncodeWAV(sinePCM(22050, 1), 22050, 1), 0o644); err != nil {
		t.Fatal(err)
	}

	asset, err := LoadAsset(path)
	if err != nil {
		t.Fatalf("LoadAsset failed: %v", err)
	}
	if asset.Path != path {
		t.Errorf("expected path %s, got %s", path, asset.Path)
	}
	// One second of source audio, converted to the mix format.
	if asset.Duration < 990*time.Millisecond || asset.Duration > 1010*time.Millisecond {
		t.Errorf("expected ~1s duration, got %v", asset.Duration)
	}
	if len(asset.PCM) != MixSampleRate*MixChannels*2 {
		t.Errorf("expected mix-format PCM, got %d bytes", len(asset.PCM))
	}
}

func TestLoadAssetMissingFile(t *testing.T) {
	if _, err := LoadAsset(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestAssetFromWAV(t *testing.T) {
	wav := EncodeWAV(sinePCM(2205, 1), 22050, 1) // 100ms mono
	asset, err := AssetFromWAV(wav)
	if err != nil {
		t.Fatalf("AssetFromWAV failed: %v", err)
	}
	if len(asset.PCM) != 4410*MixChannels*2 {
		t.Errorf("expected mix-format conversion, got %d bytes", len(asset.PCM))
	}
}
