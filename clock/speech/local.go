package speech

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"strings"

	"github.com/accessiclock/accessiclock/clock/audio"
)

const (
	localSampleRate = 22050
	wordsPerMinute  = 150
)

// LocalSynth is the offline fallback synthesizer. It renders each word as
// a short shaped tone whose pitch is derived from the word itself, so the
// same phrase always produces byte-identical audio. It never fails and is
// never retried.
type LocalSynth struct{}

// NewLocalSynth creates the local synthesizer.
func NewLocalSynth() *LocalSynth { return &LocalSynth{} }

// Name implements Provider.
func (s *LocalSynth) Name() string { return "local" }

// Synthesize implements Provider. The voice parameter seeds the pitch
// range so different voices remain distinguishable.
func (s *LocalSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	words := strings.Fields(Normalize(text))
	if len(words) == 0 {
		return nil, ErrEmptyText
	}

	wordDur := 60.0 / wordsPerMinute // seconds per word
	gapDur := wordDur / 4
	basePitch := 160.0 + float64(hashString(voice)%80)

	wordSamples := int(wordDur * localSampleRate)
	gapSamples := int(gapDur * localSampleRate)

	pcm := make([]byte, 0, (wordSamples+gapSamples)*len(words)*2)
	buf := make([]byte, 2)

	for _, word := range words {
		// Pitch spans roughly an octave across the word space.
		freq := basePitch + float64(hashString(word)%int64(basePitch))

		for i := 0; i < wordSamples; i++ {
			t := float64(i) / localSampleRate
			// Attack/decay envelope keeps word boundaries audible.
			env := math.Sin(math.Pi * float64(i) / float64(wordSamples))
			v := 0.25 * env * math.Sin(2*math.Pi*freq*t)
			binary.LittleEndian.PutUint16(buf, uint16(int16(v*math.MaxInt16)))
			pcm = append(pcm, buf...)
		}
		for i := 0; i < gapSamples; i++ {
			pcm = append(pcm, 0, 0)
		}
	}

	return audio.EncodeWAV(pcm, localSampleRate, 1), nil
}

func hashString(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s)) //nolint:errcheck
	return int64(h.Sum64() & math.MaxInt64)
}
