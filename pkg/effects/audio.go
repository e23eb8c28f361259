package effects

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gopxl/beep"
	beepfx "github.com/gopxl/beep/effects"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// Audio errors
var (
	ErrAudioClosed = errors.New("audio output closed")
	ErrVoiceLimit  = errors.New("too many splat voices playing")
)

const (
	// DefaultSampleRate is what cmd/viewer opens the speaker with
	DefaultSampleRate = beep.SampleRate(44100)

	splatDuration = 180 * time.Millisecond
	splatDecay    = 22.0
	splatMaxVoice = 8

	// burst length that maps to full volume
	splatFullBurst = 40.0
)

// splat is a short wet thump: a falling sine under decaying noise
type splat struct {
	rate  beep.SampleRate
	pos   int
	total int
	freq  float64
	rng   *rand.Rand
}

// NewSplat creates a splat voice. freq is the starting thump pitch.
func NewSplat(rate beep.SampleRate, freq float64, seed uint64) beep.Streamer {
	return &splat{
		rate:  rate,
		total: rate.N(splatDuration),
		freq:  freq,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *splat) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.pos >= s.total {
			return i, i > 0
		}
		t := float64(s.pos) / float64(s.rate)
		env := math.Exp(-t * splatDecay)
		f := s.freq * (1 - 0.5*t/splatDuration.Seconds())

		val := 0.6*math.Sin(2*math.Pi*f*t)*env + 0.4*(s.rng.Float64()*2-1)*env*env
		val = math.Max(-1, math.Min(1, val))

		samples[i][0] = val
		samples[i][1] = val
		s.pos++
	}
	return len(samples), true
}

func (s *splat) Err() error { return nil }

// Audio is an Emitter that mixes a splat per anchor. It is itself a
// beep.Streamer: hand it to speaker.Play.
type Audio struct {
	mu     sync.Mutex
	mixer  beep.Mixer
	rate   beep.SampleRate
	volume float64
	seq    uint64
	closed bool
}

// NewAudio creates an audio emitter. volume is linear, 1 is unity gain.
func NewAudio(rate beep.SampleRate, volume float64) *Audio {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &Audio{rate: rate, volume: volume}
}

// SampleRate of the generated voices
func (a *Audio) SampleRate() beep.SampleRate { return a.rate }

// Emit queues a splat scaled by the burst strength
func (a *Audio) Emit(point, direction physics.Vector2D) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAudioClosed
	}
	if a.mixer.Len() >= splatMaxVoice {
		return ErrVoiceLimit
	}

	strength := math.Min(direction.Length()/splatFullBurst, 1)
	a.seq++
	// bigger bursts sound lower
	voice := NewSplat(a.rate, 180-80*strength, a.seq)
	a.mixer.Add(withVolume(beep.Take(a.rate.N(splatDuration), voice), a.volume*(0.3+0.7*strength)))
	return nil
}

// Voices is the number of splats still playing
func (a *Audio) Voices() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mixer.Len()
}

// Stream mixes the active voices, producing silence when none play
func (a *Audio) Stream(samples [][2]float64) (n int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, false
	}
	return a.mixer.Stream(samples)
}

// Err is always nil
func (a *Audio) Err() error { return nil }

// Close silences the output; later Emit calls fail with ErrAudioClosed
func (a *Audio) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mixer.Clear()
	a.closed = true
}

// withVolume converts a linear gain to beep's log scale, silencing at 0
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &beepfx.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &beepfx.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}
