/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wheel

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

const (
	DefaultDuration  = 5 * time.Second
	DefaultFrameRate = 60
)

var (
	ErrNoItems  = errors.New("wheel has no items")
	ErrSpinning = errors.New("wheel is already spinning")

	errSpinDone = errors.New("spin complete")
)

// Source is the random source for the extra-turns draw.
type Source interface {
	Float64() float64
}

// NewSource returns a PCG generator seeded from crypto/rand.
func NewSource() Source {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		seed = [16]byte{}
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// ExtraTurns draws the number of full rotations uniformly from [8, 10).
func ExtraTurns(src Source) float64 {
	return MinExtraTurns + src.Float64()*(MaxExtraTurns-MinExtraTurns)
}

// Wheel animates spins frame by frame and resolves each one to a single item.
// Only one spin may be in flight; others are rejected with ErrSpinning.
type Wheel struct {
	mu       sync.Mutex
	angle    float64
	spinning bool

	clock    quartz.Clock
	src      Source
	duration time.Duration
	frame    time.Duration
	logger   *log.Logger
}

type Option func(*Wheel)

func WithClock(c quartz.Clock) Option {
	return func(w *Wheel) {
		w.clock = c
	}
}

func WithSource(s Source) Option {
	return func(w *Wheel) {
		w.src = s
	}
}

func WithDuration(d time.Duration) Option {
	return func(w *Wheel) {
		if d > 0 {
			w.duration = d
		}
	}
}

// WithFrameRate sets how many frames per second the wheel advances.
func WithFrameRate(fps int) Option {
	return func(w *Wheel) {
		if fps > 0 {
			w.frame = time.Second / time.Duration(fps)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(w *Wheel) {
		w.logger = l
	}
}

// WithAngle sets the starting angle.
func WithAngle(a float64) Option {
	return func(w *Wheel) {
		w.angle = a
	}
}

func New(opts ...Option) *Wheel {
	w := &Wheel{
		clock:    quartz.NewReal(),
		duration: DefaultDuration,
		frame:    time.Second / DefaultFrameRate,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.src == nil {
		w.src = NewSource()
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}
	return w
}

// Angle is the currently displayed rotation.
func (w *Wheel) Angle() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.angle
}

func (w *Wheel) Spinning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.spinning
}

func (w *Wheel) Duration() time.Duration {
	return w.duration
}

// Spin starts a spin over a snapshot of items. onFrame, if set, receives the
// displayed angle on every frame. onResult is called exactly once when the
// animation completes, before the wheel accepts another spin. A spin cannot
// be cancelled once started.
func (w *Wheel) Spin(items []string, onFrame func(angle float64), onResult func(Result)) (Animation, error) {
	if len(items) == 0 {
		return Animation{}, ErrNoItems
	}

	w.mu.Lock()
	if w.spinning {
		w.mu.Unlock()
		return Animation{}, ErrSpinning
	}
	w.spinning = true
	anim := NewAnimation(w.angle, ExtraTurns(w.src), w.duration)
	w.mu.Unlock()

	snapshot := make([]string, len(items))
	copy(snapshot, items)

	w.logger.Debug("spin started", "items", len(snapshot), "from", anim.From, "to", anim.To)

	start := w.clock.Now()
	w.clock.TickerFunc(context.Background(), w.frame, func() error {
		elapsed := w.clock.Since(start)
		angle := anim.Angle(elapsed)

		w.mu.Lock()
		w.angle = angle
		w.mu.Unlock()

		if onFrame != nil {
			onFrame(angle)
		}

		if !anim.Done(elapsed) {
			return nil
		}

		res, _ := Resolve(snapshot, angle)
		w.logger.Debug("spin resolved", "index", res.Index, "item", res.Item, "angle", res.FinalAngle)

		if onResult != nil {
			onResult(res)
		}

		w.mu.Lock()
		w.angle = res.FinalAngle
		w.spinning = false
		w.mu.Unlock()

		return errSpinDone
	}, "wheel", "frame")

	return anim, nil
}
