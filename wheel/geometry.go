/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wheel

import (
	"math"
	"time"
	"unicode/utf8"
)

const (
	TwoPi = 2 * math.Pi

	// MinExtraTurns and MaxExtraTurns bound the uniform draw of full
	// rotations added to every spin.
	MinExtraTurns = 8.0
	MaxExtraTurns = 10.0

	maxLabelRunes = 24
	goldenAngle   = 137.508
)

// Segment is the angular slice of the wheel assigned to one item.
type Segment struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Mid   float64 `json:"mid"`
}

// SegmentWidth is the angle each of n items occupies.
func SegmentWidth(n int) float64 {
	if n < 1 {
		n = 1
	}
	return TwoPi / float64(n)
}

// Segments lays labels around the circle in input order, starting at angle 0.
func Segments(labels []string) []Segment {
	step := SegmentWidth(len(labels))
	segs := make([]Segment, len(labels))
	for i, l := range labels {
		start := float64(i) * step
		segs[i] = Segment{
			Label: l,
			Start: start,
			End:   float64(i+1) * step,
			Mid:   start + step/2,
		}
	}
	return segs
}

// Normalize maps any angle into [0, 2π).
func Normalize(angle float64) float64 {
	a := math.Mod(angle, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	if a >= TwoPi {
		a = 0
	}
	return a
}

// IndexAt returns the index of the segment under the pointer, which sits at
// angle 0, when the wheel has rotated by angle. It returns -1 for n < 1.
func IndexAt(angle float64, n int) int {
	if n < 1 {
		return -1
	}
	phi := math.Mod(TwoPi-Normalize(angle), TwoPi)
	idx := int(math.Floor(phi / SegmentWidth(n)))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// EaseOutCubic decelerates towards the end value; t is clamped to [0, 1].
func EaseOutCubic(t float64) float64 {
	t = clamp01(t)
	u := 1 - t
	return 1 - u*u*u
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// Animation interpolates the wheel from one angle to another over a fixed duration.
type Animation struct {
	From     float64       `json:"from"`
	To       float64       `json:"to"`
	Duration time.Duration `json:"duration"`
}

// NewAnimation starts at from and adds extraTurns full rotations.
func NewAnimation(from, extraTurns float64, d time.Duration) Animation {
	return Animation{
		From:     from,
		To:       from + extraTurns*TwoPi,
		Duration: d,
	}
}

// Progress is the normalized elapsed time.
func (a Animation) Progress(elapsed time.Duration) float64 {
	if a.Duration <= 0 {
		return 1
	}
	return clamp01(float64(elapsed) / float64(a.Duration))
}

// Angle is the displayed angle after elapsed. It equals To exactly once the
// duration has passed.
func (a Animation) Angle(elapsed time.Duration) float64 {
	p := a.Progress(elapsed)
	if p >= 1 {
		return a.To
	}
	return a.From + (a.To-a.From)*EaseOutCubic(p)
}

func (a Animation) Done(elapsed time.Duration) bool {
	return a.Progress(elapsed) >= 1
}

// Result is the outcome of one completed spin.
type Result struct {
	Index      int     `json:"index"`
	Item       string  `json:"item"`
	FinalAngle float64 `json:"final_angle"`
}

// Resolve picks the item under the pointer at angle.
func Resolve(items []string, angle float64) (Result, bool) {
	if len(items) == 0 {
		return Result{}, false
	}
	idx := IndexAt(angle, len(items))
	return Result{
		Index:      idx,
		Item:       items[idx],
		FinalAngle: Normalize(angle),
	}, true
}

// Label shortens long names for display on a segment.
func Label(s string) string {
	if utf8.RuneCountInString(s) <= maxLabelRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxLabelRunes]) + "…"
}

// Hue is the color of segment i, stepping by the golden angle.
func Hue(i int) float64 {
	return math.Mod(float64(i)*goldenAngle, 360)
}
