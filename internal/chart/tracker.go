// Package chart tracks which reference chart is nearest each frame of an
// ascending timeline and how strongly it should be composited.
package chart

import (
	"math"
	"time"

	"github.com/halcyon-wx/frameline/internal/domain"
)

// State describes the tracker's position in the chart sequence.
type State int

const (
	// Unstarted means Advance has never been called.
	Unstarted State = iota
	// OnChart means the cursor sits on a chart with a successor.
	OnChart
	// Exhausted means the cursor sits on the final chart.
	Exhausted
)

// Tracker is a forward-only cursor over a chronologically sorted chart
// sequence. Frames are processed in ascending timestamp order, so the
// nearest chart can only move forward; the cursor never rewinds, which
// keeps a resumed run's chart assignments identical to an uninterrupted
// one.
type Tracker struct {
	charts []domain.Chart
	idx    int
}

// NewTracker creates a Tracker over an ascending chart sequence. The
// sequence may be empty; Advance then reports no chart.
func NewTracker(charts []domain.Chart) *Tracker {
	return &Tracker{charts: charts, idx: -1}
}

// State returns the tracker's current position.
func (t *Tracker) State() State {
	switch {
	case t.idx < 0:
		return Unstarted
	case t.idx >= len(t.charts)-1:
		return Exhausted
	default:
		return OnChart
	}
}

// Index returns the current chart index, or -1 before the first Advance.
func (t *Tracker) Index() int { return t.idx }

// Current returns the chart under the cursor. ok is false before the
// first Advance or when there are no charts.
func (t *Tracker) Current() (domain.Chart, bool) {
	if t.idx < 0 || t.idx >= len(t.charts) {
		return domain.Chart{}, false
	}
	return t.charts[t.idx], true
}

// Advance moves the cursor to the chart nearest frameTime and returns it.
// From Unstarted it always enters the first chart; after that it steps
// forward while the next chart is strictly closer to frameTime than the
// current one, so a single call can skip many charts after a long gap
// (a resumed run after downtime). An exact tie keeps the current chart.
// The cursor never moves backward.
func (t *Tracker) Advance(frameTime domain.Timestamp) (domain.Chart, bool) {
	if len(t.charts) == 0 {
		return domain.Chart{}, false
	}
	if t.idx < 0 {
		t.idx = 0
	}
	for t.idx+1 < len(t.charts) {
		cur := frameTime.DistanceTo(t.charts[t.idx].Valid)
		next := frameTime.DistanceTo(t.charts[t.idx+1].Valid)
		if next >= cur {
			break
		}
		t.idx++
	}
	return t.charts[t.idx], true
}

// FadeWeight computes the opacity for compositing the current chart over
// a frame captured at frameTime. The weight is maxOpacity at the chart's
// valid time and decays linearly to minOpacity at the edge of the fade
// window; the interpolation uses math.Round (half away from zero) and the
// window boundary is inclusive, so dt == fadeWindow yields exactly
// minOpacity. Beyond the window ok is false: no plausible chart context
// exists and the caller decides whether to skip the frame or composite at
// the floor.
func (t *Tracker) FadeWeight(frameTime domain.Timestamp, fadeWindow time.Duration, minOpacity, maxOpacity int) (int, bool) {
	cur, ok := t.Current()
	if !ok {
		return 0, false
	}
	dt := frameTime.DistanceTo(cur.Valid)
	if dt > fadeWindow {
		return 0, false
	}
	if fadeWindow <= 0 {
		return maxOpacity, true
	}
	span := float64(maxOpacity - minOpacity)
	w := minOpacity + int(math.Round(float64(fadeWindow-dt)*span/float64(fadeWindow)))
	if w < minOpacity {
		w = minOpacity
	}
	if w > maxOpacity {
		w = maxOpacity
	}
	return w, true
}
