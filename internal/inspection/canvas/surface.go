// Package canvas implements the freehand signature surface: a small
// Idle/Drawing state machine over pointer events drawing straight segments
// into a raster, committed as an encoded PNG on stroke end. Segment-by-segment
// line drawing is sufficient fidelity for a consent signature; no smoothing
// is applied.
package canvas

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"fieldservice-inspection/internal/inspection/answers"
)

type state int

const (
	stateIdle state = iota
	stateDrawing
)

// Surface is a rectangular drawing region bound to one (questionnaire,
// question) pair. Multiple signature fields are independent instances, each
// owning its own raster buffer.
type Surface struct {
	questionnaireID string
	questionID      string
	out             *answers.Store

	img     *image.RGBA
	originX int
	originY int
	state   state
	last    image.Point
}

// NewSurface creates a blank-filled surface writing committed strokes into
// the given response store.
func NewSurface(width, height int, questionnaireID, questionID string, out *answers.Store) *Surface {
	s := &Surface{
		questionnaireID: questionnaireID,
		questionID:      questionID,
		out:             out,
		img:             image.NewRGBA(image.Rect(0, 0, width, height)),
	}
	s.blank()
	return s
}

// SetOrigin records the surface's position in screen coordinates so pointer
// events can be translated to surface-local space.
func (s *Surface) SetOrigin(x, y int) {
	s.originX, s.originY = x, y
}

// Press begins a stroke at the contact point, given in screen coordinates.
func (s *Surface) Press(screenX, screenY int) {
	s.state = stateDrawing
	s.last = s.toLocal(screenX, screenY)
	s.plot(s.last.X, s.last.Y)
}

// Move extends the current stroke with a straight segment. Ignored while idle.
func (s *Surface) Move(screenX, screenY int) {
	if s.state != stateDrawing {
		return
	}
	p := s.toLocal(screenX, screenY)
	s.segment(s.last, p)
	s.last = p
}

// Release ends the stroke and commits the whole raster into the response
// store as a PNG data URL.
func (s *Surface) Release() {
	if s.state != stateDrawing {
		return
	}
	s.state = stateIdle
	s.out.SetSignature(s.questionnaireID, s.questionID, s.Encode())
}

// Leave is the pointer-leave transition; it behaves like Release.
func (s *Surface) Leave() {
	s.Release()
}

// Clear resets the raster to a blank fill and invalidates the stored answer.
func (s *Surface) Clear() {
	s.state = stateIdle
	s.blank()
	s.out.ClearSignature(s.questionnaireID, s.questionID)
}

// Encode serializes the raster to a base64 PNG data URL. A blank-filled
// canvas still encodes to a short non-empty string; callers test emptiness
// with a length floor, not exact emptiness.
func (s *Surface) Encode() string {
	var buf bytes.Buffer
	_ = png.Encode(&buf, s.img)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func (s *Surface) toLocal(screenX, screenY int) image.Point {
	return image.Point{X: screenX - s.originX, Y: screenY - s.originY}
}

func (s *Surface) blank() {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
}

// segment draws a straight line between two surface-local points.
func (s *Surface) segment(from, to image.Point) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	err := dx + dy

	x, y := from.X, from.Y
	for {
		s.plot(x, y)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// plot inks a 2x2 block so strokes stay visible at typical raster sizes.
func (s *Surface) plot(x, y int) {
	bounds := s.img.Bounds()
	for _, p := range [...]image.Point{{x, y}, {x + 1, y}, {x, y + 1}, {x + 1, y + 1}} {
		if p.In(bounds) {
			s.img.Set(p.X, p.Y, color.Black)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
