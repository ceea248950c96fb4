package canvas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-inspection/internal/inspection/answers"
)

func newSurface(out *answers.Store) *Surface {
	return NewSurface(300, 150, "qn1", "sig", out)
}

func scribble(s *Surface) {
	// A dense zigzag: enough ink that the encoding grows well past the blank
	// baseline.
	s.Press(0, 0)
	for x := 0; x < 300; x += 4 {
		y := 10
		if (x/4)%2 == 0 {
			y = 140
		}
		s.Move(x, y)
	}
	s.Release()
}

func TestSurface_BlankEncodesNonEmpty(t *testing.T) {
	s := newSurface(answers.NewStore())

	encoded := s.Encode()
	assert.True(t, strings.HasPrefix(encoded, "data:image/png;base64,"))
	// Blank is short but never empty; emptiness is tested with a length floor.
	assert.NotEmpty(t, strings.TrimPrefix(encoded, "data:image/png;base64,"))
}

func TestSurface_ReleaseCommitsRaster(t *testing.T) {
	out := answers.NewStore()
	s := newSurface(out)
	blankLen := len(s.Encode())

	scribble(s)

	sig, ok := out.Signature("qn1", "sig")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(sig, "data:image/png;base64,"))
	assert.Greater(t, len(sig), blankLen, "inked raster must encode larger than blank")
}

func TestSurface_MoveWhileIdleIsIgnored(t *testing.T) {
	out := answers.NewStore()
	s := newSurface(out)
	blank := s.Encode()

	s.Move(50, 50)
	s.Move(200, 100)

	assert.Equal(t, blank, s.Encode())
	_, ok := out.Signature("qn1", "sig")
	assert.False(t, ok)
}

func TestSurface_ReleaseWhileIdleDoesNotCommit(t *testing.T) {
	out := answers.NewStore()
	s := newSurface(out)

	s.Release()

	_, ok := out.Signature("qn1", "sig")
	assert.False(t, ok)
}

func TestSurface_LeaveEndsStrokeLikeRelease(t *testing.T) {
	out := answers.NewStore()
	s := newSurface(out)

	s.Press(10, 10)
	s.Move(100, 100)
	s.Leave()

	_, ok := out.Signature("qn1", "sig")
	assert.True(t, ok)

	// A move after leave must not extend the ended stroke.
	before := s.Encode()
	s.Move(250, 20)
	assert.Equal(t, before, s.Encode())
}

func TestSurface_ClearInvalidatesStoredAnswer(t *testing.T) {
	out := answers.NewStore()
	s := newSurface(out)
	blank := s.Encode()

	scribble(s)
	_, ok := out.Signature("qn1", "sig")
	require.True(t, ok)

	s.Clear()

	assert.Equal(t, blank, s.Encode(), "clear restores the blank fill")
	_, ok = out.Signature("qn1", "sig")
	assert.False(t, ok, "cleared signature must not remain answered")
}

func TestSurface_OriginTranslatesPointerEvents(t *testing.T) {
	out := answers.NewStore()
	a := newSurface(out)
	a.Press(10, 10)
	a.Move(60, 60)
	a.Release()

	shifted := answers.NewStore()
	b := NewSurface(300, 150, "qn1", "sig", shifted)
	b.SetOrigin(500, 300)
	b.Press(510, 310)
	b.Move(560, 360)
	b.Release()

	sigA, _ := out.Signature("qn1", "sig")
	sigB, _ := shifted.Signature("qn1", "sig")
	assert.Equal(t, sigA, sigB, "same local stroke regardless of screen origin")
}

func TestSurface_IndependentInstances(t *testing.T) {
	out := answers.NewStore()
	first := NewSurface(300, 150, "qn1", "sig-client", out)
	second := NewSurface(300, 150, "qn1", "sig-tech", out)

	first.Press(10, 10)
	first.Move(200, 120)
	first.Release()

	_, ok := out.Signature("qn1", "sig-client")
	assert.True(t, ok)
	_, ok = out.Signature("qn1", "sig-tech")
	assert.False(t, ok)

	// Drawing on one raster leaves the other blank.
	blank := NewSurface(300, 150, "x", "y", answers.NewStore()).Encode()
	assert.Equal(t, blank, second.Encode())
}
