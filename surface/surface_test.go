package surface

import (
	"context"
	"image/color"
	"testing"

	"github.com/caffeineduck/eyesy/interp"
	"github.com/caffeineduck/eyesy/language/javascript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *interp.Session {
	t.Helper()
	host := interp.NewHost(javascript.New())
	s, err := host.Load(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { host.Close() })
	return s
}

func TestSetModeReusesSameSize(t *testing.T) {
	l := NewLayer()

	a, err := l.SetMode(8, 8)
	require.NoError(t, err)
	b, err := l.SetMode(8, 8)
	require.NoError(t, err)
	c, err := l.SetMode(4, 4)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Same(t, c, l.Screen())
}

func TestSetModeErrors(t *testing.T) {
	_, err := NewLayer().SetMode(0, 10)
	assert.ErrorIs(t, err, ErrInvalidSize)

	nothing := NewLayer(WithFactory(func(string, int, int) Surface { return nil }))
	_, err = nothing.SetMode(10, 10)
	assert.ErrorIs(t, err, ErrNoSurface)
}

func TestInstallIsIdempotent(t *testing.T) {
	s := newSession(t)
	l := NewLayer()

	require.NoError(t, l.Install(s))
	_, err := s.RunCode("pygame.marker = 1")
	require.NoError(t, err)
	require.NoError(t, l.Install(s))

	v, err := s.RunCode("pygame.marker")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}

func TestScriptDrawsOnScreen(t *testing.T) {
	s := newSession(t)
	l := NewLayer()
	require.NoError(t, l.Install(s))

	_, err := s.RunCode(`
var screen = set_mode([32, 16]);
screen.fill([0, 0, 255]);
pygame.draw.circle(screen, [255, 0, 0], [8, 8], 3);
pygame.draw.rect(screen, pygame.Color(0, 255, 0), [20, 0, 4, 4]);
pygame.draw.line(screen, 200, [0, 15], [31, 15], 1);
`)
	require.NoError(t, err)

	img := l.Screen().Image()
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(8, 8))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, img.RGBAAt(21, 1))
	assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, img.RGBAAt(16, 15))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(30, 8))

	v, err := s.RunCode("screen.get_size()")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(32), int64(16)}, v)
}

func TestScriptOffscreenSurfaceBlit(t *testing.T) {
	s := newSession(t)
	l := NewLayer()
	require.NoError(t, l.Install(s))

	_, err := s.RunCode(`
var screen = set_mode([10, 10]);
var sprite = pygame.Surface([2, 2]);
sprite.fill([255, 255, 0]);
screen.blit(sprite, [4, 4]);
`)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 255, G: 255, A: 255}, l.Screen().Image().RGBAAt(5, 5))
}

func TestDrawOnUnknownSurface(t *testing.T) {
	s := newSession(t)
	l := NewLayer()
	require.NoError(t, l.Install(s))

	_, err := s.RunCode(`pygame.draw.circle({_id: "gone"}, [1, 2, 3], [0, 0], 1)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = s.RunCode(`set_mode([4, 4]); pygame.draw.circle(null, [1, 2, 3], [0, 0], 1)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "None")
}

func TestColorArg(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want color.RGBA
	}{
		{"rgb list", []any{int64(1), int64(2), int64(3)}, color.RGBA{1, 2, 3, 255}},
		{"rgba drops alpha", []any{int64(1), int64(2), int64(3), int64(4)}, color.RGBA{1, 2, 3, 255}},
		{"floats truncate", []any{1.9, 2.2, 300.0}, color.RGBA{1, 2, 255, 255}},
		{"gray", int64(128), color.RGBA{128, 128, 128, 255}},
		{"go ints", []int{9, 8, 7}, color.RGBA{9, 8, 7, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := colorArg(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := colorArg([]any{int64(1)})
	assert.Error(t, err)
}

func TestSurfacePoolIsBounded(t *testing.T) {
	l := NewLayer(WithSurfaceLimit(4))

	first, err := l.NewSurface(2, 2)
	require.NoError(t, err)
	for range 100 {
		_, err := l.NewSurface(8, 8)
		require.NoError(t, err)
		// Keep the first surface in use while the rest churn.
		_, ok := l.Lookup(first.ID())
		require.True(t, ok)
	}

	assert.Equal(t, 4, l.Surfaces())
	_, ok := l.Lookup(first.ID())
	assert.True(t, ok, "recently used surface was evicted")
	_, ok = l.Lookup("surface_2")
	assert.False(t, ok)
}

func TestScreenIsNotPooled(t *testing.T) {
	l := NewLayer(WithSurfaceLimit(1))
	screen, err := l.SetMode(4, 4)
	require.NoError(t, err)

	for range 3 {
		_, err := l.NewSurface(2, 2)
		require.NoError(t, err)
	}

	got, ok := l.Lookup(ScreenID)
	require.True(t, ok)
	assert.Same(t, screen, got)
	assert.Equal(t, 1, l.Surfaces())
}

func TestGenerations(t *testing.T) {
	l := NewLayer()
	old, err := l.NewSurface(2, 2)
	require.NoError(t, err)

	prev := l.Begin()
	failed, err := l.NewSurface(2, 2)
	require.NoError(t, err)
	l.Abort(prev)

	_, ok := l.Lookup(failed.ID())
	assert.False(t, ok, "surface from an aborted generation kept")
	_, ok = l.Lookup(old.ID())
	assert.True(t, ok)

	l.Begin()
	current, err := l.NewSurface(2, 2)
	require.NoError(t, err)
	l.Commit()

	_, ok = l.Lookup(old.ID())
	assert.False(t, ok, "surface from a replaced generation kept")
	_, ok = l.Lookup(current.ID())
	assert.True(t, ok)
	assert.Equal(t, 1, l.Surfaces())
}

func TestScriptSurfacePerFrameStaysBounded(t *testing.T) {
	s := newSession(t)
	l := NewLayer()
	require.NoError(t, l.Install(s))

	_, err := s.RunCode(`
var screen = set_mode([16, 16]);
function frame() {
  var layer = pygame.Surface([16, 16]);
  pygame.draw.circle(layer, [255, 0, 0], [8, 8], 4);
  screen.blit(layer, [0, 0]);
}`)
	require.NoError(t, err)

	for range 300 {
		_, err := s.RunCode(`frame()`)
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, l.Surfaces(), DefaultSurfaceLimit)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, l.Screen().Image().RGBAAt(8, 8))
}
