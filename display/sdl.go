//go:build sdl

package display

import (
	"fmt"
	"image"
	"runtime"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
)

// Available reports whether the binary was built with SDL.
const Available = true

func init() {
	// SDL video calls must stay on the thread that initialized it.
	runtime.LockOSThread()
}

type sdlWindow struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	width    int
	height   int
	closed   bool
}

// Open creates a window of the given size. Call it, and every Window
// method, from the main goroutine.
func Open(title string, width, height int) (Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("init sdl: %w", err)
	}
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height), sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("create window: %w", err)
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
		int32(width), int32(height))
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("create texture: %w", err)
	}
	return &sdlWindow{window: window, renderer: renderer, texture: texture, width: width, height: height}, nil
}

func (w *sdlWindow) Present(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != w.width || b.Dy() != w.height {
		return fmt.Errorf("frame is %dx%d, window is %dx%d", b.Dx(), b.Dy(), w.width, w.height)
	}
	// image.RGBA stores R,G,B,A bytes, which is ABGR8888 on little-endian.
	if err := w.texture.Update(nil, unsafe.Pointer(&img.Pix[0]), img.Stride); err != nil {
		return fmt.Errorf("update texture: %w", err)
	}
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return fmt.Errorf("copy texture: %w", err)
	}
	w.renderer.Present()
	return nil
}

func (w *sdlWindow) Closed() bool {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch ev := e.(type) {
		case *sdl.QuitEvent:
			w.closed = true
		case *sdl.KeyboardEvent:
			if ev.Keysym.Sym == sdl.K_ESCAPE {
				w.closed = true
			}
		}
	}
	return w.closed
}

func (w *sdlWindow) Close() error {
	w.texture.Destroy()
	w.renderer.Destroy()
	w.window.Destroy()
	sdl.Quit()
	return nil
}
