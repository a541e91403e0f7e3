package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window owns the presentation surface the tracer renders into and drives the
// host message loop. It wraps the platform windowing layer behind a small
// interface so the tracer only ever sees a surface descriptor and pixel
// dimensions.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	// The render loop lives here: the callback typically calls Tracer.Render.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is
	// resized, with the new size in pixels.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating
	// a WebGPU surface for this window, or nil before the platform window
	// exists.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop. Blocks until the window is
	// closed, invoking the update callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// tracerWindow is the implementation of the Window interface.
type tracerWindow struct {
	title string

	// width and height track the framebuffer size in pixels, which is what
	// surface configuration needs and may differ from the logical window size
	// on high-DPI displays.
	width  int
	height int

	// internalWindow holds the platform-specific window state (glfwWindow).
	internalWindow any

	onUpdate func()
	onResize func(width, height int)
	onScroll func(delta float32)
}

var _ Window = &tracerWindow{}

// NewWindow creates a new Window with the specified options applied over
// defaults and spawns the platform window.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &tracerWindow{
		title:  "Lumen",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *tracerWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *tracerWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *tracerWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *tracerWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *tracerWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *tracerWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *tracerWindow) ProcessMessages() {
	for w.IsRunning() {
		if ok := platformProcessMessages(w); !ok {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *tracerWindow) Width() int {
	return w.width
}

func (w *tracerWindow) Height() int {
	return w.height
}
