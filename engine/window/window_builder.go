package window

// WindowBuilderOption configures a Window during construction.
type WindowBuilderOption func(*tracerWindow)

// WithTitle sets the window title.
//
// Parameters:
//   - title: the title bar text
//
// Returns:
//   - WindowBuilderOption: option to apply the title
func WithTitle(title string) WindowBuilderOption {
	return func(w *tracerWindow) {
		if title != "" {
			w.title = title
		}
	}
}

// WithWidth sets the initial window width in pixels. Non-positive values are
// ignored.
//
// Parameters:
//   - width: width in pixels
//
// Returns:
//   - WindowBuilderOption: option to apply the width
func WithWidth(width int) WindowBuilderOption {
	return func(w *tracerWindow) {
		if width > 0 {
			w.width = width
		}
	}
}

// WithHeight sets the initial window height in pixels. Non-positive values are
// ignored.
//
// Parameters:
//   - height: height in pixels
//
// Returns:
//   - WindowBuilderOption: option to apply the height
func WithHeight(height int) WindowBuilderOption {
	return func(w *tracerWindow) {
		if height > 0 {
			w.height = height
		}
	}
}
