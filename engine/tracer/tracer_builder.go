package tracer

import (
	"github.com/Carmen-Shannon/lumen-go/engine/camera"
)

// TracerBuilderOption is a functional option used to configure a Tracer during construction.
type TracerBuilderOption func(*tracer)

// WithCamera sets the camera used for ray generation. Without this option the
// tracer creates a camera with default placement.
//
// Parameters:
//   - cam: the camera to render from
//
// Returns:
//   - TracerBuilderOption: a function that sets the camera for this tracer
func WithCamera(cam camera.Camera) TracerBuilderOption {
	return func(t *tracer) {
		if cam != nil {
			t.camera = cam
		}
	}
}

// WithResolution sets the render output resolution in pixels. Non-positive
// values are ignored and the defaults are kept.
//
// Parameters:
//   - width: the render output width in pixels
//   - height: the render output height in pixels
//
// Returns:
//   - TracerBuilderOption: a function that sets the resolution for this tracer
func WithResolution(width, height int) TracerBuilderOption {
	return func(t *tracer) {
		if width > 0 && height > 0 {
			t.config.Width = uint32(width)
			t.config.Height = uint32(height)
		}
	}
}

// WithMaxBounces sets the path depth cap per sample.
//
// Parameters:
//   - bounces: the maximum number of bounces per path
//
// Returns:
//   - TracerBuilderOption: a function that sets the bounce cap for this tracer
func WithMaxBounces(bounces uint32) TracerBuilderOption {
	return func(t *tracer) {
		t.config.MaxBounces = bounces
	}
}

// WithEnvIntensity sets the multiplier applied to environment radiance when a
// ray escapes the scene.
//
// Parameters:
//   - intensity: the environment radiance multiplier
//
// Returns:
//   - TracerBuilderOption: a function that sets the environment intensity for this tracer
func WithEnvIntensity(intensity float32) TracerBuilderOption {
	return func(t *tracer) {
		t.config.EnvIntensity = intensity
	}
}

// WithExposure sets the tonemap exposure multiplier.
//
// Parameters:
//   - exposure: the exposure multiplier applied before tonemapping
//
// Returns:
//   - TracerBuilderOption: a function that sets the exposure for this tracer
func WithExposure(exposure float32) TracerBuilderOption {
	return func(t *tracer) {
		t.config.Exposure = exposure
	}
}

// WithPresentMode sets how frames are presented to the display surface.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - TracerBuilderOption: a function that sets the present mode for this tracer
func WithPresentMode(mode PresentMode) TracerBuilderOption {
	return func(t *tracer) {
		t.presentMode = mode
	}
}

// WithForceFallbackAdapter requests a software fallback adapter during
// Initialize, useful for environments without GPU hardware.
//
// Returns:
//   - TracerBuilderOption: a function that enables the fallback adapter for this tracer
func WithForceFallbackAdapter() TracerBuilderOption {
	return func(t *tracer) {
		t.forceFallbackAdapter = true
	}
}
