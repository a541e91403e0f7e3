package tracer

// TracerBackendType identifies the GPU backend implementation used by the Tracer.
type TracerBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based tracing backend.
	BackendTypeWGPU TracerBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// TracerBackend is the top-level backend interface for the Tracer.
// It embeds the concrete backend interface for the selected GPU API.
type TracerBackend interface {
	wgpuTracerBackend
}
