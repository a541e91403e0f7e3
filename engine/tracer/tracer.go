package tracer

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/lumen-go/engine/camera"
	"github.com/Carmen-Shannon/lumen-go/engine/geometry"
	"github.com/Carmen-Shannon/lumen-go/engine/material"
	"github.com/Carmen-Shannon/lumen-go/engine/tracer/pipeline"
	"github.com/Carmen-Shannon/lumen-go/engine/tracer/shader"
	"github.com/Carmen-Shannon/lumen-go/engine/window"
	"github.com/Carmen-Shannon/lumen-go/log"
)

const (
	// DefaultWidth is the default render output width in pixels.
	DefaultWidth = 1920

	// DefaultHeight is the default render output height in pixels.
	DefaultHeight = 1080

	// DefaultMaxBounces is the default path depth cap.
	DefaultMaxBounces = 8

	// DefaultEnvIntensity is the default multiplier on environment radiance.
	DefaultEnvIntensity = 1.0

	// DefaultExposure is the default tonemap exposure multiplier.
	DefaultExposure = 1.0

	// workgroupSize is the kernel's workgroup edge length in pixels. The
	// dispatch grid is sized to cover the render resolution in 8x8 tiles.
	workgroupSize = 8

	pathTracePipelineKey = "path_trace"
	blitPipelineKey      = "blit"
)

// ErrNotInitialized indicates a scene operation was attempted before
// Initialize succeeded.
var ErrNotInitialized = errors.New("tracer is not initialized")

// Config holds the render configuration for a Tracer.
type Config struct {
	// Width is the render output width in pixels.
	Width uint32

	// Height is the render output height in pixels.
	Height uint32

	// MaxBounces caps the path depth per sample.
	MaxBounces uint32

	// EnvIntensity scales environment radiance on ray miss.
	EnvIntensity float32

	// Exposure scales accumulated radiance before tonemapping.
	Exposure float32
}

// ConfigUpdate carries a partial render configuration change. Nil fields are
// left unchanged by SetConfig. Output resolution is fixed at initialization
// and cannot be updated.
type ConfigUpdate struct {
	MaxBounces   *uint32
	EnvIntensity *float32
	Exposure     *float32
}

// tracer is the implementation of the Tracer interface.
type tracer struct {
	mu     *sync.Mutex
	logger log.Logger

	config Config
	camera camera.Camera

	backendType TracerBackendType
	backend     TracerBackend

	computePipeline pipeline.Pipeline
	blitPipeline    pipeline.Pipeline

	// forceFallbackAdapter requests a software adapter during Initialize.
	forceFallbackAdapter bool
	presentMode          PresentMode

	// frame counts completed Render calls since the last accumulation reset.
	// The kernel's blend weight 1/(frame+1) makes frame 0 overwrite history.
	frame uint32

	initialized bool
	sceneSet    bool

	// triCount is the triangle count of the resident scene.
	triCount uint32
}

// Tracer is the progressive GPU path tracing renderer. A Tracer owns the GPU
// device, the compiled kernel pipelines and the resident scene buffers. One
// scene is resident at a time; camera and configuration changes reset the
// accumulated image so the next frame starts a fresh running average.
//
// Orchestration is single threaded: scene builds, packing and uploads all
// block the calling goroutine. All tracing work runs on the GPU as one
// compute dispatch per Render call.
type Tracer interface {
	// Initialize acquires a GPU device compatible with the window's surface,
	// builds the compute and blit pipelines and allocates frame resources.
	// Returns false if no compatible GPU is available; this is terminal for
	// the instance and must be surfaced to the caller rather than retried.
	//
	// Parameters:
	//   - win: the window providing the presentation surface
	//
	// Returns:
	//   - bool: true on success, false if no compatible GPU device was found
	Initialize(win window.Window) bool

	// SetScene builds a BVH over the triangles, packs the result and uploads
	// all scene buffers, then resets accumulation. The prior scene, if any,
	// is fully replaced; on error the prior scene remains resident.
	//
	// Parameters:
	//   - triangles: world-space triangles to trace against
	//   - materials: the material table referenced by triangle material indices
	//
	// Returns:
	//   - error: ErrNotInitialized, ErrEmptyScene, ErrNoMaterials, ErrMaterialOutOfRange, or a GPU allocation error
	SetScene(triangles []geometry.Triangle, materials []material.Material) error

	// SetCamera merges a partial camera update and resets accumulation, since
	// a viewpoint change invalidates accumulated samples.
	//
	// Parameters:
	//   - update: the partial camera update to merge
	SetCamera(update camera.Update)

	// SetConfig merges a partial render configuration update and resets
	// accumulation.
	//
	// Parameters:
	//   - update: the partial configuration update to merge
	SetConfig(update ConfigUpdate)

	// Render traces one sample per pixel and presents the result. No-op if the
	// tracer is not initialized or no scene is set. Each completed call
	// advances the frame counter by exactly 1.
	//
	// Returns:
	//   - error: an error if frame encoding or surface acquisition fails
	Render() error

	// ResetAccumulation restarts the running average; the next Render call
	// overwrites accumulated history rather than blending into it.
	ResetAccumulation()

	// FrameCount reports completed frames since the last accumulation reset.
	// Consumers poll this to track convergence progress.
	//
	// Returns:
	//   - uint32: the frame counter
	FrameCount() uint32

	// Config returns a copy of the current render configuration.
	//
	// Returns:
	//   - Config: the current configuration
	Config() Config

	// Resize reconfigures the presentation surface for a new window size.
	// The render resolution is unchanged; the blit pass stretches the output.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// Release releases all GPU resources. The tracer must not be used after.
	Release()
}

var _ Tracer = &tracer{}

// NewTracer creates a Tracer with the specified options applied over defaults.
// The returned tracer holds no GPU resources until Initialize is called.
//
// Parameters:
//   - opts: functional options to configure the tracer
//
// Returns:
//   - Tracer: the configured tracer
func NewTracer(opts ...TracerBuilderOption) Tracer {
	t := &tracer{
		mu:     &sync.Mutex{},
		logger: log.New("tracer"),
		config: Config{
			Width:        DefaultWidth,
			Height:       DefaultHeight,
			MaxBounces:   DefaultMaxBounces,
			EnvIntensity: DefaultEnvIntensity,
			Exposure:     DefaultExposure,
		},
		camera:      camera.NewCamera(),
		backendType: BackendTypeWGPU,
		presentMode: PresentModeVSync,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *tracer) Initialize(win window.Window) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return true
	}

	backend, err := newWGPUTracerBackend(win.SurfaceDescriptor(), t.forceFallbackAdapter)
	if err != nil {
		t.logger.Errorf("gpu acquisition failed: %v", err)
		return false
	}
	t.backend = backend
	t.backend.SetPresentMode(t.presentMode)
	t.backend.ConfigureSurface(win.Width(), win.Height())

	t.computePipeline = pipeline.NewPipeline(pathTracePipelineKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader(pathTracePipelineKey, PathTraceSource, shader.ShaderTypeCompute, "main")),
	)
	t.blitPipeline = pipeline.NewPipeline(blitPipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(shader.NewShader(blitPipelineKey+"_vs", BlitSource, shader.ShaderTypeVertex, "vs_main")),
		pipeline.WithFragmentShader(shader.NewShader(blitPipelineKey+"_fs", BlitSource, shader.ShaderTypeFragment, "fs_main")),
		pipeline.WithTargetFormat(t.backend.SurfaceFormat()),
	)

	if err := t.backend.RegisterComputePipeline(t.computePipeline); err != nil {
		t.logger.Errorf("compute pipeline creation failed: %v", err)
		t.teardownLocked()
		return false
	}
	if err := t.backend.RegisterRenderPipeline(t.blitPipeline); err != nil {
		t.logger.Errorf("blit pipeline creation failed: %v", err)
		t.teardownLocked()
		return false
	}
	if err := t.backend.InitFrameResources(t.config.Width, t.config.Height); err != nil {
		t.logger.Errorf("frame resource allocation failed: %v", err)
		t.teardownLocked()
		return false
	}

	t.initialized = true
	t.logger.Infof("initialized %dx%d render target", t.config.Width, t.config.Height)
	return true
}

func (t *tracer) SetScene(triangles []geometry.Triangle, materials []material.Material) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	if len(triangles) == 0 {
		return ErrEmptyScene
	}

	bvh := geometry.BuildBVH(triangles)
	packed, err := PackScene(bvh, materials)
	if err != nil {
		return err
	}
	if err := t.backend.InitSceneBuffers(packed); err != nil {
		return err
	}

	t.triCount = packed.TriCount
	t.sceneSet = true
	t.frame = 0
	t.logger.Debugf("scene resident: %d triangles, %d nodes, %d materials",
		packed.TriCount, len(bvh.Nodes), len(materials))
	return nil
}

func (t *tracer) SetCamera(update camera.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.camera.Update(update)
	t.frame = 0
}

func (t *tracer) SetConfig(update ConfigUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if update.MaxBounces != nil {
		t.config.MaxBounces = *update.MaxBounces
	}
	if update.EnvIntensity != nil {
		t.config.EnvIntensity = *update.EnvIntensity
	}
	if update.Exposure != nil {
		t.config.Exposure = *update.Exposure
	}
	t.frame = 0
}

func (t *tracer) Render() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized || !t.sceneSet {
		return nil
	}

	params := GPUSceneParams{
		CameraPos:    t.camera.Position(),
		Fov:          t.camera.Fov(),
		CameraTarget: t.camera.Target(),
		Frame:        t.frame,
		CameraUp:     t.camera.Up(),
		MaxBounces:   t.config.MaxBounces,
		Width:        t.config.Width,
		Height:       t.config.Height,
		EnvIntensity: t.config.EnvIntensity,
		Exposure:     t.config.Exposure,
		TriCount:     t.triCount,
	}
	t.backend.WriteParams(params.Marshal())

	workGroups := [3]uint32{
		(t.config.Width + workgroupSize - 1) / workgroupSize,
		(t.config.Height + workgroupSize - 1) / workgroupSize,
		1,
	}
	if err := t.backend.RenderFrame(t.computePipeline, t.blitPipeline, workGroups); err != nil {
		return err
	}

	t.frame++
	return nil
}

func (t *tracer) ResetAccumulation() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frame = 0
}

func (t *tracer) FrameCount() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.frame
}

func (t *tracer) Config() Config {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.config
}

func (t *tracer) Resize(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized || width <= 0 || height <= 0 {
		return
	}
	t.backend.ConfigureSurface(width, height)
}

func (t *tracer) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.teardownLocked()
}

// teardownLocked releases pipelines and the backend. Caller must hold mu.
func (t *tracer) teardownLocked() {
	if t.computePipeline != nil {
		t.computePipeline.Release()
		t.computePipeline = nil
	}
	if t.blitPipeline != nil {
		t.blitPipeline.Release()
		t.blitPipeline = nil
	}
	if t.backend != nil {
		t.backend.Release()
		t.backend = nil
	}
	t.initialized = false
	t.sceneSet = false
	t.frame = 0
}
