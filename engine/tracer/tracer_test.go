package tracer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/lumen-go/common"
	"github.com/Carmen-Shannon/lumen-go/engine/camera"
	"github.com/Carmen-Shannon/lumen-go/engine/material"
	"github.com/Carmen-Shannon/lumen-go/engine/tracer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// stubBackend fakes the GPU backend so scene orchestration can be exercised
// without a device.
type stubBackend struct {
	sceneErr   error
	sceneCalls int
}

func (s *stubBackend) Device() *wgpu.Device                            { return nil }
func (s *stubBackend) Queue() *wgpu.Queue                              { return nil }
func (s *stubBackend) Instance() *wgpu.Instance                        { return nil }
func (s *stubBackend) Adapter() *wgpu.Adapter                          { return nil }
func (s *stubBackend) Surface() *wgpu.Surface                          { return nil }
func (s *stubBackend) SetDevice(*wgpu.Device)                          {}
func (s *stubBackend) SetQueue(*wgpu.Queue)                            {}
func (s *stubBackend) SetInstance(*wgpu.Instance)                      {}
func (s *stubBackend) SetAdapter(*wgpu.Adapter)                        {}
func (s *stubBackend) SetSurface(*wgpu.Surface)                        {}
func (s *stubBackend) SurfaceFormat() wgpu.TextureFormat               { return wgpu.TextureFormatBGRA8Unorm }
func (s *stubBackend) ConfigureSurface(width, height int)              {}
func (s *stubBackend) SetPresentMode(PresentMode)                      {}
func (s *stubBackend) RegisterComputePipeline(pipeline.Pipeline) error { return nil }
func (s *stubBackend) RegisterRenderPipeline(pipeline.Pipeline) error  { return nil }
func (s *stubBackend) InitFrameResources(width, height uint32) error   { return nil }
func (s *stubBackend) WriteParams([]byte)                              {}
func (s *stubBackend) Release()                                        {}

func (s *stubBackend) InitSceneBuffers(packed *PackedScene) error {
	s.sceneCalls++
	return s.sceneErr
}

func (s *stubBackend) RenderFrame(compute, blit pipeline.Pipeline, workGroupCount [3]uint32) error {
	return nil
}

func TestNewTracerDefaults(t *testing.T) {
	tr := NewTracer()
	cfg := tr.Config()

	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Fatalf("expected %dx%d render target; got %dx%d", DefaultWidth, DefaultHeight, cfg.Width, cfg.Height)
	}
	if cfg.MaxBounces != DefaultMaxBounces {
		t.Fatalf("expected %d max bounces; got %d", DefaultMaxBounces, cfg.MaxBounces)
	}
	if cfg.EnvIntensity != DefaultEnvIntensity {
		t.Fatalf("expected env intensity %v; got %v", float32(DefaultEnvIntensity), cfg.EnvIntensity)
	}
	if cfg.Exposure != DefaultExposure {
		t.Fatalf("expected exposure %v; got %v", float32(DefaultExposure), cfg.Exposure)
	}
	if tr.FrameCount() != 0 {
		t.Fatalf("expected frame counter 0; got %d", tr.FrameCount())
	}
}

func TestNewTracerOptions(t *testing.T) {
	tr := NewTracer(
		WithResolution(640, 360),
		WithMaxBounces(4),
		WithEnvIntensity(0.25),
		WithExposure(2.0),
	)
	cfg := tr.Config()

	if cfg.Width != 640 || cfg.Height != 360 {
		t.Fatalf("expected 640x360; got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.MaxBounces != 4 {
		t.Fatalf("expected 4 max bounces; got %d", cfg.MaxBounces)
	}
	if cfg.EnvIntensity != 0.25 {
		t.Fatalf("expected env intensity 0.25; got %v", cfg.EnvIntensity)
	}
	if cfg.Exposure != 2.0 {
		t.Fatalf("expected exposure 2.0; got %v", cfg.Exposure)
	}
}

func TestWithResolutionIgnoresNonPositive(t *testing.T) {
	tr := NewTracer(WithResolution(0, -5))
	cfg := tr.Config()

	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Fatalf("expected defaults to survive invalid resolution; got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSetSceneBeforeInitialize(t *testing.T) {
	tr := NewTracer()
	tris := sceneTriangles(4, 0)
	mats := []material.Material{material.New()}

	if err := tr.SetScene(tris, mats); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized; got %v", err)
	}
}

func TestSetSceneUploadFailureKeepsPriorScene(t *testing.T) {
	backend := &stubBackend{}
	tr := NewTracer()
	impl := tr.(*tracer)
	impl.backend = backend
	impl.initialized = true

	mats := []material.Material{material.New()}
	if err := tr.SetScene(sceneTriangles(4, 0), mats); err != nil {
		t.Fatalf("expected first upload to succeed; got %v", err)
	}
	if impl.triCount != 4 || !impl.sceneSet {
		t.Fatalf("expected 4 resident triangles; got %d (set %v)", impl.triCount, impl.sceneSet)
	}

	// A failed replacement must leave the resident scene and the running
	// accumulation untouched.
	impl.frame = 12
	backend.sceneErr = errors.New("out of device memory")
	if err := tr.SetScene(sceneTriangles(8, 0), mats); err == nil {
		t.Fatal("expected upload failure to surface")
	}
	if impl.triCount != 4 || !impl.sceneSet {
		t.Fatalf("expected prior scene to stay resident; got %d triangles (set %v)", impl.triCount, impl.sceneSet)
	}
	if tr.FrameCount() != 12 {
		t.Fatalf("expected frame counter untouched on failure; got %d", tr.FrameCount())
	}
	if backend.sceneCalls != 2 {
		t.Fatalf("expected 2 upload attempts; got %d", backend.sceneCalls)
	}
}

func TestRenderUninitializedIsNoOp(t *testing.T) {
	tr := NewTracer()

	if err := tr.Render(); err != nil {
		t.Fatalf("expected nil from uninitialized render; got %v", err)
	}
	if tr.FrameCount() != 0 {
		t.Fatalf("expected frame counter to stay 0; got %d", tr.FrameCount())
	}
}

func TestSetConfigMergesPartialUpdates(t *testing.T) {
	tr := NewTracer()

	bounces := uint32(2)
	tr.SetConfig(ConfigUpdate{MaxBounces: &bounces})
	cfg := tr.Config()
	if cfg.MaxBounces != 2 {
		t.Fatalf("expected 2 max bounces; got %d", cfg.MaxBounces)
	}
	if cfg.EnvIntensity != DefaultEnvIntensity || cfg.Exposure != DefaultExposure {
		t.Fatal("expected unset fields to be left unchanged")
	}

	exposure := float32(0.5)
	tr.SetConfig(ConfigUpdate{Exposure: &exposure})
	cfg = tr.Config()
	if cfg.MaxBounces != 2 {
		t.Fatalf("expected earlier update to survive; got %d max bounces", cfg.MaxBounces)
	}
	if cfg.Exposure != 0.5 {
		t.Fatalf("expected exposure 0.5; got %v", cfg.Exposure)
	}
}

func TestSetConfigEmptyIsAccumulationResetOnly(t *testing.T) {
	tr := NewTracer()
	before := tr.Config()

	tr.SetConfig(ConfigUpdate{})

	if tr.Config() != before {
		t.Fatal("expected empty update to leave configuration unchanged")
	}
	if tr.FrameCount() != 0 {
		t.Fatalf("expected frame counter 0; got %d", tr.FrameCount())
	}
}

func TestSetCameraUninitializedIsSafe(t *testing.T) {
	tr := NewTracer(WithCamera(camera.NewCamera()))

	pos := common.Vec3{1, 2, 3}
	tr.SetCamera(camera.Update{Position: &pos})

	if tr.FrameCount() != 0 {
		t.Fatalf("expected frame counter 0; got %d", tr.FrameCount())
	}
}

func TestAccumulationResetFromNonzeroFrame(t *testing.T) {
	// A viewpoint or configuration change invalidates accumulated samples, so
	// each reset path must return the frame counter to exactly 0 from a
	// partially converged state, not merely leave it low.
	resets := []struct {
		name  string
		reset func(tr Tracer)
	}{
		{"set camera", func(tr Tracer) {
			pos := common.Vec3{0, 2, 5}
			tr.SetCamera(camera.Update{Position: &pos})
		}},
		{"set config", func(tr Tracer) {
			bounces := uint32(3)
			tr.SetConfig(ConfigUpdate{MaxBounces: &bounces})
		}},
		{"empty config update", func(tr Tracer) {
			tr.SetConfig(ConfigUpdate{})
		}},
		{"explicit reset", func(tr Tracer) {
			tr.ResetAccumulation()
		}},
	}
	for _, tt := range resets {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracer()
			tr.(*tracer).frame = 57
			if tr.FrameCount() != 57 {
				t.Fatalf("expected frame counter 57 before reset; got %d", tr.FrameCount())
			}
			tt.reset(tr)
			if tr.FrameCount() != 0 {
				t.Fatalf("expected frame counter exactly 0; got %d", tr.FrameCount())
			}
		})
	}
}

func TestResetAccumulationUninitializedIsSafe(t *testing.T) {
	tr := NewTracer()
	tr.ResetAccumulation()

	if tr.FrameCount() != 0 {
		t.Fatalf("expected frame counter 0; got %d", tr.FrameCount())
	}
}

func TestReleaseUninitializedIsSafe(t *testing.T) {
	tr := NewTracer()
	tr.Release()
	tr.Release()
}

func TestSceneParamsFromCamera(t *testing.T) {
	// The per-frame uniform block must mirror the camera state exactly so the
	// kernel's ray generation matches the CPU-side configuration.
	cam := camera.NewCamera(
		camera.WithPosition(0, 1, 3.4),
		camera.WithTarget(0, 1, 0),
		camera.WithFov(1.2),
	)

	params := GPUSceneParams{
		CameraPos:    cam.Position(),
		Fov:          cam.Fov(),
		CameraTarget: cam.Target(),
		CameraUp:     cam.Up(),
	}

	if params.CameraPos != [3]float32{0, 1, 3.4} {
		t.Fatalf("expected camera position (0, 1, 3.4); got %v", params.CameraPos)
	}
	if params.CameraTarget != [3]float32{0, 1, 0} {
		t.Fatalf("expected camera target (0, 1, 0); got %v", params.CameraTarget)
	}
	if params.Fov != 1.2 {
		t.Fatalf("expected fov 1.2; got %v", params.Fov)
	}
}

func TestAccumulationBlendConverges(t *testing.T) {
	// CPU mirror of the kernel's running average: mix(prev, color, 1/(frame+1))
	// over a constant signal must converge to that signal regardless of the
	// initial buffer contents.
	const signal = float32(0.75)
	accum := float32(123.0)
	for frame := uint32(0); frame < 64; frame++ {
		w := 1.0 / float32(frame+1)
		accum = accum*(1-w) + signal*w
	}
	if diff := accum - signal; diff > 1e-4 || diff < -1e-4 {
		t.Fatalf("expected running average to converge to %v; got %v", signal, accum)
	}
}
