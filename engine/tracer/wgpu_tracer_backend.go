package tracer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/lumen-go/engine/tracer/bindings"
	"github.com/Carmen-Shannon/lumen-go/engine/tracer/pipeline"
	"github.com/Carmen-Shannon/lumen-go/engine/tracer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Compute bind group binding indices. These mirror the @binding declarations
// in the path tracing kernel.
const (
	bindingParams = iota
	bindingTriangles
	bindingNodes
	bindingMaterials
	bindingAccum
	bindingOutputTexture
)

// Blit bind group binding indices.
const (
	blitBindingTexture = iota
	blitBindingSampler
)

type wgpuTracerBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode

	// computeProvider holds the uniform buffer, scene storage buffers,
	// accumulation buffer and output texture view behind bind group 0 of the
	// path tracing kernel.
	computeProvider bindings.Provider

	// blitProvider holds the output texture view and sampler behind bind
	// group 0 of the fullscreen blit pass.
	blitProvider bindings.Provider

	// renderWidth and renderHeight are the compute output dimensions, fixed
	// at initialization. The blit pass stretches this to the surface size.
	renderWidth  uint32
	renderHeight uint32

	// outputTexture is the rgba8unorm storage texture the kernel writes its
	// tonemapped result into; retained so it can be released.
	outputTexture *wgpu.Texture
}

type wgpuTracerBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface
	SetDevice(device *wgpu.Device)
	SetQueue(queue *wgpu.Queue)
	SetInstance(instance *wgpu.Instance)
	SetAdapter(adapter *wgpu.Adapter)
	SetSurface(surface *wgpu.Surface)

	// SurfaceFormat returns the configured surface texture format, used as the
	// color target format of the blit pipeline.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format, or wgpu.TextureFormatUndefined before ConfigureSurface
	SurfaceFormat() wgpu.TextureFormat

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// RegisterComputePipeline creates the compute pipeline for the path tracing kernel,
	// including the explicit bind group layout covering the uniform, scene buffers,
	// accumulation buffer and output storage texture.
	//
	// Parameters:
	//   - p: the pipeline object containing the compute shader
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterComputePipeline(p pipeline.Pipeline) error

	// RegisterRenderPipeline creates the fullscreen blit render pipeline with an
	// explicit texture + sampler bind group layout, targeting the pipeline's
	// configured target format.
	//
	// Parameters:
	//   - p: the pipeline object containing the vertex and fragment shaders
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitFrameResources creates the per-instance GPU resources tied to the render
	// resolution: the scene params uniform buffer, the accumulation buffer, the
	// output storage texture, the blit sampler, and the blit bind group.
	//
	// Parameters:
	//   - width: the render output width in pixels
	//   - height: the render output height in pixels
	//
	// Returns:
	//   - error: an error if any resource allocation fails
	InitFrameResources(width, height uint32) error

	// InitSceneBuffers uploads packed scene data as three read-only storage buffers
	// and rebuilds the compute bind group over all bindings. Prior scene buffers are
	// released and fully replaced.
	//
	// Parameters:
	//   - packed: the packed scene buffers to upload
	//
	// Returns:
	//   - error: an error if buffer or bind group creation fails
	InitSceneBuffers(packed *PackedScene) error

	// WriteParams writes the serialized scene params into the uniform buffer.
	//
	// Parameters:
	//   - data: the serialized GPUSceneParams bytes
	WriteParams(data []byte)

	// RenderFrame encodes and submits one frame: a compute pass dispatching the path
	// tracing kernel over the given workgroup grid, then a render pass sampling the
	// output texture to the acquired surface texture, followed by presentation.
	//
	// Parameters:
	//   - compute: the registered compute pipeline
	//   - blit: the registered blit render pipeline
	//   - workGroupCount: the number of workgroups to dispatch in x, y, z
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired or encoding fails
	RenderFrame(compute, blit pipeline.Pipeline, workGroupCount [3]uint32) error

	// Release releases all GPU resources held by the backend. Safe to call more than once.
	Release()
}

var _ TracerBackend = &wgpuTracerBackendImpl{}

// newWGPUTracerBackend acquires an adapter and device compatible with the
// given surface. Unlike most backend failures this one is recoverable by the
// caller, so acquisition errors are returned rather than panicking.
func newWGPUTracerBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuTracerBackend, error) {
	runtime.LockOSThread()
	w := &wgpuTracerBackendImpl{
		mu:              &sync.Mutex{},
		instance:        wgpu.CreateInstance(nil),
		presentMode:     wgpu.PresentModeFifo,
		computeProvider: bindings.NewProvider("Path Trace"),
		blitProvider:    bindings.NewProvider("Blit"),
	}
	w.SetSurface(w.instance.CreateSurface(surfaceDescriptor))

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("no compatible adapter: %w", err)
	}
	w.SetAdapter(a)

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("no compatible device: %w", err)
	}
	w.SetDevice(d)
	w.SetQueue(d.GetQueue())

	return w, nil
}

func (b *wgpuTracerBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuTracerBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuTracerBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuTracerBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuTracerBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuTracerBackendImpl) SetDevice(device *wgpu.Device) {
	b.device = device
}

func (b *wgpuTracerBackendImpl) SetQueue(queue *wgpu.Queue) {
	b.queue = queue
}

func (b *wgpuTracerBackendImpl) SetInstance(instance *wgpu.Instance) {
	b.instance = instance
}

func (b *wgpuTracerBackendImpl) SetAdapter(adapter *wgpu.Adapter) {
	b.adapter = adapter
}

func (b *wgpuTracerBackendImpl) SetSurface(surface *wgpu.Surface) {
	b.surface = surface
}

func (b *wgpuTracerBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	if b.surfaceFormat == nil {
		return wgpu.TextureFormatUndefined
	}
	return *b.surfaceFormat
}

func (b *wgpuTracerBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuTracerBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

// computeBindGroupLayout declares the kernel's bind group 0 explicitly.
// The entries must stay in lockstep with the @binding declarations in
// PathTraceSource.
func (b *wgpuTracerBackendImpl) computeBindGroupLayout() (*wgpu.BindGroupLayout, error) {
	return b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Path Trace Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    bindingParams,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
			{
				Binding:    bindingTriangles,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
			{
				Binding:    bindingNodes,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
			{
				Binding:    bindingMaterials,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
			{
				Binding:    bindingAccum,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeStorage,
				},
			},
			{
				Binding:    bindingOutputTexture,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        wgpu.TextureFormatRGBA8Unorm,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
}

func (b *wgpuTracerBackendImpl) blitBindGroupLayout() (*wgpu.BindGroupLayout, error) {
	return b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Blit Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    blitBindingTexture,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    blitBindingSampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
}

func (b *wgpuTracerBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeCompute) == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	computeShader := p.Shader(shader.ShaderTypeCompute)
	s, err := b.device.CreateShaderModule(computeShader.Descriptor())
	if err != nil {
		return err
	}

	bgl, err := b.computeBindGroupLayout()
	if err != nil {
		return fmt.Errorf("failed to create compute bind group layout: %w", err)
	}
	b.computeProvider.SetBindGroupLayout(bgl)

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)

	return nil
}

func (b *wgpuTracerBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeVertex) == nil || p.Shader(shader.ShaderTypeFragment) == nil {
		return errors.New("vertex and fragment shaders must be set to create a render pipeline")
	}

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Descriptor())
	if err != nil {
		return err
	}
	fs, err := b.device.CreateShaderModule(fragmentShader.Descriptor())
	if err != nil {
		return err
	}

	bgl, err := b.blitBindGroupLayout()
	if err != nil {
		return fmt.Errorf("failed to create blit bind group layout: %w", err)
	}
	b.blitProvider.SetBindGroupLayout(bgl)

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    p.TargetFormat(),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)

	return nil
}

func (b *wgpuTracerBackendImpl) InitFrameResources(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.renderWidth = width
	b.renderHeight = height

	paramsBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            b.computeProvider.Label() + " Params Buffer",
		Size:             GPUSceneParamsSize,
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return err
	}
	b.computeProvider.SetBuffer(bindingParams, paramsBuf)

	// One vec4 accumulation texel per pixel.
	accumBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            b.computeProvider.Label() + " Accumulation Buffer",
		Size:             uint64(width) * uint64(height) * 16,
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return err
	}
	b.computeProvider.SetBuffer(bindingAccum, accumBuf)

	if b.outputTexture != nil {
		b.outputTexture.Release()
		b.outputTexture = nil
	}
	outputTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Path Trace Output Texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return err
	}
	b.outputTexture = outputTexture

	computeView, err := outputTexture.CreateView(nil)
	if err != nil {
		return err
	}
	b.computeProvider.SetTextureView(bindingOutputTexture, computeView)

	blitView, err := outputTexture.CreateView(nil)
	if err != nil {
		return err
	}
	b.blitProvider.SetTextureView(blitBindingTexture, blitView)

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         b.blitProvider.Label() + " Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}
	b.blitProvider.SetSampler(blitBindingSampler, samp)

	blitBindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.blitProvider.Label() + " Bind Group",
		Layout: b.blitProvider.BindGroupLayout(),
		Entries: []wgpu.BindGroupEntry{
			{
				Binding:     blitBindingTexture,
				TextureView: b.blitProvider.TextureView(blitBindingTexture),
			},
			{
				Binding: blitBindingSampler,
				Sampler: b.blitProvider.Sampler(blitBindingSampler),
			},
		},
	})
	if err != nil {
		return err
	}
	b.blitProvider.SetBindGroup(blitBindGroup)

	return nil
}

func (b *wgpuTracerBackendImpl) InitSceneBuffers(packed *PackedScene) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	type upload struct {
		binding int
		label   string
		data    []byte
	}
	uploads := []upload{
		{bindingTriangles, " Triangle Buffer", packed.Triangles},
		{bindingNodes, " BVH Node Buffer", packed.Nodes},
		{bindingMaterials, " Material Buffer", packed.Materials},
	}

	// Create all three before replacing any prior buffers so a failed
	// allocation leaves the resident scene untouched.
	created := make([]*wgpu.Buffer, 0, len(uploads))
	for _, u := range uploads {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            b.computeProvider.Label() + u.label,
			Size:             uint64(len(u.data)),
			Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			for _, c := range created {
				c.Release()
			}
			return err
		}
		created = append(created, buf)
	}
	for i, u := range uploads {
		b.queue.WriteBuffer(created[i], 0, u.data)
	}

	// The bind group is built against the new buffers before any of them is
	// installed in the provider. If creation fails the prior scene, its
	// buffers and its bind group all stay resident.
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.computeProvider.Label() + " Bind Group",
		Layout: b.computeProvider.BindGroupLayout(),
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: bindingParams,
				Buffer:  b.computeProvider.Buffer(bindingParams),
				Size:    wgpu.WholeSize,
			},
			{
				Binding: bindingTriangles,
				Buffer:  created[0],
				Size:    wgpu.WholeSize,
			},
			{
				Binding: bindingNodes,
				Buffer:  created[1],
				Size:    wgpu.WholeSize,
			},
			{
				Binding: bindingMaterials,
				Buffer:  created[2],
				Size:    wgpu.WholeSize,
			},
			{
				Binding: bindingAccum,
				Buffer:  b.computeProvider.Buffer(bindingAccum),
				Size:    wgpu.WholeSize,
			},
			{
				Binding:     bindingOutputTexture,
				TextureView: b.computeProvider.TextureView(bindingOutputTexture),
			},
		},
	})
	if err != nil {
		for _, c := range created {
			c.Release()
		}
		return err
	}

	for i, u := range uploads {
		b.computeProvider.SetBuffer(u.binding, created[i])
	}
	b.computeProvider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuTracerBackendImpl) WriteParams(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.computeProvider.Buffer(bindingParams)
	if buf == nil {
		return
	}
	b.queue.WriteBuffer(buf, 0, data)
}

func (b *wgpuTracerBackendImpl) RenderFrame(compute, blit pipeline.Pipeline, workGroupCount [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(compute.Pipeline().(*wgpu.ComputePipeline))
	computePass.SetBindGroup(0, b.computeProvider.BindGroup(), nil)
	computePass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	computePass.End()

	renderPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	renderPass.SetPipeline(blit.Pipeline().(*wgpu.RenderPipeline))
	renderPass.SetBindGroup(0, b.blitProvider.BindGroup(), nil)
	renderPass.Draw(3, 1, 0, 0)
	renderPass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.queue.Submit(commandBuffer)
	b.surface.Present()

	commandBuffer.Release()
	encoder.Release()
	view.Release()
	surfaceTexture.Release()

	return nil
}

func (b *wgpuTracerBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.computeProvider.Release()
	b.blitProvider.Release()

	if b.outputTexture != nil {
		b.outputTexture.Release()
		b.outputTexture = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
		b.queue = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
