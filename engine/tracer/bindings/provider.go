package bindings

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// provider is the unexported implementation of Provider.
type provider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released
	// when no longer needed. They are populated by the tracer backend during
	// initialization, not by user-creation.

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds the GPU texture views created for this provider, keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the GPU samplers created for this provider, keyed by binding index.
	samplers map[int]*wgpu.Sampler
}

// Provider groups the GPU resources behind one bind group: buffers, texture
// views and samplers keyed by binding index, plus the bind group and layout
// created over them. The tracer backend populates providers during
// initialization and scene upload; Release must be called before a provider
// is replaced or the tracer shuts down.
type Provider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// SetBindGroup stores the created bind group, releasing any prior one.
	//
	// Parameters:
	//   - bg: the bind group to store
	SetBindGroup(bg *wgpu.BindGroup)

	// BindGroupLayout returns the created bind group layout for this provider.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// SetBindGroupLayout stores the created bind group layout.
	//
	// Parameters:
	//   - layout: the layout to store
	SetBindGroupLayout(layout *wgpu.BindGroupLayout)

	// Buffer returns the GPU buffer for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// SetBuffer stores a buffer for a specific binding, releasing any prior
	// buffer at that binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to store
	SetBuffer(binding int, buf *wgpu.Buffer)

	// TextureView returns the GPU texture view for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// SetTextureView stores a texture view for a specific binding, releasing
	// any prior view at that binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - view: the texture view to store
	SetTextureView(binding int, view *wgpu.TextureView)

	// Sampler returns the GPU sampler for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// SetSampler stores a sampler for a specific binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - samp: the sampler to store
	SetSampler(binding int, samp *wgpu.Sampler)

	// Release releases any GPU resources held by this provider and clears the
	// internal maps. Safe to call more than once.
	Release()
}

var _ Provider = &provider{}

// NewProvider creates an empty Provider with the given debug label.
//
// Parameters:
//   - label: the debug label for GPU resource names
//
// Returns:
//   - Provider: the new provider
func NewProvider(label string) Provider {
	return &provider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
}

func (p *provider) Label() string {
	return p.label
}

func (p *provider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *provider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *provider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *provider) SetBindGroupLayout(layout *wgpu.BindGroupLayout) {
	p.bindGroupLayout = layout
}

func (p *provider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *provider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if prior, ok := p.buffers[binding]; ok && prior != nil {
		prior.Release()
	}
	p.buffers[binding] = buf
}

func (p *provider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *provider) SetTextureView(binding int, view *wgpu.TextureView) {
	if prior, ok := p.textureViews[binding]; ok && prior != nil {
		prior.Release()
	}
	p.textureViews[binding] = view
}

func (p *provider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *provider) SetSampler(binding int, samp *wgpu.Sampler) {
	p.samplers[binding] = samp
}

func (p *provider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	for binding, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, binding)
	}
	for binding, view := range p.textureViews {
		if view != nil {
			view.Release()
		}
		delete(p.textureViews, binding)
	}
	for binding, samp := range p.samplers {
		if samp != nil {
			samp.Release()
		}
		delete(p.samplers, binding)
	}
}
