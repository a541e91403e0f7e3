package shader

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies what stage a shader's entry point belongs to.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string
}

// Shader defines the interface for a WGSL shader stage: its unique key, source
// code, stage type and entry point name. Shader sources ship embedded in the
// binary and bind group layouts are declared explicitly by the tracer backend,
// so a Shader carries no reflected layout information.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and debug labels.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// Type returns the stage type of this shader.
	//
	// Returns:
	//   - ShaderType: compute, vertex, or fragment
	Type() ShaderType

	// EntryPoint returns the entry point function name within the shader source.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// Descriptor builds a shader module descriptor for module creation on a device.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: a descriptor wrapping this shader's source
	Descriptor() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader creates a Shader from embedded WGSL source.
//
// Parameters:
//   - key: the unique key for this shader, used for caching and debug labels
//   - source: the WGSL source code
//   - shaderType: the stage type of the shader
//   - entryPoint: the entry point function name within the source
//
// Returns:
//   - Shader: the new shader
func NewShader(key, source string, shaderType ShaderType, entryPoint string) Shader {
	return &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		entryPoint: entryPoint,
	}
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Descriptor() *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label:          s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.source},
	}
}
