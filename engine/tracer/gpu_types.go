package tracer

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// PathTraceSource is the WGSL source for the path tracing compute kernel.
// Its SceneParams, Triangle, BVHNode and Material struct declarations match
// the packed byte layouts produced on the CPU side exactly.
//
//go:embed assets/pathtrace.wgsl
var PathTraceSource string

// BlitSource is the WGSL source for the fullscreen blit render pass that
// presents the compute output texture to the surface.
//
//go:embed assets/blit.wgsl
var BlitSource string

// GPUSceneParamsSize is the byte size of one GPUSceneParams uniform (std140 aligned).
const GPUSceneParamsSize = 80

// GPUSceneParams is the per-frame uniform block consumed by the path tracing kernel.
// Matches the WGSL SceneParams struct layout exactly (see PathTraceSource).
// Size: 80 bytes.
type GPUSceneParams struct {
	CameraPos    [3]float32 // offset 0
	Fov          float32    // offset 12
	CameraTarget [3]float32 // offset 16
	Frame        uint32     // offset 28
	CameraUp     [3]float32 // offset 32
	MaxBounces   uint32     // offset 44
	Width        uint32     // offset 48
	Height       uint32     // offset 52
	EnvIntensity float32    // offset 56
	Exposure     float32    // offset 60
	TriCount     uint32     // offset 64
	// 12 bytes padding to offset 80
}

// Marshal serializes the GPUSceneParams into its 80-byte GPU representation.
//
// Returns:
//   - []byte: the serialized uniform data, exactly GPUSceneParamsSize bytes
func (p *GPUSceneParams) Marshal() []byte {
	buf := make([]byte, GPUSceneParamsSize)
	putVec3(buf[0:], p.CameraPos)
	putF32(buf[12:], p.Fov)
	putVec3(buf[16:], p.CameraTarget)
	binary.LittleEndian.PutUint32(buf[28:], p.Frame)
	putVec3(buf[32:], p.CameraUp)
	binary.LittleEndian.PutUint32(buf[44:], p.MaxBounces)
	binary.LittleEndian.PutUint32(buf[48:], p.Width)
	binary.LittleEndian.PutUint32(buf[52:], p.Height)
	putF32(buf[56:], p.EnvIntensity)
	putF32(buf[60:], p.Exposure)
	binary.LittleEndian.PutUint32(buf[64:], p.TriCount)
	return buf
}

// Unmarshal deserializes an 80-byte GPU representation into the GPUSceneParams.
//
// Parameters:
//   - data: the serialized uniform data, at least GPUSceneParamsSize bytes
func (p *GPUSceneParams) Unmarshal(data []byte) {
	_ = data[GPUSceneParamsSize-1]
	p.CameraPos = getVec3(data[0:])
	p.Fov = getF32(data[12:])
	p.CameraTarget = getVec3(data[16:])
	p.Frame = binary.LittleEndian.Uint32(data[28:])
	p.CameraUp = getVec3(data[32:])
	p.MaxBounces = binary.LittleEndian.Uint32(data[44:])
	p.Width = binary.LittleEndian.Uint32(data[48:])
	p.Height = binary.LittleEndian.Uint32(data[52:])
	p.EnvIntensity = getF32(data[56:])
	p.Exposure = getF32(data[60:])
	p.TriCount = binary.LittleEndian.Uint32(data[64:])
}

func putVec3(b []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v[2]))
}

func getVec3(b []byte) [3]float32 {
	return [3]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func putF32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func getF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
