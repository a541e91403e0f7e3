package geometry

import (
	"encoding/binary"
	"math"
)

// GPUTriangleSize is the byte stride of one packed triangle: 32 float/uint
// lanes. The kernel indexes the triangle buffer by this stride; changing it
// breaks the wire contract with the WGSL source.
const GPUTriangleSize = 128

// GPUBVHNodeSize is the byte stride of one packed BVH node: 8 float/uint lanes.
const GPUBVHNodeSize = 32

// GPUTriangle is the GPU-aligned representation of a Triangle.
// Matches the WGSL Triangle struct layout exactly (see tracer's kernel source).
// Size: 128 bytes (std430 aligned); vec3 fields each pad to 16 bytes.
type GPUTriangle struct {
	V0         [3]float32 // offset   0: vertex 0 position + pad (16 bytes)
	V1         [3]float32 // offset  16: vertex 1 position + pad (16 bytes)
	V2         [3]float32 // offset  32: vertex 2 position + pad (16 bytes)
	N0         [3]float32 // offset  48: vertex 0 normal + pad (16 bytes)
	N1         [3]float32 // offset  64: vertex 1 normal + pad (16 bytes)
	N2         [3]float32 // offset  80: vertex 2 normal + pad (16 bytes)
	UV0        [2]float32 // offset  96: vertex 0 texcoord (8 bytes)
	UV1        [2]float32 // offset 104: vertex 1 texcoord (8 bytes)
	UV2        [2]float32 // offset 112: vertex 2 texcoord (8 bytes)
	MaterialID uint32     // offset 120: material table index (4 bytes, + 4 pad)
}

// NewGPUTriangle packs a Triangle into its GPU representation.
func NewGPUTriangle(t *Triangle) GPUTriangle {
	return GPUTriangle{
		V0: t.V0, V1: t.V1, V2: t.V2,
		N0: t.N0, N1: t.N1, N2: t.N2,
		UV0: t.UV0, UV1: t.UV1, UV2: t.UV2,
		MaterialID: t.MaterialIndex,
	}
}

// Marshal serializes the GPUTriangle into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload.
func (g *GPUTriangle) Marshal() []byte {
	buf := make([]byte, GPUTriangleSize)
	putVec3(buf[0:], g.V0)
	putVec3(buf[16:], g.V1)
	putVec3(buf[32:], g.V2)
	putVec3(buf[48:], g.N0)
	putVec3(buf[64:], g.N1)
	putVec3(buf[80:], g.N2)
	putVec2(buf[96:], g.UV0)
	putVec2(buf[104:], g.UV1)
	putVec2(buf[112:], g.UV2)
	binary.LittleEndian.PutUint32(buf[120:], g.MaterialID)
	return buf
}

// Unmarshal reads the GPUTriangle back from its packed form.
//
// Parameters:
//   - buf: a buffer of at least GPUTriangleSize bytes
func (g *GPUTriangle) Unmarshal(buf []byte) {
	g.V0 = getVec3(buf[0:])
	g.V1 = getVec3(buf[16:])
	g.V2 = getVec3(buf[32:])
	g.N0 = getVec3(buf[48:])
	g.N1 = getVec3(buf[64:])
	g.N2 = getVec3(buf[80:])
	g.UV0 = getVec2(buf[96:])
	g.UV1 = getVec2(buf[104:])
	g.UV2 = getVec2(buf[112:])
	g.MaterialID = binary.LittleEndian.Uint32(buf[120:])
}

// GPUBVHNode is the GPU-aligned representation of a BVHNode.
// Matches the WGSL BVHNode struct layout exactly.
// Size: 32 bytes; the uint lanes ride in the w components of the two vec3s.
type GPUBVHNode struct {
	Min       [3]float32 // offset  0: bounds minimum (12 bytes)
	LeftFirst uint32     // offset 12: left child index or first triangle (4 bytes)
	Max       [3]float32 // offset 16: bounds maximum (12 bytes)
	TriCount  uint32     // offset 28: leaf triangle count, 0 for internal (4 bytes)
}

// NewGPUBVHNode packs a BVHNode into its GPU representation.
func NewGPUBVHNode(n *BVHNode) GPUBVHNode {
	return GPUBVHNode{
		Min: n.Min, LeftFirst: n.LeftFirst,
		Max: n.Max, TriCount: n.TriCount,
	}
}

// Marshal serializes the GPUBVHNode into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUBVHNode) Marshal() []byte {
	buf := make([]byte, GPUBVHNodeSize)
	putVec3(buf[0:], g.Min)
	binary.LittleEndian.PutUint32(buf[12:], g.LeftFirst)
	putVec3(buf[16:], g.Max)
	binary.LittleEndian.PutUint32(buf[28:], g.TriCount)
	return buf
}

// Unmarshal reads the GPUBVHNode back from its packed form.
//
// Parameters:
//   - buf: a buffer of at least GPUBVHNodeSize bytes
func (g *GPUBVHNode) Unmarshal(buf []byte) {
	g.Min = getVec3(buf[0:])
	g.LeftFirst = binary.LittleEndian.Uint32(buf[12:])
	g.Max = getVec3(buf[16:])
	g.TriCount = binary.LittleEndian.Uint32(buf[28:])
}

func putVec3(buf []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(v[2]))
}

func putVec2(buf []byte, v [2]float32) {
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(v[1]))
}

func getVec3(buf []byte) [3]float32 {
	return [3]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])),
	}
}

func getVec2(buf []byte) [2]float32 {
	return [2]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])),
	}
}
